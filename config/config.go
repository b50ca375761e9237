// Package config loads the settings shared by npk and npk-stored from a YAML
// or JSON file.
//
//	log:
//	  level: info
//	  format: logfmt
//	keys:
//	  dir: /etc/npk/keys
//	  name: release
//	  legacy: secp256k1
//	  modern: dilithium3
//	store:
//	  write_policy: first
//	  backends:
//	    - name: localfs
//	      options: {dir: /var/lib/npk}
//	server:
//	  listen: 127.0.0.1:7420
//	  metrics_listen: 127.0.0.1:9420
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"xdao.co/npk/keys"
	"xdao.co/npk/logging"
	"xdao.co/npk/storage/registry"
)

// PathEnv names the config file used when no path is given.
const PathEnv = "NPK_CONFIG"

type Config struct {
	Log    Log             `yaml:"log" json:"log"`
	Keys   Keys            `yaml:"keys" json:"keys"`
	Store  registry.Config `yaml:"store" json:"store"`
	Server Server          `yaml:"server" json:"server"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type Keys struct {
	// Dir is the key store directory; ~/.npk/keys when empty.
	Dir    string `yaml:"dir" json:"dir"`
	Name   string `yaml:"name" json:"name"`
	Legacy string `yaml:"legacy" json:"legacy"`
	Modern string `yaml:"modern" json:"modern"`
}

type Server struct {
	Listen        string `yaml:"listen" json:"listen"`
	MetricsListen string `yaml:"metrics_listen" json:"metrics_listen"`
	MaxMsgBytes   int    `yaml:"max_msg_bytes" json:"max_msg_bytes"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Log: Log{Level: "info", Format: logging.FormatConsole},
		Keys: Keys{
			Name:   "default",
			Legacy: string(keys.DefaultSuite.Legacy),
			Modern: string(keys.DefaultSuite.Modern),
		},
		Server: Server{Listen: "127.0.0.1:7420"},
	}
}

// Load reads path over Default. An empty path falls back to $NPK_CONFIG;
// with neither set the defaults are returned. A non-empty $NPK_LOG_LEVEL
// replaces log.level either way.
//
// Files ending in .json are decoded as JSON, everything else as YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path == "" {
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv lets $NPK_LOG_LEVEL override the file and default level.
func (c *Config) applyEnv() {
	if level := strings.TrimSpace(os.Getenv(logging.LevelEnv)); level != "" {
		c.Log.Level = level
	}
}

// Validate checks the key suite, and the store section when one is set.
func (c Config) Validate() error {
	if _, err := c.Keys.Suite(); err != nil {
		return fmt.Errorf("config: keys: %w", err)
	}
	if c.Keys.Name != "" {
		if err := keys.CheckName(c.Keys.Name); err != nil {
			return fmt.Errorf("config: keys.name: %w", err)
		}
	}
	if len(c.Store.Backends) > 0 {
		if err := c.Store.Validate(); err != nil {
			return fmt.Errorf("config: store: %w", err)
		}
	}
	return nil
}

// Suite resolves the configured scheme names.
func (k Keys) Suite() (keys.Suite, error) {
	suite := keys.DefaultSuite
	if k.Legacy != "" {
		s, err := keys.ParseScheme(k.Legacy)
		if err != nil {
			return keys.Suite{}, err
		}
		suite.Legacy = s
	}
	if k.Modern != "" {
		s, err := keys.ParseScheme(k.Modern)
		if err != nil {
			return keys.Suite{}, err
		}
		suite.Modern = s
	}
	return suite, suite.Validate()
}

// Logging converts the log section for logging.New.
func (l Log) Logging() logging.Config {
	return logging.Config{Level: l.Level, Format: l.Format}
}
