// Package logging builds the zap loggers used by the npk binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	zaplogfmt "github.com/sykesm/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatLogfmt  = "logfmt"
)

// LevelEnv supplies the level when Config.Level is empty. config.Load also
// applies it over the level read from a file.
const LevelEnv = "NPK_LOG_LEVEL"

const defaultLevel = zapcore.InfoLevel

type Config struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string
	// Format is console (default), json or logfmt.
	Format string
	// Writer receives log lines; os.Stderr when nil.
	Writer io.Writer
}

// New returns a logger for c.
func New(c Config) (*zap.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.NameKey = "name"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "", FormatConsole:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case FormatLogfmt:
		encoder = zaplogfmt.NewEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", c.Format)
	}

	core := zapcore.NewCore(encoder, writeSyncer(c.Writer), zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.ErrorOutput(writeSyncer(c.Writer))), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		s = os.Getenv(LevelEnv)
	}
	if s == "" {
		return defaultLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return defaultLevel, fmt.Errorf("logging: invalid level %q", s)
	}
	return level, nil
}

func writeSyncer(w io.Writer) zapcore.WriteSyncer {
	if w == nil {
		w = os.Stderr
	}
	switch t := w.(type) {
	case *os.File:
		return zapcore.Lock(t)
	case zapcore.WriteSyncer:
		return t
	default:
		return zapcore.AddSync(w)
	}
}
