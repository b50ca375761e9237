package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"xdao.co/npk/keys"
	"xdao.co/npk/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnv, "")
	t.Setenv(logging.LevelEnv, "")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	suite, err := cfg.Keys.Suite()
	require.NoError(t, err)
	require.Equal(t, keys.DefaultSuite, suite)
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv(logging.LevelEnv, "")
	path := writeFile(t, "npk.yaml", `
log:
  level: debug
  format: logfmt
keys:
  name: release
  modern: dilithium3
store:
  write_policy: all
  backends:
    - name: localfs
      options: {dir: /var/lib/npk}
    - name: grpc
      id: mirror
      options:
        target: mirror:7420
server:
  metrics_listen: 127.0.0.1:9420
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "logfmt", cfg.Log.Logging().Format)
	require.Equal(t, "release", cfg.Keys.Name)
	require.Equal(t, "all", cfg.Store.WritePolicy)
	require.Len(t, cfg.Store.Backends, 2)
	require.Equal(t, "/var/lib/npk", cfg.Store.Backends[0].Options["dir"])
	require.Equal(t, "mirror", cfg.Store.Backends[1].ID)
	require.Equal(t, "127.0.0.1:7420", cfg.Server.Listen, "unset fields keep defaults")
	require.Equal(t, "127.0.0.1:9420", cfg.Server.MetricsListen)

	suite, err := cfg.Keys.Suite()
	require.NoError(t, err)
	require.Equal(t, keys.Suite{Legacy: keys.SchemeSecp256k1, Modern: keys.SchemeDilithium3}, suite)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "npk.json", `{"keys":{"name":"ci","legacy":"secp256k1","modern":"ed25519"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ci", cfg.Keys.Name)

	bad := writeFile(t, "bad.json", `{"keys":{"nmae":"typo"}}`)
	_, err = Load(bad)
	require.Error(t, err)
}

func TestLoad_FromEnv(t *testing.T) {
	path := writeFile(t, "env.yml", "keys:\n  name: from-env\n")
	t.Setenv(PathEnv, path)
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Keys.Name)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "keyz: {}\n",
		"wrong slot":      "keys:\n  legacy: ed25519\n",
		"unknown scheme":  "keys:\n  modern: rsa\n",
		"bad name":        "keys:\n  name: a/b\n",
		"store policy":    "store:\n  write_policy: most\n  backends: [{name: localfs}]\n",
		"duplicate store": "store:\n  backends: [{name: localfs}, {name: localfs}]\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", content))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Setenv(logging.LevelEnv, "")
	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_LevelEnvOverrides(t *testing.T) {
	t.Setenv(PathEnv, "")
	t.Setenv(logging.LevelEnv, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)

	logger, err := logging.New(cfg.Log.Logging())
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel), "debug must be enabled")

	path := writeFile(t, "npk.yaml", "log:\n  level: error\n")
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}
