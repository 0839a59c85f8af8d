package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wilhg/toolbridge/pkg/tool"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8765", cfg.Addr)
	require.Equal(t, 30*time.Second, cfg.CallTimeout)
	require.Equal(t, tool.PolicyAbort, cfg.Policy())
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	require.Equal(t, 1000, cfg.Journal.Capacity)
	require.Empty(t, cfg.Journal.DSN)
	require.Equal(t, "toolbridge", cfg.Server.Name)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: 127.0.0.1:9000
call_timeout: 5s
register_policy: skip
journal:
  dsn: sqlite:file:journal.db
host:
  bridge_url: http://localhost:7000
`), 0o600))
	t.Setenv("TOOLBRIDGE_CALL_TIMEOUT", "2s")
	t.Setenv("TOOLBRIDGE_JOURNAL_CAPACITY", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Addr)
	require.Equal(t, 2*time.Second, cfg.CallTimeout, "env overrides file")
	require.Equal(t, tool.PolicySkip, cfg.Policy())
	require.Equal(t, "sqlite:file:journal.db", cfg.Journal.DSN)
	require.Equal(t, 50, cfg.Journal.Capacity)
	require.Equal(t, "http://localhost:7000", cfg.Host.BridgeURL)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	t.Chdir(t.TempDir())
	t.Setenv("TOOLBRIDGE_REGISTER_POLICY", "retry")
	_, err = Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{LogLevel: "info", LogFormat: "json", RegisterPolicy: "abort", MaxBodyBytes: 1}
	require.NoError(t, base.Validate())

	bad := base
	bad.LogLevel = "loud"
	require.Error(t, bad.Validate())

	bad = base
	bad.LogFormat = "xml"
	require.Error(t, bad.Validate())

	bad = base
	bad.CallTimeout = -time.Second
	require.Error(t, bad.Validate())

	bad = base
	bad.MaxBodyBytes = 0
	require.Error(t, bad.Validate())
}

func TestLogger_JSON(t *testing.T) {
	cfg := Config{LogLevel: "warn", LogFormat: "json", Server: ServerConfig{Name: "toolbridge"}}
	var buf bytes.Buffer
	log := cfg.Logger(&buf)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["message"])
	require.Equal(t, "toolbridge", line["service"])
}
