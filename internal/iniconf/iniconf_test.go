package iniconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lux.ini")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen_addr = 0.0.0.0:9000
num_threads = 4
reuse_port = true

[log]
dir = /var/log/lux
roll_size = 4096
flush_interval_seconds = 1
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr)
	require.Equal(t, 4, cfg.Server.NumThreads)
	require.True(t, cfg.Server.ReusePort)
	require.Equal(t, "/var/log/lux", cfg.Log.Dir)
	require.Equal(t, int64(4096), cfg.Log.RollSize)
	require.Equal(t, time.Second, cfg.Log.FlushInterval)

	// Untouched sections keep their defaults.
	require.Equal(t, 10, cfg.MySQL.MaxOpenConns)
	require.Equal(t, 0, cfg.Redis.DB)
}

func TestDefaultMatchesEchoScenarioAddress(t *testing.T) {
	require.Equal(t, "127.0.0.1:5836", Default().Server.ListenAddr)
}
