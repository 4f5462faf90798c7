package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keyframeio/rollback/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"2\"\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "2", cfg.Version)
	require.EqualValues(t, 8, cfg.Session.MaxPredictionFrames)
	require.Equal(t, 4, cfg.Session.MaxPlayers)
	require.Equal(t, "0.0.0.0:0", cfg.Network.ListenAddr)
	require.Equal(t, 5*time.Second, cfg.DisconnectTimeout())
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	body := `
session:
  max_prediction_frames: 4
  frame_delay: 2
network:
  listen_addr: "127.0.0.1:9000"
  disconnect_timeout: "2s"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.EqualValues(t, 4, cfg.Session.MaxPredictionFrames)
	require.EqualValues(t, 2, cfg.Session.FrameDelay)
	require.Equal(t, "127.0.0.1:9000", cfg.Network.ListenAddr)
	require.Equal(t, 2*time.Second, cfg.DisconnectTimeout())
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.Default()
	require.EqualValues(t, 8, cfg.Session.MaxPredictionFrames)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestDisconnectTimeoutFallsBackOnBadValue(t *testing.T) {
	cfg := config.Default()
	cfg.Network.DisconnectTimeout = "not-a-duration"
	require.Equal(t, 5*time.Second, cfg.DisconnectTimeout())
}
