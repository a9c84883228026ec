package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for the Go 1.21 toolchain:
// change into dir for the test and restore the working directory after.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "data/snapshots", cfg.Server.SnapshotDir)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "data/smartcourses.db", cfg.DB.File)

	assert.InDelta(t, 1.1, cfg.Face.Detector.ScaleFactor, 1e-9)
	assert.Equal(t, 5, cfg.Face.Detector.MinNeighbors)
	assert.Equal(t, 30, cfg.Face.Detector.MinSizeWidth)
	assert.Equal(t, 30, cfg.Face.Detector.MinSizeHeight)

	assert.True(t, cfg.Face.Deep.Enabled)
	assert.InDelta(t, 0.5, cfg.Face.Deep.MatchMinConf, 1e-9)
	assert.InDelta(t, 0.8, cfg.Face.Deep.SoleMinConf, 1e-9)
	assert.Equal(t, 224, cfg.Face.Deep.InputSize)

	assert.True(t, cfg.Face.Geometric.Enabled)
	assert.InDelta(t, 0.6, cfg.Face.Geometric.Threshold, 1e-9)

	assert.True(t, cfg.Face.Histogram.Enabled)
	assert.Equal(t, 128, cfg.Face.Histogram.FaceSize)
	assert.InDelta(t, 0.4, cfg.Face.Histogram.Threshold, 1e-9)

	assert.Equal(t, 0, cfg.Camera.DeviceIndex)
	assert.Equal(t, 640, cfg.Camera.FrameWidth)
	assert.Equal(t, 480, cfg.Camera.FrameHeight)
	assert.Equal(t, 30, cfg.Camera.FPS)
	assert.InDelta(t, 0.5, cfg.Camera.IntervalSeconds, 1e-9)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "smartcourses/recognition", cfg.MQTT.Topic)
	assert.Equal(t, "en", cfg.I18n.DefaultLanguage)
	assert.Equal(t, 14, cfg.Cleanup.RetentionDays)
}

func TestLoadCreatesDirectories(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	_, err = os.Stat(cfg.Server.SnapshotDir)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Dir(cfg.DB.File))
	assert.NoError(t, err)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	configFile := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
face:
  geometric:
    enabled: false
    threshold: 0.45
camera:
  device_index: 2
`)
	require.NoError(t, os.WriteFile(configFile, content, 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Face.Geometric.Enabled)
	assert.InDelta(t, 0.45, cfg.Face.Geometric.Threshold, 1e-9)
	assert.Equal(t, 2, cfg.Camera.DeviceIndex)

	// Untouched keys keep their defaults.
	assert.True(t, cfg.Face.Deep.Enabled)
	assert.Equal(t, 30, cfg.Camera.FPS)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}
