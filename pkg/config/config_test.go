package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 1024, cfg.Sensor.Resolution)
	assert.True(t, cfg.Filter.SleepEnable)
	assert.True(t, cfg.Filter.EdgeSnapEnable)
	assert.Equal(t, 0.01, cfg.Filter.SnapMultiplier)
	assert.Equal(t, 4, cfg.Filter.ActivityThreshold)
	assert.Equal(t, 1023, cfg.Mapping.FromMax)
	assert.Equal(t, 255, cfg.Mapping.ToMax)
	assert.Equal(t, 5*time.Second, cfg.Calibration.SettleDelay)
	assert.Equal(t, 4*time.Second, cfg.Calibration.SweepDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Calibration.SampleInterval)
	assert.Equal(t, 255, cfg.Calibration.BufferSize)
	assert.Equal(t, 10*time.Millisecond, cfg.Measurement.PollInterval)
	assert.Empty(t, cfg.MQTT.Broker)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "COM7"
  baud: 57600

sensor:
  id: 3
  resolution: 4096

filter:
  sleep_enable: false
  snap_multiplier: 0.1
  activity_threshold: 16

mapping:
  points:
    - in: 0
      out: 0
    - in: 2048
      out: 100
    - in: 4095
      out: 255

calibration:
  settle_delay: 1s
  sample_interval: 100ms

mqtt:
  broker: "tcp://localhost:1883"
`
	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "COM7", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.Equal(t, 3, cfg.Sensor.ID)
	assert.Equal(t, 4096, cfg.Sensor.Resolution)
	assert.False(t, cfg.Filter.SleepEnable)
	assert.Equal(t, 0.1, cfg.Filter.SnapMultiplier)
	assert.Equal(t, 16, cfg.Filter.ActivityThreshold)
	require.Len(t, cfg.Mapping.Points, 3)
	assert.Equal(t, MapPoint{In: 2048, Out: 100}, cfg.Mapping.Points[1])
	assert.Equal(t, time.Second, cfg.Calibration.SettleDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Calibration.SampleInterval)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)

	// Fields absent from the file fall back to defaults.
	assert.Equal(t, 4*time.Second, cfg.Calibration.SweepDelay)
	assert.Equal(t, 255, cfg.Calibration.BufferSize)
	assert.Equal(t, 10*time.Millisecond, cfg.Measurement.PollInterval)
	assert.Equal(t, "goresponsive-monitor", cfg.MQTT.ClientID)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("serial: [not a mapping")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	_, err = Load(tmpfile.Name())
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Serial.Port = "COM9"
	cfg.Filter.SnapMultiplier = 0.25
	cfg.Mapping.Points = []MapPoint{{In: 12, Out: 0}, {In: 980, Out: 255}}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnsureDefaults_FollowsResolution(t *testing.T) {
	cfg := &Config{Sensor: SensorConfig{Resolution: 4096}}
	cfg.ensureDefaults()
	assert.Equal(t, 4095, cfg.Mapping.FromMax, "fallback remap should span the declared domain")
	assert.Equal(t, 255, cfg.Mapping.ToMax)
}
