package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Filter      FilterConfig      `yaml:"filter"`
	Mapping     MappingConfig     `yaml:"mapping"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Mock        MockConfig        `yaml:"mock"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
}

// SerialConfig contains serial port configuration for the ADC bridge.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// SensorConfig identifies the sensor behind the bridge.
type SensorConfig struct {
	ID         int `yaml:"id"`         // Opaque channel id passed to the bridge
	Resolution int `yaml:"resolution"` // Size of the input domain (1024 for a 10-bit ADC)
}

// FilterConfig contains the smoothing tuning parameters.
type FilterConfig struct {
	SleepEnable       bool    `yaml:"sleep_enable"`
	EdgeSnapEnable    bool    `yaml:"edge_snap_enable"`
	SnapMultiplier    float64 `yaml:"snap_multiplier"`    // Clamped to [0,1] by the filter
	ActivityThreshold int     `yaml:"activity_threshold"` // Raw counts below which the filter sleeps
	ByteOutput        bool    `yaml:"byte_output"`        // Remap raw readings before filtering
}

// MappingConfig contains the calibration table and the fallback remap ranges.
type MappingConfig struct {
	Points  []MapPoint `yaml:"points"` // Piecewise-linear table; empty = range fallback
	FromMin int        `yaml:"from_min"`
	FromMax int        `yaml:"from_max"`
	ToMin   int        `yaml:"to_min"`
	ToMax   int        `yaml:"to_max"`
}

// MapPoint is a single calibration breakpoint.
type MapPoint struct {
	In  int `yaml:"in"`
	Out int `yaml:"out"`
}

// CalibrationConfig contains the interactive calibration timing parameters.
type CalibrationConfig struct {
	SettleDelay    time.Duration `yaml:"settle_delay"`    // Wait after each extreme prompt
	SweepDelay     time.Duration `yaml:"sweep_delay"`     // Wait before the sweep starts
	SampleInterval time.Duration `yaml:"sample_interval"` // Interval between sweep samples
	BufferSize     int           `yaml:"buffer_size"`     // Sample budget for the sweep
}

// MeasurementConfig contains the steady-state polling parameters.
type MeasurementConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// MockConfig contains the simulated potentiometer parameters.
type MockConfig struct {
	Level       int           `yaml:"level"`        // Center position (raw counts)
	Amplitude   int           `yaml:"amplitude"`    // Sweep amplitude around the center
	SweepPeriod time.Duration `yaml:"sweep_period"` // Period of the slow sweep
	NoiseLevel  int           `yaml:"noise_level"`  // Noise amplitude (raw counts)
}

// MQTTConfig contains optional change reporting over MQTT. An empty broker
// disables publishing.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "/dev/ttyACM0",
			Baud: 115200,
		},
		Sensor: SensorConfig{
			ID:         0,
			Resolution: 1024,
		},
		Filter: FilterConfig{
			SleepEnable:       true,
			EdgeSnapEnable:    true,
			SnapMultiplier:    0.01,
			ActivityThreshold: 4,
			ByteOutput:        false,
		},
		Mapping: MappingConfig{
			FromMin: 0,
			FromMax: 1023,
			ToMin:   0,
			ToMax:   255,
		},
		Calibration: CalibrationConfig{
			SettleDelay:    5 * time.Second,
			SweepDelay:     4 * time.Second,
			SampleInterval: 500 * time.Millisecond,
			BufferSize:     255,
		},
		Measurement: MeasurementConfig{
			PollInterval: 10 * time.Millisecond,
		},
		Mock: MockConfig{
			Level:       512,
			Amplitude:   400,
			SweepPeriod: 30 * time.Second,
			NoiseLevel:  8,
		},
		MQTT: MQTTConfig{
			Broker:   "",
			ClientID: "goresponsive-monitor",
			Topic:    "analog/reading",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Sensor.Resolution == 0 {
		c.Sensor.Resolution = def.Sensor.Resolution
	}

	if c.Filter.SnapMultiplier == 0 {
		c.Filter.SnapMultiplier = def.Filter.SnapMultiplier
	}
	if c.Filter.ActivityThreshold == 0 {
		c.Filter.ActivityThreshold = def.Filter.ActivityThreshold
	}

	if c.Mapping.FromMax == 0 {
		c.Mapping.FromMax = c.Sensor.Resolution - 1
	}
	if c.Mapping.ToMax == 0 {
		c.Mapping.ToMax = def.Mapping.ToMax
	}

	if c.Calibration.SettleDelay == 0 {
		c.Calibration.SettleDelay = def.Calibration.SettleDelay
	}
	if c.Calibration.SweepDelay == 0 {
		c.Calibration.SweepDelay = def.Calibration.SweepDelay
	}
	if c.Calibration.SampleInterval == 0 {
		c.Calibration.SampleInterval = def.Calibration.SampleInterval
	}
	if c.Calibration.BufferSize == 0 {
		c.Calibration.BufferSize = def.Calibration.BufferSize
	}

	if c.Measurement.PollInterval == 0 {
		c.Measurement.PollInterval = def.Measurement.PollInterval
	}

	if c.Mock.Level == 0 {
		c.Mock.Level = def.Mock.Level
	}
	if c.Mock.Amplitude == 0 {
		c.Mock.Amplitude = def.Mock.Amplitude
	}
	if c.Mock.SweepPeriod == 0 {
		c.Mock.SweepPeriod = def.Mock.SweepPeriod
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
}
