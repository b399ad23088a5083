package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/racecar-sim/internal/lidar"
	"github.com/banshee-data/racecar-sim/internal/units"
)

// DefaultConfigPath is the canonical defaults file shipped with the repo.
const DefaultConfigPath = "config/racecar.defaults.json"

// Config is the root runtime configuration. Every field is optional; the
// Get* accessors supply defaults for anything omitted, so partial files are
// safe.
type Config struct {
	// Sensor
	Profile            *string  `json:"profile,omitempty"`
	NumSamples         *int     `json:"num_samples,omitempty"`
	MotorFrequencyHz   *float64 `json:"motor_frequency_hz,omitempty"`
	AverageErrorFactor *float64 `json:"average_error_factor,omitempty"`
	ReportUnits        *string  `json:"report_units,omitempty"` // "m", "cm" or "mm"
	Realism            *bool    `json:"realism,omitempty"`
	Seed               *int64   `json:"seed,omitempty"`

	// Loop timing
	TimingMode    *string `json:"timing_mode,omitempty"`    // "fixed" or "variable"
	FixedTimestep *string `json:"fixed_timestep,omitempty"` // duration string like "20ms"

	// Bridge
	HTTPListen        *string `json:"http_listen,omitempty"`
	WebsocketURL      *string `json:"websocket_url,omitempty"`
	WebsocketInterval *string `json:"websocket_interval,omitempty"`
	MQTTBroker        *string `json:"mqtt_broker,omitempty"`
	MQTTTopic         *string `json:"mqtt_topic,omitempty"`
	GRPCListen        *string `json:"grpc_listen,omitempty"`

	// Hardware and storage
	SerialPort *string `json:"serial_port,omitempty"`
	RecordDB   *string `json:"record_db,omitempty"`
}

// Load reads a Config from a JSON file. The path must have a .json
// extension and the file must be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.TimingMode != nil {
		switch lidar.TimingMode(*c.TimingMode) {
		case lidar.TimingFixed, lidar.TimingVariable:
		default:
			return fmt.Errorf("timing_mode must be %q or %q, got %q", lidar.TimingFixed, lidar.TimingVariable, *c.TimingMode)
		}
	}
	for name, v := range map[string]*string{
		"fixed_timestep":     c.FixedTimestep,
		"websocket_interval": c.WebsocketInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.NumSamples != nil && *c.NumSamples <= 0 {
		return fmt.Errorf("num_samples must be positive, got %d", *c.NumSamples)
	}
	if c.MotorFrequencyHz != nil && *c.MotorFrequencyHz <= 0 {
		return fmt.Errorf("motor_frequency_hz must be positive, got %f", *c.MotorFrequencyHz)
	}
	if c.ReportUnits != nil && !units.IsValid(*c.ReportUnits) {
		return fmt.Errorf("report_units must be one of: %s, got %q", units.GetValidUnitsString(), *c.ReportUnits)
	}
	if c.AverageErrorFactor != nil && *c.AverageErrorFactor < 0 {
		return fmt.Errorf("average_error_factor must be non-negative, got %f", *c.AverageErrorFactor)
	}

	// The resolved profile carries the remaining invariants.
	if _, err := c.SensorProfile(); err != nil {
		return err
	}
	return nil
}

// SensorProfile resolves the named preset and applies any overrides.
func (c *Config) SensorProfile() (lidar.SensorProfile, error) {
	p, err := lidar.ProfileByName(c.GetProfile())
	if err != nil {
		return lidar.SensorProfile{}, err
	}
	if c.NumSamples != nil {
		p.NumSamples = *c.NumSamples
	}
	if c.MotorFrequencyHz != nil {
		p.MotorFrequencyHz = *c.MotorFrequencyHz
	}
	if c.AverageErrorFactor != nil {
		p.AverageErrorFactor = *c.AverageErrorFactor
	}
	if c.ReportUnits != nil {
		scale, err := units.Scale(*c.ReportUnits)
		if err != nil {
			return lidar.SensorProfile{}, err
		}
		p.UnitScale = scale
	}
	if err := p.Validate(); err != nil {
		return lidar.SensorProfile{}, err
	}
	return p, nil
}

// GetProfile returns the profile name or the default.
func (c *Config) GetProfile() string {
	if c.Profile == nil || *c.Profile == "" {
		return "hokuyo-ust-10lx"
	}
	return *c.Profile
}

// GetRealism returns the realism flag or the default.
func (c *Config) GetRealism() bool {
	if c.Realism == nil {
		return false
	}
	return *c.Realism
}

// GetSeed returns the noise seed or the default.
func (c *Config) GetSeed() int64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetTimingMode returns the loop timing mode. When unset it follows the
// selected profile, so the YDLIDAR preset runs variable-step by default.
func (c *Config) GetTimingMode() lidar.TimingMode {
	if c.TimingMode == nil || *c.TimingMode == "" {
		if p, err := c.SensorProfile(); err == nil {
			return p.Timing
		}
		return lidar.TimingFixed
	}
	return lidar.TimingMode(*c.TimingMode)
}

// GetFixedTimestep parses fixed_timestep, defaulting to the 20ms physics step.
func (c *Config) GetFixedTimestep() time.Duration {
	return durationOr(c.FixedTimestep, 20*time.Millisecond)
}

// GetHTTPListen returns the HTTP listen address or the default.
func (c *Config) GetHTTPListen() string {
	return stringOr(c.HTTPListen, ":5000")
}

// GetWebsocketURL returns the bridge server URL; empty disables the client.
func (c *Config) GetWebsocketURL() string {
	return stringOr(c.WebsocketURL, "")
}

// GetWebsocketInterval returns the sensor push interval or the default.
func (c *Config) GetWebsocketInterval() time.Duration {
	return durationOr(c.WebsocketInterval, time.Second)
}

// GetMQTTBroker returns the broker URL; empty disables the exporter.
func (c *Config) GetMQTTBroker() string {
	return stringOr(c.MQTTBroker, "")
}

// GetMQTTTopic returns the scan topic or the default.
func (c *Config) GetMQTTTopic() string {
	return stringOr(c.MQTTTopic, "racecar/lidar/samples")
}

// GetGRPCListen returns the gRPC listen address; empty disables the service.
func (c *Config) GetGRPCListen() string {
	return stringOr(c.GRPCListen, "")
}

// GetSerialPort returns the drive serial port; empty disables forwarding.
func (c *Config) GetSerialPort() string {
	return stringOr(c.SerialPort, "")
}

// GetRecordDB returns the recorder database path; empty disables recording.
func (c *Config) GetRecordDB() string {
	return stringOr(c.RecordDB, "")
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
