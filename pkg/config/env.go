package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Overrides holds values that take precedence over the config file, read
// from CHAIR_* variables or command-line flags. Zero fields leave the file
// value alone.
type Overrides struct {
	Host          string `env:"CHAIR_HOST"`
	Port          int    `env:"CHAIR_PORT"`
	Variant       string `env:"CHAIR_VARIANT"`
	SendInterval  string `env:"CHAIR_SEND_INTERVAL"`
	TickPolicy    string `env:"CHAIR_TICK_POLICY"`
	LogLevel      string `env:"CHAIR_LOG_LEVEL"`
	LogFormat     string `env:"CHAIR_LOG_FORMAT"`
	LogDir        string `env:"CHAIR_LOG_DIR"`
	TelemetryAddr string `env:"CHAIR_TELEMETRY_ADDR"`
	MetricsAddr   string `env:"CHAIR_METRICS_ADDR"`
}

func ParseEnv() (Overrides, error) {
	var ov Overrides
	if err := env.Parse(&ov); err != nil {
		return Overrides{}, fmt.Errorf("parse env: %w", err)
	}
	return ov, nil
}

// ApplyEnv reads the CHAIR_* variables into cfg and validates the result.
func (cfg *Config) ApplyEnv() error {
	ov, err := ParseEnv()
	if err != nil {
		return err
	}
	return cfg.Override(ov)
}

// Override applies ov and validates the result.
func (cfg *Config) Override(ov Overrides) error {
	cfg.Apply(ov)
	cfg.normalize("")
	return cfg.Validate()
}

func (cfg *Config) Apply(ov Overrides) {
	if ov.Host != "" {
		cfg.Chair.Host = ov.Host
	}
	if ov.Port != 0 {
		cfg.Chair.Port = ov.Port
	}
	if ov.Variant != "" {
		cfg.Chair.Variant = ov.Variant
	}
	if ov.SendInterval != "" {
		cfg.Chair.SendInterval = ov.SendInterval
	}
	if ov.TickPolicy != "" {
		cfg.Chair.TickPolicy = ov.TickPolicy
	}
	if ov.LogLevel != "" {
		cfg.Log.Level = ov.LogLevel
	}
	if ov.LogFormat != "" {
		cfg.Log.Format = ov.LogFormat
	}
	if ov.LogDir != "" {
		cfg.Log.Dir = ov.LogDir
	}
	if ov.TelemetryAddr != "" {
		cfg.Telemetry.WSAddr = ov.TelemetryAddr
	}
	if ov.MetricsAddr != "" {
		cfg.Metrics.Addr = ov.MetricsAddr
	}
}
