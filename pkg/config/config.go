package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/FlyingDododo/6dof-application/pkg/link"
	"github.com/FlyingDododo/6dof-application/pkg/motion"
	"github.com/FlyingDododo/6dof-application/pkg/protocol"
)

const DefaultConfigPath = "chairctl.toml"

type Config struct {
	Chair      ChairConfig     `toml:"chair"`
	Limits     LimitsConfig    `toml:"limits"`
	Log        LogConfig       `toml:"log"`
	Telemetry  TelemetryConfig `toml:"telemetry"`
	Metrics    MetricsConfig   `toml:"metrics"`
	UI         UIConfig        `toml:"ui"`
	configPath string          `toml:"-"`
}

type ChairConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Variant      string `toml:"variant"`
	SendInterval string `toml:"send_interval"`
	TickPolicy   string `toml:"tick_policy"`
}

type LimitsConfig struct {
	Pitch float32 `toml:"pitch"`
	Roll  float32 `toml:"roll"`
	Yaw   float32 `toml:"yaw"`
	Sway  float32 `toml:"sway"`
	Surge float32 `toml:"surge"`
	Heave float32 `toml:"heave"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// Dir holds per-session JSONL packet logs. Empty disables them.
	Dir string `toml:"dir"`
}

// TelemetryConfig drives the Foxglove bridge. An empty WSAddr disables it.
type TelemetryConfig struct {
	WSAddr           string  `toml:"ws_addr"`
	Name             string  `toml:"name"`
	ParentFrame      string  `toml:"parent_frame"`
	FrameID          string  `toml:"frame_id"`
	TranslationScale float64 `toml:"translation_scale"`
}

// MetricsConfig serves /metrics on Addr. Empty disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type UIConfig struct {
	FrameInterval string  `toml:"frame_interval"`
	SliderStep    float64 `toml:"slider_step"`
}

func Default() Config {
	return Config{
		Chair: ChairConfig{
			Host:         "192.168.0.15",
			Port:         20000,
			Variant:      protocol.Standard.String(),
			SendInterval: "50ms",
			TickPolicy:   link.ResetOnSend.String(),
		},
		Limits: LimitsConfig{
			Pitch: motion.DefaultLimit,
			Roll:  motion.DefaultLimit,
			Yaw:   motion.DefaultLimit,
			Sway:  motion.DefaultLimit,
			Surge: motion.DefaultLimit,
			Heave: motion.DefaultLimit,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Dir:    "logs",
		},
		Telemetry: TelemetryConfig{
			Name:             "chairctl",
			ParentFrame:      "world",
			FrameID:          "chair",
			TranslationScale: 50,
		},
		UI: UIConfig{
			FrameInterval: "16ms",
			SliderStep:    0.05,
		},
	}
}

func Load(path string) (Config, error) {
	cfg, exists, err := LoadOrDefault(path)
	if err != nil {
		return Config{}, err
	}
	if !exists {
		return Config{}, os.ErrNotExist
	}
	return cfg, nil
}

// LoadOrDefault reads path when it exists and falls back to Default otherwise.
// The bool reports whether the file was found.
func LoadOrDefault(path string) (Config, bool, error) {
	cfg := Default()
	cfg.configPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize(path)
			return cfg, false, nil
		}
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, true, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize(path)

	if err := cfg.Validate(); err != nil {
		return Config{}, true, err
	}
	return cfg, true, nil
}

func (cfg *Config) Save(path string) error {
	cfg.normalize(path)
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (cfg *Config) ConfigPath() string {
	return cfg.configPath
}

func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Chair.Host) == "" {
		return fmt.Errorf("chair.host is empty")
	}
	if cfg.Chair.Port < 1 || cfg.Chair.Port > 65535 {
		return fmt.Errorf("chair.port out of range: %d", cfg.Chair.Port)
	}
	if _, err := protocol.ParseVariant(cfg.Chair.Variant); err != nil {
		return fmt.Errorf("chair.variant: %w", err)
	}
	if _, err := positiveDuration("chair.send_interval", cfg.Chair.SendInterval); err != nil {
		return err
	}
	if _, err := parseTickPolicy(cfg.Chair.TickPolicy); err != nil {
		return err
	}

	for _, a := range motion.Axes {
		limit := cfg.Limits.get(a)
		if math.IsNaN(float64(limit)) || math.IsInf(float64(limit), 0) || limit <= 0 {
			return fmt.Errorf("limits.%s must be a positive finite number", a)
		}
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level unknown: %q", cfg.Log.Level)
	}

	if cfg.Telemetry.TranslationScale <= 0 {
		return fmt.Errorf("telemetry.translation_scale must be positive")
	}
	if _, err := positiveDuration("ui.frame_interval", cfg.UI.FrameInterval); err != nil {
		return err
	}
	if cfg.UI.SliderStep <= 0 || cfg.UI.SliderStep > 1 {
		return fmt.Errorf("ui.slider_step must be in (0, 1], got %v", cfg.UI.SliderStep)
	}
	return nil
}

// SendInterval returns chair.send_interval. Call after Validate.
func (cfg *Config) SendInterval() time.Duration {
	d, _ := time.ParseDuration(cfg.Chair.SendInterval)
	return d
}

func (cfg *Config) FrameInterval() time.Duration {
	d, _ := time.ParseDuration(cfg.UI.FrameInterval)
	return d
}

func (cfg *Config) Variant() protocol.Variant {
	v, err := protocol.ParseVariant(cfg.Chair.Variant)
	if err != nil {
		return protocol.Standard
	}
	return v
}

func (cfg *Config) TickPolicy() link.TickPolicy {
	p, _ := parseTickPolicy(cfg.Chair.TickPolicy)
	return p
}

func (cfg *Config) MotionLimits() motion.Limits {
	var out motion.Limits
	for _, a := range motion.Axes {
		out[a] = cfg.Limits.get(a)
	}
	return out
}

func (l LimitsConfig) get(a motion.Axis) float32 {
	switch a {
	case motion.Pitch:
		return l.Pitch
	case motion.Roll:
		return l.Roll
	case motion.Yaw:
		return l.Yaw
	case motion.Sway:
		return l.Sway
	case motion.Surge:
		return l.Surge
	case motion.Heave:
		return l.Heave
	default:
		return 0
	}
}

func (cfg *Config) normalize(path string) {
	def := Default()

	cfg.Chair.Host = strings.TrimSpace(cfg.Chair.Host)
	if cfg.Chair.Host == "" {
		cfg.Chair.Host = def.Chair.Host
	}
	if cfg.Chair.Port == 0 {
		cfg.Chair.Port = def.Chair.Port
	}
	if cfg.Chair.Variant == "" {
		cfg.Chair.Variant = def.Chair.Variant
	}
	cfg.Chair.Variant = strings.ToLower(strings.TrimSpace(cfg.Chair.Variant))
	if cfg.Chair.SendInterval == "" {
		cfg.Chair.SendInterval = def.Chair.SendInterval
	}
	if cfg.Chair.TickPolicy == "" {
		cfg.Chair.TickPolicy = def.Chair.TickPolicy
	}
	cfg.Chair.TickPolicy = strings.ToLower(strings.TrimSpace(cfg.Chair.TickPolicy))

	// Zero means unset; negative or non-finite values are left for Validate.
	limits := []*float32{
		&cfg.Limits.Pitch, &cfg.Limits.Roll, &cfg.Limits.Yaw,
		&cfg.Limits.Sway, &cfg.Limits.Surge, &cfg.Limits.Heave,
	}
	for _, l := range limits {
		if *l == 0 {
			*l = motion.DefaultLimit
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if cfg.Telemetry.Name == "" {
		cfg.Telemetry.Name = def.Telemetry.Name
	}
	if cfg.Telemetry.ParentFrame == "" {
		cfg.Telemetry.ParentFrame = def.Telemetry.ParentFrame
	}
	if cfg.Telemetry.FrameID == "" {
		cfg.Telemetry.FrameID = def.Telemetry.FrameID
	}
	if cfg.Telemetry.TranslationScale == 0 {
		cfg.Telemetry.TranslationScale = def.Telemetry.TranslationScale
	}

	if cfg.UI.FrameInterval == "" {
		cfg.UI.FrameInterval = def.UI.FrameInterval
	}
	if cfg.UI.SliderStep == 0 {
		cfg.UI.SliderStep = def.UI.SliderStep
	}

	if path == "" {
		path = cfg.configPath
	}
	if path == "" {
		path = DefaultConfigPath
	}
	cfg.configPath = path
}

func positiveDuration(key string, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return d, nil
}

func parseTickPolicy(s string) (link.TickPolicy, error) {
	switch s {
	case link.ResetOnSend.String():
		return link.ResetOnSend, nil
	case link.CarryOver.String():
		return link.CarryOver, nil
	default:
		return link.ResetOnSend, fmt.Errorf("chair.tick_policy must be %q or %q, got %q",
			link.ResetOnSend, link.CarryOver, s)
	}
}
