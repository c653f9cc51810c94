// Package config loads client settings from defaults, an optional YAML file,
// SCAN_QUIZ_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SCAN_QUIZ_API_BASE_URL.
const EnvPrefix = "SCAN_QUIZ"

type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Log    LogConfig    `mapstructure:"log"`
	Camera CameraConfig `mapstructure:"camera"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

type CameraConfig struct {
	Device      string `mapstructure:"device"`
	Facing      string `mapstructure:"facing"`
	Width       int    `mapstructure:"width"`
	Height      int    `mapstructure:"height"`
	JPEGQuality int    `mapstructure:"jpeg_quality"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"base-url":  "api.base_url",
	"timeout":   "api.timeout",
	"log-mode":  "log.mode",
	"log-level": "log.level",
	"camera":    "camera.device",
}

// RegisterFlags defines the flags Load understands on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("base-url", "", "recognition backend base URL")
	fs.Duration("timeout", 0, "request timeout (0 keeps the configured value)")
	fs.String("log-mode", "", "log mode: debug or release")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("camera", "", "camera device: testpattern or none")
}

// Load builds the configuration. path may be empty; flags may be nil. Only
// flags that were set on the command line override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.timeout", 120*time.Second)

	v.SetDefault("log.mode", "release")
	v.SetDefault("log.level", "warn")

	v.SetDefault("camera.device", "testpattern")
	v.SetDefault("camera.facing", "environment")
	v.SetDefault("camera.width", 1280)
	v.SetDefault("camera.height", 720)
	v.SetDefault("camera.jpeg_quality", 92)
}

// Validate checks value ranges. It does not contact the backend.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must not be negative, got %s", c.API.Timeout))
	}
	switch c.Camera.Device {
	case "testpattern", "none":
	default:
		errs = append(errs, fmt.Errorf("camera.device must be testpattern or none, got %q", c.Camera.Device))
	}
	switch c.Camera.Facing {
	case "environment", "user":
	default:
		errs = append(errs, fmt.Errorf("camera.facing must be environment or user, got %q", c.Camera.Facing))
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height))
	}
	if c.Camera.JPEGQuality < 1 || c.Camera.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("camera.jpeg_quality must be 1-100, got %d", c.Camera.JPEGQuality))
	}
	return errors.Join(errs...)
}
