// Package config loads process settings with viper: defaults, then
// configs/config.yml (or an explicit file), then OVEN_* environment
// variables, then any flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"drying_oven/internal/logger"
	"drying_oven/internal/serialport"
	"drying_oven/internal/service"

	"github.com/spf13/viper"
)

const envPrefix = "OVEN"

// Config is the full settings tree shared by the host and client commands.
type Config struct {
	Port   string             `mapstructure:"port"`
	Log    LogConfig          `mapstructure:"log"`
	DB     DBConfig           `mapstructure:"db"`
	Serial serialport.Params  `mapstructure:"serial"`
	Link   service.LinkConfig `mapstructure:"link"`
	Oven   service.OvenConfig `mapstructure:"oven"`
	Auth   service.AuthConfig `mapstructure:"auth"`
	Client ClientConfig       `mapstructure:"client"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Options converts the log section into logger options writing to out.
func (l LogConfig) Options(out io.Writer) logger.Options {
	return logger.Options{Level: l.Level, Format: l.Format, Output: out}
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// ClientConfig tunes the simulated actuator side.
type ClientConfig struct {
	// RefreshInterval is how often outputs are re-gated against the door sensor.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// New returns a viper instance with defaults and environment lookup set up.
// Callers bind their flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db.path", "oven.db")

	v.SetDefault("serial.address", "/dev/ttyUSB0")
	v.SetDefault("serial.baud_rate", 115200)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "N")
	v.SetDefault("serial.timeout", "100ms")

	v.SetDefault("link.poll_interval", "500ms")
	v.SetDefault("link.ping_interval", "250ms")
	v.SetDefault("link.ack_timeout", "800ms")
	v.SetDefault("link.alive_window", "3s")

	v.SetDefault("oven.tolerance_c", 2.0)
	v.SetDefault("oven.default_preset", 1)
	v.SetDefault("oven.tick_interval", "1s")
	v.SetDefault("oven.observe_interval", "250ms")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "12h")

	v.SetDefault("client.refresh_interval", "100ms")
}

// Load reads file (or configs/config.yml when file is empty) into a Config.
// A missing default file is not an error; a missing explicit file is.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// ValidateHost checks the settings the host command cannot run without.
func (c *Config) ValidateHost() error {
	if err := logger.Validate(c.Log.Options(nil)); err != nil {
		return err
	}
	if c.Auth.SigningKey == "" {
		return errors.New("auth.signing_key is required (or OVEN_AUTH_SIGNING_KEY)")
	}
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	return c.validateSerial()
}

// ValidateClient checks the settings the client command cannot run without.
func (c *Config) ValidateClient() error {
	if err := logger.Validate(c.Log.Options(nil)); err != nil {
		return err
	}
	return c.validateSerial()
}

func (c *Config) validateSerial() error {
	if c.Serial.Address == "" {
		return errors.New("serial.address is required")
	}
	return nil
}
