package service

import (
	"time"

	"drying_oven/internal/models"
)

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "" or one of the models.Event* types
	// Limit keeps only the most recent events; zero means all.
	Limit int
}

// OvenConfig tunes the policy controller.
type OvenConfig struct {
	// ToleranceC is the half-width of the thermostat hysteresis band.
	ToleranceC    float64         `mapstructure:"tolerance_c"`
	Presets       []models.Preset `mapstructure:"presets"`
	DefaultPreset int             `mapstructure:"default_preset"`
	// TickInterval drives the countdown; it is nominally one second.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// ObserveInterval is how often the latest STATUS is checked for the door.
	ObserveInterval time.Duration `mapstructure:"observe_interval"`
}

// LinkConfig tunes the supervisor around the host link engine.
type LinkConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"` // STATUS cadence once synced
	PingInterval time.Duration `mapstructure:"ping_interval"` // PING cadence while not synced
	AckTimeout   time.Duration `mapstructure:"ack_timeout"`   // re-send the desired mask after this
	AliveWindow  time.Duration `mapstructure:"alive_window"`  // no frame for this long resets a synced link
}

func (c *OvenConfig) ensureDefaults() {
	if c.ToleranceC <= 0 {
		c.ToleranceC = 2
	}
	if len(c.Presets) == 0 {
		c.Presets = DefaultPresets()
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.ObserveInterval <= 0 {
		c.ObserveInterval = 250 * time.Millisecond
	}
}

func (c *LinkConfig) ensureDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 250 * time.Millisecond
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 800 * time.Millisecond
	}
	if c.AliveWindow <= 0 {
		c.AliveWindow = 3 * time.Second
	}
}
