package models

import "time"

// Mode is the oven policy state.
type Mode string

const (
	ModeStopped Mode = "STOPPED"
	ModeRunning Mode = "RUNNING"
	ModeWaiting Mode = "WAITING"
	ModePost    Mode = "POST"
)

// Fan230Speed selects one of the two 230V fan windings.
type Fan230Speed string

const (
	Fan230Off  Fan230Speed = ""
	Fan230Slow Fan230Speed = "SLOW"
	Fan230Fast Fan230Speed = "FAST"
)

// PostCycle is the optional cool-down that follows a finished drying cycle.
type PostCycle struct {
	FanSpeed    Fan230Speed `json:"fan_speed" mapstructure:"fan_speed"`
	DurationSec int         `json:"duration_sec" mapstructure:"duration_sec"`
}

// Active reports whether the post cycle should run at all.
func (p PostCycle) Active() bool {
	return p.DurationSec > 0 && p.FanSpeed != Fan230Off
}

// Preset is a read-only drying program.
type Preset struct {
	ID          int       `json:"id" mapstructure:"id"`
	Name        string    `json:"name" mapstructure:"name"`
	TargetTempC float64   `json:"target_temp_c" mapstructure:"target_temp_c"`
	DurationSec int       `json:"duration_sec" mapstructure:"duration_sec"`
	Rotary      bool      `json:"rotary" mapstructure:"rotary"`
	Post        PostCycle `json:"post" mapstructure:"post"`
}

// Actuators mirrors the remote STATUS mask bit for bit.
type Actuators struct {
	Fan12V      bool `json:"fan_12v"`
	Fan230Fast  bool `json:"fan_230_fast"`
	Lamp        bool `json:"lamp"`
	SilicaMotor bool `json:"silica_motor"`
	Fan230Slow  bool `json:"fan_230_slow"`
	Heater      bool `json:"heater"`
}

// LinkHealth is the display-facing summary of the serial link.
type LinkHealth struct {
	Alive           bool   `json:"alive"`
	Synced          bool   `json:"synced"`
	CommError       bool   `json:"comm_error"`
	ParseFailCount  uint64 `json:"parse_fail_count"`
	LastStatusAgeMs int64  `json:"last_status_age_ms"` // -1 until the first STATUS
	LastRxAgeMs     int64  `json:"last_rx_age_ms"`     // -1 until the first frame
}

// OvenRuntimeSnapshot is produced fresh on every read; consumers must not
// mutate it.
type OvenRuntimeSnapshot struct {
	Mode             Mode    `json:"mode"`
	DurationSec      int     `json:"duration_sec"`
	RemainingSeconds int     `json:"remaining_seconds"`
	CurrentTempC     float64 `json:"current_temp_c"`
	TargetTempC      float64 `json:"target_temp_c"`
	ToleranceC       float64 `json:"tolerance_c"`
	PresetID         int     `json:"preset_id"`
	PresetName       string  `json:"preset_name"`

	// StatusKnown is false until the first STATUS; actuator and door fields
	// are then unknown rather than off.
	StatusKnown bool      `json:"status_known"`
	Actuators   Actuators `json:"actuators"`
	DoorOpen    bool      `json:"door_open"`

	Link            LinkHealth `json:"link"`
	CanToggleFan230 bool       `json:"can_toggle_fan230"`
	CanToggleLamp   bool       `json:"can_toggle_lamp"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// LinkDiagnostics is the full Host link view served to maintenance tools.
type LinkDiagnostics struct {
	LinkHealth
	DesiredMask   string `json:"desired_mask"`
	RemoteMask    string `json:"remote_mask"`
	StatusMask    string `json:"status_mask"`
	SetAcked      bool   `json:"set_acked"`
	UpdAcked      bool   `json:"upd_acked"`
	TogAcked      bool   `json:"tog_acked"`
	PongStreak    uint8  `json:"pong_streak"`
	LastErrCode   int32  `json:"last_err_code"`
	OverflowCount uint64 `json:"overflow_count"`
	LastBadLine   string `json:"last_bad_line,omitempty"`
}

// OvenState is the persisted part of the policy state, restored on restart.
type OvenState struct {
	ID               int       `json:"id"`
	Mode             Mode      `json:"mode"`
	PresetID         int       `json:"preset_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	UpdatedAt        time.Time `json:"updated_at"`
}
