package models

import "time"

// Drying-cycle event types.
const (
	EventStart     = "START"
	EventStop      = "STOP"
	EventPause     = "PAUSE"
	EventResume    = "RESUME"
	EventDoorOpen  = "DOOR_OPEN"
	EventCycleDone = "CYCLE_DONE"
	EventPostDone  = "POST_DONE"
	EventPreset    = "PRESET"
	EventManual    = "MANUAL"
	EventCommError = "COMM_ERROR"
	EventLinkSync  = "LINK_SYNC"
	EventLinkLost  = "LINK_LOST"
)

// OvenEvent is a single log entry.
type OvenEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // one of the Event* constants
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
