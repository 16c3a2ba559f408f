package actuator

import (
	"drying_oven/internal/logger"
	"drying_oven/internal/protocol"
)

// Pins is the driver layer below the effective-mask boundary.
type Pins interface {
	// Drive sets every discrete output from the mask. The heater bit enables
	// the fixed PWM output rather than a plain level.
	Drive(effective protocol.Mask) error
	DoorOpen() bool
	ReadAnalog() [4]uint16
	ReadTempRaw() int32
}

// Board is the Client's output collaborator. It gates every request through
// EffectiveMask before touching the pins and reports telemetry from them.
//
// Board is NOT goroutine-safe; it is driven from the Client's receive loop.
type Board struct {
	pins      Pins
	log       *logger.Logger
	requested protocol.Mask
	applied   protocol.Mask
	driven    bool
}

func NewBoard(pins Pins, log *logger.Logger) *Board {
	return &Board{pins: pins, log: log}
}

// ApplyOutputs stores the requested mask and drives the gated result.
func (b *Board) ApplyOutputs(requested protocol.Mask) {
	b.requested = requested
	b.drive(b.pins.DoorOpen())
}

// Refresh re-applies the gate with the current door state, so a door opened
// after the last command still drops the interlocked outputs.
func (b *Board) Refresh() {
	b.drive(b.pins.DoorOpen())
}

// FillStatus reads sensors and reports the effective mask with the live door bit.
func (b *Board) FillStatus(s *protocol.StatusSnapshot) {
	door := b.pins.DoorOpen()
	b.drive(door)
	s.Mask = ReportedMask(b.requested, door)
	s.Analog = b.pins.ReadAnalog()
	s.TempRaw = b.pins.ReadTempRaw()
}

// Requested returns the last requested mask.
func (b *Board) Requested() protocol.Mask { return b.requested }

// Applied returns the mask last driven onto the pins.
func (b *Board) Applied() protocol.Mask { return b.applied }

func (b *Board) drive(doorOpen bool) {
	eff := EffectiveMask(b.requested, doorOpen)
	if b.driven && eff == b.applied {
		return
	}
	if err := b.pins.Drive(eff); err != nil {
		if b.log != nil {
			b.log.Errorw("outputs_drive_failed", "err", err, "mask", eff.String())
		}
		return
	}
	if b.log != nil && eff != b.requested&^protocol.BitDoor {
		b.log.Infow("outputs_gated", "requested", b.requested.String(), "applied", eff.String(), "door_open", doorOpen)
	}
	b.applied = eff
	b.driven = true
}
