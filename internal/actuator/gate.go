package actuator

import "drying_oven/internal/protocol"

// Heater modulation. These are fixed at build time; the protocol only switches
// the heater bit on or off.
const (
	HeaterPWMFrequencyHz = 2
	HeaterPWMDutyPercent = 60
)

// doorInterlocked are the outputs that must be off while the door is open.
// The slow 230V fan is deliberately absent: it may keep running for passive cooling.
const doorInterlocked = protocol.BitHeater | protocol.BitSilicaMotor | protocol.BitFan230Fast

// EffectiveMask returns the outputs that may physically be driven for the
// requested mask and the live door state. The door bit is never an output.
func EffectiveMask(requested protocol.Mask, doorOpen bool) protocol.Mask {
	m := requested &^ protocol.BitDoor
	if doorOpen {
		m &^= doorInterlocked
	}
	return m
}

// ReportedMask is the mask carried in STATUS: the effective mask with the door
// bit taken from the sensor, whatever the request said about it.
func ReportedMask(requested protocol.Mask, doorOpen bool) protocol.Mask {
	m := EffectiveMask(requested, doorOpen)
	if doorOpen {
		m |= protocol.BitDoor
	}
	return m
}
