package protocol

import "strings"

// Mask is the 16-bit outputs mask exchanged in SET/UPD/TOG/ACK/STATUS frames.
type Mask uint16

// Output bits.
const (
	BitFan12V      Mask = 1 << 0
	BitFan230Fast  Mask = 1 << 1
	BitLamp        Mask = 1 << 2
	BitSilicaMotor Mask = 1 << 3
	BitFan230Slow  Mask = 1 << 4
	// BitDoor is a sensor input. It is reported in STATUS but never driven.
	BitDoor Mask = 1 << 5
	// BitHeater drives a modulated output on the Client, not a plain level.
	BitHeater   Mask = 1 << 6
	BitReserved Mask = 1 << 7
)

var bitNames = [...]string{
	"fan12v",
	"fan230_fast",
	"lamp",
	"silica_motor",
	"fan230_slow",
	"door",
	"heater",
	"reserved",
}

// Has reports whether all bits of b are set in m.
func (m Mask) Has(b Mask) bool { return m&b == b }

// String lists the named bits that are set, e.g. "fan12v|heater".
func (m Mask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for i, name := range bitNames {
		if m&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if rest := m &^ 0x00FF; rest != 0 {
		parts = append(parts, "0x"+formatHex(rest))
	}
	return strings.Join(parts, "|")
}
