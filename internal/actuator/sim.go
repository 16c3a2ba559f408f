package actuator

import (
	"sync"
	"time"

	"drying_oven/internal/protocol"
)

// ----------- Simulation constants -----------
const (
	AmbientC        = 25.0 // ambient temperature °C
	MaxSafeC        = 90.0 // heater cut-off in the simulated element
	RampUpCPerSec   = 0.5  // °C per second with heater on
	RampDownCPerSec = 0.3  // °C per second with a 230V fan on
	DriftCPerSec    = 0.05 // °C per second passive cooling
	maxADC          = 4095
)

// SimPins is an in-memory Pins implementation with a simple thermal model,
// used by the client runtime when no hardware is attached and by tests.
type SimPins struct {
	mu       sync.Mutex
	outputs  protocol.Mask
	doorOpen bool
	tempC    float64
	analog   [4]uint16
	lastStep time.Time
	failNext error
}

// NewSimPins returns pins at ambient temperature with the door closed.
func NewSimPins() *SimPins {
	return &SimPins{tempC: AmbientC, analog: [4]uint16{0, 2048, 1024, 512}}
}

func (p *SimPins) Drive(effective protocol.Mask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failNext; err != nil {
		p.failNext = nil
		return err
	}
	p.outputs = effective
	return nil
}

func (p *SimPins) DoorOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doorOpen
}

func (p *SimPins) ReadAnalog() [4]uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.analog
	a[0] = clampADC(p.tempC * 10)
	return a
}

func (p *SimPins) ReadTempRaw() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int32(p.tempC * 4)
}

// SetDoorOpen changes the simulated door sensor.
func (p *SimPins) SetDoorOpen(open bool) {
	p.mu.Lock()
	p.doorOpen = open
	p.mu.Unlock()
}

// ToggleDoor flips the door sensor and returns the new state.
func (p *SimPins) ToggleDoor() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doorOpen = !p.doorOpen
	return p.doorOpen
}

// Outputs returns the mask last driven.
func (p *SimPins) Outputs() protocol.Mask {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outputs
}

// SetTempC forces the simulated temperature.
func (p *SimPins) SetTempC(c float64) {
	p.mu.Lock()
	p.tempC = c
	p.mu.Unlock()
}

// FailNextDrive makes the next Drive call return err.
func (p *SimPins) FailNextDrive(err error) {
	p.mu.Lock()
	p.failNext = err
	p.mu.Unlock()
}

// Step advances the thermal model by the time passed since the previous step.
func (p *SimPins) Step(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastStep.IsZero() {
		p.lastStep = now
		return
	}
	elapsed := now.Sub(p.lastStep).Seconds()
	if elapsed <= 0 {
		return
	}
	p.lastStep = now
	p.tempC = nextTemp(p.tempC, p.outputs, elapsed)
}

// nextTemp heats with the heater on, otherwise cools toward ambient, faster
// when a 230V fan is moving air.
func nextTemp(cur float64, outputs protocol.Mask, elapsed float64) float64 {
	if outputs.Has(protocol.BitHeater) {
		return minFloat(cur+RampUpCPerSec*elapsed, MaxSafeC)
	}
	rate := DriftCPerSec
	if outputs&(protocol.BitFan230Fast|protocol.BitFan230Slow) != 0 {
		rate = RampDownCPerSec
	}
	if cur > AmbientC {
		return maxFloat(cur-rate*elapsed, AmbientC)
	}
	return cur
}

// helpers
func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}

func clampADC(v float64) uint16 {
	switch {
	case v < 0:
		return 0
	case v > maxADC:
		return maxADC
	default:
		return uint16(v)
	}
}
