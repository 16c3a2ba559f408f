package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"drying_oven/internal/actuator"
	"drying_oven/internal/link"
	"drying_oven/internal/logger"
	"drying_oven/internal/models"
	"drying_oven/internal/protocol"
)

// bench runs the oven controller and supervisor against a real Client engine
// and a simulated board, with both directions of the wire held in buffers.
type bench struct {
	t      *testing.T
	sup    *supRig
	oven   *OvenService
	client *link.Client
	pins   *actuator.SimPins
	toHost bytes.Buffer
}

func newBench(t *testing.T) *bench {
	t.Helper()
	b := &bench{t: t, sup: newTestSupervisor(t), pins: actuator.NewSimPins()}
	board := actuator.NewBoard(b.pins, logger.Nop())
	b.client = link.NewClient(&b.toHost, board, board, link.ClientOptions{})
	b.oven = NewOvenService(b.sup.sup, &fakeStateRepo{}, b.sup.events, logger.Nop(), OvenConfig{
		ToleranceC:    2,
		Presets:       testPresets,
		DefaultPreset: 1,
	})
	b.oven.now = b.sup.clk.now
	return b
}

// pump delivers host output to the client and the client's replies back.
func (b *bench) pump() {
	b.t.Helper()
	if err := b.client.Feed([]byte(b.sup.port.take())); err != nil {
		b.t.Fatalf("client feed: %v", err)
	}
	b.sup.sup.Feed(b.toHost.Bytes())
	b.toHost.Reset()
}

// cycle advances past one poll interval, steps the supervisor and lets the
// oven observe the fresh STATUS.
func (b *bench) cycle() {
	b.t.Helper()
	b.sup.clk.advance(500 * time.Millisecond)
	b.sup.sup.Step(context.Background())
	b.pump()
	if err := b.oven.Observe(context.Background()); err != nil {
		b.t.Fatalf("observe: %v", err)
	}
	b.pump()
}

func (b *bench) handshake() {
	b.t.Helper()
	ctx := context.Background()
	for i := 0; i < 3 && !b.sup.sup.State().LinkSynced; i++ {
		b.sup.sup.Step(ctx)
		b.pump()
		b.sup.clk.advance(300 * time.Millisecond)
	}
	b.sup.sup.Step(ctx)
	b.pump()
	if !b.sup.sup.State().LinkSynced {
		b.t.Fatalf("handshake did not complete")
	}
}

func TestOvenOverLink_DoorOpenForcesWaitingAndGatesHeater(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.handshake()

	mustNoErr(t, b.oven.Start(ctx))
	b.pump()
	b.cycle()
	if got := b.pins.Outputs(); got != protocol.BitFan12V|protocol.BitSilicaMotor|protocol.BitHeater {
		t.Fatalf("pins = %s, want heater, motor and 12V fan", got)
	}

	b.pins.SetDoorOpen(true)
	b.sup.clk.advance(500 * time.Millisecond)
	b.sup.sup.Step(ctx)
	b.pump()

	st := b.sup.sup.State()
	if !st.RemoteMask.Has(protocol.BitHeater) {
		t.Fatalf("ACK should still echo the requested heater, remote=%s", st.RemoteMask)
	}
	if st.Status.Mask.Has(protocol.BitHeater) || !st.Status.DoorOpen() {
		t.Fatalf("STATUS should report the gated mask with the door open, got %s", st.Status.Mask)
	}
	if b.pins.Outputs().Has(protocol.BitHeater) {
		t.Fatalf("heater must be off at the pins while the door is open")
	}

	mustNoErr(t, b.oven.Observe(ctx))
	b.pump()
	if snap := b.oven.Snapshot(); snap.Mode != models.ModeWaiting || snap.Actuators.Heater || !snap.DoorOpen {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := b.client.Mask(); got != protocol.BitFan12V {
		t.Fatalf("client mask = %s, want only the 12V fan", got)
	}
	if err := b.oven.ResumeFromWait(ctx); !errors.Is(err, ErrDoorOpen) {
		t.Fatalf("expected ErrDoorOpen, got %v", err)
	}
	if !strings.Contains(strings.Join(b.sup.events.types(), ","), models.EventDoorOpen) {
		t.Fatalf("missing DOOR_OPEN event: %v", b.sup.events.types())
	}

	b.pins.SetDoorOpen(false)
	b.cycle()
	mustNoErr(t, b.oven.ResumeFromWait(ctx))
	b.pump()
	b.cycle()
	if snap := b.oven.Snapshot(); snap.Mode != models.ModeRunning {
		t.Fatalf("mode = %s, want RUNNING", snap.Mode)
	}
	if !b.pins.Outputs().Has(protocol.BitHeater) {
		t.Fatalf("heater should be back on after resume, pins=%s", b.pins.Outputs())
	}
}
