package link

import (
	"fmt"
	"io"
	"time"

	"drying_oven/internal/protocol"
)

// SyncThreshold is the number of consecutive PONGs after which the link is
// trusted and decode failures become fatal-flagged.
const SyncThreshold = 2

// HostOptions carries the clock and observation hooks of a Host.
type HostOptions struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// OnTx sees every emitted line, without the terminator.
	OnTx func(line string)
	// OnRx sees every successfully decoded frame.
	OnRx func(m protocol.Message)
	// OnParseFail sees junk and undecodable lines.
	OnParseFail func(line string, err error)
}

// HostState is a copy of the Host engine's view of the link.
type HostState struct {
	// DesiredMask is the mask the Host last asked for (SET, or UPD/TOG applied locally).
	DesiredMask protocol.Mask
	// RemoteMask is the mask echoed by the last ACK.
	RemoteMask protocol.Mask
	// Status is the last telemetry; only meaningful once StatusSeen is true.
	Status     protocol.StatusSnapshot
	StatusSeen bool
	NewStatus  bool

	SetAcked     bool
	UpdAcked     bool
	TogAcked     bool
	PongReceived bool

	PongStreak uint8
	LinkSynced bool

	CommError      bool
	LastErrCode    int32
	ParseFailCount uint64
	OverflowCount  uint64
	LastBadLine    string

	// Ages are -1 until the first matching frame arrives.
	LastStatusAge time.Duration
	LastRxAge     time.Duration
}

// Host is the supervisory-side link engine. It never blocks waiting for a
// reply: commands clear an ack flag and the flag is set again when the
// matching frame is fed in later.
//
// This type is NOT goroutine-safe. Exactly one owner may call into it.
type Host struct {
	w    io.Writer
	asm  *protocol.Assembler
	opts HostOptions

	st           HostState
	lastStatusAt time.Time
	lastRxAt     time.Time
}

// NewHost builds a Host writing frames to w.
func NewHost(w io.Writer, opts HostOptions) *Host {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Host{
		w:    w,
		asm:  protocol.NewAssembler(protocol.SentinelClient),
		opts: opts,
	}
}

// SetOutputs sends H;SET and waits (asynchronously) for ACK;SET.
func (h *Host) SetOutputs(mask protocol.Mask) error {
	h.st.DesiredMask = mask
	h.st.SetAcked = false
	return h.send(protocol.HostSet(mask))
}

// UpdateOutputs sends H;UPD. Clear wins over set for overlapping bits.
func (h *Host) UpdateOutputs(set, clear protocol.Mask) error {
	h.st.DesiredMask = (h.st.DesiredMask | set) &^ clear
	h.st.UpdAcked = false
	return h.send(protocol.HostUpd(set, clear))
}

// ToggleOutputs sends H;TOG.
func (h *Host) ToggleOutputs(t protocol.Mask) error {
	h.st.DesiredMask ^= t
	h.st.TogAcked = false
	return h.send(protocol.HostTog(t))
}

// RequestStatus sends H;GET;STATUS.
func (h *Host) RequestStatus() error {
	h.st.NewStatus = false
	return h.send(protocol.HostGetStatus())
}

// Ping sends H;PING. PongReceived is left for the caller to clear.
func (h *Host) Ping() error {
	return h.send(protocol.HostPing())
}

// ResetLink sends H;RST and restarts the sync handshake.
func (h *Host) ResetLink() error {
	h.st.PongStreak = 0
	h.st.LinkSynced = false
	return h.send(protocol.HostRst())
}

// ClearCommError acknowledges a fatal-flagged communication error.
func (h *Host) ClearCommError() { h.st.CommError = false }

// ClearPong resets PongReceived.
func (h *Host) ClearPong() { h.st.PongReceived = false }

// ClearNewStatus marks the current telemetry as consumed.
func (h *Host) ClearNewStatus() { h.st.NewStatus = false }

// Feed processes received bytes in order.
func (h *Host) Feed(p []byte) {
	for _, b := range p {
		h.FeedByte(b)
	}
}

// FeedByte processes one received byte.
func (h *Host) FeedByte(b byte) {
	line, err := h.asm.Feed(b)
	if err != nil {
		h.parseFailed(string(line), err)
		return
	}
	if line != nil {
		h.HandleLine(string(line))
	}
}

// HandleLine classifies one complete line and updates state.
func (h *Host) HandleLine(line string) {
	msg, err := protocol.Decode(line)
	if err != nil {
		h.parseFailed(line, err)
		return
	}
	h.lastRxAt = h.opts.Now()
	if h.opts.OnRx != nil {
		h.opts.OnRx(msg)
	}

	switch msg.Kind {
	case protocol.KindClientAckSet:
		h.st.RemoteMask = msg.Mask
		h.st.SetAcked = true
	case protocol.KindClientAckUpd:
		h.st.RemoteMask = msg.Mask
		h.st.UpdAcked = true
	case protocol.KindClientAckTog:
		h.st.RemoteMask = msg.Mask
		h.st.TogAcked = true
	case protocol.KindClientStatus:
		h.st.Status = msg.Status
		h.st.StatusSeen = true
		h.st.NewStatus = true
		h.lastStatusAt = h.lastRxAt
	case protocol.KindClientPong:
		h.st.PongReceived = true
		if h.st.PongStreak < ^uint8(0) {
			h.st.PongStreak++
		}
		if h.st.PongStreak >= SyncThreshold {
			h.st.LinkSynced = true
		}
	case protocol.KindClientRst:
		h.st.PongStreak = 0
		h.st.LinkSynced = false
	case protocol.KindClientErrSet:
		h.st.LastErrCode = msg.Code
		h.st.CommError = true
	default:
		// a Host frame echoed back to us
		h.st.CommError = true
	}
}

// parseFailed records junk and undecodable lines; they only become fatal once synced.
func (h *Host) parseFailed(line string, err error) {
	h.st.ParseFailCount++
	h.st.LastBadLine = line
	if h.st.LinkSynced {
		h.st.CommError = true
	}
	if h.opts.OnParseFail != nil {
		h.opts.OnParseFail(line, err)
	}
}

func (h *Host) send(m protocol.Message) error {
	line, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if h.opts.OnTx != nil {
		h.opts.OnTx(string(line[:len(line)-len(protocol.Terminator)]))
	}
	if _, err := h.w.Write(line); err != nil {
		return fmt.Errorf("host tx %s: %w", m.Kind, err)
	}
	return nil
}

// State returns a copy of the link state with ages computed against the clock.
func (h *Host) State() HostState {
	st := h.st
	st.OverflowCount = h.asm.Overflows()
	now := h.opts.Now()
	st.LastStatusAge = age(now, h.lastStatusAt)
	st.LastRxAge = age(now, h.lastRxAt)
	return st
}

// Alive reports whether any valid frame arrived within window.
func (h *Host) Alive(window time.Duration) bool {
	return !h.lastRxAt.IsZero() && h.opts.Now().Sub(h.lastRxAt) <= window
}

func age(now, at time.Time) time.Duration {
	if at.IsZero() {
		return -1
	}
	return now.Sub(at)
}
