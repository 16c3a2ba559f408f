package link

import (
	"fmt"
	"io"

	"drying_oven/internal/protocol"
)

// OutputApplier drives the physical outputs for a requested mask. Implementations
// are expected to run the safety gate before touching hardware.
type OutputApplier interface {
	ApplyOutputs(requested protocol.Mask)
}

// StatusFiller reads sensors into s. s.Mask must be the effective (gated) mask
// with the live door bit, not the requested one.
type StatusFiller interface {
	FillStatus(s *protocol.StatusSnapshot)
}

// ClientOptions carries the optional observation hooks of a Client.
type ClientOptions struct {
	// OnTx sees every emitted line, without the terminator.
	OnTx func(line string)
	// OnHeartbeat fires once per valid Host frame handled.
	OnHeartbeat func()
	// OnParseFail sees lines that were junk or failed to decode.
	OnParseFail func(line string, err error)
}

// Client is the actuator-side link engine.
//
// Acknowledgments echo the mask the Host requested, while STATUS frames carry
// the effective mask after gating. A Host comparing the two can tell "command
// accepted" from "what the hardware actually does".
//
// This type is NOT goroutine-safe. One receive loop must own it.
type Client struct {
	w       io.Writer
	asm     *protocol.Assembler
	outputs OutputApplier
	status  StatusFiller
	opts    ClientOptions

	mask            protocol.Mask
	newOutputsMask  bool
	statusRequested bool
	parseFails      uint64
}

// NewClient builds a Client writing frames to w. status may be nil; GET STATUS
// then only raises StatusRequested and the caller answers with SendStatus.
func NewClient(w io.Writer, outputs OutputApplier, status StatusFiller, opts ClientOptions) *Client {
	return &Client{
		w:       w,
		asm:     protocol.NewAssembler(protocol.SentinelHost),
		outputs: outputs,
		status:  status,
		opts:    opts,
	}
}

// Feed processes received bytes in order. It only returns transmit errors.
func (c *Client) Feed(p []byte) error {
	for _, b := range p {
		if err := c.FeedByte(b); err != nil {
			return err
		}
	}
	return nil
}

// FeedByte processes one received byte.
func (c *Client) FeedByte(b byte) error {
	line, err := c.asm.Feed(b)
	if err != nil {
		c.parseFailed(string(line), err)
		return nil
	}
	if line == nil {
		return nil
	}
	return c.HandleLine(string(line))
}

// HandleLine processes one complete line.
func (c *Client) HandleLine(line string) error {
	msg, err := protocol.Decode(line)
	if err != nil {
		c.parseFailed(line, err)
		return nil
	}
	if !msg.Kind.FromHost() {
		return nil
	}
	if c.opts.OnHeartbeat != nil {
		c.opts.OnHeartbeat()
	}

	switch msg.Kind {
	case protocol.KindHostSet:
		c.applyMask(msg.Mask)
		return c.send(protocol.ClientAckSet(c.mask))
	case protocol.KindHostUpd:
		c.applyMask((c.mask | msg.Mask) &^ msg.Clear)
		return c.send(protocol.ClientAckUpd(c.mask))
	case protocol.KindHostTog:
		c.applyMask(c.mask ^ msg.Mask)
		return c.send(protocol.ClientAckTog(c.mask))
	case protocol.KindHostGetStatus:
		c.statusRequested = true
		if c.status == nil {
			return nil
		}
		var s protocol.StatusSnapshot
		c.status.FillStatus(&s)
		return c.SendStatus(s)
	case protocol.KindHostPing:
		return c.send(protocol.ClientPong())
	case protocol.KindHostRst:
		return c.send(protocol.ClientRst())
	}
	return nil
}

func (c *Client) applyMask(m protocol.Mask) {
	c.mask = m
	c.newOutputsMask = true
	if c.outputs != nil {
		c.outputs.ApplyOutputs(m)
	}
}

func (c *Client) parseFailed(line string, err error) {
	c.parseFails++
	if c.opts.OnParseFail != nil {
		c.opts.OnParseFail(line, err)
	}
}

// SendStatus emits a STATUS frame and clears StatusRequested.
func (c *Client) SendStatus(s protocol.StatusSnapshot) error {
	c.statusRequested = false
	return c.send(protocol.ClientStatus(s))
}

// ReportError emits C;ERR;SET with an application-defined code.
func (c *Client) ReportError(code int32) error {
	return c.send(protocol.ClientErrSet(code))
}

// send is the single emission path for every frame.
func (c *Client) send(m protocol.Message) error {
	line, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if c.opts.OnTx != nil {
		c.opts.OnTx(string(line[:len(line)-len(protocol.Terminator)]))
	}
	if _, err := c.w.Write(line); err != nil {
		return fmt.Errorf("client tx %s: %w", m.Kind, err)
	}
	return nil
}

// Mask returns the current requested outputs mask.
func (c *Client) Mask() protocol.Mask { return c.mask }

// TakeNewOutputs returns the mask and whether it changed since the last call.
func (c *Client) TakeNewOutputs() (protocol.Mask, bool) {
	changed := c.newOutputsMask
	c.newOutputsMask = false
	return c.mask, changed
}

// StatusRequested reports a GET STATUS that has not been answered yet.
func (c *Client) StatusRequested() bool { return c.statusRequested }

// ParseFailures counts junk and undecodable lines.
func (c *Client) ParseFailures() uint64 { return c.parseFails }

// Overflows counts assembler buffer discards.
func (c *Client) Overflows() uint64 { return c.asm.Overflows() }
