package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"drying_oven/internal/link"
	"drying_oven/internal/logger"
	"drying_oven/internal/metrics"
	"drying_oven/internal/models"
	"drying_oven/internal/protocol"
	"drying_oven/internal/repository"
)

type cmdFamily uint8

const (
	famSet cmdFamily = iota
	famUpd
	famTog
	numFamilies
)

func (f cmdFamily) String() string {
	switch f {
	case famSet:
		return "SET"
	case famUpd:
		return "UPD"
	case famTog:
		return "TOG"
	default:
		return "UNKNOWN"
	}
}

// LinkSupervisor is the single owner of the host link engine. It serializes
// every call into the engine, drives the handshake and STATUS polling, and
// handles what the engine leaves to its caller: ack timeouts and clearing
// CommError.
type LinkSupervisor struct {
	mu     sync.Mutex
	host   *link.Host
	port   io.Reader
	events repository.EventRepo
	log    *logger.Logger
	cfg    LinkConfig
	now    func() time.Time

	synced   bool
	lastPing time.Time
	lastPoll time.Time
	// pendingSince holds, per family, when the oldest un-acked command went
	// out. Zero means nothing is outstanding for that family.
	pendingSince [numFamilies]time.Time
}

func NewLinkSupervisor(port io.ReadWriter, events repository.EventRepo, log *logger.Logger, cfg LinkConfig) *LinkSupervisor {
	cfg.ensureDefaults()
	s := &LinkSupervisor{
		port:   port,
		events: events,
		log:    log,
		cfg:    cfg,
		now:    time.Now,
	}
	s.host = link.NewHost(port, link.HostOptions{
		Now:         func() time.Time { return s.now() },
		OnTx:        s.onTx,
		OnRx:        s.onRx,
		OnParseFail: s.onParseFail,
	})
	return s
}

func (s *LinkSupervisor) onTx(line string) {
	metrics.RecordTx(metrics.SideHost, lineKind(line))
	s.log.Debugw("link_tx", "line", line)
}

func (s *LinkSupervisor) onRx(m protocol.Message) {
	metrics.RecordRx(metrics.SideHost, m.Kind.String())
}

func (s *LinkSupervisor) onParseFail(line string, err error) {
	metrics.RecordParseFailure(metrics.SideHost)
	s.log.Debugw("link_parse_failed", "line", line, "error", err)
}

func lineKind(line string) string {
	m, err := protocol.Decode(line)
	if err != nil {
		return protocol.KindUnknown.String()
	}
	return m.Kind.String()
}

// SetOutputs sends H;SET and arms the ack timer.
func (s *LinkSupervisor) SetOutputs(mask protocol.Mask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commandLocked(famSet, func() error { return s.host.SetOutputs(mask) })
}

// UpdateOutputs sends H;UPD and arms the ack timer.
func (s *LinkSupervisor) UpdateOutputs(set, clear protocol.Mask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commandLocked(famUpd, func() error { return s.host.UpdateOutputs(set, clear) })
}

// ToggleOutputs sends H;TOG and arms the ack timer.
func (s *LinkSupervisor) ToggleOutputs(t protocol.Mask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commandLocked(famTog, func() error { return s.host.ToggleOutputs(t) })
}

func (s *LinkSupervisor) commandLocked(fam cmdFamily, send func() error) error {
	if s.pendingSince[fam].IsZero() {
		s.pendingSince[fam] = s.now()
	}
	if err := send(); err != nil {
		return fmt.Errorf("link %s: %w", fam, err)
	}
	return nil
}

// State returns a copy of the host link state.
func (s *LinkSupervisor) State() link.HostState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host.State()
}

// Alive reports whether any valid frame arrived within the alive window.
func (s *LinkSupervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host.Alive(s.cfg.AliveWindow)
}

// Diagnostics renders the host link state for maintenance views.
func (s *LinkSupervisor) Diagnostics() models.LinkDiagnostics {
	s.mu.Lock()
	st := s.host.State()
	alive := s.host.Alive(s.cfg.AliveWindow)
	s.mu.Unlock()

	d := models.LinkDiagnostics{
		LinkHealth:    linkHealth(st, alive),
		DesiredMask:   st.DesiredMask.String(),
		RemoteMask:    st.RemoteMask.String(),
		SetAcked:      st.SetAcked,
		UpdAcked:      st.UpdAcked,
		TogAcked:      st.TogAcked,
		PongStreak:    st.PongStreak,
		LastErrCode:   st.LastErrCode,
		OverflowCount: st.OverflowCount,
		LastBadLine:   st.LastBadLine,
	}
	if st.StatusSeen {
		d.StatusMask = st.Status.Mask.String()
	}
	return d
}

func linkHealth(st link.HostState, alive bool) models.LinkHealth {
	return models.LinkHealth{
		Alive:           alive,
		Synced:          st.LinkSynced,
		CommError:       st.CommError,
		ParseFailCount:  st.ParseFailCount,
		LastStatusAgeMs: ageMs(st.LastStatusAge),
		LastRxAgeMs:     ageMs(st.LastRxAge),
	}
}

func ageMs(d time.Duration) int64 {
	if d < 0 {
		return -1
	}
	return d.Milliseconds()
}

// Feed hands received bytes to the engine.
func (s *LinkSupervisor) Feed(p []byte) {
	s.mu.Lock()
	s.host.Feed(p)
	s.mu.Unlock()
}

// Run reads the port and steps the supervisor until ctx is canceled. It
// returns a read error from the port; cancellation returns nil.
func (s *LinkSupervisor) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go func() { readErr <- s.readLoop(ctx) }()

	step := s.cfg.PollInterval
	if s.cfg.PingInterval < step {
		step = s.cfg.PingInterval
	}
	t := time.NewTicker(step)
	defer t.Stop()

	s.log.Infow("link_supervisor_started", "poll_interval", s.cfg.PollInterval, "ping_interval", s.cfg.PingInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				s.log.Errorw("link_read_failed", "error", err)
			}
			return err
		case <-t.C:
			s.Step(ctx)
		}
	}
}

func (s *LinkSupervisor) readLoop(ctx context.Context) error {
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := s.port.Read(buf)
		if n > 0 {
			s.Feed(buf[:n])
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("link read: %w", err)
		}
	}
	return nil
}

// Step runs one supervision pass: CommError recovery, sync edges, the
// handshake while unsynced, and ack timeouts plus STATUS polling once synced.
func (s *LinkSupervisor) Step(ctx context.Context) {
	var evs []models.OvenEvent

	s.mu.Lock()
	now := s.now()
	st := s.host.State()
	metrics.SetOverflows(metrics.SideHost, st.OverflowCount)

	switch {
	case st.CommError:
		metrics.RecordCommError()
		s.log.Errorw("comm_error",
			"last_bad_line", st.LastBadLine,
			"last_err_code", st.LastErrCode,
			"parse_failures", st.ParseFailCount,
			"synced", st.LinkSynced)
		evs = append(evs, models.OvenEvent{
			OccurredAt:  now,
			Type:        models.EventCommError,
			Description: "communication error; link reset",
			Metadata: map[string]any{
				"last_bad_line": st.LastBadLine,
				"last_err_code": st.LastErrCode,
			},
		})
		s.host.ClearCommError()
		s.sendLocked("reset", s.host.ResetLink)
		st = s.host.State()
	case st.LinkSynced && !s.host.Alive(s.cfg.AliveWindow):
		s.log.Warnw("link_silent", "last_rx_age", st.LastRxAge)
		s.sendLocked("reset", s.host.ResetLink)
		st = s.host.State()
	}

	if st.LinkSynced != s.synced {
		s.synced = st.LinkSynced
		metrics.SetLinkSynced(s.synced)
		if s.synced {
			s.log.Infow("link_synced", "pong_streak", st.PongStreak)
			evs = append(evs, models.OvenEvent{OccurredAt: now, Type: models.EventLinkSync, Description: "link synced"})
			// the peer may have restarted with every output off
			s.resendDesiredLocked(st, now)
		} else {
			s.log.Warnw("link_lost")
			evs = append(evs, models.OvenEvent{OccurredAt: now, Type: models.EventLinkLost, Description: "link lost"})
		}
	}

	if !st.LinkSynced {
		if now.Sub(s.lastPing) >= s.cfg.PingInterval {
			s.host.ClearPong()
			s.sendLocked("ping", s.host.Ping)
			s.lastPing = now
		}
	} else {
		s.checkAckLocked(st, now)
		if now.Sub(s.lastPoll) >= s.cfg.PollInterval {
			s.sendLocked("status", s.host.RequestStatus)
			s.lastPoll = now
		}
	}
	s.mu.Unlock()

	for _, e := range evs {
		if err := s.events.Append(ctx, e); err != nil {
			s.log.Errorw("event_append_failed", "type", e.Type, "error", err)
		}
	}
}

// checkAckLocked re-sends the desired mask as a SET once any family has gone
// un-acked past the timeout. Families are tracked separately, so an ack for a
// later TOG does not hide a lost UPD. SET is idempotent where a repeated TOG
// is not, and it supersedes every outstanding command.
func (s *LinkSupervisor) checkAckLocked(st link.HostState, now time.Time) {
	acked := [numFamilies]bool{famSet: st.SetAcked, famUpd: st.UpdAcked, famTog: st.TogAcked}
	var late []string
	for fam := range s.pendingSince {
		since := s.pendingSince[fam]
		switch {
		case since.IsZero():
		case acked[fam]:
			s.pendingSince[fam] = time.Time{}
		case now.Sub(since) >= s.cfg.AckTimeout:
			late = append(late, cmdFamily(fam).String())
		}
	}
	if len(late) == 0 {
		return
	}
	metrics.RecordRetry()
	s.log.Warnw("ack_timeout", "families", late, "desired_mask", st.DesiredMask.String())
	s.resendDesiredLocked(st, now)
}

// resendDesiredLocked replaces everything outstanding with one SET of the desired mask.
func (s *LinkSupervisor) resendDesiredLocked(st link.HostState, now time.Time) {
	s.pendingSince = [numFamilies]time.Time{}
	s.pendingSince[famSet] = now
	s.sendLocked("set", func() error { return s.host.SetOutputs(st.DesiredMask) })
}

func (s *LinkSupervisor) sendLocked(what string, send func() error) {
	if err := send(); err != nil {
		s.log.Errorw("link_send_failed", "command", what, "error", err)
	}
}
