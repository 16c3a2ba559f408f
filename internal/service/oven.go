package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"drying_oven/internal/link"
	"drying_oven/internal/logger"
	"drying_oven/internal/metrics"
	"drying_oven/internal/models"
	"drying_oven/internal/protocol"
	"drying_oven/internal/repository"
)

// HostLink is the command and shadow-state surface the policy needs from the
// link. LinkSupervisor implements it.
type HostLink interface {
	UpdateOutputs(set, clear protocol.Mask) error
	ToggleOutputs(t protocol.Mask) error
	State() link.HostState
	Alive() bool
}

var (
	ErrDoorOpen       = errors.New("oven: door is open")
	ErrNoStatus       = errors.New("oven: no status received yet")
	ErrNotStopped     = errors.New("oven: preset can only change while stopped")
	ErrUnknownPreset  = errors.New("oven: unknown preset")
	ErrOverrideLocked = errors.New("oven: fans are under cycle control")
)

// policyBits are the outputs the state machine owns. The lamp is always manual.
const policyBits = protocol.BitFan12V | protocol.BitFan230Fast | protocol.BitFan230Slow |
	protocol.BitSilicaMotor | protocol.BitHeater

var allModes = []string{
	string(models.ModeStopped), string(models.ModeRunning),
	string(models.ModeWaiting), string(models.ModePost),
}

// OvenService is the oven policy controller layered on the host link. It
// never changes link state directly; it only issues commands and reads the
// shadow STATUS. Lock order is oven, then link.
type OvenService struct {
	mu     sync.Mutex
	link   HostLink
	state  repository.StateRepo
	events repository.EventRepo
	log    *logger.Logger
	cfg    OvenConfig
	now    func() time.Time

	mode      models.Mode
	preset    models.Preset
	duration  int
	remaining int
	heating   bool

	// policy and pushedMode describe the last UPD that reached the link.
	policy     protocol.Mask
	pushedMode models.Mode
	pushed     bool
}

func NewOvenService(hl HostLink, state repository.StateRepo, events repository.EventRepo, log *logger.Logger, cfg OvenConfig) *OvenService {
	cfg.ensureDefaults()
	preset, ok := findPreset(cfg.Presets, cfg.DefaultPreset)
	if !ok {
		preset = cfg.Presets[0]
	}
	return &OvenService{
		link:   hl,
		state:  state,
		events: events,
		log:    log,
		cfg:    cfg,
		now:    time.Now,
		mode:   models.ModeStopped,
		preset: preset,
	}
}

// Restore reloads the persisted state. An interrupted cycle comes back in
// Waiting so it only continues after an operator resume with the door closed.
func (s *OvenService) Restore(ctx context.Context) error {
	st, err := s.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore oven state: %w", err)
	}
	if st.ID == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := findPreset(s.cfg.Presets, st.PresetID); ok {
		s.preset = p
	}
	switch st.Mode {
	case models.ModeRunning, models.ModeWaiting:
		if st.RemainingSeconds > 0 {
			s.mode = models.ModeWaiting
			s.duration = s.preset.DurationSec
			s.remaining = st.RemainingSeconds
		}
	}
	s.log.Infow("oven_state_restored", "mode", s.mode, "preset", s.preset.Name, "remaining_seconds", s.remaining)
	return nil
}

// Start begins a drying cycle with the selected preset. No-op unless Stopped.
func (s *OvenService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != models.ModeStopped {
		return nil
	}
	s.mode = models.ModeRunning
	s.duration = s.preset.DurationSec
	s.remaining = s.preset.DurationSec
	s.heating = false
	s.recordLocked(ctx, models.EventStart, "drying cycle started", map[string]any{
		"preset":        s.preset.Name,
		"target_temp_c": s.preset.TargetTempC,
		"duration_sec":  s.duration,
	})
	return s.applyLocked(ctx)
}

// Stop ends the cycle from any active mode and clears the countdown.
func (s *OvenService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == models.ModeStopped {
		return nil
	}
	from := s.mode
	s.mode = models.ModeStopped
	s.remaining = 0
	s.recordLocked(ctx, models.EventStop, "drying cycle stopped", map[string]any{"from": from})
	return s.applyLocked(ctx)
}

// PauseWait suspends a running cycle without clearing the countdown.
func (s *OvenService) PauseWait(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != models.ModeRunning {
		return nil
	}
	s.mode = models.ModeWaiting
	s.recordLocked(ctx, models.EventPause, "cycle paused", map[string]any{"remaining_seconds": s.remaining})
	return s.applyLocked(ctx)
}

// ResumeFromWait continues a waiting cycle, but only when the latest STATUS
// reports the door closed. On refusal the mode stays Waiting.
func (s *OvenService) ResumeFromWait(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != models.ModeWaiting {
		return nil
	}
	st := s.link.State()
	if !st.StatusSeen {
		return ErrNoStatus
	}
	if st.Status.DoorOpen() {
		return ErrDoorOpen
	}
	s.mode = models.ModeRunning
	s.heating = false
	s.recordLocked(ctx, models.EventResume, "cycle resumed", map[string]any{"remaining_seconds": s.remaining})
	return s.applyLocked(ctx)
}

// SelectPreset changes the preset used by the next Start.
func (s *OvenService) SelectPreset(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != models.ModeStopped {
		return ErrNotStopped
	}
	p, ok := findPreset(s.cfg.Presets, id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPreset, id)
	}
	s.preset = p
	s.recordLocked(ctx, models.EventPreset, "preset selected: "+p.Name, map[string]any{"preset_id": p.ID})
	s.saveLocked(ctx)
	return nil
}

// ToggleLamp flips the lamp. It is never under cycle control.
func (s *OvenService) ToggleLamp(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manualLocked(ctx, protocol.BitLamp)
}

// ToggleFan230 flips the slow 230V fan while the cycle does not own the fans.
func (s *OvenService) ToggleFan230(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !fanOverrideAllowed(s.mode) {
		return ErrOverrideLocked
	}
	return s.manualLocked(ctx, protocol.BitFan230Slow)
}

func fanOverrideAllowed(m models.Mode) bool {
	return m == models.ModeStopped || m == models.ModeWaiting
}

func (s *OvenService) manualLocked(ctx context.Context, bit protocol.Mask) error {
	if err := s.link.ToggleOutputs(bit); err != nil {
		return err
	}
	s.recordLocked(ctx, models.EventManual, "manual toggle "+bit.String(), map[string]any{"mode": s.mode})
	return nil
}

// Presets returns a copy of the preset table.
func (s *OvenService) Presets() []models.Preset {
	out := make([]models.Preset, len(s.cfg.Presets))
	copy(out, s.cfg.Presets)
	return out
}

// Observe reacts to the latest STATUS: a door seen open while Running forces
// Waiting, and the thermostat follows the reported temperature.
func (s *OvenService) Observe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observeLocked(ctx, s.link.State())
	return s.applyLocked(ctx)
}

// Tick advances the countdown by one second.
func (s *OvenService) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observeLocked(ctx, s.link.State())

	switch s.mode {
	case models.ModeRunning:
		s.remaining--
		if s.remaining <= 0 {
			s.remaining = 0
			s.recordLocked(ctx, models.EventCycleDone, "drying cycle finished", map[string]any{"preset": s.preset.Name})
			if s.preset.Post.Active() {
				s.mode = models.ModePost
				s.remaining = s.preset.Post.DurationSec
			} else {
				s.mode = models.ModeStopped
			}
		}
	case models.ModePost:
		s.remaining--
		if s.remaining <= 0 {
			s.remaining = 0
			s.mode = models.ModeStopped
			s.recordLocked(ctx, models.EventPostDone, "cool-down finished", nil)
		}
	}
	return s.applyLocked(ctx)
}

// Run drives Tick and Observe until ctx is canceled.
func (s *OvenService) Run(ctx context.Context) {
	tick := time.NewTicker(s.cfg.TickInterval)
	defer tick.Stop()
	observe := time.NewTicker(s.cfg.ObserveInterval)
	defer observe.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := s.Tick(ctx); err != nil {
				s.log.Errorw("oven_tick_failed", "error", err)
			}
		case <-observe.C:
			if err := s.Observe(ctx); err != nil {
				s.log.Errorw("oven_observe_failed", "error", err)
			}
		}
	}
}

func (s *OvenService) observeLocked(ctx context.Context, st link.HostState) {
	if !st.StatusSeen {
		s.heating = false
		return
	}
	metrics.SetTemperature(st.Status.TempC())

	if s.mode == models.ModeRunning && st.Status.DoorOpen() {
		s.mode = models.ModeWaiting
		s.log.Warnw("door_open_while_running", "remaining_seconds", s.remaining)
		s.recordLocked(ctx, models.EventDoorOpen, "door opened while running", map[string]any{"remaining_seconds": s.remaining})
	}

	if s.mode != models.ModeRunning {
		s.heating = false
		return
	}
	temp := st.Status.TempC()
	target := s.preset.TargetTempC
	switch {
	case s.heating && temp > target+s.cfg.ToleranceC:
		s.heating = false
	case !s.heating && temp < target-s.cfg.ToleranceC:
		s.heating = true
	}
}

// policyMask is what the state machine wants on the policy-owned bits.
func (s *OvenService) policyMask() protocol.Mask {
	switch s.mode {
	case models.ModeRunning:
		m := protocol.BitFan12V
		if s.heating {
			m |= protocol.BitHeater
		}
		if s.preset.Rotary {
			m |= protocol.BitSilicaMotor
		}
		return m
	case models.ModeWaiting:
		return protocol.BitFan12V
	case models.ModePost:
		m := protocol.BitFan12V
		if s.preset.Post.FanSpeed == models.Fan230Fast {
			m |= protocol.BitFan230Fast
		} else {
			m |= protocol.BitFan230Slow
		}
		return m
	default:
		return 0
	}
}

// applyLocked persists state and pushes the policy mask as one UPD when it
// changed or the mode changed. A mode change always pushes, since a manual
// fan toggled while Waiting must be cleared even when the mask is the same.
func (s *OvenService) applyLocked(ctx context.Context) error {
	metrics.SetOvenMode(string(s.mode), allModes...)
	s.saveLocked(ctx)

	want := s.policyMask()
	if s.pushed && want == s.policy && s.mode == s.pushedMode {
		return nil
	}
	if err := s.link.UpdateOutputs(want, policyBits&^want); err != nil {
		s.pushed = false
		return fmt.Errorf("push outputs %s: %w", want, err)
	}
	s.policy, s.pushedMode, s.pushed = want, s.mode, true
	s.log.Debugw("policy_outputs", "mode", s.mode, "mask", want.String())
	return nil
}

func (s *OvenService) saveLocked(ctx context.Context) {
	err := s.state.Save(ctx, models.OvenState{
		Mode:             s.mode,
		PresetID:         s.preset.ID,
		RemainingSeconds: s.remaining,
		UpdatedAt:        s.now().UTC(),
	})
	if err != nil {
		s.log.Errorw("oven_state_save_failed", "error", err)
	}
}

func (s *OvenService) recordLocked(ctx context.Context, typ, desc string, meta map[string]any) {
	s.log.Infow("oven_event", "type", typ, "mode", s.mode)
	ev := models.OvenEvent{OccurredAt: s.now().UTC(), Type: typ, Description: desc}
	if meta != nil {
		ev.Metadata = meta
	}
	if err := s.events.Append(ctx, ev); err != nil {
		s.log.Errorw("event_append_failed", "type", typ, "error", err)
	}
}

// Snapshot builds a fresh runtime view. Actuator booleans come from the
// latest STATUS only, never from local intent.
func (s *OvenService) Snapshot() models.OvenRuntimeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.link.State()

	snap := models.OvenRuntimeSnapshot{
		Mode:             s.mode,
		DurationSec:      s.duration,
		RemainingSeconds: s.remaining,
		TargetTempC:      s.preset.TargetTempC,
		ToleranceC:       s.cfg.ToleranceC,
		PresetID:         s.preset.ID,
		PresetName:       s.preset.Name,
		Link:             linkHealth(st, s.link.Alive()),
		CanToggleFan230:  fanOverrideAllowed(s.mode),
		CanToggleLamp:    true,
		UpdatedAt:        s.now().UTC(),
	}
	if st.StatusSeen {
		m := st.Status.Mask
		snap.StatusKnown = true
		snap.CurrentTempC = st.Status.TempC()
		snap.DoorOpen = st.Status.DoorOpen()
		snap.Actuators = models.Actuators{
			Fan12V:      m.Has(protocol.BitFan12V),
			Fan230Fast:  m.Has(protocol.BitFan230Fast),
			Lamp:        m.Has(protocol.BitLamp),
			SilicaMotor: m.Has(protocol.BitSilicaMotor),
			Fan230Slow:  m.Has(protocol.BitFan230Slow),
			Heater:      m.Has(protocol.BitHeater),
		}
	}
	return snap
}
