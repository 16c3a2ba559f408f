package service

import (
	"time"

	"drying_oven/internal/models"
)

type snapshotSource interface {
	Snapshot() models.OvenRuntimeSnapshot
}

type diagnosticsSource interface {
	Diagnostics() models.LinkDiagnostics
}

// MonitoringService is the read side used by the display layer.
type MonitoringService struct {
	oven snapshotSource
	link diagnosticsSource
}

func NewMonitoringService(oven snapshotSource, link diagnosticsSource) *MonitoringService {
	return &MonitoringService{oven: oven, link: link}
}

// GetState returns a fresh runtime snapshot.
func (s *MonitoringService) GetState() models.OvenRuntimeSnapshot {
	snap := s.oven.Snapshot()
	snap.UpdatedAt = toUTC(snap.UpdatedAt)
	return snap
}

// GetLink returns the host link diagnostics.
func (s *MonitoringService) GetLink() models.LinkDiagnostics {
	return s.link.Diagnostics()
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
