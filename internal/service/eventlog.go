package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"drying_oven/internal/models"
	"drying_oven/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errUnknownEventType = errors.New("unknown event type")
	errNegativeLimit    = errors.New("limit must not be negative")
)

var knownEventTypes = map[string]struct{}{
	models.EventStart:     {},
	models.EventStop:      {},
	models.EventPause:     {},
	models.EventResume:    {},
	models.EventDoorOpen:  {},
	models.EventCycleDone: {},
	models.EventPostDone:  {},
	models.EventPreset:    {},
	models.EventManual:    {},
	models.EventCommError: {},
	models.EventLinkSync:  {},
	models.EventLinkLost:  {},
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter turns f into a repository query, rejecting a
// reversed range, a negative limit and unknown event types.
func normalizeAndValidateFilter(f LogFilter) (repository.EventQuery, error) {
	q := repository.EventQuery{
		From:  normalizeToUTC(f.From),
		To:    normalizeToUTC(f.To),
		Type:  normalizeEventType(f.Type),
		Limit: f.Limit,
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return repository.EventQuery{}, errInvalidTimeRange
	}
	if q.Limit < 0 {
		return repository.EventQuery{}, errNegativeLimit
	}
	if q.Type != "" {
		if _, ok := knownEventTypes[q.Type]; !ok {
			return repository.EventQuery{}, fmt.Errorf("%w: %q", errUnknownEventType, q.Type)
		}
	}
	return q, nil
}

// List returns drying-cycle events matching f, oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.OvenEvent, error) {
	q, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, q)
}

// IsFilterError reports whether err came from an invalid LogFilter.
func IsFilterError(err error) bool {
	return errors.Is(err, errInvalidTimeRange) ||
		errors.Is(err, errUnknownEventType) ||
		errors.Is(err, errNegativeLimit)
}
