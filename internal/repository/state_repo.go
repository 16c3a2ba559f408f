package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"drying_oven/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	ovenStateRowID = 1

	upsertOvenStateSQL = `
		INSERT INTO oven_state (id, mode, preset_id, remaining_s, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			preset_id=excluded.preset_id,
			remaining_s=excluded.remaining_s,
			updated_at=excluded.updated_at
	`

	selectOvenStateSQL = `
		SELECT id, mode, preset_id, remaining_s, updated_at
		FROM oven_state WHERE id=?
	`
)

// Save updates or inserts the oven_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, state models.OvenState) error {
	ts := state.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertOvenStateSQL,
		ovenStateRowID,
		string(state.Mode),
		state.PresetID,
		state.RemainingSeconds,
		ts,
	)
	if err != nil {
		return fmt.Errorf("save oven state: %w", err)
	}
	return nil
}

// Load fetches the oven_state row. A zero ID means nothing was saved yet.
func (r *StateSQLite) Load(ctx context.Context) (models.OvenState, error) {
	row := r.db.QueryRowContext(ctx, selectOvenStateSQL, ovenStateRowID)

	var s models.OvenState
	var mode string
	if err := row.Scan(&s.ID, &mode, &s.PresetID, &s.RemainingSeconds, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OvenState{}, nil
		}
		return models.OvenState{}, fmt.Errorf("load oven state: %w", err)
	}
	s.Mode = models.Mode(mode)
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
