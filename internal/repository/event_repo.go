package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"drying_oven/internal/models"

	"github.com/google/uuid"
)

// sqliteTimestamp is how occurred_at is stored, so range filters compare as text.
const sqliteTimestamp = "2006-01-02 15:04:05"

const (
	insertEventSQL = `INSERT INTO oven_events (id, occurred_at, type, message, meta) VALUES (?, ?, ?, ?, ?)`
	eventColumns   = `id, occurred_at, type, message, meta`
)

// EventQuery selects a slice of the event log. Zero fields do not filter.
// With Limit set, only the newest Limit matches are returned, still oldest first.
type EventQuery struct {
	From  time.Time
	To    time.Time
	Type  string
	Limit int
}

// where renders the filter as a SQL condition with its arguments.
func (q EventQuery) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !q.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, q.From.UTC().Format(sqliteTimestamp))
	}
	if !q.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, q.To.UTC().Format(sqliteTimestamp))
	}
	if typ := strings.ToUpper(strings.TrimSpace(q.Type)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// statement builds the full SELECT for q.
func (q EventQuery) statement() (string, []any) {
	where, args := q.where()
	if q.Limit <= 0 {
		return "SELECT " + eventColumns + " FROM oven_events" + where + " ORDER BY occurred_at ASC", args
	}
	inner := "SELECT " + eventColumns + " FROM oven_events" + where + " ORDER BY occurred_at DESC LIMIT ?"
	return "SELECT " + eventColumns + " FROM (" + inner + ") ORDER BY occurred_at ASC", append(args, q.Limit)
}

type EventSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventSQLite(db *sql.DB) *EventSQLite {
	return &EventSQLite{db: db, now: time.Now}
}

// Append stores e, assigning an id and a timestamp when they are missing.
func (r *EventSQLite) Append(ctx context.Context, e models.OvenEvent) error {
	id := e.EventID
	if id == "" {
		id = uuid.NewString()
	}
	at := e.OccurredAt
	if at.IsZero() {
		at = r.now()
	}
	meta, err := encodeMeta(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal %s event metadata: %w", e.Type, err)
	}

	if _, err := r.db.ExecContext(ctx, insertEventSQL,
		id,
		at.UTC().Format(sqliteTimestamp),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.Description,
		meta,
	); err != nil {
		return fmt.Errorf("insert %s event: %w", e.Type, err)
	}
	return nil
}

// List returns the events selected by q, oldest first.
func (r *EventSQLite) List(ctx context.Context, q EventQuery) ([]models.OvenEvent, error) {
	stmt, args := q.statement()
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query oven events: %w", err)
	}
	defer rows.Close()

	out := []models.OvenEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate oven events: %w", err)
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (models.OvenEvent, error) {
	var (
		ev   models.OvenEvent
		meta sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
		return ev, fmt.Errorf("scan oven event: %w", err)
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	ev.Metadata = decodeMeta(meta)
	return ev, nil
}

// encodeMeta returns nil for absent metadata so the column stays NULL.
func encodeMeta(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// decodeMeta parses stored JSON; text that does not parse is returned as is.
func decodeMeta(col sql.NullString) any {
	if !col.Valid || col.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return col.String
	}
	return v
}
