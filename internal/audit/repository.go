package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event kinds recorded in the trail.
const (
	EventClientConnected    = "client_connected"
	EventClientDisconnected = "client_disconnected"
	EventDeviceConnected    = "device_connected"
	EventDeviceDisconnected = "device_disconnected"
	EventCodeUploaded       = "code_uploaded"
	EventCodeExecuted       = "code_executed"
)

// Event is one row of the session event trail.
type Event struct {
	ID        string
	ClientID  uint64
	DeviceID  string
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// Filter narrows List queries. Zero values mean no constraint.
type Filter struct {
	DeviceID string
	Kind     string
	Limit    int
}

// Repository persists session events to SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an audit repository over an open database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init creates the event table if it does not exist.
func (r *Repository) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_events (
			id         TEXT PRIMARY KEY,
			client_id  INTEGER NOT NULL,
			device_id  TEXT NOT NULL DEFAULT '',
			kind       TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_session_events_device
			ON session_events(device_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating session_events table: %w", err)
	}
	return nil
}

// Record appends one event to the trail.
func (r *Repository) Record(ctx context.Context, clientID uint64, deviceID, kind, detail string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_events (id, client_id, device_id, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), clientID, deviceID, kind, detail, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording audit event: %w", err)
	}
	return nil
}

// List returns events matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Event, error) {
	query := `SELECT id, client_id, device_id, kind, detail, created_at
		FROM session_events WHERE 1=1`
	var args []any

	if filter.DeviceID != "" {
		query += " AND device_id = ?"
		args = append(args, filter.DeviceID)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ClientID, &e.DeviceID, &e.Kind, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}
	return events, nil
}

// Count returns the total number of recorded events.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting audit events: %w", err)
	}
	return n, nil
}
