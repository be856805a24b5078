// Package audit records mutations after they commit. Recording is best effort: a failure is logged and never
// reaches the caller.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionSoftDelete Action = "soft_delete"
	ActionBulkUpdate Action = "bulk_update"
	ActionBulkDelete Action = "bulk_delete"
	ActionSignup     Action = "signup"
	ActionReset      Action = "password_reset"
)

type Event struct {
	Action     Action
	Resource   string
	ResourceID string
	ActorID    uuid.NullUUID
	Details    map[string]any
}

// Logger observes committed mutations.
type Logger interface {
	Record(ctx context.Context, event Event)
}

type noopLogger struct{}

func (noopLogger) Record(context.Context, Event) {}

// NewNoopLogger returns a Logger that discards every event.
func NewNoopLogger() Logger {
	return noopLogger{}
}

// DBLogger writes events to the audit_logs table.
type DBLogger struct {
	db      *sql.DB
	logger  *slog.Logger
	timeout time.Duration
}

func NewDBLogger(db *sql.DB, logger *slog.Logger) *DBLogger {
	return &DBLogger{db: db, logger: logger, timeout: 2 * time.Second}
}

// Record detaches from the caller's cancellation so a finished request does not abort the write.
func (l *DBLogger) Record(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	var details sql.NullString
	if len(event.Details) > 0 {
		b, err := json.Marshal(event.Details)
		if err != nil {
			l.logger.Warn("could not encode audit details", slog.String("action", string(event.Action)), slog.String("error", err.Error()))
		} else {
			details = sql.NullString{String: string(b), Valid: true}
		}
	}

	query := `
		INSERT INTO audit_logs (action, resource, resource_id, actor_id, details)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := l.db.ExecContext(ctx, query, string(event.Action), event.Resource, event.ResourceID, event.ActorID, details)
	if err != nil {
		l.logger.Warn("could not record audit event",
			slog.String("action", string(event.Action)),
			slog.String("resource", event.Resource),
			slog.String("resource_id", event.ResourceID),
			slog.String("error", err.Error()))
	}
}

// ActorID wraps id for Event.ActorID.
func ActorID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}
