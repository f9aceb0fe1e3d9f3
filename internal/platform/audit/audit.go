// Package audit appends access and mutation events to an append-only trail.
// Recording never fails the request it describes: write errors are logged
// and swallowed.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Entry is one audit event.
type Entry struct {
	ActorID    *uuid.UUID
	ActorEmail string
	Action     string
	Resource   string
	ResourceID *uuid.UUID
	Outcome    string
	Metadata   map[string]any
}

// Outcomes recorded on an entry.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// PGRecorder writes audit entries to the audit_log table.
type PGRecorder struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPGRecorder(pool *pgxpool.Pool, logger zerolog.Logger) *PGRecorder {
	return &PGRecorder{pool: pool, logger: logger}
}

// Record sanitizes the entry metadata and inserts it. The write runs under
// its own deadline, detached from the request context, so a cancelled request
// still leaves a trace.
func (r *PGRecorder) Record(ctx context.Context, e Entry) {
	meta, err := json.Marshal(Sanitize(any(e.Metadata)))
	if err != nil {
		r.logger.Error().Err(err).Str("action", e.Action).Msg("audit: marshal metadata")
		meta = []byte("{}")
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err = r.pool.Exec(writeCtx, `
		INSERT INTO audit_log (actor_id, actor_email, action, resource, resource_id, outcome, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ActorID, e.ActorEmail, e.Action, e.Resource, e.ResourceID, e.Outcome, meta,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("action", e.Action).
			Str("resource", e.Resource).
			Msg("audit: record failed")
	}
}

// NopRecorder discards entries. Used in tests.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) {}
