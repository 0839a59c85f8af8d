// Package journal keeps an audit trail of tools/call dispatches: which tool ran,
// for which request, how long it took and how it ended. It records calls, not
// tool state.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wilhg/toolbridge/pkg/errmodel"
)

// Outcome is the result class of a journaled call.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 100

// Record is one journaled tools/call dispatch.
type Record struct {
	ID        string        `json:"id"`
	RequestID string        `json:"request_id,omitempty"`
	Tool      string        `json:"tool"`
	Outcome   Outcome       `json:"outcome"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// Journal stores call records.
type Journal interface {
	Append(ctx context.Context, r Record) error
	// List returns at most limit records, newest first.
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// NewRecord builds the record for a call that started at started and ended
// with err (nil on success). IDs are time-ordered UUIDv7 values.
func NewRecord(requestID, tool string, started time.Time, err error) Record {
	id, uerr := uuid.NewV7()
	if uerr != nil {
		id = uuid.New()
	}
	r := Record{
		ID:        id.String(),
		RequestID: requestID,
		Tool:      tool,
		Outcome:   OutcomeOK,
		Duration:  time.Since(started),
		CreatedAt: started.UTC(),
	}
	if err != nil {
		r.Outcome = OutcomeError
		r.ErrorKind = errmodel.From(err).Kind
	}
	return r
}

// Open returns a SQL journal for a non-empty DSN, else an in-memory ring of the
// given capacity.
func Open(ctx context.Context, dsn string, capacity int) (Journal, error) {
	if dsn == "" {
		return NewMemory(capacity), nil
	}
	st, err := OpenSQL(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		return nil, errors.Join(err, st.Close())
	}
	return st, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
