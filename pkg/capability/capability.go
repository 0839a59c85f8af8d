// Package capability defines the host-facing interface tools use to affect or
// query the application they are bridged into, plus two adapters: an
// in-process Memory host and an HTTP Bridge client.
//
// Implementations are shared by every tool instance and may be called
// concurrently; they must be safe for concurrent use.
package capability

import (
	"context"
	"time"
)

// Status is the structured status snapshot reported by the host.
type Status map[string]any

// LogEntry is one host log line.
type LogEntry struct {
	ID      string    `json:"id"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Context is the capability surface a tool instance is bound to at registration.
type Context interface {
	// ExecuteScript runs a host script and returns its JSON-compatible value.
	ExecuteScript(ctx context.Context, script string) (any, error)
	// Status returns the host status, or nil when the host has none to report.
	Status(ctx context.Context) (Status, error)
	// TriggerAutoplay asks the host to start its autoplay routine.
	TriggerAutoplay(ctx context.Context) error
	// Logs returns the host log entries, oldest first.
	Logs(ctx context.Context) ([]LogEntry, error)
	// ClearLogs discards the host log entries.
	ClearLogs(ctx context.Context) error
	// Log appends a message to the host log.
	Log(message string)
}
