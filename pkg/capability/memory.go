package capability

import (
	"context"
	"crypto/rand"
	"maps"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wilhg/toolbridge/pkg/errmodel"
)

// ScriptFunc evaluates a script on behalf of a Memory host.
type ScriptFunc func(ctx context.Context, script string) (any, error)

// MemoryOption configures a Memory host.
type MemoryOption func(*Memory)

// WithScriptFunc installs the script evaluator. Without one, ExecuteScript
// reports NotAvailable.
func WithScriptFunc(fn ScriptFunc) MemoryOption {
	return func(m *Memory) { m.script = fn }
}

// WithStatus sets the initial status.
func WithStatus(s Status) MemoryOption {
	return func(m *Memory) { m.status = maps.Clone(s) }
}

// WithLogCapacity bounds the number of retained log entries.
func WithLogCapacity(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// Memory is an in-process host. It is the reference Context used by tests and
// by the server when no host bridge is configured.
type Memory struct {
	script   ScriptFunc
	capacity int

	mu        sync.Mutex
	status    Status
	logs      []LogEntry
	autoplays int
	entropy   *ulid.MonotonicEntropy
}

var _ Context = (*Memory)(nil)

// NewMemory constructs a Memory host.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		capacity: 500,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExecuteScript delegates to the configured ScriptFunc.
func (m *Memory) ExecuteScript(ctx context.Context, script string) (any, error) {
	if m.script == nil {
		return nil, errmodel.NotAvailable("script execution")
	}
	return m.script(ctx, script)
}

// SetStatus replaces the reported status; nil clears it.
func (m *Memory) SetStatus(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = maps.Clone(s)
}

// Status returns a copy of the current status.
func (m *Memory) Status(_ context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return nil, nil
	}
	return maps.Clone(m.status), nil
}

// TriggerAutoplay records the request and logs it.
func (m *Memory) TriggerAutoplay(_ context.Context) error {
	m.mu.Lock()
	m.autoplays++
	m.mu.Unlock()
	m.append("info", "autoplay triggered")
	return nil
}

// Autoplays reports how many times autoplay was triggered.
func (m *Memory) Autoplays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoplays
}

// Logs returns a copy of the retained entries, oldest first.
func (m *Memory) Logs(_ context.Context) ([]LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(m.logs))
	copy(out, m.logs)
	return out, nil
}

// ClearLogs drops every retained entry.
func (m *Memory) ClearLogs(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = nil
	return nil
}

// Log appends an info entry.
func (m *Memory) Log(message string) { m.append("info", message) }

func (m *Memory) append(level, message string) {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(now), m.entropy)
	m.logs = append(m.logs, LogEntry{ID: id.String(), Level: level, Message: message, Time: now})
	if over := len(m.logs) - m.capacity; over > 0 {
		m.logs = append([]LogEntry(nil), m.logs[over:]...)
	}
}
