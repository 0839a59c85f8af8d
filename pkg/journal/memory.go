package journal

import (
	"context"
	"sync"
)

// Memory is a bounded in-process journal. Once full, the oldest record is
// overwritten.
type Memory struct {
	mu   sync.Mutex
	buf  []Record
	next int
	full bool
}

var _ Journal = (*Memory)(nil)

// NewMemory creates a ring holding up to capacity records (1000 if capacity <= 0).
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Memory{buf: make([]Record, capacity)}
}

func (m *Memory) Append(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf[m.next] = r
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]Record, error) {
	limit = normalizeLimit(limit)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.next
	if m.full {
		n = len(m.buf)
	}
	if limit > n {
		limit = n
	}
	out := make([]Record, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, m.buf[(m.next-i+len(m.buf))%len(m.buf)])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
