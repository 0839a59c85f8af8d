package tool

import (
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
	"github.com/sourcegraph/conc/panics"

	"github.com/wilhg/toolbridge/pkg/capability"
	"github.com/wilhg/toolbridge/pkg/schema"
)

// Policy decides what a bulk registration does when a tool fails to construct.
type Policy string

const (
	// PolicyAbort fails the whole registration and registers nothing.
	PolicyAbort Policy = "abort"
	// PolicySkip logs the failure and registers the remaining tools.
	PolicySkip Policy = "skip"
)

// ParsePolicy parses a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, "":
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	}
	return "", fmt.Errorf("unknown register policy %q", s)
}

// Entry is an immutable registry binding of a descriptor to its instance.
type Entry struct {
	Descriptor Descriptor
	Tool       Tool

	inputSchema *jsonschema.Schema
}

// Name returns the tool name.
func (e *Entry) Name() string { return e.Descriptor.Name }

// Summary returns the discovery view of the entry.
func (e *Entry) Summary() Summary {
	return Summary{
		Name:        e.Descriptor.Name,
		Description: e.Descriptor.Description,
		InputSchema: e.inputSchema,
	}
}

// Registry keeps tools by name, remembering the order names were first
// registered. Reads are safe during concurrent dispatch; writes are expected to
// happen at startup.
type Registry struct {
	log zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.log = l.With().Str("component", "registry").Logger() }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		log:     zerolog.Nop(),
		entries: make(map[string]*Entry, 8),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds d to host and stores it under d.Name, replacing any prior
// binding. A factory failure (error or panic) is returned and the registry is
// left unchanged.
func (r *Registry) Register(d Descriptor, host capability.Context) error {
	e, err := build(d, host)
	if err != nil {
		return err
	}
	r.insert(e)
	return nil
}

// RegisterAll constructs every descriptor concurrently and inserts the results
// in slice order. Under PolicyAbort the first failure is returned and nothing is
// registered; under PolicySkip failures are logged and skipped.
func (r *Registry) RegisterAll(ds []Descriptor, host capability.Context, policy Policy) error {
	type built struct {
		entry *Entry
		err   error
	}
	results := iter.Map(ds, func(d *Descriptor) built {
		e, err := build(*d, host)
		return built{entry: e, err: err}
	})
	if policy != PolicySkip {
		for _, b := range results {
			if b.err != nil {
				return b.err
			}
		}
	}
	for i, b := range results {
		if b.err != nil {
			r.log.Warn().Err(b.err).Str("tool", ds[i].Name).Msg("skipping tool that failed to construct")
			continue
		}
		r.insert(b.entry)
	}
	return nil
}

func build(d Descriptor, host capability.Context) (*Entry, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("tool name is empty")
	}
	if d.New == nil {
		return nil, fmt.Errorf("tool %q has no factory", d.Name)
	}
	if d.Schema == nil {
		d.Schema = schema.Empty()
	}
	js := d.Schema.JSONSchema()
	if err := schema.Compile(js); err != nil {
		return nil, fmt.Errorf("tool %q: invalid input schema: %w", d.Name, err)
	}

	var (
		t   Tool
		err error
		pc  panics.Catcher
	)
	pc.Try(func() { t, err = d.New(host) })
	if rec := pc.Recovered(); rec != nil {
		return nil, fmt.Errorf("construct tool %q: %w", d.Name, rec.AsError())
	}
	if err != nil {
		return nil, fmt.Errorf("construct tool %q: %w", d.Name, err)
	}
	if t == nil {
		return nil, fmt.Errorf("construct tool %q: factory returned nil", d.Name)
	}
	return &Entry{Descriptor: d, Tool: t, inputSchema: js}, nil
}

func (r *Registry) insert(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := e.Descriptor.Name
	if _, exists := r.entries[name]; exists {
		r.log.Info().Str("tool", name).Msg("replacing registered tool")
	} else {
		r.order = append(r.order, name)
		r.log.Debug().Str("tool", name).Msg("registered tool")
	}
	r.entries[name] = e
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// List returns the summaries of all tools in registration order.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].Summary())
	}
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
