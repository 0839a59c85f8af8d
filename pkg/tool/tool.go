// Package tool defines the tool authoring contract, the registry that binds
// tool descriptors to a capability context, and SafeInvoke, the single path by
// which a registered tool is validated and executed.
package tool

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wilhg/toolbridge/pkg/capability"
	"github.com/wilhg/toolbridge/pkg/schema"
)

// Tool is an executable instance produced by a Descriptor's factory.
// Execute may block and must honour ctx cancellation where the underlying work
// allows it; a tool that ignores ctx is left to finish and its result discarded.
// Instances may be called concurrently.
type Tool interface {
	Execute(ctx context.Context, args Arguments) (any, error)
}

// Func adapts an ordinary function to the Tool interface.
type Func func(ctx context.Context, args Arguments) (any, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, args Arguments) (any, error) { return f(ctx, args) }

// Factory binds a tool to the capability context it will act through.
type Factory func(host capability.Context) (Tool, error)

// Descriptor declares the static interface of a tool.
type Descriptor struct {
	// Name is the stable routing identifier used by tools/call.
	Name        string
	Description string
	// Schema describes the accepted arguments. Nil means no parameters.
	Schema *schema.Schema
	New    Factory
}

// Summary is the discovery view of a registered tool, as returned by tools/list.
type Summary struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// Static is a Factory for tools that do not need the capability context.
func Static(t Tool) Factory {
	return func(capability.Context) (Tool, error) { return t, nil }
}
