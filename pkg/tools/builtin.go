// Package tools contains the built-in tools served by toolbridge: the
// reference calculator and the tools that act through the host capability
// context.
package tools

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wilhg/toolbridge/pkg/capability"
	"github.com/wilhg/toolbridge/pkg/tool"
)

// BuiltIns returns the built-in descriptors in registration order.
func BuiltIns() []tool.Descriptor {
	return []tool.Descriptor{
		Calculator(),
		ExecuteScript(),
		GetStatus(),
		TriggerAutoplay(),
		GetLogs(),
		ClearLogs(),
	}
}

// RegisterBuiltInTools registers BuiltIns on reg, bound to host.
func RegisterBuiltInTools(ctx context.Context, reg *tool.Registry, host capability.Context, policy tool.Policy) error {
	ds := BuiltIns()
	if err := reg.RegisterAll(ds, host, policy); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Int("tools", reg.Len()).Strs("names", reg.Names()).Msg("built-in tools registered")
	return nil
}
