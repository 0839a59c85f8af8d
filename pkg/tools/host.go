package tools

import (
	"context"
	"fmt"

	"github.com/wilhg/toolbridge/pkg/capability"
	"github.com/wilhg/toolbridge/pkg/errmodel"
	"github.com/wilhg/toolbridge/pkg/schema"
	"github.com/wilhg/toolbridge/pkg/tool"
)

// hostTool builds a descriptor whose tool acts through the bound host.
func hostTool(name, description string, s *schema.Schema, run func(ctx context.Context, host capability.Context, args tool.Arguments) (any, error)) tool.Descriptor {
	return tool.Descriptor{
		Name:        name,
		Description: description,
		Schema:      s,
		New: func(host capability.Context) (tool.Tool, error) {
			if host == nil {
				return nil, fmt.Errorf("%s needs a host", name)
			}
			return tool.Func(func(ctx context.Context, args tool.Arguments) (any, error) {
				return run(ctx, host, args)
			}), nil
		},
	}
}

// ExecuteScript runs a script in the host application.
func ExecuteScript() tool.Descriptor {
	s := schema.MustNew([]schema.Property{
		schema.String("script", "Script source to evaluate in the host"),
	}, "script")
	return hostTool("execute_script", "Executes a script in the host application and returns its result", s,
		func(ctx context.Context, host capability.Context, args tool.Arguments) (any, error) {
			script, _ := args.String("script")
			host.Log(fmt.Sprintf("execute_script: %d bytes", len(script)))
			out, err := host.ExecuteScript(ctx, script)
			if err != nil {
				return nil, err
			}
			return map[string]any{"result": out}, nil
		})
}

// GetStatus reports the host status.
func GetStatus() tool.Descriptor {
	return hostTool("get_status", "Returns the current status of the host application", nil,
		func(ctx context.Context, host capability.Context, _ tool.Arguments) (any, error) {
			st, err := host.Status(ctx)
			if err != nil {
				return nil, err
			}
			if st == nil {
				return nil, errmodel.NotAvailable("host status")
			}
			return st, nil
		})
}

// TriggerAutoplay starts autoplay in the host.
func TriggerAutoplay() tool.Descriptor {
	return hostTool("trigger_autoplay", "Triggers autoplay in the host application", nil,
		func(ctx context.Context, host capability.Context, _ tool.Arguments) (any, error) {
			if err := host.TriggerAutoplay(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"triggered": true}, nil
		})
}

// GetLogs returns host log entries, optionally only the most recent limit.
func GetLogs() tool.Descriptor {
	s := schema.MustNew([]schema.Property{
		schema.Integer("limit", "Return only the most recent entries"),
	})
	return hostTool("get_logs", "Returns log entries recorded by the host application", s,
		func(ctx context.Context, host capability.Context, args tool.Arguments) (any, error) {
			entries, err := host.Logs(ctx)
			if err != nil {
				return nil, err
			}
			if raw, present := args["limit"]; present && raw != nil {
				limit, ok := args.Int("limit")
				if !ok || limit < 0 {
					return nil, errmodel.InvalidParameter("limit", "a non-negative integer")
				}
				if limit < int64(len(entries)) {
					entries = entries[int64(len(entries))-limit:]
				}
			}
			if entries == nil {
				entries = []capability.LogEntry{}
			}
			return map[string]any{"entries": entries}, nil
		})
}

// ClearLogs empties the host log.
func ClearLogs() tool.Descriptor {
	return hostTool("clear_logs", "Clears the host application log", nil,
		func(ctx context.Context, host capability.Context, _ tool.Arguments) (any, error) {
			if err := host.ClearLogs(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"cleared": true}, nil
		})
}
