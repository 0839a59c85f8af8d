package mcpclient

import (
	"context"
	"testing"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wilhg/toolbridge/pkg/capability"
	"github.com/wilhg/toolbridge/pkg/errmodel"
	"github.com/wilhg/toolbridge/pkg/mcpserver"
	"github.com/wilhg/toolbridge/pkg/tool"
	"github.com/wilhg/toolbridge/pkg/tools"
)

func newLoopback(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	reg := tool.NewRegistry()
	require.NoError(t, tools.RegisterBuiltInTools(ctx, reg, capability.NewMemory(), tool.PolicyAbort))
	srv := mcpserver.New(reg, "toolbridge", "test")

	st, ct := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, st)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	c, err := Connect(ctx, ct, WithImplementation("loopback", "v0"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_ListTools(t *testing.T) {
	c := newLoopback(t)
	ds, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 6)
	for _, d := range ds {
		if d.Name == "calculator" {
			require.Contains(t, string(d.InputSchema), `"operation"`)
			return
		}
	}
	t.Fatal("calculator not listed")
}

func TestClient_CallTool(t *testing.T) {
	c := newLoopback(t)
	out, err := c.CallTool(context.Background(), "calculator", map[string]any{"operation": "subtract", "a": 10, "b": 4})
	require.NoError(t, err)
	require.JSONEq(t, `{"operation":"subtract","a":10,"b":4,"result":6}`, string(out))
}

func TestClient_CallToolErrorDecoded(t *testing.T) {
	c := newLoopback(t)

	_, err := c.CallTool(context.Background(), "calculator", map[string]any{"operation": "divide", "a": 1, "b": 0})
	require.True(t, errmodel.IsKind(err, errmodel.KindExecutionFailed), "err=%v", err)

	_, err = c.CallTool(context.Background(), "calculator", map[string]any{"operation": "add", "a": 1})
	require.True(t, errmodel.IsKind(err, errmodel.KindMissingParameter), "err=%v", err)

	_, err = c.CallTool(context.Background(), "execute_script", nil)
	ce := errmodel.From(err)
	require.Equal(t, errmodel.KindMissingParameter, ce.Kind)
	require.Equal(t, "script", ce.Context["parameter"])
}
