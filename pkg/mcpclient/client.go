// Package mcpclient is a small MCP client for talking to a toolbridge (or any
// MCP) server. Tool-level failures come back as *errmodel.Error.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wilhg/toolbridge/pkg/errmodel"
)

// ToolDescriptor is the subset of an MCP tool the CLI needs.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Option configures Dial and Connect.
type Option func(*config)

type config struct {
	name       string
	version    string
	httpClient *http.Client
}

// WithImplementation sets the client name and version sent on initialize.
func WithImplementation(name, version string) Option {
	return func(c *config) { c.name, c.version = name, version }
}

// WithHTTPClient overrides the HTTP client used by Dial.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// Client is a connected MCP client session.
type Client struct {
	sess *mcp.ClientSession
}

// Dial connects to a streamable HTTP endpoint such as http://localhost:8765/mcp.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	cfg := newConfig(opts)
	return connect(ctx, cfg, &mcp.StreamableClientTransport{Endpoint: endpoint, HTTPClient: cfg.httpClient})
}

// Connect runs the handshake over an arbitrary transport.
func Connect(ctx context.Context, t mcp.Transport, opts ...Option) (*Client, error) {
	return connect(ctx, newConfig(opts), t)
}

func newConfig(opts []Option) *config {
	cfg := &config{name: "toolbridge-client", version: "dev"}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

func connect(ctx context.Context, cfg *config, t mcp.Transport) (*Client, error) {
	c := mcp.NewClient(&mcp.Implementation{Name: cfg.name, Version: cfg.version}, nil)
	sess, err := c.Connect(ctx, t, nil)
	if err != nil {
		return nil, err
	}
	return &Client{sess: sess}, nil
}

// ListTools returns every tool the server advertises, following pagination.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	var out []ToolDescriptor
	params := &mcp.ListToolsParams{}
	for {
		res, err := c.sess.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, t := range res.Tools {
			d := ToolDescriptor{Name: t.Name, Description: t.Description}
			if t.InputSchema != nil {
				if raw, err := json.Marshal(t.InputSchema); err == nil {
					d.InputSchema = raw
				}
			}
			out = append(out, d)
		}
		if res.NextCursor == "" {
			return out, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

// CallTool invokes name and returns its JSON result. A result flagged as an
// error is decoded back into *errmodel.Error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.sess.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	text := firstText(res)
	if res.IsError {
		var ce errmodel.Error
		if err := json.Unmarshal([]byte(text), &ce); err != nil || ce.Kind == "" {
			return nil, errmodel.New(errmodel.KindExecutionFailed, text, map[string]any{"tool": name})
		}
		return nil, &ce
	}
	if res.StructuredContent != nil {
		return json.Marshal(res.StructuredContent)
	}
	if text == "" {
		return nil, errors.New("mcpclient: empty tool result")
	}
	return json.RawMessage(text), nil
}

// Close ends the session.
func (c *Client) Close() error { return c.sess.Close() }

func firstText(res *mcp.CallToolResult) string {
	for _, ct := range res.Content {
		if t, ok := ct.(*mcp.TextContent); ok {
			return t.Text
		}
	}
	return ""
}
