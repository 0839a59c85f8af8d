// Package mcpserver exposes a tool registry through the official MCP Go SDK,
// over stdio or streamable HTTP. Calls take the same validation and invocation
// path as the JSON-RPC dispatcher.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/wilhg/toolbridge/pkg/errmodel"
	"github.com/wilhg/toolbridge/pkg/journal"
	"github.com/wilhg/toolbridge/pkg/tool"
)

// Server serves a tool registry over MCP.
type Server struct {
	reg     *tool.Registry
	srv     *mcp.Server
	log     zerolog.Logger
	timeout time.Duration
	journal journal.Journal
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l.With().Str("component", "mcpserver").Logger() }
}

// WithCallTimeout sets the per-call deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithJournal records every call in j.
func WithJournal(j journal.Journal) Option {
	return func(s *Server) { s.journal = j }
}

// New builds an MCP server exporting every tool currently in reg.
func New(reg *tool.Registry, name, version string, opts ...Option) *Server {
	s := &Server{
		reg:     reg,
		srv:     mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		log:     zerolog.Nop(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, sum := range reg.List() {
		s.srv.AddTool(&mcp.Tool{
			Name:        sum.Name,
			Description: sum.Description,
			InputSchema: sum.InputSchema,
		}, s.handler(sum.Name))
	}
	return s
}

// Run serves a single session on t until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.srv.Run(ctx, t)
}

// ServeStdio serves over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Connect starts a session on t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.srv.Connect(ctx, t, nil)
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.srv }, nil)
}

// handler resolves the tool at call time so registry replacements apply.
func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		out, err := s.invoke(ctx, name, req.Params.Arguments)
		if s.journal != nil {
			if jerr := s.journal.Append(context.WithoutCancel(ctx), journal.NewRecord("", name, start, err)); jerr != nil {
				s.log.Warn().Err(jerr).Str("tool", name).Msg("journal append failed")
			}
		}
		if err != nil {
			s.log.Debug().Err(err).Str("tool", name).Msg("tool call failed")
			return errorResult(err), nil
		}
		return out, nil
	}
}

func (s *Server) invoke(ctx context.Context, name string, rawArgs json.RawMessage) (*mcp.CallToolResult, error) {
	e, ok := s.reg.Lookup(name)
	if !ok {
		return nil, errmodel.NotAvailable(name)
	}
	args, err := tool.DecodeArguments(rawArgs)
	if err != nil {
		return nil, errmodel.InvalidParameter("arguments", "an object")
	}
	v, err := tool.SafeInvoke(ctx, e, args, s.timeout)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errmodel.ExecutionFailed(name, err)
	}
	res := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}}}
	// structuredContent must be a JSON object.
	if len(raw) > 0 && raw[0] == '{' {
		res.StructuredContent = json.RawMessage(raw)
	}
	return res, nil
}

func errorResult(err error) *mcp.CallToolResult {
	ce := errmodel.From(err)
	body, _ := json.Marshal(ce)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}
}
