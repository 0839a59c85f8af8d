// Package rpc implements the JSON-RPC 2.0 dispatcher: it decodes requests,
// routes them by method against a tool registry and shapes every outcome,
// including tool faults, into a protocol response.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wilhg/toolbridge/pkg/errmodel"
	"github.com/wilhg/toolbridge/pkg/journal"
	"github.com/wilhg/toolbridge/pkg/tool"
)

// Methods served by the dispatcher.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// ProtocolVersion is the MCP revision answered when the client asks for one
// this server does not know.
const ProtocolVersion = "2024-11-05"

var supportedVersions = []string{ProtocolVersion, "2025-03-26", "2025-06-18"}

// DefaultCallTimeout bounds a tools/call when no timeout is configured.
const DefaultCallTimeout = 30 * time.Second

// ServerInfo identifies the server in the initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Dispatcher routes JSON-RPC requests to a registry. It keeps no per-call
// state and is safe for concurrent use.
type Dispatcher struct {
	reg     *tool.Registry
	log     zerolog.Logger
	timeout time.Duration
	tracer  trace.Tracer
	journal journal.Journal
	info    ServerInfo
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l.With().Str("component", "dispatcher").Logger() }
}

// WithCallTimeout sets the per-call deadline. Zero or negative disables it.
func WithCallTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = t }
}

// WithTracer overrides the tracer, which defaults to the global provider's.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithJournal records every tools/call in j.
func WithJournal(j journal.Journal) Option {
	return func(d *Dispatcher) { d.journal = j }
}

// WithServerInfo sets the name and version reported by initialize.
func WithServerInfo(info ServerInfo) Option {
	return func(d *Dispatcher) { d.info = info }
}

// New creates a dispatcher over reg.
func New(reg *tool.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:     reg,
		log:     zerolog.Nop(),
		timeout: DefaultCallTimeout,
		info:    ServerInfo{Name: "toolbridge", Version: "dev"},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer("toolbridge/rpc")
	}
	return d
}

// Registry returns the registry the dispatcher routes to.
func (d *Dispatcher) Registry() *tool.Registry { return d.reg }

// Handle dispatches one encoded request. It returns nil for notifications,
// which get no response even when they fail.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) *Response {
	req, err := decodeRequest(raw)
	if err != nil {
		d.log.Debug().Err(err).Msg("rejected request")
		return NewError(req.ID, err)
	}
	return d.Dispatch(ctx, req)
}

// Dispatch routes an already decoded request.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	ctx, span := d.tracer.Start(ctx, req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", req.Method),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := d.route(ctx, req)
	if err == nil {
		var merr error
		if result, merr = marshalResult(result); merr != nil {
			err = errmodel.Internal("encode result", merr)
		}
	}

	ev := d.log.Debug()
	if err != nil {
		ce := errmodel.From(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, ce.Message)
		span.SetAttributes(attribute.String("error.kind", ce.Kind))
		if ce.Kind == errmodel.KindExecutionFailed || ce.Kind == errmodel.KindInternal {
			ev = d.log.Warn()
		}
		ev = ev.Err(err)
	}
	ev.Str("method", req.Method).RawJSON("id", idOrNull(req.ID)).Dur("elapsed", time.Since(start)).Msg("dispatched")

	if req.IsNotification() {
		return nil
	}
	if err != nil {
		return NewError(req.ID, err)
	}
	return &Response{ID: req.ID, Result: result.(json.RawMessage)}
}

// Process handles a request body that is either a single request or a batch.
// It returns the encoded reply, or nil when nothing must be sent back.
func (d *Dispatcher) Process(ctx context.Context, body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		resp := d.Handle(ctx, trimmed)
		if resp == nil {
			return nil, nil
		}
		return json.Marshal(resp)
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return json.Marshal(NewError(nil, errmodel.ParseError("invalid JSON", err)))
	}
	if len(batch) == 0 {
		return json.Marshal(NewError(nil, errmodel.InvalidRequest("empty batch")))
	}
	responses := d.HandleBatch(ctx, batch)
	if len(responses) == 0 {
		return nil, nil
	}
	return json.Marshal(responses)
}

// HandleBatch dispatches the batch members concurrently and returns their
// responses in request order, leaving out notifications.
func (d *Dispatcher) HandleBatch(ctx context.Context, batch []json.RawMessage) []*Response {
	all := iter.Map(batch, func(raw *json.RawMessage) *Response {
		return d.Handle(ctx, *raw)
	})
	return slices.DeleteFunc(all, func(r *Response) bool { return r == nil })
}

func (d *Dispatcher) route(ctx context.Context, req *Request) (any, error) {
	switch req.Method {
	case MethodInitialize:
		return d.initialize(req.Params), nil
	case MethodInitialized, MethodPing:
		return struct{}{}, nil
	case MethodToolsList:
		return map[string]any{"tools": d.reg.List()}, nil
	case MethodToolsCall:
		return d.callTool(ctx, req)
	default:
		return nil, errmodel.MethodNotFound(req.Method)
	}
}

func (d *Dispatcher) initialize(params json.RawMessage) map[string]any {
	version := ProtocolVersion
	var p struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if len(params) > 0 && json.Unmarshal(params, &p) == nil && slices.Contains(supportedVersions, p.ProtocolVersion) {
		version = p.ProtocolVersion
	}
	return map[string]any{
		"protocolVersion": version,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": d.info,
	}
}

func (d *Dispatcher) callTool(ctx context.Context, req *Request) (result any, err error) {
	var p map[string]json.RawMessage
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, errmodel.InvalidRequest("params must be an object")
		}
	}
	rawName, ok := p["name"]
	if !ok || isNull(rawName) {
		return nil, errmodel.MissingParameter("name")
	}
	var name string
	if err := json.Unmarshal(rawName, &name); err != nil || name == "" {
		return nil, errmodel.InvalidParameter("name", "a non-empty string")
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("tool.name", name))

	entry, ok := d.reg.Lookup(name)
	if !ok {
		return nil, errmodel.NotAvailable(name)
	}
	args, aerr := tool.DecodeArguments(p["arguments"])
	if aerr != nil {
		return nil, errmodel.InvalidParameter("arguments", "an object")
	}

	start := time.Now()
	if d.journal != nil {
		defer func() { d.record(ctx, req, name, start, err) }()
	}
	out, err := tool.SafeInvoke(ctx, entry, args, d.timeout)
	if err != nil {
		return nil, err
	}
	raw, merr := json.Marshal(out)
	if merr != nil {
		return nil, errmodel.ExecutionFailed(name, merr)
	}
	return json.RawMessage(raw), nil
}

func (d *Dispatcher) record(ctx context.Context, req *Request, name string, start time.Time, err error) {
	r := journal.NewRecord(requestID(req.ID), name, start, err)
	// The journal outlives a cancelled call.
	if jerr := d.journal.Append(context.WithoutCancel(ctx), r); jerr != nil {
		d.log.Warn().Err(jerr).Str("tool", name).Msg("journal append failed")
	}
}

func marshalResult(v any) (any, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// requestID renders an id for humans: strings lose their quotes.
func requestID(id json.RawMessage) string {
	var s string
	if json.Unmarshal(id, &s) == nil {
		return s
	}
	return string(id)
}

func idOrNull(id json.RawMessage) []byte {
	if id == nil {
		return nullID
	}
	return id
}
