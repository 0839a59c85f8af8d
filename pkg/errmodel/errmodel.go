// Package errmodel defines the compact error model shared by the registry,
// the dispatcher and the transports. Every error that reaches a caller is
// normalized into an *Error first.
package errmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
)

// Kind values for compact errors.
const (
	KindParseError       = "parse_error"
	KindInvalidRequest   = "invalid_request"
	KindMethodNotFound   = "method_not_found"
	KindNotAvailable     = "not_available"
	KindMissingParameter = "missing_parameter"
	KindInvalidParameter = "invalid_parameter"
	KindExecutionFailed  = "execution_failed"
	KindInternal         = "internal"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodeExecutionFailed is in the implementation-defined server error range.
	CodeExecutionFailed = -32000
)

// Error is the compact error payload returned by APIs and used internally.
// It implements the error interface.
type Error struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
	Causes  []Error        `json:"causes,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Kind != "" {
		return e.Kind + ": " + e.Message
	}
	return e.Message
}

// Unwrap exposes the first cause so errors.Is works against context errors.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// New constructs a new compact error.
func New(kind, message string, ctx map[string]any, causes ...error) *Error {
	ce := &Error{Kind: kind, Message: truncate(message, 512)}
	if len(ctx) > 0 {
		ce.Context = truncateContext(ctx)
	}
	for _, c := range causes {
		if c == nil {
			continue
		}
		if ce.cause == nil {
			ce.cause = c
		}
		ce.Causes = append(ce.Causes, *From(c))
	}
	return ce
}

// From converts any error into a compact Error. If err is already *Error, it's returned as-is.
func From(err error) *Error {
	var ce *Error
	if err == nil {
		return nil
	}
	if errors.As(err, &ce) {
		return ce
	}
	// Default to internal for unknown error types.
	return &Error{Kind: KindInternal, Message: truncate(err.Error(), 512), cause: err}
}

// ParseError reports a request body that is not valid JSON.
func ParseError(message string, cause error) *Error {
	return New(KindParseError, message, nil, cause)
}

// InvalidRequest reports JSON that does not conform to the JSON-RPC request shape.
func InvalidRequest(message string) *Error {
	return New(KindInvalidRequest, message, nil)
}

// MethodNotFound reports an unrecognized JSON-RPC method.
func MethodNotFound(method string) *Error {
	return New(KindMethodNotFound, fmt.Sprintf("unknown method %q", method), map[string]any{"method": method})
}

// NotAvailable reports an unregistered tool or a capability the host cannot provide.
func NotAvailable(what string) *Error {
	return New(KindNotAvailable, fmt.Sprintf("%s is not available", what), map[string]any{"name": what})
}

// MissingParameter reports a required parameter absent from the arguments.
func MissingParameter(name string) *Error {
	return New(KindMissingParameter, fmt.Sprintf("missing required parameter %q", name), map[string]any{"parameter": name})
}

// InvalidParameter reports a parameter whose value does not have the expected kind.
func InvalidParameter(name, expected string) *Error {
	return New(KindInvalidParameter, fmt.Sprintf("parameter %q must be %s", name, expected), map[string]any{
		"parameter": name,
		"expected":  expected,
	})
}

// ExecutionFailed wraps a fault raised while a tool was executing.
func ExecutionFailed(tool string, cause error) *Error {
	msg := "tool execution failed"
	if cause != nil {
		msg = cause.Error()
	}
	return New(KindExecutionFailed, msg, map[string]any{"tool": tool}, cause)
}

// Internal reports a failure of the server itself.
func Internal(message string, cause error) *Error {
	return New(KindInternal, message, nil, cause)
}

// RPCCode maps an error kind onto its JSON-RPC error code.
func RPCCode(e *Error) int {
	if e == nil {
		return CodeInternalError
	}
	switch e.Kind {
	case KindParseError:
		return CodeParseError
	case KindInvalidRequest:
		return CodeInvalidRequest
	case KindMethodNotFound, KindNotAvailable:
		return CodeMethodNotFound
	case KindMissingParameter, KindInvalidParameter:
		return CodeInvalidParams
	case KindExecutionFailed:
		return CodeExecutionFailed
	default:
		return CodeInternalError
	}
}

// HTTPStatus maps kinds to HTTP status for transport-level failures.
func HTTPStatus(e *Error) int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindParseError, KindInvalidRequest, KindMissingParameter, KindInvalidParameter:
		return http.StatusBadRequest
	case KindMethodNotFound:
		return http.StatusMethodNotAllowed
	case KindNotAvailable:
		return http.StatusNotFound
	case KindExecutionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteHTTP writes a compact error envelope to the response writer.
// It attempts to include the trace_id if present in ctx.
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	ce := From(err)
	if ce == nil {
		ce = &Error{Kind: KindInternal, Message: "unknown error"}
	}
	status := HTTPStatus(ce)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	traceID := ""
	if r != nil {
		if span := trace.SpanFromContext(r.Context()); span != nil {
			sc := span.SpanContext()
			if sc.HasTraceID() {
				traceID = sc.TraceID().String()
			}
		}
	}
	// Envelope { error: Error, trace_id?: string }
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":    ce,
		"trace_id": traceID,
	})
}

// truncate trims a string to max characters.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:runeBoundary(s, max)]
	}
	return s[:runeBoundary(s, max-3)] + "..."
}

// runeBoundary backs n up so s[:n] does not split a UTF-8 sequence.
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

// truncateContext trims long string values in the context map.
func truncateContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		switch t := v.(type) {
		case string:
			out[k] = truncate(t, 256)
		case bool, int, int64, float64, nil:
			out[k] = t
		default:
			// Keep composite values compact: a JSON preview instead of the raw value.
			b, err := json.Marshal(t)
			if err == nil && len(b) > 256 {
				out[k] = truncate(string(b), 256)
			} else {
				out[k] = t
			}
		}
	}
	return out
}

// IsKind checks if err belongs to a specific kind.
func IsKind(err error, kind string) bool {
	ce := From(err)
	return ce != nil && strings.EqualFold(ce.Kind, kind)
}
