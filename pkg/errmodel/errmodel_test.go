package errmodel

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewAndFrom(t *testing.T) {
	e := MissingParameter("b")
	if e.Kind != KindMissingParameter || e.Context["parameter"] != "b" {
		t.Fatalf("unexpected: %#v", e)
	}
	if got := From(e); got != e {
		t.Fatalf("From should return same error instance")
	}
	wrapped := fmt.Errorf("outer: %w", e)
	if got := From(wrapped); got != e {
		t.Fatalf("From should unwrap to the compact error, got %#v", got)
	}
	plain := From(errors.New("boom"))
	if plain.Kind != KindInternal || plain.Message != "boom" {
		t.Fatalf("unexpected plain conversion: %#v", plain)
	}
}

func TestRPCCode(t *testing.T) {
	cases := map[*Error]int{
		ParseError("bad json", nil):           CodeParseError,
		InvalidRequest("no method"):           CodeInvalidRequest,
		MethodNotFound("frobnicate"):          CodeMethodNotFound,
		NotAvailable("calculator"):            CodeMethodNotFound,
		MissingParameter("a"):                 CodeInvalidParams,
		InvalidParameter("a", "a number"):     CodeInvalidParams,
		ExecutionFailed("t", errors.New("x")): CodeExecutionFailed,
		Internal("oops", nil):                 CodeInternalError,
	}
	for e, want := range cases {
		if got := RPCCode(e); got != want {
			t.Fatalf("RPCCode(%s)=%d want %d", e.Kind, got, want)
		}
	}
}

func TestExecutionFailedUnwrapsCause(t *testing.T) {
	e := ExecutionFailed("slow", context.DeadlineExceeded)
	if !errors.Is(e, context.DeadlineExceeded) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
	if len(e.Causes) != 1 || e.Causes[0].Kind != KindInternal {
		t.Fatalf("causes=%+v", e.Causes)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 600)
	e := New(KindInternal, long, map[string]any{"detail": long})
	if len(e.Message) != 512 || !strings.HasSuffix(e.Message, "...") {
		t.Fatalf("message len=%d", len(e.Message))
	}
	if s, _ := e.Context["detail"].(string); len(s) != 256 {
		t.Fatalf("context len=%d", len(s))
	}
}

func TestWriteHTTP_StatusAndEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/rpc", nil)
	WriteHTTP(rr, req, InvalidRequest("body too large"))
	if rr.Code != 400 {
		t.Fatalf("status=%d want 400", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "\"kind\":\"invalid_request\"") {
		t.Fatalf("body missing kind: %s", body)
	}
	if !strings.Contains(body, "\"trace_id\"") {
		t.Fatalf("body missing trace_id: %s", body)
	}
}

func TestIsKind(t *testing.T) {
	if !IsKind(NotAvailable("x"), KindNotAvailable) {
		t.Fatal("expected not_available")
	}
	if IsKind(errors.New("x"), KindNotAvailable) {
		t.Fatal("plain error must not match")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("é", 400) // 800 bytes, 2 per rune
	e := New(KindExecutionFailed, msg, map[string]any{"detail": msg})
	if !utf8.ValidString(e.Message) || len(e.Message) > 512 {
		t.Fatalf("message len=%d valid=%v", len(e.Message), utf8.ValidString(e.Message))
	}
	if !strings.HasSuffix(e.Message, "...") {
		t.Fatalf("message not marked as truncated: %q", e.Message[len(e.Message)-8:])
	}
	detail := e.Context["detail"].(string)
	if !utf8.ValidString(detail) || len(detail) > 256 {
		t.Fatalf("context len=%d valid=%v", len(detail), utf8.ValidString(detail))
	}
	if got := truncate("日本", 2); got != "" {
		t.Fatalf("truncate inside first rune=%q want empty", got)
	}
}
