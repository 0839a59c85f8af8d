package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wilhg/toolbridge/pkg/errmodel"
)

// Bridge is a Context backed by a host application that exposes a small HTTP
// bridge:
//
//	POST   /script    {"script": "..."}  -> {"result": <any>}
//	GET    /status                       -> <object> | 204 when no status
//	POST   /autoplay
//	GET    /logs                         -> [<LogEntry>]
//	DELETE /logs
//	POST   /log       {"message": "..."}
//
// A 404 or 503 from the host is reported as NotAvailable.
type Bridge struct {
	BaseURL string
	HTTP    *http.Client
	Logger  zerolog.Logger
}

var _ Context = (*Bridge)(nil)

// NewBridge returns a bridge client. If httpClient is nil, an instrumented client
// with a 15s timeout is used.
func NewBridge(baseURL string, httpClient *http.Client, log zerolog.Logger) *Bridge {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Bridge{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Logger:  log.With().Str("component", "bridge").Logger(),
	}
}

// ExecuteScript posts the script and returns the host's result value.
func (b *Bridge) ExecuteScript(ctx context.Context, script string) (any, error) {
	var out struct {
		Result any `json:"result"`
	}
	if _, err := b.do(ctx, http.MethodPost, "/script", map[string]string{"script": script}, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Status fetches the host status; a 204 means the host has none.
func (b *Bridge) Status(ctx context.Context) (Status, error) {
	var st Status
	code, err := b.do(ctx, http.MethodGet, "/status", nil, &st)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNoContent {
		return nil, nil
	}
	return st, nil
}

// TriggerAutoplay asks the host to start autoplay.
func (b *Bridge) TriggerAutoplay(ctx context.Context) error {
	_, err := b.do(ctx, http.MethodPost, "/autoplay", nil, nil)
	return err
}

// Logs fetches the host log.
func (b *Bridge) Logs(ctx context.Context) ([]LogEntry, error) {
	var entries []LogEntry
	if _, err := b.do(ctx, http.MethodGet, "/logs", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ClearLogs clears the host log.
func (b *Bridge) ClearLogs(ctx context.Context) error {
	_, err := b.do(ctx, http.MethodDelete, "/logs", nil, nil)
	return err
}

// Log forwards a message to the host log. Delivery is best effort: failures are
// logged locally and otherwise dropped.
func (b *Bridge) Log(message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := b.do(ctx, http.MethodPost, "/log", map[string]string{"message": message}, nil); err != nil {
		b.Logger.Warn().Err(err).Msg("forward log to host")
	}
}

func (b *Bridge) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+path, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := b.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("host bridge %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusServiceUnavailable:
		return resp.StatusCode, errmodel.NotAvailable("host " + strings.TrimPrefix(path, "/"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("host bridge %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	case resp.StatusCode == http.StatusNoContent || out == nil:
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}
