// Package httpapi serves the JSON-RPC dispatcher over HTTP.
//
//	POST /rpc      JSON-RPC 2.0 request or batch
//	GET  /healthz  liveness and registered tool count
//	GET  /journal  recent tools/call records (?limit=N)
//	*    /mcp      MCP streamable HTTP transport, when configured
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wilhg/toolbridge/pkg/errmodel"
	"github.com/wilhg/toolbridge/pkg/journal"
	"github.com/wilhg/toolbridge/pkg/rpc"
)

// Server holds the router and its collaborators.
type Server struct {
	dispatcher *rpc.Dispatcher
	journal    journal.Journal
	mcp        http.Handler
	log        zerolog.Logger
	maxBody    int64

	router  *chi.Mux
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access and server logs.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l.With().Str("component", "http").Logger() }
}

// WithJournal serves j at GET /journal.
func WithJournal(j journal.Journal) Option {
	return func(s *Server) { s.journal = j }
}

// WithMaxBodyBytes limits the size of a request body.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithMCPHandler mounts h under /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// New constructs a Server with middleware and routes configured.
func New(d *rpc.Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		log:        zerolog.Nop(),
		maxBody:    1 << 20,
		router:     chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(accessLog(s.log))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/rpc", s.handleRPC)
	s.router.Get("/journal", s.handleJournal)
	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp)
		s.router.Handle("/mcp/*", s.mcp)
	}

	s.handler = otelhttp.NewHandler(s.router, "toolbridge",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

// Handler exposes the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. In-flight tool calls see their request context cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tools":  s.dispatcher.Registry().Len(),
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, rpc.NewError(nil, errmodel.InvalidRequest("request body too large")))
			return
		}
		errmodel.WriteHTTP(w, r, errmodel.InvalidRequest("read request body"))
		return
	}

	ctx := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger().WithContext(r.Context())
	out, err := s.dispatcher.Process(ctx, body)
	if err != nil {
		errmodel.WriteHTTP(w, r, errmodel.Internal("encode response", err))
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		errmodel.WriteHTTP(w, r, errmodel.NotAvailable("journal"))
		return
	}
	limit := journal.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errmodel.WriteHTTP(w, r, errmodel.InvalidParameter("limit", "a positive integer"))
			return
		}
		limit = n
	}
	recs, err := s.journal.List(r.Context(), limit)
	if err != nil {
		errmodel.WriteHTTP(w, r, errmodel.Internal("list journal", err))
		return
	}
	if recs == nil {
		recs = []journal.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

// writeJSON writes v as a JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
