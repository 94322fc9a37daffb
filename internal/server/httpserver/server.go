// Package httpserver exposes the websocket endpoint, Prometheus metrics,
// health and dead-letter inspection over HTTP.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/events"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServer struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

// NewHTTPServer wires the routes. dlq may be nil.
func NewHTTPServer(address string, ws http.Handler, dlq events.DeadLetterStore, l logging.Logger) *HTTPServer {
	s := &HTTPServer{
		address: address,
		logger:  l.With("module", "http_server"),
	}
	s.handler = s.routes(ws, dlq)
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) routes(ws http.Handler, dlq events.DeadLetterStore) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", ws)

	if dlq != nil {
		r.Get("/admin/deadletters", func(w http.ResponseWriter, r *http.Request) {
			list, err := dlq.List(r.Context())
			if err != nil {
				s.logger.Error(r.Context(), "list dead letters", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if list == nil {
				list = []events.DeadLetter{}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(list)
		})
	}
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
