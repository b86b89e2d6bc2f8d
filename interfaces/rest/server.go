// Package rest exposes the lifecycle service over HTTP for the admin and
// customer surfaces.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/felixgeelhaar/orderflow/application"
	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
)

// Server routes HTTP requests to the lifecycle service.
type Server struct {
	service *application.Service
	auth    *Authenticator
	router  chi.Router
}

// NewServer creates a server. Every route except health and status
// descriptions requires a bearer token.
func NewServer(service *application.Service, auth *Authenticator) *Server {
	s := &Server{service: service, auth: auth}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/statuses/{status}", s.describeStatus)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Post("/records", s.createRecord)
		r.Route("/records/{id}", func(r chi.Router) {
			r.Get("/", s.getRecord)
			r.Get("/targets", s.listTargets)
			r.Post("/transitions", s.requestTransition)
			r.Post("/payments/{stage}", s.recordPayment)
			r.Post("/documents/review", s.reviewDocuments)
			r.Get("/history/verify", s.verifyHistory)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Add(logging.Str("address", addr)).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logging.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug().
			Add(logging.Str("method", r.Method)).
			Add(logging.Str("path", r.URL.Path)).
			Add(logging.Str("request_id", middleware.GetReqID(r.Context()))).
			Add(logging.Int("status", ww.Status())).
			Add(logging.Duration(time.Since(start))).
			Msg("http request")
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
