package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/config"
	"github.com/wdallo/libraryApp-sub000/internal/domain"
	"github.com/wdallo/libraryApp-sub000/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the reservation engine over REST.
type HTTPServer struct {
	cfg          config.APIConfig
	policy       config.ReservationsConfig
	reservations domain.ReservationService
	books        domain.BookService
	users        domain.UserService
	repo         domain.Repository
	cache        domain.AvailabilityCache
	auth         *HTTPAuth
	server       *http.Server
	logger       *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	policy config.ReservationsConfig,
	reservations domain.ReservationService,
	books domain.BookService,
	users domain.UserService,
	repo domain.Repository,
	cache domain.AvailabilityCache,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		policy:       policy,
		reservations: reservations,
		books:        books,
		users:        users,
		repo:         repo,
		cache:        cache,
		auth:         NewHTTPAuth(cfg),
		logger:       logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", srv.handleHealth)

	mux.HandleFunc("POST /api/v1/reservations", srv.handleReserve)
	mux.HandleFunc("GET /api/v1/reservations", srv.handleListMine)
	mux.HandleFunc("POST /api/v1/reservations/{id}/extend", srv.handleExtend)
	mux.HandleFunc("POST /api/v1/reservations/{id}/return", srv.handleReturn)
	mux.HandleFunc("POST /api/v1/reservations/{id}/cancel", srv.handleCancel)

	mux.HandleFunc("GET /api/v1/books", srv.handleListBooks)
	mux.HandleFunc("GET /api/v1/books/{id}/availability", srv.handleAvailability)

	mux.HandleFunc("GET /api/v1/admin/reservations", srv.handleListAll)
	mux.HandleFunc("POST /api/v1/admin/reservations/{id}/approve", srv.handleApprove)
	mux.HandleFunc("POST /api/v1/admin/reservations/{id}/reject", srv.handleReject)
	mux.HandleFunc("POST /api/v1/admin/reservations/{id}/return/approve", srv.handleApproveReturn)
	mux.HandleFunc("GET /api/v1/admin/activity", srv.handleActivity)
	mux.HandleFunc("GET /api/v1/admin/reservations/export", srv.handleExport)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.ObserveHTTP(endpoint, recorder.status, dur)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
