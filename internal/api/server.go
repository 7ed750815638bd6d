// Package api exposes the pronunciation-assessment HTTP surface.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/accentlabs/accent-core/internal/assess"
	"github.com/accentlabs/accent-core/internal/audio"
	"github.com/accentlabs/accent-core/internal/bus"
	"github.com/accentlabs/accent-core/internal/history"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Server holds the request-handling collaborators. It keeps no per-request
// state; all handlers are safe for concurrent use.
type Server struct {
	log       *slog.Logger
	invoker   *assess.Invoker
	converter *audio.Converter
	store     *history.Store
	bus       *bus.Client
	defaults  assess.ScoringConfig
	ready     atomic.Bool

	assessments metric.Int64Counter
	duration    metric.Float64Histogram
}

func New(log *slog.Logger, invoker *assess.Invoker, converter *audio.Converter, store *history.Store, busClient *bus.Client, defaults assess.ScoringConfig) *Server {
	s := &Server{
		log:       log.With(slog.String("component", "api")),
		invoker:   invoker,
		converter: converter,
		store:     store,
		bus:       busClient,
		defaults:  defaults,
	}

	meter := otel.Meter("github.com/accentlabs/accent-core/internal/api")
	var err error
	s.assessments, err = meter.Int64Counter("assessments_total",
		metric.WithDescription("Completed assessment requests by type and outcome."))
	if err != nil {
		s.log.Warn("failed to create assessment counter", slog.String("error", err.Error()))
	}
	s.duration, err = meter.Float64Histogram("assessment_duration_seconds",
		metric.WithDescription("End-to-end assessment request duration."),
		metric.WithUnit("s"))
	if err != nil {
		s.log.Warn("failed to create duration histogram", slog.String("error", err.Error()))
	}
	return s
}

// SetReady flips the readiness probe once the runtime finished starting.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler builds the routed handler, wrapped with request logging and CORS.
// metrics, when non-nil, is mounted at /metrics.
func (s *Server) Handler(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/assess", s.handleAssess)
	mux.HandleFunc("/assessments", s.handleListAssessments)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)

	return s.withLogging(handler)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// statusForCode maps the stable error codes onto HTTP statuses in one place.
func statusForCode(code string) int {
	switch code {
	case "invalid_config", "malformed_audio", "no_speech_recognized":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusBadGateway
	case "service_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
