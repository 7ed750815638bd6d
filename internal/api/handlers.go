package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/accentlabs/accent-core/internal/assess"
	"github.com/accentlabs/accent-core/internal/audio"
	"github.com/accentlabs/accent-core/internal/history"
	"github.com/accentlabs/accent-core/internal/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "pronunciation assessment service is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"ffmpeg_available": s.converter.Available(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "multipart field 'audio_file' is required")
		return
	}
	defer file.Close()

	opts, err := s.scoringOptions(r)
	if err != nil {
		s.writeAssessError(r.Context(), w, opts, err)
		return
	}

	staged, err := audio.Stage(header.Filename, file)
	if err != nil {
		s.log.Error("failed to stage upload", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal", "failed to stage upload")
		return
	}
	defer os.Remove(staged)

	wavPath := staged
	if !audio.IsCompliantWAV(staged) {
		if !s.converter.Available() {
			writeError(w, http.StatusBadRequest, "malformed_audio",
				"audio requires conversion but ffmpeg is not installed; upload 16 kHz mono PCM16 WAV instead")
			return
		}
		converted := staged + ".converted.wav"
		defer os.Remove(converted)
		if err := s.converter.Convert(r.Context(), staged, converted); err != nil {
			s.log.Warn("audio conversion failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "malformed_audio", "could not convert audio; ensure the file is valid audio")
			return
		}
		wavPath = converted
	}

	wav, err := os.ReadFile(wavPath)
	if err != nil {
		s.log.Error("failed to read staged audio", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal", "failed to read staged audio")
		return
	}

	start := time.Now()
	raw, err := s.invoker.Invoke(r.Context(), wav, opts)
	if err != nil {
		s.writeAssessError(r.Context(), w, opts, err)
		return
	}

	resp := assess.Normalize(raw, opts, s.log)
	s.record(r.Context(), resp)
	s.observe(r.Context(), string(resp.AssessmentType), "ok", time.Since(start))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.store.ListRecent(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to list assessments", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal", "failed to list assessments")
		return
	}

	summaries := make([]assessmentSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": summaries})
}

type assessmentSummary struct {
	ID                 int64     `json:"id"`
	AssessmentType     string    `json:"assessment_type"`
	ReferenceText      string    `json:"reference_text,omitempty"`
	RecognizedText     string    `json:"recognized_text"`
	AccuracyScore      float64   `json:"accuracy_score"`
	FluencyScore       float64   `json:"fluency_score"`
	CompletenessScore  float64   `json:"completeness_score"`
	ProsodyScore       *float64  `json:"prosody_score,omitempty"`
	PronunciationScore *float64  `json:"pronunciation_score,omitempty"`
	WordCount          int       `json:"word_count"`
	MiscueCount        int       `json:"miscue_count"`
	CreatedAt          time.Time `json:"created_at"`
}

func summarize(rec history.Record) assessmentSummary {
	return assessmentSummary{
		ID:                 rec.ID,
		AssessmentType:     rec.AssessmentType,
		ReferenceText:      rec.ReferenceText,
		RecognizedText:     rec.RecognizedText,
		AccuracyScore:      rec.AccuracyScore,
		FluencyScore:       rec.FluencyScore,
		CompletenessScore:  rec.CompletenessScore,
		ProsodyScore:       rec.ProsodyScore,
		PronunciationScore: rec.PronunciationScore,
		WordCount:          rec.WordCount,
		MiscueCount:        rec.MiscueCount,
		CreatedAt:          rec.CreatedAt,
	}
}

// scoringOptions builds the per-request scoring config from the configured
// defaults plus query/form overrides.
func (s *Server) scoringOptions(r *http.Request) (assess.ScoringConfig, error) {
	opts := s.defaults
	opts.ReferenceText = r.FormValue("reference_text")
	if v := r.FormValue("grading_system"); v != "" {
		opts.GradingSystem = assess.GradingSystem(v)
	}
	if v := r.FormValue("granularity"); v != "" {
		opts.Granularity = assess.Granularity(v)
	}
	if v := r.FormValue("prosody"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return opts, invalidProsodyErr(v)
		}
		opts.EnableProsody = enabled
	}
	return opts, nil
}

func invalidProsodyErr(v string) error {
	return fmt.Errorf("%w: prosody must be a boolean, got %q", assess.ErrInvalidConfig, v)
}

func (s *Server) writeAssessError(ctx context.Context, w http.ResponseWriter, opts assess.ScoringConfig, err error) {
	code := assess.Code(err)
	status := statusForCode(code)
	if status >= http.StatusInternalServerError {
		s.log.Error("assessment failed", slog.String("code", code), slog.String("error", err.Error()))
	} else {
		s.log.Warn("assessment rejected", slog.String("code", code), slog.String("error", err.Error()))
	}
	s.observe(ctx, string(opts.Type()), code, 0)
	writeError(w, status, code, err.Error())
}

// record persists the response and broadcasts the completion event. Both are
// best-effort: a storage or bus failure never fails the request.
func (s *Server) record(ctx context.Context, resp assess.AssessmentResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("failed to marshal assessment payload", slog.String("error", err.Error()))
		payload = nil
	}
	rec := history.Record{
		AssessmentType:     string(resp.AssessmentType),
		ReferenceText:      resp.ReferenceText,
		RecognizedText:     resp.RecognizedText,
		AccuracyScore:      resp.AccuracyScore,
		FluencyScore:       resp.FluencyScore,
		CompletenessScore:  resp.CompletenessScore,
		ProsodyScore:       resp.ProsodyScore,
		PronunciationScore: resp.PronunciationScore,
		WordCount:          len(resp.Words),
		MiscueCount:        len(resp.MiscueInfo),
		Payload:            payload,
	}
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Warn("failed to store assessment", slog.String("error", err.Error()))
	}

	if s.bus == nil {
		return
	}
	event := protocol.AssessmentEvent{
		AssessmentType:    string(resp.AssessmentType),
		RecognizedText:    resp.RecognizedText,
		AccuracyScore:     resp.AccuracyScore,
		FluencyScore:      resp.FluencyScore,
		CompletenessScore: resp.CompletenessScore,
		WordCount:         len(resp.Words),
		MiscueCount:       len(resp.MiscueInfo),
		Timestamp:         time.Now().UTC(),
	}
	if err := s.bus.PublishJSON(protocol.SubjectAssessmentCompleted, event); err != nil {
		s.log.Warn("failed to publish assessment event", slog.String("error", err.Error()))
	}
}

func (s *Server) observe(ctx context.Context, assessmentType, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("type", assessmentType),
		attribute.String("outcome", outcome))
	if s.assessments != nil {
		s.assessments.Add(ctx, 1, attrs)
	}
	if s.duration != nil && elapsed > 0 {
		s.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
