package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/accentlabs/accent-core/internal/assess"
)

type mockBackend struct{}

// NewMockBackend returns a deterministic in-process backend for development
// and tests.
func NewMockBackend() assess.Backend {
	return &mockBackend{}
}

func (m *mockBackend) Assess(_ context.Context, wav []byte, cfg assess.ScoringConfig) (assess.RawAssessment, error) {
	text := strings.TrimSpace(cfg.ReferenceText)
	if text == "" {
		text = fmt.Sprintf("mock transcript length=%d", len(wav))
	}

	raw := assess.RawAssessment{
		RecognizedText:     text,
		AccuracyScore:      mockScore(92),
		FluencyScore:       mockScore(88),
		CompletenessScore:  mockScore(100),
		PronunciationScore: mockScore(90),
	}
	if cfg.EnableProsody {
		raw.ProsodyScore = mockScore(81)
	}
	for _, word := range strings.Fields(text) {
		rw := assess.RawWord{
			Word:          word,
			AccuracyScore: mockScore(92),
			ErrorType:     "None",
		}
		if cfg.Granularity == assess.GranularityPhoneme {
			for _, r := range strings.ToLower(word) {
				rw.Phonemes = append(rw.Phonemes, assess.RawPhoneme{
					Phoneme:       string(r),
					AccuracyScore: mockScore(92),
				})
			}
		}
		raw.Words = append(raw.Words, rw)
	}
	return raw, nil
}

func mockScore(v float64) *float64 {
	return &v
}
