package assess

import (
	"fmt"
	"log/slog"
)

// errorTypeTable is the closed lookup from backend error tags onto the
// WordErrorType enum. Anything not listed falls back to ErrorNone with a
// data-quality warning.
var errorTypeTable = map[string]WordErrorType{
	"None":             ErrorNone,
	"Omission":         ErrorOmission,
	"Insertion":        ErrorInsertion,
	"Mispronunciation": ErrorMispronunciation,
	"UnexpectedBreak":  ErrorUnexpectedBreak,
	"MissingBreak":     ErrorMissingBreak,
	"Monotone":         ErrorMonotone,
}

// Normalize maps a raw backend result onto the canonical response. It is a
// pure transformation: deterministic for identical inputs, no I/O beyond the
// warning log, and it never fails. Missing raw fields are treated as absent,
// not as errors.
func Normalize(raw RawAssessment, cfg ScoringConfig, logger *slog.Logger) AssessmentResponse {
	resp := AssessmentResponse{
		AssessmentType:    cfg.Type(),
		AccuracyScore:     clamp(deref(raw.AccuracyScore)),
		FluencyScore:      clamp(deref(raw.FluencyScore)),
		CompletenessScore: clamp(deref(raw.CompletenessScore)),
		RecognizedText:    raw.RecognizedText,
		Words:             make([]WordResult, 0, len(raw.Words)),
		MiscueInfo:        make([]string, 0),
	}
	if cfg.EnableProsody && raw.ProsodyScore != nil {
		resp.ProsodyScore = ptr(clamp(*raw.ProsodyScore))
	}
	// The backend's own weighting is authoritative: an overall score is
	// copied when supplied and never reconstructed by averaging.
	if raw.PronunciationScore != nil {
		resp.PronunciationScore = ptr(clamp(*raw.PronunciationScore))
	}
	if cfg.Scripted() {
		resp.ReferenceText = cfg.ReferenceText
	}

	for _, rw := range raw.Words {
		word := WordResult{
			Word:          rw.Word,
			AccuracyScore: clamp(deref(rw.AccuracyScore)),
			ErrorType:     mapErrorType(rw.ErrorType, rw.Word, logger),
			Phonemes:      make([]PhonemeResult, 0, len(rw.Phonemes)),
		}
		if cfg.Granularity == GranularityPhoneme {
			for _, rp := range rw.Phonemes {
				word.Phonemes = append(word.Phonemes, PhonemeResult{
					Phoneme:       rp.Phoneme,
					AccuracyScore: clamp(deref(rp.AccuracyScore)),
				})
			}
		}
		resp.Words = append(resp.Words, word)
		if word.ErrorType != ErrorNone {
			resp.MiscueInfo = append(resp.MiscueInfo, fmt.Sprintf("'%s': %s", word.Word, word.ErrorType))
		}
	}
	return resp
}

func mapErrorType(tag, word string, logger *slog.Logger) WordErrorType {
	if tag == "" {
		return ErrorNone
	}
	if et, ok := errorTypeTable[tag]; ok {
		return et
	}
	logger.Warn("unrecognized word error type",
		slog.String("tag", tag),
		slog.String("word", word))
	return ErrorNone
}

// clamp bounds a score into [0,100]. Backend scores are assumed bounded
// already; this guards against upstream drift.
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func ptr(v float64) *float64 {
	return &v
}
