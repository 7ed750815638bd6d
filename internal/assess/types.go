package assess

import "strings"

// GradingSystem selects the score scale the backend grades on.
type GradingSystem string

const (
	GradingHundredMark GradingSystem = "HundredMark"
	GradingFivePoint   GradingSystem = "FivePoint"
)

// Granularity is the finest scoring unit the backend reports.
type Granularity string

const (
	GranularityPhoneme  Granularity = "Phoneme"
	GranularityWord     Granularity = "Word"
	GranularityFullText Granularity = "FullText"
)

// AssessmentType distinguishes scoring against a known reference text from
// open dictation scoring.
type AssessmentType string

const (
	TypeScripted   AssessmentType = "SCRIPTED"
	TypeUnscripted AssessmentType = "UNSCRIPTED"
)

// WordErrorType is the closed set of word-level miscues.
type WordErrorType string

const (
	ErrorNone             WordErrorType = "None"
	ErrorOmission         WordErrorType = "Omission"
	ErrorInsertion        WordErrorType = "Insertion"
	ErrorMispronunciation WordErrorType = "Mispronunciation"
	ErrorUnexpectedBreak  WordErrorType = "UnexpectedBreak"
	ErrorMissingBreak     WordErrorType = "MissingBreak"
	ErrorMonotone         WordErrorType = "Monotone"
)

// ScoringConfig carries the caller-supplied assessment options. The mode is
// never stored: a non-blank reference text means scripted assessment.
type ScoringConfig struct {
	ReferenceText string
	GradingSystem GradingSystem
	Granularity   Granularity
	EnableProsody bool
}

// Scripted reports whether the config requests scripted assessment.
func (c ScoringConfig) Scripted() bool {
	return strings.TrimSpace(c.ReferenceText) != ""
}

// Type returns the assessment type implied by the reference text.
func (c ScoringConfig) Type() AssessmentType {
	if c.Scripted() {
		return TypeScripted
	}
	return TypeUnscripted
}

// Validate rejects option values outside the closed enums.
func (c ScoringConfig) Validate() error {
	switch c.GradingSystem {
	case GradingHundredMark, GradingFivePoint:
	default:
		return invalidConfigf("unknown grading system %q", c.GradingSystem)
	}
	switch c.Granularity {
	case GranularityPhoneme, GranularityWord, GranularityFullText:
	default:
		return invalidConfigf("unknown granularity %q", c.Granularity)
	}
	return nil
}

// RawAssessment is the backend's result reshaped into a sealed structure with
// explicit optional fields. A nil score means the backend omitted it.
type RawAssessment struct {
	RecognizedText     string
	AccuracyScore      *float64
	FluencyScore       *float64
	CompletenessScore  *float64
	ProsodyScore       *float64
	PronunciationScore *float64
	Words              []RawWord
}

// RawWord is a single word entry in utterance order.
type RawWord struct {
	Word          string
	AccuracyScore *float64
	ErrorType     string
	Phonemes      []RawPhoneme
}

// RawPhoneme is a single phoneme entry within a word, in utterance order.
type RawPhoneme struct {
	Phoneme       string
	AccuracyScore *float64
}

// PhonemeResult is the canonical per-phoneme breakdown entry.
type PhonemeResult struct {
	Phoneme       string  `json:"phoneme"`
	AccuracyScore float64 `json:"accuracy_score"`
}

// WordResult is the canonical per-word breakdown entry.
type WordResult struct {
	Word          string          `json:"word"`
	AccuracyScore float64         `json:"accuracy_score"`
	ErrorType     WordErrorType   `json:"error_type"`
	Phonemes      []PhonemeResult `json:"phonemes"`
}

// AssessmentResponse is the canonical response contract. Optional fields are
// omitted from the JSON encoding when absent, never serialized as null.
type AssessmentResponse struct {
	AssessmentType     AssessmentType `json:"assessment_type"`
	AccuracyScore      float64        `json:"accuracy_score"`
	FluencyScore       float64        `json:"fluency_score"`
	CompletenessScore  float64        `json:"completeness_score"`
	ProsodyScore       *float64       `json:"prosody_score,omitempty"`
	PronunciationScore *float64       `json:"pronunciation_score,omitempty"`
	RecognizedText     string         `json:"recognized_text"`
	ReferenceText      string         `json:"reference_text,omitempty"`
	Words              []WordResult   `json:"words"`
	MiscueInfo         []string       `json:"miscue_info"`
}
