package protocol

import "time"

// AssessmentEvent is broadcast on the bus after an assessment completes.
type AssessmentEvent struct {
	AssessmentType    string    `json:"assessment_type"`
	RecognizedText    string    `json:"recognized_text"`
	AccuracyScore     float64   `json:"accuracy_score"`
	FluencyScore      float64   `json:"fluency_score"`
	CompletenessScore float64   `json:"completeness_score"`
	WordCount         int       `json:"word_count"`
	MiscueCount       int       `json:"miscue_count"`
	Timestamp         time.Time `json:"timestamp"`
}

const SubjectAssessmentCompleted = "assess.result.completed"
