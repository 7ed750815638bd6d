package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/accentlabs/accent-core/internal/assess"
	"github.com/accentlabs/accent-core/internal/config"
)

const recognitionPath = "/speech/recognition/conversation/cognitiveservices/v1"

type azureBackend struct {
	key      string
	language string
	endpoint string
	client   *http.Client
}

// NewAzureBackend builds a backend for the Azure Speech short-audio REST
// endpoint. Credentials and region come from cfg; nothing is read from
// ambient state.
func NewAzureBackend(cfg config.SpeechConfig) assess.Backend {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com", cfg.Region)
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &azureBackend{
		key:      cfg.Key,
		language: cfg.Language,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// pronunciationParams is the scoring config carried base64-encoded in the
// Pronunciation-Assessment header.
type pronunciationParams struct {
	ReferenceText           string `json:"ReferenceText"`
	GradingSystem           string `json:"GradingSystem"`
	Granularity             string `json:"Granularity"`
	PhonemeAlphabet         string `json:"PhonemeAlphabet"`
	EnableMiscue            bool   `json:"EnableMiscue"`
	EnableProsodyAssessment bool   `json:"EnableProsodyAssessment"`
}

type recognitionResponse struct {
	RecognitionStatus string       `json:"RecognitionStatus"`
	DisplayText       string       `json:"DisplayText"`
	NBest             []nbestEntry `json:"NBest"`
}

type nbestEntry struct {
	Display                 string            `json:"Display"`
	PronunciationAssessment *assessmentScores `json:"PronunciationAssessment"`
	Words                   []wireWord        `json:"Words"`
}

type assessmentScores struct {
	AccuracyScore     *float64 `json:"AccuracyScore"`
	FluencyScore      *float64 `json:"FluencyScore"`
	CompletenessScore *float64 `json:"CompletenessScore"`
	ProsodyScore      *float64 `json:"ProsodyScore"`
	PronScore         *float64 `json:"PronScore"`
	ErrorType         string   `json:"ErrorType"`
}

type wireWord struct {
	Word                    string            `json:"Word"`
	PronunciationAssessment *assessmentScores `json:"PronunciationAssessment"`
	Phonemes                []wirePhoneme     `json:"Phonemes"`
}

type wirePhoneme struct {
	Phoneme                 string            `json:"Phoneme"`
	PronunciationAssessment *assessmentScores `json:"PronunciationAssessment"`
}

func (b *azureBackend) Assess(ctx context.Context, wav []byte, cfg assess.ScoringConfig) (assess.RawAssessment, error) {
	params := pronunciationParams{
		ReferenceText:           cfg.ReferenceText,
		GradingSystem:           string(cfg.GradingSystem),
		Granularity:             string(cfg.Granularity),
		PhonemeAlphabet:         "IPA",
		EnableMiscue:            cfg.Scripted(),
		EnableProsodyAssessment: cfg.EnableProsody,
	}
	paramJSON, err := json.Marshal(params)
	if err != nil {
		return assess.RawAssessment{}, fmt.Errorf("marshal assessment params: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?language=%s&format=detailed",
		b.endpoint, recognitionPath, url.QueryEscape(b.language))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(wav))
	if err != nil {
		return assess.RawAssessment{}, fmt.Errorf("build recognition request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", b.key)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(paramJSON))

	resp, err := b.client.Do(req)
	if err != nil {
		return assess.RawAssessment{}, fmt.Errorf("%w: %v", assess.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return assess.RawAssessment{}, fmt.Errorf("%w: status %s", assess.ErrUnauthorized, resp.Status)
	case resp.StatusCode == http.StatusBadRequest:
		return assess.RawAssessment{}, fmt.Errorf("%w: status %s", assess.ErrMalformedAudio, resp.Status)
	case resp.StatusCode >= 300:
		return assess.RawAssessment{}, fmt.Errorf("%w: status %s", assess.ErrServiceUnavailable, resp.Status)
	}

	var rec recognitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return assess.RawAssessment{}, fmt.Errorf("decode recognition response: %w", err)
	}
	return fromRecognition(rec)
}

func fromRecognition(rec recognitionResponse) (assess.RawAssessment, error) {
	switch rec.RecognitionStatus {
	case "Success":
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return assess.RawAssessment{}, assess.ErrNoSpeech
	default:
		return assess.RawAssessment{}, fmt.Errorf("recognition failed with status %q", rec.RecognitionStatus)
	}

	raw := assess.RawAssessment{RecognizedText: rec.DisplayText}
	if len(rec.NBest) == 0 {
		return raw, nil
	}
	best := rec.NBest[0]
	if raw.RecognizedText == "" {
		raw.RecognizedText = best.Display
	}
	if pa := best.PronunciationAssessment; pa != nil {
		raw.AccuracyScore = pa.AccuracyScore
		raw.FluencyScore = pa.FluencyScore
		raw.CompletenessScore = pa.CompletenessScore
		raw.ProsodyScore = pa.ProsodyScore
		raw.PronunciationScore = pa.PronScore
	}
	for _, w := range best.Words {
		rw := assess.RawWord{Word: w.Word}
		if pa := w.PronunciationAssessment; pa != nil {
			rw.AccuracyScore = pa.AccuracyScore
			rw.ErrorType = pa.ErrorType
		}
		for _, p := range w.Phonemes {
			rp := assess.RawPhoneme{Phoneme: p.Phoneme}
			if pa := p.PronunciationAssessment; pa != nil {
				rp.AccuracyScore = pa.AccuracyScore
			}
			rw.Phonemes = append(rw.Phonemes, rp)
		}
		raw.Words = append(raw.Words, rw)
	}
	return raw, nil
}
