package assess

import (
	"context"
	"errors"
	"testing"
)

type stubBackend struct {
	raw     RawAssessment
	err     error
	calls   int
	lastCfg ScoringConfig
}

func (s *stubBackend) Assess(_ context.Context, _ []byte, cfg ScoringConfig) (RawAssessment, error) {
	s.calls++
	s.lastCfg = cfg
	return s.raw, s.err
}

func TestInvokeScriptedMode(t *testing.T) {
	stub := &stubBackend{raw: RawAssessment{RecognizedText: "hi"}}
	inv := NewInvoker(stub)

	cfg := ScoringConfig{
		ReferenceText: "hi there",
		GradingSystem: GradingHundredMark,
		Granularity:   GranularityPhoneme,
	}
	raw, err := inv.Invoke(context.Background(), []byte("wav"), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.RecognizedText != "hi" {
		t.Fatalf("unexpected raw result: %+v", raw)
	}
	if stub.calls != 1 {
		t.Fatalf("expected a single backend call, got %d", stub.calls)
	}
	if !stub.lastCfg.Scripted() || stub.lastCfg.Type() != TypeScripted {
		t.Fatalf("expected scripted config, got %+v", stub.lastCfg)
	}
}

func TestInvokeUnscriptedMode(t *testing.T) {
	stub := &stubBackend{}
	inv := NewInvoker(stub)

	cfg := ScoringConfig{
		ReferenceText: "   ",
		GradingSystem: GradingFivePoint,
		Granularity:   GranularityWord,
	}
	if _, err := inv.Invoke(context.Background(), nil, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.lastCfg.Type() != TypeUnscripted {
		t.Fatalf("blank reference text must mean unscripted, got %s", stub.lastCfg.Type())
	}
}

func TestInvokeRejectsUnknownOptions(t *testing.T) {
	stub := &stubBackend{}
	inv := NewInvoker(stub)

	_, err := inv.Invoke(context.Background(), nil, ScoringConfig{GradingSystem: "TenPoint", Granularity: GranularityPhoneme})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}

	_, err = inv.Invoke(context.Background(), nil, ScoringConfig{GradingSystem: GradingHundredMark, Granularity: "Sentence"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("backend must not be called on config errors, got %d calls", stub.calls)
	}
}

func TestInvokePropagatesBackendError(t *testing.T) {
	stub := &stubBackend{err: ErrNoSpeech}
	inv := NewInvoker(stub)

	_, err := inv.Invoke(context.Background(), nil, ScoringConfig{GradingSystem: GradingHundredMark, Granularity: GranularityPhoneme})
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected no-speech error, got %v", err)
	}
}

func TestErrorCodes(t *testing.T) {
	cases := map[string]error{
		"invalid_config":       ErrInvalidConfig,
		"unauthorized":         ErrUnauthorized,
		"service_unavailable":  ErrServiceUnavailable,
		"malformed_audio":      ErrMalformedAudio,
		"no_speech_recognized": ErrNoSpeech,
		"internal":             errors.New("boom"),
	}
	for want, err := range cases {
		if got := Code(err); got != want {
			t.Fatalf("code for %v: got %q want %q", err, got, want)
		}
	}
}
