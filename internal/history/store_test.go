package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/accentlabs/accent-core/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	cfg := config.HistoryConfig{RetentionMode: "ephemeral"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Append(context.Background(), Record{AssessmentType: "SCRIPTED"}); err != nil {
		t.Fatalf("append on ephemeral store: %v", err)
	}
	records, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list on ephemeral store: %v", err)
	}
	if records != nil {
		t.Fatalf("ephemeral store must return nothing, got %d", len(records))
	}
}

func TestAppendAndListRecent(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.HistoryConfig{Path: filepath.Join(tmp, "history.db"), RetentionMode: "persistent"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	prosody := 74.5
	first := Record{
		AssessmentType:    "SCRIPTED",
		ReferenceText:     "hello world",
		RecognizedText:    "hello world",
		AccuracyScore:     91,
		FluencyScore:      87,
		CompletenessScore: 100,
		ProsodyScore:      &prosody,
		WordCount:         2,
		MiscueCount:       0,
		Payload:           []byte(`{"accuracy_score":91}`),
	}
	if err := s.Append(context.Background(), first); err != nil {
		t.Fatalf("append: %v", err)
	}

	s.clock = func() time.Time { return time.Now().Add(time.Minute) }
	second := Record{AssessmentType: "UNSCRIPTED", RecognizedText: "later", AccuracyScore: 60, MiscueCount: 1}
	if err := s.Append(context.Background(), second); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RecognizedText != "later" {
		t.Fatalf("expected newest first, got %q", records[0].RecognizedText)
	}
	got := records[1]
	if got.AssessmentType != "SCRIPTED" || got.ReferenceText != "hello world" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.ProsodyScore == nil || *got.ProsodyScore != 74.5 {
		t.Fatalf("prosody score lost: %v", got.ProsodyScore)
	}
	if got.PronunciationScore != nil {
		t.Fatalf("absent pronunciation score must stay nil, got %v", *got.PronunciationScore)
	}
	if string(got.Payload) != `{"accuracy_score":91}` {
		t.Fatalf("payload lost: %s", got.Payload)
	}
}

func TestPruneByDaysAndRowCap(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.HistoryConfig{
		Path:          filepath.Join(tmp, "history.db"),
		RetentionMode: "persistent",
		RetentionDays: 1,
		MaxRecords:    1,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	s.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(context.Background(), Record{AssessmentType: "SCRIPTED", RecognizedText: "old"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(context.Background(), Record{AssessmentType: "SCRIPTED", RecognizedText: "newer"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(context.Background(), Record{AssessmentType: "SCRIPTED", RecognizedText: "newest"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	records, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after prune, got %d", len(records))
	}
	if records[0].RecognizedText != "newest" {
		t.Fatalf("wrong record survived: %q", records[0].RecognizedText)
	}
}
