// Package history persists completed assessment summaries in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/accentlabs/accent-core/internal/config"
	_ "modernc.org/sqlite"
)

// Record is a stored assessment summary. Payload holds the full response JSON
// as served to the caller.
type Record struct {
	ID                 int64
	AssessmentType     string
	ReferenceText      string
	RecognizedText     string
	AccuracyScore      float64
	FluencyScore       float64
	CompletenessScore  float64
	ProsodyScore       *float64
	PronunciationScore *float64
	WordCount          int
	MiscueCount        int
	Payload            []byte
	CreatedAt          time.Time
}

// Store wraps a SQLite-backed assessment history. With retention mode
// "ephemeral" all operations are no-ops.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the history store according to config.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("history vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("history prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS assessments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    assessment_type TEXT NOT NULL,
    reference_text TEXT,
    recognized_text TEXT,
    accuracy_score REAL,
    fluency_score REAL,
    completeness_score REAL,
    prosody_score REAL,
    pronunciation_score REAL,
    word_count INTEGER,
    miscue_count INTEGER,
    payload BLOB,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessments_created ON assessments(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes an assessment record.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if s.db == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assessments(
		   assessment_type, reference_text, recognized_text,
		   accuracy_score, fluency_score, completeness_score,
		   prosody_score, pronunciation_score,
		   word_count, miscue_count, payload, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AssessmentType, rec.ReferenceText, rec.RecognizedText,
		rec.AccuracyScore, rec.FluencyScore, rec.CompletenessScore,
		nullable(rec.ProsodyScore), nullable(rec.PronunciationScore),
		rec.WordCount, rec.MiscueCount, rec.Payload, rec.CreatedAt)
	return err
}

// ListRecent retrieves up to limit records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, assessment_type, reference_text, recognized_text,
		        accuracy_score, fluency_score, completeness_score,
		        prosody_score, pronunciation_score,
		        word_count, miscue_count, payload, created_at
		 FROM assessments ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			prosody sql.NullFloat64
			pron    sql.NullFloat64
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.AssessmentType, &rec.ReferenceText, &rec.RecognizedText,
			&rec.AccuracyScore, &rec.FluencyScore, &rec.CompletenessScore,
			&prosody, &pron,
			&rec.WordCount, &rec.MiscueCount, &rec.Payload, &created); err != nil {
			return nil, err
		}
		if prosody.Valid {
			rec.ProsodyScore = &prosody.Float64
		}
		if pron.Valid {
			rec.PronunciationScore = &pron.Float64
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune applies configured retention: age-based first, then a row cap.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM assessments WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxRecords > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM assessments WHERE id IN (
			SELECT id FROM assessments ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRecords)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
