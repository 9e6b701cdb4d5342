package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/spf13/cast"
)

// ExamInfo describes the deployment the database belongs to.
type ExamInfo struct {
	Title         string  `json:"title"`
	Language      string  `json:"language"`
	PromptVariant string  `json:"promptVariant"`
	PassPercent   float64 `json:"passPercent"`
}

// SetMetadata upserts a key-value pair in the exam_metadata table.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	return s.exec(ctx, s.db,
		`INSERT INTO exam_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.queryRow(ctx, `SELECT value FROM exam_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetExamInfo stores all ExamInfo fields as metadata rows.
func (s *Store) SetExamInfo(ctx context.Context, info ExamInfo) error {
	pairs := []struct{ k, v string }{
		{"title", info.Title},
		{"language", info.Language},
		{"prompt_variant", info.PromptVariant},
		{"pass_percent", cast.ToString(info.PassPercent)},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(ctx, p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetExamInfo reads all ExamInfo fields from metadata.
func (s *Store) GetExamInfo(ctx context.Context) (ExamInfo, error) {
	var info ExamInfo
	var err error

	if info.Title, err = s.GetMetadata(ctx, "title"); err != nil {
		return info, err
	}
	if info.Language, err = s.GetMetadata(ctx, "language"); err != nil {
		return info, err
	}
	if info.PromptVariant, err = s.GetMetadata(ctx, "prompt_variant"); err != nil {
		return info, err
	}
	pp, err := s.GetMetadata(ctx, "pass_percent")
	if err != nil {
		return info, err
	}
	if pp != "" {
		if info.PassPercent, err = cast.ToFloat64E(pp); err != nil {
			return info, err
		}
	}
	return info, nil
}

// GetImportedFileHash returns the sha256 recorded for path, or "" when the
// file was never imported.
func (s *Store) GetImportedFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.queryRow(ctx, `SELECT sha256 FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the sha256 of an imported file.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	return s.exec(ctx, s.db,
		`INSERT INTO imported_files (path, sha256, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT (path) DO UPDATE SET sha256 = excluded.sha256, imported_at = excluded.imported_at`,
		path, hash, time.Now().UTC(),
	)
}
