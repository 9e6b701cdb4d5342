package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pavelanni/examprep/internal/normalize"
	"github.com/pavelanni/examprep/internal/question"
	"github.com/pavelanni/examprep/internal/store"
)

// importer loads authoring files into the store, skipping files whose
// content was already imported.
type importer struct {
	db *store.Store
}

func newImporter(db *store.Store) *importer {
	return &importer{db: db}
}

// splitNamedPath parses "name=path". A bare path takes its base name without
// extension as the name.
func splitNamedPath(arg string) (name, path string) {
	if n, p, ok := strings.Cut(arg, "="); ok {
		return n, p
	}
	base := filepath.Base(arg)
	return strings.TrimSuffix(base, filepath.Ext(base)), arg
}

// read returns the decoded documents of path, or nil when the file is
// unchanged since its last import.
func (imp *importer) read(ctx context.Context, path string) ([]normalize.Document, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := imp.db.GetImportedFileHash(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("file unchanged, skipping", "path", path)
		return nil, hash, nil
	}
	if storedHash != "" {
		// Exams keep their own copy of every question, so an update is safe.
		slog.Info("file changed since last import, re-importing", "path", path)
	}

	docs, err := normalize.Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", path, err)
	}
	return docs, hash, nil
}

// importQuestions normalizes path into pool. An empty category defaults to
// the pool name. It returns the number of questions stored.
func (imp *importer) importQuestions(ctx context.Context, pool, path, category string) (int, error) {
	docs, hash, err := imp.read(ctx, path)
	if err != nil || docs == nil {
		return 0, err
	}
	if category == "" {
		category = pool
	}
	qs := normalize.NormalizeAll(docs, category)
	if err := imp.db.SaveQuestions(ctx, pool, qs); err != nil {
		return 0, fmt.Errorf("store questions from %s: %w", path, err)
	}
	if err := imp.db.SetImportedFileHash(ctx, path, hash); err != nil {
		return 0, fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported questions", "path", path, "pool", pool, "count", len(qs))
	return len(qs), nil
}

// importLessons normalizes path as passage-based lessons of section.
func (imp *importer) importLessons(ctx context.Context, section, path string) (int, error) {
	sec := question.Section(section)
	if !sec.PassageBased() {
		return 0, fmt.Errorf("%s: %q is not a passage-based section", path, section)
	}
	docs, hash, err := imp.read(ctx, path)
	if err != nil || docs == nil {
		return 0, err
	}
	lessons := make([]question.Lesson, len(docs))
	for i, d := range docs {
		lessons[i] = normalize.NormalizeLesson(d, sec)
	}
	if err := imp.db.SaveLessons(ctx, lessons); err != nil {
		return 0, fmt.Errorf("store lessons from %s: %w", path, err)
	}
	if err := imp.db.SetImportedFileHash(ctx, path, hash); err != nil {
		return 0, fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported lessons", "path", path, "section", sec, "count", len(lessons))
	return len(lessons), nil
}

type importOptions struct {
	pool     string
	category string
	section  string
}

// importFiles imports each argument, given as path or pool=path. A section
// imports the files as lessons; otherwise opts.pool, when set, overrides the
// pool taken from the argument.
func (imp *importer) importFiles(ctx context.Context, args []string, opts importOptions) (int, error) {
	total := 0
	for _, arg := range args {
		name, path := splitNamedPath(arg)
		var n int
		var err error
		if opts.section != "" {
			n, err = imp.importLessons(ctx, opts.section, path)
		} else {
			if opts.pool != "" {
				name = opts.pool
			}
			n, err = imp.importQuestions(ctx, name, path, opts.category)
		}
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
