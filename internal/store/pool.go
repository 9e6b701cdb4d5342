package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/examprep/internal/compose"
	"github.com/pavelanni/examprep/internal/question"
)

// PoolInfo is a pool name with the number of questions in it.
type PoolInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// SaveQuestions upserts canonical questions into pool. A question already
// in the pool with the same id is replaced.
func (s *Store) SaveQuestions(ctx context.Context, pool string, qs []question.Question) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range qs {
			body, err := json.Marshal(q)
			if err != nil {
				return fmt.Errorf("encode question %s: %w", q.ID, err)
			}
			err = s.exec(ctx, tx,
				`INSERT INTO questions (pool, id, category, ordinal, kind, body) VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT (pool, id) DO UPDATE SET
				   category = excluded.category, ordinal = excluded.ordinal, kind = excluded.kind, body = excluded.body`,
				pool, q.ID, q.Category, q.Ordinal, string(q.Kind()), string(body),
			)
			if err != nil {
				return fmt.Errorf("insert question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}

// Pool returns the questions of one pool ordered by ordinal.
func (s *Store) Pool(ctx context.Context, name string) ([]question.Question, error) {
	rows, err := s.query(ctx, `SELECT body FROM questions WHERE pool = ? ORDER BY ordinal, id`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var qs []question.Question
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var q question.Question
		if err := json.Unmarshal([]byte(body), &q); err != nil {
			return nil, fmt.Errorf("decode question in pool %s: %w", name, err)
		}
		qs = append(qs, q)
	}
	return qs, rows.Err()
}

// Pools lists every pool with its size.
func (s *Store) Pools(ctx context.Context) ([]PoolInfo, error) {
	rows, err := s.query(ctx, `SELECT pool, COUNT(*) FROM questions GROUP BY pool ORDER BY pool`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pools []PoolInfo
	for rows.Next() {
		var p PoolInfo
		if err := rows.Scan(&p.Name, &p.Size); err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// QuestionCount returns the number of questions across all pools.
func (s *Store) QuestionCount(ctx context.Context) (int, error) {
	var count int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// SaveLessons upserts lessons by id.
func (s *Store) SaveLessons(ctx context.Context, lessons []question.Lesson) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, l := range lessons {
			body, err := json.Marshal(l)
			if err != nil {
				return fmt.Errorf("encode lesson %s: %w", l.ID, err)
			}
			err = s.exec(ctx, tx,
				`INSERT INTO lessons (id, section, title, body) VALUES (?, ?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET section = excluded.section, title = excluded.title, body = excluded.body`,
				l.ID, string(l.Section), l.Title, string(body),
			)
			if err != nil {
				return fmt.Errorf("insert lesson %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

// Lessons returns the lessons of one section ordered by id.
func (s *Store) Lessons(ctx context.Context, section question.Section) ([]question.Lesson, error) {
	rows, err := s.query(ctx, `SELECT body FROM lessons WHERE section = ? ORDER BY id`, string(section))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lessons []question.Lesson
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var l question.Lesson
		if err := json.Unmarshal([]byte(body), &l); err != nil {
			return nil, fmt.Errorf("decode lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// Catalog loads every pool and lesson section bp refers to.
func (s *Store) Catalog(ctx context.Context, bp compose.Blueprint) (compose.Catalog, error) {
	cat := compose.Catalog{
		Pools:   make(map[string][]question.Question),
		Lessons: make(map[question.Section][]question.Lesson),
	}
	for _, p := range bp.Parts {
		if _, ok := cat.Pools[p.Pool]; ok {
			continue
		}
		qs, err := s.Pool(ctx, p.Pool)
		if err != nil {
			return cat, fmt.Errorf("load pool %s: %w", p.Pool, err)
		}
		cat.Pools[p.Pool] = qs
	}
	for _, sec := range bp.Lessons {
		ls, err := s.Lessons(ctx, sec)
		if err != nil {
			return cat, fmt.Errorf("load %s lessons: %w", sec, err)
		}
		cat.Lessons[sec] = ls
	}
	return cat, nil
}
