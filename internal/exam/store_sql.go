package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// SQLStore keeps the collections in the exams and results tables created by
// db.Open. Saves replace the whole table inside one transaction.
type SQLStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) LoadExams(ctx context.Context) (map[string]Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadExams(ctx, s.db)
}

func (s *SQLStore) SaveExams(ctx context.Context, exams map[string]Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error { return saveExams(ctx, tx, exams) })
}

func (s *SQLStore) LoadResults(ctx context.Context) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadResults(ctx, s.db)
}

func (s *SQLStore) SaveResults(ctx context.Context, results []Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error { return saveResults(ctx, tx, results) })
}

func (s *SQLStore) Update(ctx context.Context, fn func(c *Collections) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		exams, err := s.loadExams(ctx, tx)
		if err != nil {
			return err
		}
		results, err := s.loadResults(ctx, tx)
		if err != nil {
			return err
		}
		c := &Collections{Exams: exams, Results: results}
		if err := fn(c); err != nil {
			return err
		}
		if err := saveExams(ctx, tx, c.Exams); err != nil {
			return err
		}
		return saveResults(ctx, tx, c.Results)
	})
}

// View reads both tables inside one transaction.
func (s *SQLStore) View(ctx context.Context, fn func(c *Collections) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	exams, err := s.loadExams(ctx, tx)
	if err != nil {
		return err
	}
	results, err := s.loadResults(ctx, tx)
	if err != nil {
		return err
	}
	return fn(&Collections{Exams: exams, Results: results})
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// loadExams skips rows whose questions cannot be decoded, mirroring the
// file store's corrupt-read behavior.
func (s *SQLStore) loadExams(ctx context.Context, q querier) (map[string]Exam, error) {
	rows, err := q.QueryContext(ctx, `SELECT code,title,duration,questions_json,created_at,active,seq FROM exams`)
	if err != nil {
		return nil, fmt.Errorf("%s: load exams: %w", s.driver, err)
	}
	defer rows.Close()

	exams := map[string]Exam{}
	for rows.Next() {
		var (
			e       Exam
			qjson   string
			created string
		)
		if err := rows.Scan(&e.Code, &e.Title, &e.Duration, &qjson, &created, &e.Active, &e.Seq); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(qjson), &e.Questions); err != nil {
			log.Printf("store: exam %s has corrupt questions: %v (skipped)", e.Code, err)
			continue
		}
		if e.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			log.Printf("store: exam %s has bad created_at %q: %v", e.Code, created, err)
		}
		exams[e.Code] = e
	}
	return exams, rows.Err()
}

func (s *SQLStore) loadResults(ctx context.Context, q querier) ([]Result, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,exam_code,exam_title,student_name,student_id,school,score,total,percentage,answers_json,submitted_at
		FROM results ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%s: load results: %w", s.driver, err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var (
			r         Result
			ajson     string
			submitted string
		)
		if err := rows.Scan(&r.ID, &r.ExamCode, &r.ExamTitle, &r.StudentName, &r.StudentID, &r.School,
			&r.Score, &r.Total, &r.Percentage, &ajson, &submitted); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ajson), &r.Answers); err != nil {
			log.Printf("store: result %s has corrupt answers: %v", r.ID, err)
		}
		if r.Submitted, err = time.Parse(time.RFC3339Nano, submitted); err != nil {
			log.Printf("store: result %s has bad submitted_at %q: %v", r.ID, submitted, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func saveExams(ctx context.Context, tx *sql.Tx, exams map[string]Exam) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM exams`); err != nil {
		return err
	}
	for code, e := range exams {
		qj, err := json.Marshal(e.Questions)
		if err != nil {
			return fmt.Errorf("encode exam %s: %w", code, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO exams (code,title,duration,questions_json,created_at,active,seq)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			code, e.Title, e.Duration, string(qj), e.Created.Format(time.RFC3339Nano), e.Active, e.Seq)
		if err != nil {
			return err
		}
	}
	return nil
}

func saveResults(ctx context.Context, tx *sql.Tx, results []Result) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return err
	}
	for i, r := range results {
		aj, err := json.Marshal(r.Answers)
		if err != nil {
			return fmt.Errorf("encode result %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO results
			(id,seq,exam_code,exam_title,student_name,student_id,school,score,total,percentage,answers_json,submitted_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			r.ID, i, r.ExamCode, r.ExamTitle, r.StudentName, r.StudentID, r.School,
			r.Score, r.Total, r.Percentage, string(aj), r.Submitted.Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
	}
	return nil
}
