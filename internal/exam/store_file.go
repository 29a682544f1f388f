package exam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/joyat/exam-portal/internal/storage"
)

const (
	examsKey   = "exams.json"
	resultsKey = "results.json"
)

// FileStore keeps each collection as one JSON document in a BlobStore.
// Reads share the lock; writes and Update hold it exclusively.
type FileStore struct {
	mu   sync.RWMutex
	blob storage.BlobStore
}

func NewFileStore(blob storage.BlobStore) *FileStore {
	return &FileStore{blob: blob}
}

func (s *FileStore) LoadExams(_ context.Context) (map[string]Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadExams(), nil
}

func (s *FileStore) SaveExams(_ context.Context, exams map[string]Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(examsKey, exams)
}

func (s *FileStore) LoadResults(_ context.Context) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadResults(), nil
}

func (s *FileStore) SaveResults(_ context.Context, results []Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(resultsKey, results)
}

// Update only rewrites the collections fn actually changed.
func (s *FileStore) Update(ctx context.Context, fn func(c *Collections) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	c := &Collections{Exams: s.loadExams(), Results: s.loadResults()}
	examsBefore, err := encode(c.Exams)
	if err != nil {
		return err
	}
	resultsBefore, err := encode(c.Results)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	if err := s.writeIfChanged(examsKey, examsBefore, c.Exams); err != nil {
		return err
	}
	return s.writeIfChanged(resultsKey, resultsBefore, c.Results)
}

func (s *FileStore) View(ctx context.Context, fn func(c *Collections) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&Collections{Exams: s.loadExams(), Results: s.loadResults()})
}

func (s *FileStore) loadExams() map[string]Exam {
	exams := map[string]Exam{}
	if !s.read(examsKey, &exams) || exams == nil {
		return map[string]Exam{}
	}
	return exams
}

func (s *FileStore) loadResults() []Result {
	var results []Result
	if !s.read(resultsKey, &results) || results == nil {
		return []Result{}
	}
	return results
}

// read decodes key into v. Missing and unreadable documents report false;
// the latter are logged.
func (s *FileStore) read(key string, v any) bool {
	rc, err := s.blob.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		log.Printf("store: read %s: %v (treating as empty)", key, err)
		return false
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		log.Printf("store: read %s: %v (treating as empty)", key, err)
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		log.Printf("store: corrupt %s: %v (treating as empty)", key, err)
		return false
	}
	return true
}

func encode(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (s *FileStore) write(key string, v any) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	return s.put(key, b)
}

func (s *FileStore) writeIfChanged(key string, before []byte, v any) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	if bytes.Equal(b, before) {
		return nil
	}
	return s.put(key, b)
}

func (s *FileStore) put(key string, b []byte) error {
	if _, err := s.blob.Put(key, bytes.NewReader(b)); err != nil {
		log.Printf("store: write %s: %v", key, err)
		return err
	}
	return nil
}
