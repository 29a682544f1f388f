package exam

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/joyat/exam-portal/internal/grading"
	"github.com/joyat/exam-portal/internal/storage"
)

// Settings is the fixed configuration the service runs with.
type Settings struct {
	Schools []string
	Pools   PoolTable
}

type Option func(*Service)

// WithRand fixes the random source used for codes and pool draws.
func WithRand(r *rand.Rand) Option { return func(s *Service) { s.rng = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// Service implements the exam portal operations. It keeps no state between
// calls beyond its configuration: every operation reloads from the Store.
type Service struct {
	store    Store
	backups  storage.BlobStore
	settings Settings
	validate *validator.Validate

	rmu sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewService(store Store, backups storage.BlobStore, settings Settings, opts ...Option) *Service {
	if settings.Pools.Pools == nil {
		settings.Pools = DefaultPools
	}
	s := &Service{
		store:    store,
		backups:  backups,
		settings: settings,
		validate: newValidator(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ExamDetails is the admin view of one exam.
type ExamDetails struct {
	Exam       Exam               `json:"exam"`
	Results    []Result           `json:"results"`
	Statistics grading.Statistics `json:"statistics"`
}

// Health is a cheap summary of stored state.
type Health struct {
	Exams   int `json:"exams_count"`
	Results int `json:"results_count"`
}

func normalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func (s *Service) intn(n int) int {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return s.rng.Intn(n)
}

func (s *Service) newCode(exams map[string]Exam) string {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return uniqueCode(s.rng, exams)
}

// update runs fn under the store's writer lock and maps plain errors to
// storage errors.
func (s *Service) update(ctx context.Context, fn func(c *Collections) error) error {
	err := s.store.Update(ctx, fn)
	if err == nil || KindOf(err) != "" {
		return err
	}
	return storageErr("Failed to save data", err)
}

// view loads both collections from one consistent read of the store.
func (s *Service) view(ctx context.Context) (*Collections, error) {
	var snap *Collections
	err := s.store.View(ctx, func(c *Collections) error {
		snap = c
		return nil
	})
	if err != nil {
		return nil, storageErr("Failed to load data", err)
	}
	return snap, nil
}

func (s *Service) loadExams(ctx context.Context) (map[string]Exam, error) {
	exams, err := s.store.LoadExams(ctx)
	if err != nil {
		return nil, storageErr("Failed to load exams", err)
	}
	return exams, nil
}

func (s *Service) loadResults(ctx context.Context) ([]Result, error) {
	results, err := s.store.LoadResults(ctx)
	if err != nil {
		return nil, storageErr("Failed to load results", err)
	}
	return results, nil
}

// CreateExam validates in, assigns a fresh code and stores the exam as active.
func (s *Service) CreateExam(ctx context.Context, in NewExamInput) (string, error) {
	if err := validateExam(in); err != nil {
		return "", err
	}
	var code string
	err := s.update(ctx, func(c *Collections) error {
		code = s.newCode(c.Exams)
		c.Exams[code] = s.buildExam(code, in, c.Exams)
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Printf("exam %s created (%q, %d questions)", code, in.Title, len(in.Questions))
	return code, nil
}

// CreateExamWithCode stores an exam under a caller-chosen code. It is meant
// for bootstrapping pool members, whose codes are fixed by the pool table.
func (s *Service) CreateExamWithCode(ctx context.Context, code string, in NewExamInput) error {
	code = normalizeCode(code)
	if !ValidCode(code) {
		return validationErr(CodeInvalidInput, "Exam code %q must be 6 letters or digits", code)
	}
	if err := validateExam(in); err != nil {
		return err
	}
	return s.update(ctx, func(c *Collections) error {
		if _, taken := c.Exams[code]; taken {
			return conflictErr(CodeDuplicateCode, "Exam code %s already exists", code)
		}
		c.Exams[code] = s.buildExam(code, in, c.Exams)
		return nil
	})
}

func (s *Service) buildExam(code string, in NewExamInput, existing map[string]Exam) Exam {
	qs := make([]Question, len(in.Questions))
	copy(qs, in.Questions)
	var seq int64
	for _, e := range existing {
		if e.Seq > seq {
			seq = e.Seq
		}
	}
	return Exam{
		Code:      code,
		Title:     strings.TrimSpace(in.Title),
		Duration:  in.Duration,
		Questions: qs,
		Created:   s.now(),
		Active:    true,
		Seq:       seq + 1,
	}
}

// ListExams returns every exam, newest first. Exams created at the same
// instant keep the order they were created in.
func (s *Service) ListExams(ctx context.Context) ([]Exam, error) {
	exams, err := s.loadExams(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]Exam, 0, len(exams))
	for _, e := range exams {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Created.Equal(b.Created) {
			return a.Created.After(b.Created)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.Code < b.Code // restored exams without a sequence
	})
	return list, nil
}

func (s *Service) GetExamDetails(ctx context.Context, code string) (ExamDetails, error) {
	code = normalizeCode(code)
	snap, err := s.view(ctx)
	if err != nil {
		return ExamDetails{}, err
	}
	e, ok := snap.Exams[code]
	if !ok {
		return ExamDetails{}, notFoundErr(CodeExamNotFound, "Exam not found")
	}

	mine := []Result{}
	attempts := []grading.Attempt{}
	for _, r := range snap.Results {
		if r.ExamCode == code {
			mine = append(mine, r)
			attempts = append(attempts, grading.Attempt{Score: r.Score, School: r.School})
		}
	}
	return ExamDetails{
		Exam:       e,
		Results:    mine,
		Statistics: grading.Summarize(attempts, len(e.Questions)),
	}, nil
}

// DeleteExam removes the exam. Its results are kept.
func (s *Service) DeleteExam(ctx context.Context, code string) error {
	code = normalizeCode(code)
	err := s.update(ctx, func(c *Collections) error {
		if _, ok := c.Exams[code]; !ok {
			return notFoundErr(CodeExamNotFound, "Exam not found")
		}
		delete(c.Exams, code)
		return nil
	})
	if err == nil {
		log.Printf("exam %s deleted", code)
	}
	return err
}

// ToggleExam flips the exam's active flag and returns the new value.
func (s *Service) ToggleExam(ctx context.Context, code string) (bool, error) {
	code = normalizeCode(code)
	var active bool
	err := s.update(ctx, func(c *Collections) error {
		e, ok := c.Exams[code]
		if !ok {
			return notFoundErr(CodeExamNotFound, "Exam not found")
		}
		e.Active = !e.Active
		c.Exams[code] = e
		active = e.Active
		return nil
	})
	if err != nil {
		return false, err
	}
	log.Printf("exam %s active=%v", code, active)
	return active, nil
}

func (s *Service) knownSchool(school string) bool {
	for _, sc := range s.settings.Schools {
		if sc == school {
			return true
		}
	}
	return false
}

func hasResult(results []Result, code, studentID string) bool {
	for _, r := range results {
		if r.ExamCode == code && r.StudentID == studentID {
			return true
		}
	}
	return false
}

// Join checks that the student may sit the exam and returns it without
// answer keys. Pool codes are resolved to one active member exam.
func (s *Service) Join(ctx context.Context, in JoinInput) (StudentExam, error) {
	in.ExamCode = normalizeCode(in.ExamCode)
	in.Name = strings.TrimSpace(in.Name)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.School = strings.TrimSpace(in.School)

	if err := checkRequired(s.validate, in); err != nil {
		return StudentExam{}, err
	}
	if !s.knownSchool(in.School) {
		return StudentExam{}, validationErr(CodeInvalidSchool, "Invalid school selected")
	}
	if err := checkStudentID(s.validate, in.StudentID); err != nil {
		return StudentExam{}, err
	}

	snap, err := s.view(ctx)
	if err != nil {
		return StudentExam{}, err
	}
	code, err := s.settings.Pools.Resolve(in.ExamCode, snap.Exams, s.intn)
	if err != nil {
		return StudentExam{}, err
	}
	e, ok := snap.Exams[code]
	if !ok {
		return StudentExam{}, notFoundErr(CodeExamNotFound, "Invalid exam code")
	}
	if !e.Active {
		return StudentExam{}, conflictErr(CodeInactive, "Exam is not active")
	}

	if hasResult(snap.Results, code, in.StudentID) {
		return StudentExam{}, conflictErr(CodeAlreadyTaken, "You have already taken this exam")
	}
	return studentView(e), nil
}

func studentView(e Exam) StudentExam {
	out := StudentExam{
		Code:      e.Code,
		Title:     e.Title,
		Duration:  e.Duration,
		Questions: make([]StudentQuestion, 0, len(e.Questions)),
	}
	for _, q := range e.Questions {
		opts := make(map[string]string, len(q.Options))
		for k, v := range q.Options {
			opts[k] = v
		}
		out.Questions = append(out.Questions, StudentQuestion{Question: q.Question, Options: opts, Section: q.Section})
	}
	return out
}

// Submit scores the answers against the exam's current questions and records
// the result. A second submission for the same exam and student is rejected.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (grading.Outcome, error) {
	in.ExamCode = normalizeCode(in.ExamCode)
	in.StudentName = strings.TrimSpace(in.StudentName)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.School = strings.TrimSpace(in.School)

	if err := checkRequired(s.validate, in); err != nil {
		return grading.Outcome{}, err
	}
	if err := checkStudentID(s.validate, in.StudentID); err != nil {
		return grading.Outcome{}, err
	}

	var out grading.Outcome
	err := s.update(ctx, func(c *Collections) error {
		e, ok := c.Exams[in.ExamCode]
		if !ok {
			return notFoundErr(CodeExamNotFound, "Invalid exam code")
		}
		if hasResult(c.Results, e.Code, in.StudentID) {
			return conflictErr(CodeAlreadyTaken, "You have already taken this exam")
		}
		key := make([]string, len(e.Questions))
		for i, q := range e.Questions {
			key[i] = q.Correct
		}
		var err error
		out, err = grading.Score(key, in.Answers)
		if errors.Is(err, grading.ErrNoQuestions) {
			return validationErr(CodeEmptyExam, "Exam %s has no questions", e.Code)
		}
		if err != nil {
			return err
		}
		c.Results = append(c.Results, Result{
			ID:          uuid.NewString(),
			ExamCode:    e.Code,
			ExamTitle:   e.Title,
			StudentName: in.StudentName,
			StudentID:   in.StudentID,
			School:      in.School,
			Score:       out.Score,
			Total:       out.Total,
			Percentage:  out.Percentage,
			Answers:     in.Answers,
			Submitted:   s.now(),
		})
		return nil
	})
	if err != nil {
		return grading.Outcome{}, err
	}
	log.Printf("exam %s submitted by %s: %d/%d", in.ExamCode, in.StudentID, out.Score, out.Total)
	return out, nil
}

// ListResults returns every result, newest first.
func (s *Service) ListResults(ctx context.Context) ([]Result, error) {
	results, err := s.loadResults(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Submitted.After(results[j].Submitted) })
	return results, nil
}

func (s *Service) ListSchools() []string {
	return append([]string(nil), s.settings.Schools...)
}

func (s *Service) Health(ctx context.Context) (Health, error) {
	snap, err := s.view(ctx)
	if err != nil {
		return Health{}, err
	}
	return Health{Exams: len(snap.Exams), Results: len(snap.Results)}, nil
}
