package exam

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joyat/exam-portal/internal/storage"
)

var testSchools = []string{"School of Engineering", "School of Science"}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// now advances one second per call so timestamps are strictly ordered.
func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T, opts ...Option) (*Service, *FileStore) {
	t.Helper()
	dir := t.TempDir()
	blob, err := storage.NewFSStore(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("data store: %v", err)
	}
	backups, err := storage.NewFSStore(filepath.Join(dir, "backups"))
	if err != nil {
		t.Fatalf("backup store: %v", err)
	}
	clock := &fixedClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	store := NewFileStore(blob)
	base := []Option{WithRand(rand.New(rand.NewSource(1))), WithClock(clock.now)}
	svc := NewService(store, backups, Settings{Schools: testSchools}, append(base, opts...)...)
	return svc, store
}

func mcq(text, correct string) Question {
	return Question{
		Question: text,
		Options:  map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
		Correct:  correct,
	}
}

func quiz(correct ...string) NewExamInput {
	in := NewExamInput{Title: "Quiz", Duration: 30}
	for i, c := range correct {
		in.Questions = append(in.Questions, mcq("Q"+string(rune('1'+i)), c))
	}
	return in
}

func wantKind(t *testing.T, err error, kind Kind, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("want %s/%s error, got nil", kind, code)
	}
	if KindOf(err) != kind || (code != "" && CodeOf(err) != code) {
		t.Fatalf("want %s/%s, got %s/%s (%v)", kind, code, KindOf(err), CodeOf(err), err)
	}
}

func TestQuizScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	code, err := svc.CreateExam(ctx, quiz("B"))
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	if !ValidCode(code) {
		t.Fatalf("bad code %q", code)
	}

	se, err := svc.Join(ctx, JoinInput{ExamCode: code, Name: "S1", StudentID: "001", School: testSchools[0]})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	b, _ := json.Marshal(se)
	var generic map[string]any
	_ = json.Unmarshal(b, &generic)
	for _, q := range generic["questions"].([]any) {
		if _, leaked := q.(map[string]any)["correct"]; leaked {
			t.Fatalf("answer key leaked to student: %s", b)
		}
	}

	out, err := svc.Submit(ctx, SubmitInput{
		ExamCode: code, StudentName: "S1", StudentID: "001", School: testSchools[0],
		Answers: map[string]string{"question_0": "B"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Score != 1 || out.Total != 1 || out.Percentage != 100.0 {
		t.Fatalf("outcome = %+v", out)
	}

	_, err = svc.Join(ctx, JoinInput{ExamCode: code, Name: "S1", StudentID: "001", School: testSchools[0]})
	wantKind(t, err, KindConflict, CodeAlreadyTaken)
	if !errors.Is(err, ErrAlreadyTaken) {
		t.Fatalf("errors.Is(ErrAlreadyTaken) = false for %v", err)
	}
}

func TestCreateExamValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	badOptions := mcq("q", "A")
	delete(badOptions.Options, "C")
	extraOption := mcq("q", "A")
	extraOption.Options["E"] = "e"

	tests := []struct {
		name string
		in   NewExamInput
		msg  string
	}{
		{name: "empty title", in: NewExamInput{Questions: []Question{mcq("q", "A")}}, msg: "Invalid exam data: title and at least one question are required"},
		{name: "no questions", in: NewExamInput{Title: "T"}, msg: "Invalid exam data: title and at least one question are required"},
		{name: "missing prompt", in: NewExamInput{Title: "T", Questions: []Question{mcq("q", "A"), {Options: mcq("", "A").Options, Correct: "A"}}}, msg: "Invalid question 2"},
		{name: "missing option", in: NewExamInput{Title: "T", Questions: []Question{badOptions}}, msg: "Invalid options for question 1"},
		{name: "extra option", in: NewExamInput{Title: "T", Questions: []Question{mcq("q", "A"), mcq("q", "B"), extraOption}}, msg: "Invalid options for question 3"},
		{name: "bad correct", in: NewExamInput{Title: "T", Questions: []Question{mcq("q", "E")}}, msg: "Invalid correct answer for question 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExam(ctx, tt.in)
			wantKind(t, err, KindValidation, CodeInvalidInput)
			if err.Error() != tt.msg {
				t.Errorf("message = %q, want %q", err.Error(), tt.msg)
			}
		})
	}

	list, _ := svc.ListExams(ctx)
	if len(list) != 0 {
		t.Fatalf("invalid exams were stored: %v", list)
	}
}

func TestCreateExamCodeUniqueAndActive(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	for i := 0; i < 20; i++ {
		before, _ := store.LoadExams(ctx)
		code, err := svc.CreateExam(ctx, quiz("A"))
		if err != nil {
			t.Fatalf("CreateExam: %v", err)
		}
		if _, existed := before[code]; existed {
			t.Fatalf("code %s reused", code)
		}
		after, _ := store.LoadExams(ctx)
		if e, ok := after[code]; !ok || !e.Active || e.Code != code {
			t.Fatalf("exam %s not stored active: %+v", code, e)
		}
	}
}

func TestListExamsNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	var codes []string
	for i := 0; i < 3; i++ {
		c, err := svc.CreateExam(ctx, quiz("A"))
		if err != nil {
			t.Fatal(err)
		}
		codes = append(codes, c)
	}
	list, err := svc.ListExams(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Code != codes[2] || list[2].Code != codes[0] {
		t.Fatalf("order = %v, created %v", []string{list[0].Code, list[1].Code, list[2].Code}, codes)
	}
	if list[0].Questions[0].Correct != "A" {
		t.Fatal("admin listing must include answer keys")
	}
}

func TestToggleAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	code, _ := svc.CreateExam(ctx, quiz("A"))

	active, err := svc.ToggleExam(ctx, code)
	if err != nil || active {
		t.Fatalf("first toggle = %v, %v", active, err)
	}
	_, err = svc.Join(ctx, JoinInput{ExamCode: code, Name: "n", StudentID: "s", School: testSchools[0]})
	wantKind(t, err, KindConflict, CodeInactive)

	active, err = svc.ToggleExam(ctx, code)
	if err != nil || !active {
		t.Fatalf("second toggle = %v, %v", active, err)
	}

	_, err = svc.ToggleExam(ctx, "nope00")
	wantKind(t, err, KindNotFound, CodeExamNotFound)

	if _, err := svc.Submit(ctx, SubmitInput{ExamCode: code, StudentName: "n", StudentID: "s", Answers: map[string]string{"question_0": "A"}}); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteExam(ctx, code); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	wantKind(t, svc.DeleteExam(ctx, code), KindNotFound, CodeExamNotFound)
	_, err = svc.GetExamDetails(ctx, code)
	wantKind(t, err, KindNotFound, CodeExamNotFound)

	results, _ := svc.ListResults(ctx)
	if len(results) != 1 || results[0].ExamCode != code {
		t.Fatalf("results should survive deletion, got %+v", results)
	}
}

func TestCodesAreCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	code, _ := svc.CreateExam(ctx, quiz("A"))

	lower := []byte(code)
	for i := range lower {
		if lower[i] >= 'A' && lower[i] <= 'Z' {
			lower[i] += 'a' - 'A'
		}
	}
	if _, err := svc.GetExamDetails(ctx, string(lower)); err != nil {
		t.Fatalf("GetExamDetails(%s): %v", lower, err)
	}
	if _, err := svc.Join(ctx, JoinInput{ExamCode: " " + string(lower) + " ", Name: "n", StudentID: "s", School: testSchools[0]}); err != nil {
		t.Fatalf("Join(%s): %v", lower, err)
	}
}

func TestJoinValidationOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	code, _ := svc.CreateExam(ctx, quiz("A"))

	tests := []struct {
		name string
		in   JoinInput
		kind Kind
		code string
	}{
		{name: "blank name", in: JoinInput{ExamCode: code, Name: "  ", StudentID: "001", School: testSchools[0]}, kind: KindValidation, code: CodeInvalidInput},
		{name: "blank everything", in: JoinInput{}, kind: KindValidation, code: CodeInvalidInput},
		{name: "unknown school", in: JoinInput{ExamCode: code, Name: "n", StudentID: "abc 123", School: "Nowhere"}, kind: KindValidation, code: CodeInvalidSchool},
		{name: "space in id", in: JoinInput{ExamCode: code, Name: "n", StudentID: "abc 123", School: testSchools[1]}, kind: KindValidation, code: CodeInvalidStudent},
		{name: "symbol in id", in: JoinInput{ExamCode: code, Name: "n", StudentID: "abc#1", School: testSchools[1]}, kind: KindValidation, code: CodeInvalidStudent},
		{name: "unknown code", in: JoinInput{ExamCode: "ZZZZZZ", Name: "n", StudentID: "abc-1_2", School: testSchools[1]}, kind: KindNotFound, code: CodeExamNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Join(ctx, tt.in)
			wantKind(t, err, tt.kind, tt.code)
		})
	}
}

func TestSubmitScoring(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	code, _ := svc.CreateExam(ctx, quiz("A", "B", "C"))

	out, err := svc.Submit(ctx, SubmitInput{
		ExamCode: code, StudentName: "n", StudentID: "s1", School: testSchools[0],
		Answers: map[string]string{"question_0": "A", "question_1": "C"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Score != 1 || out.Total != 3 || out.Percentage != 33.33 {
		t.Fatalf("outcome = %+v", out)
	}

	results, _ := svc.ListResults(ctx)
	r := results[0]
	if r.ID == "" || r.ExamTitle != "Quiz" || r.StudentID != "s1" || r.Score != 1 || r.Total != 3 || r.Submitted.IsZero() {
		t.Fatalf("stored result = %+v", r)
	}
}

func TestSubmitRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	code, _ := svc.CreateExam(ctx, quiz("A"))
	ok := map[string]string{"question_0": "A"}

	_, err := svc.Submit(ctx, SubmitInput{ExamCode: code, StudentName: "n", StudentID: "s"})
	wantKind(t, err, KindValidation, CodeInvalidInput)
	_, err = svc.Submit(ctx, SubmitInput{ExamCode: code, StudentName: "n", StudentID: "s", Answers: map[string]string{}})
	wantKind(t, err, KindValidation, CodeInvalidInput)
	_, err = svc.Submit(ctx, SubmitInput{ExamCode: code, StudentID: "s", Answers: ok})
	wantKind(t, err, KindValidation, CodeInvalidInput)
	_, err = svc.Submit(ctx, SubmitInput{ExamCode: "QQQQQQ", StudentName: "n", StudentID: "s", Answers: ok})
	wantKind(t, err, KindNotFound, CodeExamNotFound)

	if _, err := svc.Submit(ctx, SubmitInput{ExamCode: code, StudentName: "n", StudentID: "s", Answers: ok}); err != nil {
		t.Fatal(err)
	}
	_, err = svc.Submit(ctx, SubmitInput{ExamCode: code, StudentName: "n", StudentID: "s", Answers: ok})
	wantKind(t, err, KindConflict, CodeAlreadyTaken)
}

func TestSubmitEmptyExam(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	if err := store.SaveExams(ctx, map[string]Exam{"EMPTY1": {Code: "EMPTY1", Title: "Empty", Active: true}}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Submit(ctx, SubmitInput{ExamCode: "EMPTY1", StudentName: "n", StudentID: "s", Answers: map[string]string{"question_0": "A"}})
	wantKind(t, err, KindValidation, CodeEmptyExam)
}

func TestConcurrentSubmitsRecordOneResult(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	code, _ := svc.CreateExam(ctx, quiz("A"))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, SubmitInput{ExamCode: code, StudentName: "n", StudentID: "dup", Answers: map[string]string{"question_0": "A"}})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAlreadyTaken) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	results, _ := svc.ListResults(ctx)
	if succeeded != 1 || len(results) != 1 {
		t.Fatalf("succeeded=%d results=%d, want 1/1", succeeded, len(results))
	}
}

func TestConcurrentCreatesAreAllKept(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CreateExam(ctx, quiz("A")); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	list, _ := svc.ListExams(ctx)
	if len(list) != n {
		t.Fatalf("got %d exams, want %d", len(list), n)
	}
}

func TestExamDetailsStatistics(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	code, _ := svc.CreateExam(ctx, quiz("A", "B"))

	d, err := svc.GetExamDetails(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	st := d.Statistics
	if st.TotalAttempts != 0 || st.AverageScore != 0 || st.PassRate != 0 || len(st.SchoolStats) != 0 || len(d.Results) != 0 {
		t.Fatalf("empty stats = %+v", st)
	}

	submit := func(id, school string, answers map[string]string) {
		t.Helper()
		if _, err := svc.Submit(ctx, SubmitInput{ExamCode: code, StudentName: id, StudentID: id, School: school, Answers: answers}); err != nil {
			t.Fatal(err)
		}
	}
	submit("a", testSchools[0], map[string]string{"question_0": "A", "question_1": "B"})
	submit("b", testSchools[0], map[string]string{"question_0": "A"})
	submit("c", "", map[string]string{"question_0": "C"})

	other, _ := svc.CreateExam(ctx, quiz("A"))
	if _, err := svc.Submit(ctx, SubmitInput{ExamCode: other, StudentName: "x", StudentID: "x", Answers: map[string]string{"question_0": "A"}}); err != nil {
		t.Fatal(err)
	}

	d, err = svc.GetExamDetails(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	st = d.Statistics
	if len(d.Results) != 3 || st.TotalAttempts != 3 {
		t.Fatalf("results=%d attempts=%d", len(d.Results), st.TotalAttempts)
	}
	if st.AverageScore != 1 || st.MaxScore != 2 || st.MinScore != 0 {
		t.Fatalf("stats = %+v", st)
	}
	// pass mark 1.2 of 2: only the perfect score passes.
	if st.PassRate != 33.33 {
		t.Fatalf("PassRate = %v", st.PassRate)
	}
	if eng := st.SchoolStats[testSchools[0]]; eng.Count != 2 || eng.TotalScore != 3 || eng.AvgScore != 1.5 {
		t.Fatalf("school stats = %+v", eng)
	}
	if u := st.SchoolStats["Unknown"]; u.Count != 1 {
		t.Fatalf("unknown stats = %+v", u)
	}
}

func TestListSchoolsIsACopy(t *testing.T) {
	svc, _ := newTestService(t)
	s := svc.ListSchools()
	s[0] = "changed"
	if svc.ListSchools()[0] != testSchools[0] {
		t.Fatal("ListSchools exposed internal slice")
	}
}

func TestHealthCounts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	code, _ := svc.CreateExam(ctx, quiz("A"))
	_, _ = svc.Submit(ctx, SubmitInput{ExamCode: code, StudentName: "n", StudentID: "s", Answers: map[string]string{"question_0": "A"}})

	h, err := svc.Health(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if h.Exams != 1 || h.Results != 1 {
		t.Fatalf("health = %+v", h)
	}
}

func TestListExamsKeepsCreationOrderOnTies(t *testing.T) {
	ctx := context.Background()
	same := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, WithClock(func() time.Time { return same }))

	var codes []string
	for i := 0; i < 5; i++ {
		c, err := svc.CreateExam(ctx, quiz("A"))
		if err != nil {
			t.Fatal(err)
		}
		codes = append(codes, c)
	}
	list, err := svc.ListExams(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range list {
		if e.Code != codes[i] {
			t.Fatalf("position %d = %s, want %s (created order %v)", i, e.Code, codes[i], codes)
		}
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	code, _ := svc.CreateExam(ctx, quiz("A"))
	if _, err := svc.ToggleExam(ctx, code); err != nil {
		t.Fatal(err)
	}

	_, invalid := svc.CreateExam(ctx, NewExamInput{})
	_, missing := svc.ToggleExam(ctx, "NOPE00")
	_, inactive := svc.Join(ctx, JoinInput{ExamCode: code, Name: "n", StudentID: "s", School: testSchools[0]})
	_, noActive := svc.Join(ctx, JoinInput{ExamCode: "APTITUDE", Name: "n", StudentID: "s", School: testSchools[0]})
	duplicate := svc.CreateExamWithCode(ctx, code, quiz("A"))

	blob, _ := storage.NewFSStore(t.TempDir())
	broken := NewService(NewFileStore(readOnlyBlob{blob}), nil, Settings{Schools: testSchools})
	_, storageFailure := broken.CreateExam(ctx, quiz("A"))

	tests := []struct {
		name  string
		err   error
		is    []error
		isNot []error
	}{
		{name: "invalid exam", err: invalid, is: []error{ErrValidation}, isNot: []error{ErrConflict}},
		{name: "unknown exam", err: missing, is: []error{ErrNotFound}},
		{name: "inactive", err: inactive, is: []error{ErrConflict, ErrInactive}, isNot: []error{ErrAlreadyTaken}},
		{name: "empty pool", err: noActive, is: []error{ErrConflict, ErrNoActiveExam}, isNot: []error{ErrInactive}},
		{name: "taken code", err: duplicate, is: []error{ErrConflict, ErrDuplicateCode}},
		{name: "write failure", err: storageFailure, is: []error{ErrStorage}, isNot: []error{ErrValidation}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, target := range tt.is {
				if !errors.Is(tt.err, target) {
					t.Errorf("errors.Is(%v, %+v) = false", tt.err, target)
				}
			}
			for _, target := range tt.isNot {
				if errors.Is(tt.err, target) {
					t.Errorf("errors.Is(%v, %+v) = true", tt.err, target)
				}
			}
		})
	}
}
