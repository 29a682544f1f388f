package exam

import (
	"context"
	"math/rand"
	"strings"
	"testing"
)

func TestPoolResolveOnlyActivePresentMembers(t *testing.T) {
	pt := PoolTable{Version: 1, Pools: map[string][]string{"BIOLOGY": {"BIO101", "BIO102", "BIO103", "BIO104"}}}
	exams := map[string]Exam{
		"BIO101": {Code: "BIO101", Active: true},
		"BIO102": {Code: "BIO102", Active: false},
		"BIO104": {Code: "BIO104", Active: true},
	}
	r := rand.New(rand.NewSource(7))
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		got, err := pt.Resolve("BIOLOGY", exams, r.Intn)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		seen[got]++
	}
	if len(seen) != 2 || seen["BIO101"] == 0 || seen["BIO104"] == 0 {
		t.Fatalf("resolved outside the active subset: %v", seen)
	}
}

func TestPoolResolveUsesPick(t *testing.T) {
	pt := PoolTable{Pools: map[string][]string{"P": {"AAA111", "BBB222", "CCC333"}}}
	exams := map[string]Exam{
		"AAA111": {Active: true}, "BBB222": {Active: true}, "CCC333": {Active: true},
	}
	for i, want := range []string{"AAA111", "BBB222", "CCC333"} {
		got, err := pt.Resolve("P", exams, func(n int) int {
			if n != 3 {
				t.Fatalf("pick called with n=%d", n)
			}
			return i
		})
		if err != nil || got != want {
			t.Fatalf("pick %d: got %q, %v", i, got, err)
		}
	}
}

func TestPoolResolveNoActive(t *testing.T) {
	pt := PoolTable{Pools: map[string][]string{"COMPSCI": {"CSC101"}}}
	_, err := pt.Resolve("COMPSCI", map[string]Exam{"CSC101": {Active: false}}, func(int) int { return 0 })
	wantKind(t, err, KindConflict, CodeNoActiveExam)
	if !strings.Contains(err.Error(), "COMPSCI") {
		t.Fatalf("error should name the pool: %v", err)
	}
}

func TestPoolResolvePassThrough(t *testing.T) {
	got, err := DefaultPools.Resolve("ABC123", nil, func(int) int { panic("not a pool") })
	if err != nil || got != "ABC123" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestLoadPoolTable(t *testing.T) {
	pt, err := LoadPoolTable(strings.NewReader(`{"version":3,"pools":{"chem":["chm101"," CHM102 "]}}`))
	if err != nil {
		t.Fatal(err)
	}
	if pt.Version != 3 || !pt.IsPool("CHEM") || pt.Pools["CHEM"][1] != "CHM102" {
		t.Fatalf("table = %+v", pt)
	}

	for _, bad := range []string{`{`, `{"version":1}`, `{"pools":{"X":[]}}`} {
		if _, err := LoadPoolTable(strings.NewReader(bad)); err == nil {
			t.Errorf("LoadPoolTable(%s) should fail", bad)
		}
	}
}

func TestJoinThroughPool(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for _, c := range []string{"CSC101", "CSC102", "CSC103"} {
		if err := svc.CreateExamWithCode(ctx, c, quiz("A")); err != nil {
			t.Fatalf("CreateExamWithCode(%s): %v", c, err)
		}
	}
	if _, err := svc.ToggleExam(ctx, "CSC102"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 30; i++ {
		se, err := svc.Join(ctx, JoinInput{ExamCode: "compsci", Name: "n", StudentID: "s", School: testSchools[0]})
		if err != nil {
			t.Fatalf("Join: %v", err)
		}
		if se.Code != "CSC101" && se.Code != "CSC103" {
			t.Fatalf("pool resolved to %s", se.Code)
		}
	}

	_, err := svc.Join(ctx, JoinInput{ExamCode: "BIOLOGY", Name: "n", StudentID: "s", School: testSchools[0]})
	wantKind(t, err, KindConflict, CodeNoActiveExam)
}

func TestCreateExamWithCode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	if err := svc.CreateExamWithCode(ctx, "bio101", quiz("A")); err != nil {
		t.Fatal(err)
	}
	wantKind(t, svc.CreateExamWithCode(ctx, "BIO101", quiz("A")), KindConflict, CodeDuplicateCode)
	wantKind(t, svc.CreateExamWithCode(ctx, "TOOLONG1", quiz("A")), KindValidation, CodeInvalidInput)
}

func TestGenerateCode(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		c := GenerateCode(r)
		if !ValidCode(c) {
			t.Fatalf("GenerateCode produced %q", c)
		}
	}
	for _, bad := range []string{"abc123", "ABC12", "ABC1234", "ABC-12"} {
		if ValidCode(bad) {
			t.Errorf("ValidCode(%q) = true", bad)
		}
	}
}

func TestUniqueCodeRedraws(t *testing.T) {
	first := GenerateCode(rand.New(rand.NewSource(3)))
	got := uniqueCode(rand.New(rand.NewSource(3)), map[string]Exam{first: {}})
	if got == first {
		t.Fatalf("uniqueCode returned taken code %s", got)
	}
}
