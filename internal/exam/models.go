package exam

import "time"

// OptionKeys are the choice letters every question carries, in display order.
var OptionKeys = []string{"A", "B", "C", "D"}

type Question struct {
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Correct  string            `json:"correct"`
	Section  string            `json:"section,omitempty"` // multi-subject exams only
}

type Exam struct {
	Code      string     `json:"code"`
	Title     string     `json:"title"`
	Duration  int        `json:"duration"` // minutes, enforced by the client
	Questions []Question `json:"questions"`
	Created   time.Time  `json:"created"`
	Active    bool       `json:"active"`
	Seq       int64      `json:"seq"` // insertion order, breaks ties on Created
}

// Result is one submission. ExamTitle is copied at submission time so the
// record survives later deletion of the exam.
type Result struct {
	ID          string            `json:"id"`
	ExamCode    string            `json:"examCode"`
	ExamTitle   string            `json:"examTitle"`
	StudentName string            `json:"studentName"`
	StudentID   string            `json:"studentId"`
	School      string            `json:"school"`
	Score       int               `json:"score"`
	Total       int               `json:"total"`
	Percentage  float64           `json:"percentage"`
	Answers     map[string]string `json:"answers"`
	Submitted   time.Time         `json:"submitted"`
}

// StudentQuestion is a question as handed to a student: no answer key.
type StudentQuestion struct {
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Section  string            `json:"section,omitempty"`
}

type StudentExam struct {
	Code      string            `json:"code"`
	Title     string            `json:"title"`
	Duration  int               `json:"duration"`
	Questions []StudentQuestion `json:"questions"`
}

// Collections is the full persisted state.
type Collections struct {
	Exams   map[string]Exam
	Results []Result
}

// Snapshot is the document written by Backup and read by Restore.
type Snapshot struct {
	Version int             `json:"version"`
	Created time.Time       `json:"created"`
	Exams   map[string]Exam `json:"exams"`
	Results []Result        `json:"results"`
	Schools []string        `json:"schools"`
}

// BackupInfo describes a stored snapshot.
type BackupInfo struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created,omitempty"`
}
