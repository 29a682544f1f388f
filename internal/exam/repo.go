package exam

import "context"

// Store persists the exam and result collections as whole snapshots.
// Load methods degrade to empty collections on unreadable data; Update runs
// fn against freshly loaded collections under the writer lock and saves
// whatever fn leaves behind when it returns nil. View hands fn both
// collections read under one reader lock, so it never sees half of an Update.
type Store interface {
	LoadExams(ctx context.Context) (map[string]Exam, error)
	SaveExams(ctx context.Context, exams map[string]Exam) error
	LoadResults(ctx context.Context) ([]Result, error)
	SaveResults(ctx context.Context, results []Result) error
	Update(ctx context.Context, fn func(c *Collections) error) error
	View(ctx context.Context, fn func(c *Collections) error) error
}
