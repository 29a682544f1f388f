package grading

import (
	"errors"
	"fmt"
	"strconv"
)

// PassRatio is the share of questions a student must answer correctly to pass.
const PassRatio = 0.6

// ErrNoQuestions is returned when scoring an exam without questions.
var ErrNoQuestions = errors.New("exam has no questions")

// Outcome is the graded result of one submission.
type Outcome struct {
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// AnswerKey returns the positional answer key used in submissions.
func AnswerKey(i int) string { return fmt.Sprintf("question_%d", i) }

// Score compares answers against the ordered key. A question scores one point
// on an exact match with answers["question_<i>"]; missing or different
// answers score nothing.
func Score(key []string, answers map[string]string) (Outcome, error) {
	if len(key) == 0 {
		return Outcome{}, ErrNoQuestions
	}
	out := Outcome{Total: len(key)}
	for i, correct := range key {
		if got, ok := answers[AnswerKey(i)]; ok && got == correct {
			out.Score++
		}
	}
	out.Percentage = Round2(float64(out.Score) / float64(out.Total) * 100)
	return out, nil
}

// Round2 rounds the exact binary value of v to two decimals. Exact ties go
// to the even digit, so 3.125 becomes 3.12 while 2.675 (stored just below)
// becomes 2.67.
func Round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}
