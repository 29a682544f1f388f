package exam

import (
	"math/rand"
	"regexp"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// GenerateCode draws a 6-character code from A-Z0-9. Uniqueness is the
// caller's job.
func GenerateCode(r *rand.Rand) string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[r.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// ValidCode reports whether code has the generated-code shape.
func ValidCode(code string) bool { return codePattern.MatchString(code) }

// uniqueCode redraws until the code is absent from exams.
func uniqueCode(r *rand.Rand, exams map[string]Exam) string {
	for {
		c := GenerateCode(r)
		if _, taken := exams[c]; !taken {
			return c
		}
	}
}
