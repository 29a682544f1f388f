package exam

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var studentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// JoinInput is what a student sends to start an exam.
type JoinInput struct {
	ExamCode  string `json:"examCode" validate:"required"`
	Name      string `json:"name" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
	School    string `json:"school" validate:"required"`
}

// SubmitInput is a finished attempt.
type SubmitInput struct {
	ExamCode    string            `json:"examCode" validate:"required"`
	StudentName string            `json:"studentName" validate:"required"`
	StudentID   string            `json:"studentId" validate:"required"`
	School      string            `json:"school"` // optional; grouped as "Unknown"
	Answers     map[string]string `json:"answers" validate:"required,min=1"`
}

// NewExamInput is an admin's exam definition.
type NewExamInput struct {
	Title     string     `json:"title"`
	Duration  int        `json:"duration"`
	Questions []Question `json:"questions"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("studentid", func(fl validator.FieldLevel) bool {
		return studentIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// checkRequired reports blank required fields of in.
func checkRequired(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return validationErr(CodeInvalidInput, "Invalid input: %v", err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return validationErr(CodeInvalidInput, "Missing required fields: %s", strings.Join(missing, ", "))
}

func checkStudentID(v *validator.Validate, id string) error {
	if err := v.Var(id, "studentid"); err != nil {
		return validationErr(CodeInvalidStudent, "Student ID may contain only letters, digits, hyphens and underscores")
	}
	return nil
}

// validateExam checks an exam definition before any code is assigned.
// Question numbers in messages are 1-based.
func validateExam(in NewExamInput) error {
	if strings.TrimSpace(in.Title) == "" || len(in.Questions) == 0 {
		return validationErr(CodeInvalidInput, "Invalid exam data: title and at least one question are required")
	}
	if in.Duration < 0 {
		return validationErr(CodeInvalidInput, "Invalid exam data: duration must not be negative")
	}
	for i, q := range in.Questions {
		n := i + 1
		if strings.TrimSpace(q.Question) == "" || q.Options == nil || q.Correct == "" {
			return validationErr(CodeInvalidInput, "Invalid question %d", n)
		}
		if len(q.Options) != len(OptionKeys) {
			return validationErr(CodeInvalidInput, "Invalid options for question %d", n)
		}
		for _, k := range OptionKeys {
			if _, ok := q.Options[k]; !ok {
				return validationErr(CodeInvalidInput, "Invalid options for question %d", n)
			}
		}
		if !isOptionKey(q.Correct) {
			return validationErr(CodeInvalidInput, "Invalid correct answer for question %d", n)
		}
	}
	return nil
}

func isOptionKey(s string) bool {
	for _, k := range OptionKeys {
		if s == k {
			return true
		}
	}
	return false
}
