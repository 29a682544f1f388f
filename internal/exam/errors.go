package exam

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindStorage    Kind = "storage"
)

// Machine-readable codes attached to errors for clients.
const (
	CodeInvalidInput   = "invalid_input"
	CodeInvalidSchool  = "invalid_school"
	CodeInvalidStudent = "invalid_student_id"
	CodeExamNotFound   = "exam_not_found"
	CodeBackupNotFound = "backup_not_found"
	CodeInactive       = "exam_inactive"
	CodeAlreadyTaken   = "already_taken"
	CodeNoActiveExam   = "no_active_exam"
	CodeEmptyExam      = "empty_exam"
	CodeDuplicateCode  = "duplicate_code"
	CodeBadBackup      = "invalid_backup"
	CodeStorage        = "storage_error"
)

// Error is the error type returned by Service operations.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and, when set on target, Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrStorage       = &Error{Kind: KindStorage}
	ErrAlreadyTaken  = &Error{Kind: KindConflict, Code: CodeAlreadyTaken}
	ErrDuplicateCode = &Error{Kind: KindConflict, Code: CodeDuplicateCode}
	ErrInactive      = &Error{Kind: KindConflict, Code: CodeInactive}
	ErrNoActiveExam  = &Error{Kind: KindConflict, Code: CodeNoActiveExam}
)

func validationErr(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func conflictErr(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func storageErr(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Code: CodeStorage, Message: msg, Err: err}
}

// KindOf reports the Kind of err, or "" for errors not raised by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf reports the Code of err, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
