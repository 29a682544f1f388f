// Package http exposes the exam service over JSON.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/joyat/exam-portal/internal/exam"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, exam.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, exam.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, exam.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError turns a service error into {success:false, message, code}.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("api: %v", err)
		if !errors.Is(err, exam.ErrStorage) {
			msg = "Internal server error"
		}
	}
	body := envelope{"success": false, "message": msg}
	if code := exam.CodeOf(err); code != "" {
		body["code"] = code
	}
	writeJSON(w, status, body)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{"success": false, "message": "bad json", "code": exam.CodeInvalidInput})
		return false
	}
	return true
}
