package http

import (
	"net/http"
	"time"

	"github.com/joyat/exam-portal/internal/exam"
)

func JoinHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.JoinInput
		if !decode(w, r, &in) {
			return
		}
		se, err := svc.Join(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, se)
	}
}

func SubmitHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.SubmitInput
		if !decode(w, r, &in) {
			return
		}
		out, err := svc.Submit(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			"success":    true,
			"message":    "Exam submitted successfully",
			"score":      out.Score,
			"total":      out.Total,
			"percentage": out.Percentage,
		})
	}
}

func SchoolsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.ListSchools())
	}
}

func HealthHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := svc.Health(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, envelope{"status": "unhealthy", "message": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			"status":        "healthy",
			"timestamp":     time.Now().Format(time.RFC3339),
			"exams_count":   h.Exams,
			"results_count": h.Results,
		})
	}
}
