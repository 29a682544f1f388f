package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joyat/exam-portal/internal/exam"
)

func CreateExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.NewExamInput
		if !decode(w, r, &in) {
			return
		}
		code, err := svc.CreateExam(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Exam created successfully", "examCode": code})
	}
}

func ListExamsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListExams(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func ExamDetailsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.GetExamDetails(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func DeleteExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteExam(r.Context(), chi.URLParam(r, "code")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Exam deleted successfully"})
	}
}

func ToggleExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, err := svc.ToggleExam(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, err)
			return
		}
		status := "deactivated"
		if active {
			status = "activated"
		}
		writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Exam " + status + " successfully", "active": active})
	}
}

func ListResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := svc.ListResults(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func BackupHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := svc.Backup(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Backup created successfully", "backup": info.Name, "created": info.Created})
	}
}

func ListBackupsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListBackups(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /admin/restore  { "backup": "backup_20260101_120000_ab12cd34.json" }
func RestoreHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Backup string `json:"backup"`
		}
		if !decode(w, r, &req) {
			return
		}
		if err := svc.Restore(r.Context(), req.Backup); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Backup restored successfully"})
	}
}
