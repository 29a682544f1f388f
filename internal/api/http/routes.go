package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/joyat/exam-portal/internal/auth/middleware"
	"github.com/joyat/exam-portal/internal/exam"
	"github.com/joyat/exam-portal/internal/rbac"
)

// Mount registers the portal routes on r.
func Mount(r chi.Router, svc *exam.Service, authSvc *auth.AuthService) {
	r.Get("/health", HealthHandler(svc))
	r.Get("/schools", SchoolsHandler(svc))

	r.Post("/student/join", JoinHandler(svc))
	r.Post("/student/submit", SubmitHandler(svc))

	r.Post("/admin/login", auth.LoginHandler(authSvc))

	r.Group(func(ar chi.Router) {
		ar.Use(auth.JWTMiddleware(authSvc))

		ar.With(rbac.Require("exam:create")).Post("/admin/create-exam", CreateExamHandler(svc))
		ar.With(rbac.Require("exam:view")).Get("/admin/exams", ListExamsHandler(svc))
		ar.With(rbac.RequireAny("exam:view", "results:view")).Get("/admin/exam-details/{code}", ExamDetailsHandler(svc))
		ar.With(rbac.Require("exam:delete")).Delete("/admin/delete-exam/{code}", DeleteExamHandler(svc))
		ar.With(rbac.Require("exam:toggle")).Post("/admin/toggle-exam/{code}", ToggleExamHandler(svc))
		ar.With(rbac.Require("results:view")).Get("/admin/results", ListResultsHandler(svc))

		ar.With(rbac.Require("backup:create")).Post("/admin/backup", BackupHandler(svc))
		ar.With(rbac.Require("backup:list")).Get("/admin/backups", ListBackupsHandler(svc))
		ar.With(rbac.Require("backup:restore")).Post("/admin/restore", RestoreHandler(svc))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{"success": false, "message": "Endpoint not found"})
	})
}
