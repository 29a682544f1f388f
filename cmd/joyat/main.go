package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/joyat/exam-portal/internal/api/http"
	"github.com/joyat/exam-portal/internal/app"
	auth "github.com/joyat/exam-portal/internal/auth/middleware"
	"github.com/joyat/exam-portal/internal/config"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	svc, closeStore, err := app.NewService(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer closeStore()

	// --- Auth ---
	admin, err := auth.NewAccount(cfg.AdminUser, "admin", cfg.AdminPassword, cfg.AdminPassHash)
	if err != nil {
		log.Fatalf("admin account: %v", err)
	}
	accounts := []auth.Account{admin}
	if cfg.ViewerUser != "" {
		viewer, err := auth.NewAccount(cfg.ViewerUser, "viewer", cfg.ViewerPassword, cfg.ViewerPassHash)
		if err != nil {
			log.Fatalf("viewer account: %v", err)
		}
		accounts = append(accounts, viewer)
	}
	authSvc := auth.NewAuthService(cfg.AuthSecret, accounts...)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	if cfg.RequestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, svc, authSvc)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("==================================================")
	log.Printf("JOYAT - Joy University Exam Portal")
	log.Printf("admin user: %s", cfg.AdminUser)
	log.Printf("listening on %s (mode=%s, store=%s, schools=%d)", cfg.HTTPAddr, cfg.Mode, cfg.StoreDriver, len(cfg.Schools))
	log.Printf("==================================================")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
