package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawpal/internal/adapters/auth/supabase"
	pg "pawpal/internal/adapters/storage/postgres"
	"pawpal/internal/config"
	"pawpal/internal/platform/logger"
	"pawpal/internal/ports/auth"
	"pawpal/internal/router"
)

// @title PawPal API
// @version 1.0
// @description Perfiles, mascotas, outreach, mensajería, notificaciones, challenges y salud.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{}).Error("config error", logger.Fields{"err": err})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	var db *sql.DB
	if cfg.DBDSN != "" {
		db, err = pg.Open(cfg.DBDSN)
		if err != nil {
			log.Error("postgres open failed", logger.Fields{"err": err})
			os.Exit(1)
		}
		defer db.Close()
	} else {
		log.Warn("DB_DSN not set, using in-memory repositories", nil)
	}

	// sin verifier => modo dev (X-Debug-User-ID)
	var verifier auth.AuthVerifier
	if cfg.Supabase.Enabled() {
		var remote *supabase.Client
		if cfg.Supabase.URL != "" {
			remote, err = supabase.NewClient(supabase.Config{URL: cfg.Supabase.URL, AnonKey: cfg.Supabase.AnonKey})
			if err != nil {
				log.Error("supabase client error", logger.Fields{"err": err})
				os.Exit(1)
			}
		}
		verifier = supabase.NewVerifier(supabase.NewJWTVerifier(cfg.Supabase.JWTSecret), remote)
	} else {
		log.Warn("supabase auth not configured, running in dev auth mode", nil)
	}
	if cfg.FunctionsSecret == "" {
		log.Warn("PAWPAL_FUNCTIONS_SECRET not set, /functions/* will reject every call", nil)
	}

	app := router.Build(router.Options{
		AuthVerifier: verifier,
		DB:           db,
		Config:       cfg,
		Logger:       log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.Reminders.Loop(ctx, cfg.ReminderInterval)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      app.Handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Info("starting server", logger.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", logger.Fields{"err": err})
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", logger.Fields{"err": err})
	}
	log.Info("server stopped", nil)
}
