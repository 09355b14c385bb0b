package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casetrack.org/internal/auth"
	"casetrack.org/internal/config"
	"casetrack.org/internal/httpapi"
	"casetrack.org/internal/mail"
	"casetrack.org/internal/obs"
	"casetrack.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	logger := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	// Postgres when a DSN is configured, in-memory otherwise. The memory
	// store keeps local runs and demos free of infrastructure.
	var (
		db    *sql.DB
		store auth.Store
	)
	if cfg.PGDSN != "" {
		db, err = pg.Open(cfg.PGDSN)
		if err != nil {
			logger.Fatalf("open db: %v", err)
		}
		if err := pg.Ping(db, 5*time.Second); err != nil {
			logger.Fatalf("ping db: %v", err)
		}
		store = auth.NewPGStore(db)
	} else {
		logger.Println(`{"level":"warn","msg":"no CASETRACK_PG_DSN set, using in-memory store"}`)
		store = auth.NewMemStore()
	}

	tokens, err := auth.NewTokenManager(cfg.AuthSecret, cfg.AuthIssuer, cfg.TokenTTL)
	if err != nil {
		logger.Fatalf("token manager: %v", err)
	}

	var mailer auth.ResetMailer
	if cfg.MailConfigured() {
		mailer, err = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:          cfg.SMTPHost,
			Port:          cfg.SMTPPort,
			Username:      cfg.SMTPUsername,
			Password:      cfg.SMTPPassword,
			From:          cfg.MailFrom,
			ResetLinkBase: cfg.ResetLinkBase,
		})
		if err != nil {
			logger.Fatalf("mailer: %v", err)
		}
	} else {
		logger.Println(`{"level":"warn","msg":"no SMTP host set, password reset mail disabled"}`)
	}

	svc, err := auth.NewService(store, tokens, mailer, auth.WithResetTTL(cfg.ResetTTL))
	if err != nil {
		logger.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, svc, version, httpapi.Options{
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Printf(`{"level":"info","msg":"starting casetrack-api","version":%q,"addr":%q}`, version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Println(`{"level":"info","msg":"shutting down"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	logger.Println(`{"level":"info","msg":"stopped"}`)
}
