package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	emailPkg "classbook/internal/adapters/email"
	web "classbook/internal/adapters/http"
	"classbook/internal/adapters/http/perf"
	"classbook/internal/adapters/storage"
	accountStore "classbook/internal/adapters/storage/account"
	auditStore "classbook/internal/adapters/storage/audit"
	recordStore "classbook/internal/adapters/storage/record"
	rosterStore "classbook/internal/adapters/storage/roster"
	"classbook/internal/application/orchestrators"
	"classbook/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := sql.Open("sqlite", storage.DSN(cfg.DBPath))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	stores := &web.Stores{
		AccountStore: accountStore.NewSQLiteStore(timedDB),
		RosterStore:  rosterStore.NewSQLiteStore(timedDB),
		RecordStore:  recordStore.NewSQLiteStore(timedDB),
		AuditStore:   auditStore.NewSQLiteStore(timedDB),
	}

	seedDeps := orchestrators.CreateAccountDeps{
		AccountStore: stores.AccountStore,
		GenerateID:   uuid.NewString,
		Now:          time.Now,
	}
	seeded, err := orchestrators.ExecuteSeedAdmin(context.Background(), seedDeps, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	if seeded && cfg.IsProduction() {
		slog.Warn("admin_seeded_in_production", "email", cfg.AdminEmail, "hint", "change the password now")
	}

	switch {
	case cfg.ResendKey != "":
		web.SetEmailSender(emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo), cfg.EmailFrom)
		slog.Info("email_sender", "kind", "resend")
	case cfg.SendGridKey != "":
		web.SetEmailSender(emailPkg.NewSendGridSender(cfg.SendGridKey, cfg.EmailFrom, cfg.ReplyTo), cfg.EmailFrom)
		slog.Info("email_sender", "kind", "sendgrid")
	default:
		web.SetEmailSender(emailPkg.NewNoopSender(), cfg.EmailFrom)
		if cfg.IsProduction() {
			slog.Warn("email_sender", "kind", "noop", "hint", "set CLASSBOOK_RESEND_KEY or CLASSBOOK_SENDGRID_KEY, absence notices are not delivered")
		} else {
			slog.Info("email_sender", "kind", "noop")
		}
	}

	handler := web.NewMux(stores, collector, web.Options{
		CSRFKey:       cfg.CSRFKey,
		Production:    cfg.IsProduction(),
		SlowRequestMs: cfg.SlowRequestMs,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	slog.Info("server_stopped")
}
