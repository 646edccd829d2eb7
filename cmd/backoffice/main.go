// Package main is the entry point for the easybet back-office admin server.
// It shares the PostgreSQL store with cmd/server and exposes the admin-only
// endpoints protected by RBAC and the IP allow-list.
//
// Run with -promote <email> to grant a back-office role and exit; this is how
// the first admin account is created.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evetabi/easybet/internal/api"
	"github.com/evetabi/easybet/internal/backoffice"
	"github.com/evetabi/easybet/internal/config"
	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/logger"
	"github.com/evetabi/easybet/internal/repository"
	"github.com/evetabi/easybet/internal/service"
)

func main() {
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	promote := flag.String("promote", "", "grant -role to the account with this email, then exit")
	roleName := flag.String("role", string(domain.RoleAdmin), "role granted by -promote")
	flag.Parse()

	// ── Config + logger ───────────────────────────────────────────────────────
	cfg := config.MustLoad()

	log, logCloser, err := logger.New(cfg.Log, cfg.IsProd(), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		exitCode = 1
		return
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	if !cfg.UsePostgres() {
		// A separate process cannot see another process's memory store;
		// cmd/server serves the admin API itself in that mode.
		log.Error("backoffice requires STORE_DRIVER=postgres")
		exitCode = 1
		return
	}

	log.Info("starting easybet backoffice server",
		"env", cfg.Server.Env, "port", cfg.Server.BackofficePort)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	st, err := repository.Open(ctx, cfg.DB)
	if err != nil {
		log.Error("database connection failed", "err", err)
		exitCode = 1
		return
	}
	defer st.Close()
	log.Info("database connected")

	// ── Services ──────────────────────────────────────────────────────────────
	clock := service.SystemClock{}
	escrow := service.NewEscrowLedger(cfg.Wallet.EscrowAccountID, st)

	authSvc := service.NewAuthService(st, cfg, clock)
	activitySvc := service.NewActivityService(st, clock, log)

	if *promote != "" {
		if err := promoteUser(ctx, authSvc, *promote, *roleName, log); err != nil {
			log.Error("promote failed", "email", *promote, "err", err)
			exitCode = 1
		}
		return
	}

	// ── Router ────────────────────────────────────────────────────────────────
	router := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
		AuthSvc:       authSvc,
		ActivitySvc:   activitySvc,
		TicketSvc:     service.NewTicketService(st, activitySvc, escrow, clock, log),
		SettlementSvc: service.NewSettlementService(st, escrow, clock, log),
		WalletSvc:     service.NewWalletService(st, escrow, clock),
		Hub:           nil, // backoffice does not directly serve WS
		Cfg:           cfg,
		Checks:        map[string]api.HealthCheck{"postgres": st.Ping},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.BackofficePort,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── Start ─────────────────────────────────────────────────────────────────
	go func() {
		log.Info("backoffice http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("backoffice server error", "err", err)
			stop()
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("backoffice shutdown error", "err", err)
		exitCode = 1
		return
	}
	log.Info("backoffice server stopped cleanly")
}

func promoteUser(ctx context.Context, authSvc *service.AuthService, email, roleName string, log *slog.Logger) error {
	role, ok := domain.ParseRole(roleName)
	if !ok {
		return fmt.Errorf("unknown role %q", roleName)
	}
	u, err := authSvc.PromoteByEmail(ctx, email, role)
	if err != nil {
		return err
	}
	log.Info("role granted", "user_id", u.ID, "email", u.Email, "role", u.Role)
	return nil
}
