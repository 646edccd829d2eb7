// Package main is the entry point for the easybet API server. It wires the
// store, services and event sinks together and runs the HTTP server alongside
// the WebSocket hub and the expiry watcher.
package main

import (
	"context"
	"errors"
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
	"github.com/evetabi/easybet/internal/events"
	"github.com/evetabi/easybet/internal/logger"
	"github.com/evetabi/easybet/internal/repository"
	"github.com/evetabi/easybet/internal/scheduler"
	"github.com/evetabi/easybet/internal/service"
	"github.com/evetabi/easybet/internal/store"
	"github.com/evetabi/easybet/internal/store/memstore"
	"github.com/evetabi/easybet/internal/ws"
	"golang.org/x/sync/errgroup"
)

func main() {
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	// ── 1. Config + logger ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	log, logCloser, err := logger.New(cfg.Log, cfg.IsProd(), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		exitCode = 1
		return
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	log.Info("starting easybet server", "env", cfg.Server.Env, "port", cfg.Server.Port, "store", cfg.DB.Driver)

	// ── 2. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Store ──────────────────────────────────────────────────────────────
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("store init failed", "err", err)
		exitCode = 1
		return
	}
	defer st.Close()

	checks := map[string]api.HealthCheck{}
	if pg, ok := st.(*repository.Store); ok {
		checks["postgres"] = pg.Ping
	}

	// ── 4. Services ───────────────────────────────────────────────────────────
	clock := service.SystemClock{}
	escrow := service.NewEscrowLedger(cfg.Wallet.EscrowAccountID, st)

	activitySvc := service.NewActivityService(st, clock, log)
	ticketSvc := service.NewTicketService(st, activitySvc, escrow, clock, log)
	settlementSvc := service.NewSettlementService(st, escrow, clock, log)
	orderSvc := service.NewOrderBookService(st, escrow, clock, log)
	walletSvc := service.NewWalletService(st, escrow, clock)
	authSvc := service.NewAuthService(st, cfg, clock)

	// ── 5. Event sinks ────────────────────────────────────────────────────────
	hub := ws.NewHub([]byte(cfg.JWT.AccessSecret), cfg.Server.WSAllowedOrigins, log)
	fanout := events.NewFanout(hub, events.NewLogPublisher(log))

	if cfg.Events.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.AMQPExchange)
		if err != nil {
			log.Error("amqp sink init failed", "err", err)
			exitCode = 1
			return
		}
		defer amqpPub.Close()
		fanout.Add(amqpPub)
		log.Info("amqp event sink enabled", "exchange", cfg.Events.AMQPExchange)
	}
	if cfg.Events.RedisAddr != "" {
		redisPub, err := events.NewRedisPublisher(ctx, events.RedisConfig{
			Addr:         cfg.Events.RedisAddr,
			Password:     cfg.Events.RedisPassword,
			DB:           cfg.Events.RedisDB,
			Channel:      cfg.Events.RedisChannel,
			Stream:       cfg.Events.RedisStream,
			StreamMaxLen: cfg.Events.RedisStreamMaxLen,
		})
		if err != nil {
			log.Error("redis sink init failed", "err", err)
			exitCode = 1
			return
		}
		defer redisPub.Close()
		fanout.Add(redisPub)
		checks["redis"] = redisPub.Ping
		log.Info("redis event sink enabled", "channel", cfg.Events.RedisChannel, "stream", cfg.Events.RedisStream)
	}

	activitySvc.SetPublisher(fanout)
	ticketSvc.SetPublisher(fanout)
	settlementSvc.SetPublisher(fanout)
	orderSvc.SetPublisher(fanout)

	// ── 6. Expiry watcher ─────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(activitySvc, cfg.Scheduler.ExpiryScanInterval, log)

	// ── 7. HTTP servers ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:       authSvc,
		ActivitySvc:   activitySvc,
		TicketSvc:     ticketSvc,
		SettlementSvc: settlementSvc,
		OrderSvc:      orderSvc,
		WalletSvc:     walletSvc,
		Hub:           hub,
		Cfg:           cfg,
		Checks:        checks,
		Ctx:           ctx,
	})
	servers := []*http.Server{newServer(cfg, cfg.Server.Port, router)}

	// The in-memory store lives in this process, so the admin API has to be
	// served from here too.
	if !cfg.UsePostgres() {
		bo := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
			AuthSvc:       authSvc,
			ActivitySvc:   activitySvc,
			TicketSvc:     ticketSvc,
			SettlementSvc: settlementSvc,
			WalletSvc:     walletSvc,
			Hub:           hub,
			Cfg:           cfg,
			Checks:        checks,
		})
		servers = append(servers, newServer(cfg, cfg.Server.BackofficePort, bo))
	}

	// ── 8. Run ────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	for _, srv := range servers {
		g.Go(func() error {
			log.Info("http server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	// ── 9. Graceful shutdown ──────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining connections…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "err", err)
		exitCode = 1
		return
	}
	log.Info("server stopped cleanly")
}

func newServer(cfg *config.Config, port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// openStore selects the storage backend. PostgreSQL schemas are migrated on
// every boot; migration files must be idempotent.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if !cfg.UsePostgres() {
		log.Warn("using in-memory store; all state is lost on restart")
		return memstore.New(), nil
	}

	pg, err := repository.Open(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Info("database connected")

	if err := pg.Migrate(ctx, cfg.DB.MigrationsDir); err != nil {
		pg.Close()
		return nil, err
	}
	log.Info("migrations applied", "dir", cfg.DB.MigrationsDir)
	return pg, nil
}
