package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Calmero107/volunteer/internal/auth"
	"github.com/Calmero107/volunteer/internal/config"
	"github.com/Calmero107/volunteer/internal/event"
	"github.com/Calmero107/volunteer/internal/httpapi"
	"github.com/Calmero107/volunteer/internal/obs"
	"github.com/Calmero107/volunteer/internal/registration"
	"github.com/Calmero107/volunteer/internal/store/pg"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", os.Getenv("VOLUNTEER_CONFIG"), "path to yaml config (optional)")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	log, err := obs.NewLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	obs.Init()

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if cfg.Env != "local" {
			log.Fatal("VOLUNTEER_JWT_SECRET is required outside local env")
		}
		secret = "local-dev-secret"
		log.Warn("using built-in dev signing secret")
	}

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	var (
		users  auth.IdentityStore
		tokens auth.RefreshTokenStore
		events event.Store
		regs   registration.Store
		ready  httpapi.ReadyProbe
	)
	if cfg.DB.DSN != "" {
		pgStore, err := pg.Open(cfg.DB.DSN)
		if err != nil {
			log.Fatal("open postgres", zap.Error(err))
		}
		defer pgStore.Close()
		users = pgStore.Users()
		tokens = pgStore.RefreshTokens()
		events = pgStore.Events()
		regs = pgStore.Registrations()
		ready = httpapi.ReadyProbe{Check: pgStore.Ping}
		log.Info("using postgres store")
	} else {
		users = auth.NewInMemoryIdentityStore()
		tokens = auth.NewInMemoryRefreshTokenStore()
		events = event.NewInMemoryStore()
		regs = registration.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	authSvc, err := auth.NewService(users, tokens, secret, log,
		auth.WithAccessTTL(cfg.Auth.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTokenTTL),
	)
	if err != nil {
		log.Fatal("auth service", zap.Error(err))
	}
	regSvc := registration.NewService(regs, events, log)
	eventSvc := event.NewService(events, regSvc, log)

	api := httpapi.New(authSvc, eventSvc, regSvc, log, ready, version,
		httpapi.WithRateLimit(cfg.Rate.PerSecond, cfg.Rate.Burst))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic refresh-token sweep.
	go func() {
		ticker := time.NewTicker(cfg.Auth.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				if _, err := authSvc.SweepExpired(rootCtx); err != nil {
					log.Error("refresh token sweep failed", zap.Error(err))
				}
			}
		}
	}()

	go func() {
		log.Info("starting volunteer-api",
			zap.String("version", version),
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("stopped")
}
