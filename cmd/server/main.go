// Command server runs the agencydesk HTTP API: the contact directory with
// masked listings and the daily reveal quota in front of contact details.
//
// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	directoryhandler "agencydesk/internal/directory/handler"
	directoryservice "agencydesk/internal/directory/service"
	directorystore "agencydesk/internal/directory/store"
	"agencydesk/internal/jwttoken"
	"agencydesk/internal/platform/config"
	"agencydesk/internal/platform/httpserver"
	"agencydesk/internal/platform/logger"
	"agencydesk/internal/platform/postgres"
	platformredis "agencydesk/internal/platform/redis"
	"agencydesk/internal/reveal/handler"
	"agencydesk/internal/reveal/metrics"
	"agencydesk/internal/reveal/ports"
	"agencydesk/internal/reveal/service"
	ledgerstore "agencydesk/internal/reveal/store/ledger"
	usagestore "agencydesk/internal/reveal/store/usage"
	httptransport "agencydesk/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	loc, err := time.LoadLocation(cfg.RevealTZ)
	if err != nil {
		log.Error("invalid REVEAL_TZ", "zone", cfg.RevealTZ, "error", err.Error())
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err.Error())
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	var (
		usageStore ports.UsageStore
		ledger     ports.LedgerStore
		dirStore   directoryservice.Store
		txRunner   ports.Tx
	)
	if db != nil {
		usageStore = usagestore.NewPostgres(db)
		ledger = ledgerstore.NewPostgres(db)
		dirStore = directorystore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, serving from in-memory stores")
		usageStore = usagestore.NewInMemory()
		ledger = ledgerstore.NewInMemory()
		dirStore = directorystore.NewInMemory()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		ledger = ledgerstore.NewRedisCache(ledger, redisClient.Client)
		log.Info("reveal ledger cache enabled")
	}

	if db != nil {
		txRunner = newRevealPostgresTx(db)
	} else {
		txRunner = service.NewShardedTx(usageStore, ledger)
	}

	contacts := &directoryContactSource{store: dirStore}
	revealSvc, err := service.New(usageStore, ledger, contacts, txRunner,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithLimit(cfg.DailyRevealLimit),
		service.WithLocation(loc),
	)
	if err != nil {
		log.Error("reveal service init failed", "error", err.Error())
		os.Exit(1)
	}

	dirSvc, err := directoryservice.New(dirStore, revealSvc,
		directoryservice.WithLogger(log),
	)
	if err != nil {
		log.Error("directory service init failed", "error", err.Error())
		os.Exit(1)
	}

	jwtValidator := jwttoken.New(cfg.JWTSigningKey)

	router := httptransport.NewRouter(log,
		handler.New(revealSvc, log, jwtValidator),
		directoryhandler.New(dirSvc, log, jwtValidator),
	)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting agencydesk", "addr", cfg.Addr, "reveal_tz", cfg.RevealTZ, "reveal_limit", revealSvc.Limit())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
