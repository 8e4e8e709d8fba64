// Command server wires high-level dependencies and runs the HTTP API. All
// business logic lives in internal packages; main only assembles them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"reimbly/internal/approval"
	approvalhandler "reimbly/internal/approval/handler"
	approvalmetrics "reimbly/internal/approval/metrics"
	"reimbly/internal/approval/store"
	"reimbly/internal/notify"
	"reimbly/internal/platform/config"
	"reimbly/internal/platform/httpserver"
	"reimbly/internal/platform/logger"
	"reimbly/internal/platform/middleware"
	platformredis "reimbly/internal/platform/redis"
	"reimbly/internal/reporting"
	reportinghandler "reimbly/internal/reporting/handler"
	"reimbly/internal/routing"
	"reimbly/pkg/platform/circuit"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	table, err := routing.LoadTable(cfg.PolicyFile)
	if err != nil {
		log.Error("policy table load failed", "error", err)
		os.Exit(1)
	}
	router := routing.NewRouter(table)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var caseStore approval.Store
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		caseStore = pg
		log.Info("using postgres case store")
	} else {
		caseStore = store.NewMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory case store")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		caseStore = store.NewCachedStore(caseStore, redisClient.Client, cfg.Redis.PendingTTL, log)
		log.Info("pending-approvals cache enabled")
	}

	var notifier approval.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka notifier setup failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaNotifier.Flush(flushCtx); err != nil {
				log.Warn("kafka flush on shutdown failed", "error", err)
			}
			kafkaNotifier.Close()
		}()
		notifier = notify.NewResilientNotifier(
			kafkaNotifier,
			notify.NewLogNotifier(log),
			circuit.New("kafka-notifier"),
			log,
		)
		log.Info("kafka notifier enabled", "topic", cfg.Kafka.Topic)
	} else {
		notifier = notify.NewLogNotifier(log)
	}

	engine := approval.NewService(caseStore, router, table, log,
		approval.WithNotifier(notifier),
		approval.WithMetrics(approvalmetrics.New()),
		approval.WithRetryBudget(cfg.ReviewRetryBudget),
	)
	reports := reporting.NewService(caseStore, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Identity(cfg.JWTSigningKey, log))
	approvalhandler.New(engine, log).Register(r)
	reportinghandler.New(reports, log).Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, r)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting reimbly server", "addr", cfg.Addr)
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
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
