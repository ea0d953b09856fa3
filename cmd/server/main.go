package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"paygate/internal/audit"
	"paygate/internal/contractor/aggregate"
	contractorcache "paygate/internal/contractor/cache"
	contractorhandler "paygate/internal/contractor/handler"
	contractormetrics "paygate/internal/contractor/metrics"
	contractorservice "paygate/internal/contractor/service"
	contractorstore "paygate/internal/contractor/store"
	"paygate/internal/document/classify"
	documenthandler "paygate/internal/document/handler"
	documentmetrics "paygate/internal/document/metrics"
	"paygate/internal/document/scoring"
	documentservice "paygate/internal/document/service"
	documentstore "paygate/internal/document/store"
	invoicehandler "paygate/internal/invoice/handler"
	invoicemetrics "paygate/internal/invoice/metrics"
	invoiceservice "paygate/internal/invoice/service"
	invoicestore "paygate/internal/invoice/store"
	"paygate/internal/notify/dispatch"
	notifymetrics "paygate/internal/notify/metrics"
	notifyservice "paygate/internal/notify/service"
	notifystore "paygate/internal/notify/store"
	"paygate/internal/platform/config"
	"paygate/internal/platform/httpserver"
	"paygate/internal/platform/kafka"
	"paygate/internal/platform/lock"
	"paygate/internal/platform/logger"
	"paygate/internal/platform/postgres"
	"paygate/internal/platform/redis"
	"paygate/internal/sweep"
	sweepmetrics "paygate/internal/sweep/metrics"
	httptransport "paygate/internal/transport/http"
	"paygate/internal/verifylink"
	"paygate/pkg/domain"
	"paygate/pkg/requestcontext"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Error("kafka producer setup failed", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
	}

	sinks := []audit.Sink{audit.NewLogSink(log)}
	if producer != nil {
		sinks = append(sinks, audit.NewKafkaSink(producer, cfg.Kafka.AuditTopic, log))
	}
	auditor := audit.NewPublisher(sinks...)

	var locker lock.Locker = lock.NewInProcessLocker()
	var summaryCache contractorservice.SummaryCache
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient)
		summaryCache = contractorcache.NewRedis(redisClient, contractorcache.DefaultTTL)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	contractorSvc := contractorservice.New(
		contractorstore.NewPostgres(db),
		documentstore.NewPostgres(db),
		aggregate.Policy{
			MandatoryTypes:                cfg.MandatoryTypes,
			EmployersLiabilityWhenStaffed: cfg.EmployersLiabilityWhenStaffed,
		},
		summaryCache,
		auditor,
		contractormetrics.New(registry),
		log,
	)

	documentSvc := documentservice.New(
		documentstore.NewPostgres(db),
		contractorSvc,
		nil, // extraction runs upstream; uploads carry their analysis
		documentservice.RecomputeFunc(func(ctx context.Context, id domain.ContractorID) error {
			_, err := contractorSvc.Recompute(ctx, id)
			return err
		}),
		scoring.Policy{MinimumCoverage: cfg.MinimumCoverage},
		classify.Params{
			AcceptanceThreshold: cfg.AcceptanceThreshold,
			ExpiringSoonDays:    cfg.ExpiringSoonDays,
		},
		auditor,
		documentmetrics.New(registry),
		log,
	)

	invoiceSvc := invoiceservice.New(
		invoicestore.NewPostgres(db),
		contractorSvc,
		auditor,
		invoicemetrics.New(registry),
		log,
	)

	var dispatcher notifyservice.Dispatcher = dispatch.NewLog(log)
	if producer != nil {
		dispatcher = dispatch.NewKafka(producer, cfg.Kafka.DispatchTopic)
	}
	scheduler := notifyservice.NewScheduler(
		notifystore.NewPostgres(db),
		documentstore.NewPostgres(db),
		contractorSvc,
		dispatcher,
		notifymetrics.New(registry),
		log,
	)

	runner := sweep.NewRunner(
		contractorSvc,
		documentSvc,
		contractorSvc,
		invoiceSvc,
		scheduler,
		locker,
		auditor,
		sweepmetrics.New(registry),
		log,
		cfg.SweepConcurrency,
		cfg.SweepLockTTL,
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Contractors: contractorhandler.New(contractorSvc, log),
		Documents:   documenthandler.New(documentSvc, log),
		Invoices:    invoicehandler.New(invoiceSvc, log),
		VerifyLinks: verifylink.NewHandler(verifylink.NewSigner(cfg.VerifyLinkSigningKey, cfg.VerifyLinkTTL), contractorSvc, log),
		Sweeper:     runner,
		Registry:    registry,
		Logger:      log,
	})

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("paygate listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	go runSweepTicker(ctx, runner, cfg.SweepInterval, log)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// runSweepTicker fires the daily sweep until the process stops. Each run
// stamps its own reference time so a long-lived process never sweeps
// against a stale "today".
func runSweepTicker(ctx context.Context, runner *sweep.Runner, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx := requestcontext.WithTime(ctx, time.Now())
			if _, err := runner.Run(runCtx); err != nil {
				log.ErrorContext(runCtx, "scheduled sweep failed", "error", err)
			}
		}
	}
}
