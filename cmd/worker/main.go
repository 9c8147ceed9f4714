package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dx-junkyard/interest-category-matching/internal/bootstrap"
	"github.com/dx-junkyard/interest-category-matching/internal/config"
	"github.com/dx-junkyard/interest-category-matching/internal/core/domain"
	"github.com/dx-junkyard/interest-category-matching/internal/observability/logging"
	"github.com/dx-junkyard/interest-category-matching/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.NATSURL == "" {
		log.Fatal("NATS_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	resolveTimeout := time.Duration(cfg.WorkerResolveTimeoutSeconds) * time.Second

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeResolveRequests(ctx, func(handlerCtx context.Context, req domain.ResolveRequest) error {
		workerMetrics.StartResolve()
		start := time.Now()

		resolveCtx, cancel := context.WithTimeout(handlerCtx, resolveTimeout)
		defer cancel()

		matches, resolveErr := app.Resolver.Resolve(resolveCtx, req.Text)
		workerMetrics.FinishResolve("worker", time.Since(start), resolveErr)

		result := domain.ResolveResult{
			RequestID: req.RequestID,
			Matches:   matches,
		}
		if resolveErr != nil {
			result.Error = resolveErr.Error()
		}
		if err := app.Queue.PublishResolveResult(handlerCtx, result); err != nil {
			return err
		}
		return resolveErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
