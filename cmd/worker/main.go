package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kdocs/attribution-engine/internal/bootstrap"
	"github.com/kdocs/attribution-engine/internal/config"
	"github.com/kdocs/attribution-engine/internal/core/domain"
	"github.com/kdocs/attribution-engine/internal/observability/metrics"
)

const serviceName = "attribution-worker"

func main() {
	sweepNow := flag.Bool("sweep-now", false, "reclassify the most recent documents synchronously and exit")
	flag.Parse()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if *sweepNow {
		if err := runSweep(ctx, app, cfg); err != nil {
			log.Fatalf("sweep error: %v", err)
		}
		return
	}

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app.ReclassifyUC.OnAutoApply(func(field domain.FieldType) {
		workerMetrics.RecordAutoApplied(serviceName, string(field))
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     metricsMux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		app.Log.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// Nightly sweep re-enqueues the most recently updated documents so
	// rule and correction changes propagate without manual triggers.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReclassifyCronSpec, func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		count, err := app.ReclassifyUC.EnqueueRecent(sweepCtx, cfg.SweepBatchSize)
		if err != nil {
			app.Log.Error("reclassify sweep failed", "error", err, "enqueued", count)
			return
		}
		workerMetrics.RecordSweepEnqueued(serviceName, count)
		app.Log.Info("reclassify sweep enqueued", "count", count)
	}); err != nil {
		log.Fatalf("invalid reclassify cron spec %q: %v", cfg.ReclassifyCronSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	app.Log.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeReclassify(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 2*time.Minute)
		defer cancel()

		workerMetrics.StartReclassify()
		start := time.Now()
		err := app.ReclassifyUC.ProcessByID(processCtx, documentID)
		workerMetrics.FinishReclassify(serviceName, time.Since(start), err)
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// runSweep bypasses the queue and reclassifies the most recently
// updated documents in-process. Useful after bulk rule edits when
// waiting for the nightly schedule is not an option.
func runSweep(ctx context.Context, app *bootstrap.App, cfg config.Config) error {
	ids, err := app.Docs.ListRecentIDs(ctx, cfg.SweepBatchSize)
	if err != nil {
		return err
	}
	app.Log.Info("sweep started", "documents", len(ids), "parallelism", cfg.BatchParallelism)
	if err := app.ReclassifyUC.ProcessBatch(ctx, ids, cfg.BatchParallelism); err != nil {
		return err
	}
	app.Log.Info("sweep finished", "documents", len(ids))
	return nil
}
