package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/health-doc-pipeline/internal/bootstrap"
	"github.com/kirillkom/health-doc-pipeline/internal/config"
	"github.com/kirillkom/health-doc-pipeline/internal/observability/logging"
	"github.com/kirillkom/health-doc-pipeline/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	jobTimeout := time.Duration(cfg.WorkerJobTimeoutSeconds) * time.Second

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalysisRequested(ctx, func(handlerCtx context.Context, documentID string) error {
		jobCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		if rec, lookupErr := app.Repo.GetByID(jobCtx, documentID); lookupErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(rec.CreatedAt))
		}

		workerMetrics.StartDocument()
		start := time.Now()
		resp, runErr := app.Pipeline.AnalyzeStored(jobCtx, documentID)
		workerMetrics.FinishDocument(serviceName, time.Since(start), runErr)
		if runErr != nil {
			return runErr
		}

		if resp.Classification != nil && resp.ProcessingResult != nil {
			workerMetrics.RecordAnalysisOutcome(
				serviceName,
				string(resp.Classification.DocumentType),
				resp.ProcessingResult.Method,
				resp.Classification.Confidence,
			)
		}
		if resp.PersistWarning != "" {
			workerMetrics.RecordPersistWarning(serviceName)
		}
		return nil
	})
	if err != nil {
		logger.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
