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

	"github.com/spf13/cobra"

	"github.com/nao1215/deepscan/internal/metrics"
	"github.com/nao1215/deepscan/internal/pipeline"
)

// metricsShutdownTimeout bounds the graceful shutdown of the metrics server.
const metricsShutdownTimeout = 5 * time.Second

// NewWorkerCmd creates the worker command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run queued page scans",
		Long: `Worker claims queued page scans and runs them. Every queued scan is a
deep scan, so the pages it discovers are queued in turn until each
website scan reaches its page limit.

Several workers may share one storage backend: claims are exclusive and
concurrent updates of a website scan are merged.

Examples:
  # Run until interrupted, exposing Prometheus metrics
  deepscan worker --metrics-addr :9090

  # Drain the queue and exit
  deepscan worker --once`,
		Args: cobra.NoArgs,
		RunE: runWorkerCmd,
	}

	cmd.Flags().Bool("once", false, "Exit when the queue is empty")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Int("concurrency", 0, "Page scans run at once (default from configuration)")
	cmd.Flags().Int("batch-size", 0, "Queued scans claimed per round (default from configuration)")
	cmd.Flags().Duration("poll-interval", pipeline.DefaultPollInterval, "Wait between polls of an empty queue")
	cmd.Flags().Bool("json-logs", false, "Write logs as JSON")

	return cmd
}

// runWorkerCmd executes the worker command.
func runWorkerCmd(cmd *cobra.Command, _ []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadServiceConfig(v)
	if err != nil {
		return err
	}
	if n := v.GetInt("concurrency"); n > 0 {
		cfg.Worker.Concurrency = n
	}
	if n := v.GetInt("batch-size"); n > 0 {
		cfg.Worker.BatchSize = n
	}

	logger := newLogger(v, v.GetBool("json-logs"))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()
	if addr := v.GetString("metrics-addr"); addr != "" {
		shutdown := serveMetrics(addr, recorder, logger)
		defer shutdown()
	}

	svc, err := openService(cfg, logger, recorder)
	if err != nil {
		return err
	}
	defer svc.Close()

	worker := newWorker(svc,
		pipeline.WithExitWhenIdle(v.GetBool("once")),
		pipeline.WithPollInterval(v.GetDuration("poll-interval")),
	)

	logger.Info("worker started",
		"backend", cfg.Storage.Backend,
		"concurrency", cfg.Worker.Concurrency,
		"batchSize", cfg.Worker.BatchSize,
	)

	processed, err := worker.Run(ctx)
	logger.Info("worker stopped", "processed", processed)
	if err != nil {
		return fmt.Errorf("worker failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d queued page scans\n", processed)
	return nil
}

// newWorker wires a queue worker to the service.
func newWorker(svc *service, opts ...pipeline.WorkerOption) *pipeline.Worker {
	scanner := svc.deepScanner()
	batch := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(scanner, svc.logger)
		},
		svc.newPage,
		pipeline.WithConcurrency(svc.cfg.Worker.Concurrency),
		pipeline.WithBatchLogger(svc.logger),
		pipeline.WithBatchRecorder(svc.recorder),
	)

	opts = append([]pipeline.WorkerOption{
		pipeline.WithBatchSize(svc.cfg.Worker.BatchSize),
		pipeline.WithWorkerLogger(svc.logger),
	}, opts...)
	return pipeline.NewWorker(svc.store, batch, opts...)
}

// serveMetrics serves the recorder's metrics on addr in the background and
// returns a function that shuts the server down.
func serveMetrics(addr string, recorder *metrics.Recorder, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("failed to shut down metrics server", "error", err)
		}
	}
}
