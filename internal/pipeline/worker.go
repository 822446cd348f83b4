package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/deepscan/internal/feed"
	"github.com/nao1215/deepscan/internal/model"
)

// Default worker settings.
const (
	// DefaultBatchSize is the number of requests claimed per round.
	DefaultBatchSize = 20

	// DefaultPollInterval is the wait between rounds when the queue is empty.
	DefaultPollInterval = 5 * time.Second
)

// Worker drains a scan request queue through a BatchProcessor.
type Worker struct {
	queue        feed.WorkQueue
	batch        *BatchProcessor
	batchSize    int
	pollInterval time.Duration
	exitWhenIdle bool
	logger       *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithBatchSize sets the number of requests claimed per round.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithPollInterval sets the wait between rounds when the queue is empty.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.pollInterval = d
	}
}

// WithExitWhenIdle makes Run return once the queue is empty instead of
// polling for new requests.
func WithExitWhenIdle(exit bool) WorkerOption {
	return func(w *Worker) {
		w.exitWhenIdle = exit
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker creates a Worker.
func NewWorker(queue feed.WorkQueue, batch *BatchProcessor, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:        queue,
		batch:        batch,
		batchSize:    DefaultBatchSize,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes rounds until ctx is cancelled, or until the queue is empty
// when the worker exits when idle. It returns the number of requests
// processed. Cancellation is not reported as an error.
func (w *Worker) Run(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := w.RunOnce(ctx)
		total += n
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return total, nil
			}
			return total, err
		}
		if n > 0 {
			continue
		}
		if w.exitWhenIdle {
			w.logger.Info("scan request queue drained", "processed", total)
			return total, nil
		}

		select {
		case <-ctx.Done():
			return total, nil
		case <-time.After(w.pollInterval):
		}
	}
}

// RunOnce claims one batch of pending requests, scans them and records
// their final status. It returns the number of requests claimed. When ctx
// is cancelled mid-batch, requests that did not finish are set back to
// pending.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	requests, err := w.queue.Claim(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim scan requests: %w", err)
	}
	if len(requests) == 0 {
		return 0, nil
	}

	w.logger.Debug("claimed scan requests", "count", len(requests))

	var mu sync.Mutex
	finished := make([]bool, len(requests))
	err = w.batch.ProcessBatchWithCallback(ctx, requests, func(scan *Scan, index int) {
		req := requests[index]
		status := model.ScanRequestCompleted
		errMsg := scan.ErrorMessage
		switch {
		case scan.Failed() && ctx.Err() != nil:
			// Interrupted by shutdown; another run picks it up again.
			status, errMsg = model.ScanRequestPending, ""
		case scan.Failed():
			status = model.ScanRequestFailed
		}
		w.complete(ctx, req.ID, status, errMsg)

		mu.Lock()
		finished[index] = true
		mu.Unlock()
	})

	// Requests the batch never started go back to the pending queue.
	for i, req := range requests {
		if !finished[i] {
			w.complete(ctx, req.ID, model.ScanRequestPending, "")
		}
	}
	return len(requests), err
}

// complete records the status of a claimed request. The status must be
// recorded even when ctx is cancelled mid-batch.
func (w *Worker) complete(ctx context.Context, id string, status model.ScanRequestStatus, errMsg string) {
	if err := w.queue.Complete(context.WithoutCancel(ctx), id, status, errMsg); err != nil {
		w.logger.Error("failed to record scan request status",
			"requestId", id,
			"status", status,
			"error", err,
		)
	}
}
