package websitescan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/deepscan/internal/model"
)

// Default retry settings for conflicting writes.
const (
	DefaultMaxAttempts  = 5
	DefaultInitialDelay = 50 * time.Millisecond
	DefaultMaxDelay     = 2 * time.Second
	DefaultMultiplier   = 2.0
)

// Writer merges discovered URLs into stored aggregates.
type Writer struct {
	store Store

	// maxAttempts counts every read-merge-replace round, including the first.
	maxAttempts int

	// initialDelay is the backoff after the first conflict; each further
	// conflict multiplies it by multiplier up to maxDelay.
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64

	logger *slog.Logger

	// onConflict is called after every conflicting Replace.
	onConflict func(attempt int)

	// sleep waits between attempts. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithMaxAttempts sets the number of attempts, including the first.
func WithMaxAttempts(n int) WriterOption {
	return func(w *Writer) {
		w.maxAttempts = n
	}
}

// WithBackoff sets the first and the largest delay between attempts.
func WithBackoff(initial, maxDelay time.Duration) WriterOption {
	return func(w *Writer) {
		w.initialDelay = initial
		w.maxDelay = maxDelay
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithConflictHook registers fn to be called after every write conflict.
func WithConflictHook(fn func(attempt int)) WriterOption {
	return func(w *Writer) {
		w.onConflict = fn
	}
}

// NewWriter creates a Writer backed by store.
func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:        store,
		maxAttempts:  DefaultMaxAttempts,
		initialDelay: DefaultInitialDelay,
		maxDelay:     DefaultMaxDelay,
		multiplier:   DefaultMultiplier,
		logger:       slog.Default(),
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.maxAttempts < 1 {
		w.maxAttempts = 1
	}
	return w
}

// UpdateWithDiscoveredURLs adds urls to the KnownPages of the aggregate
// websiteScanID and establishes patterns as its discovery patterns if it
// has none. It returns the stored document with its new ETag.
//
// Conflicting concurrent updates are retried with exponential backoff.
// When every attempt conflicts it returns ErrConflictRetriesExhausted.
func (w *Writer) UpdateWithDiscoveredURLs(ctx context.Context, websiteScanID string, urls, patterns []string) (*model.WebsiteScanResult, error) {
	var lastErr error
	delay := w.initialDelay

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		current, err := w.store.Read(ctx, websiteScanID)
		if err != nil {
			return nil, fmt.Errorf("failed to read website scan %s: %w", websiteScanID, err)
		}

		stored, err := w.store.Replace(ctx, Merge(current, urls, patterns))
		if err == nil {
			w.logger.Debug("website scan updated",
				"websiteScanId", websiteScanID,
				"attempt", attempt,
				"knownPages", len(stored.KnownPages),
			)
			return stored, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("failed to write website scan %s: %w", websiteScanID, err)
		}

		lastErr = err
		if w.onConflict != nil {
			w.onConflict(attempt)
		}
		w.logger.Debug("website scan write conflict", "websiteScanId", websiteScanID, "attempt", attempt)

		if attempt == w.maxAttempts {
			break
		}
		if err := w.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = time.Duration(float64(delay) * w.multiplier)
		if delay > w.maxDelay {
			delay = w.maxDelay
		}
	}

	return nil, fmt.Errorf("%w: website scan %s after %d attempts: %w",
		ErrConflictRetriesExhausted, websiteScanID, w.maxAttempts, lastErr)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
