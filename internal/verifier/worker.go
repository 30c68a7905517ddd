package verifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/observability"
)

const (
	DefaultQueueSize = 64
	submitTimeout    = 90 * time.Second
)

// Checker produces a verdict for a submission. *Client satisfies it.
type Checker interface {
	Verify(ctx context.Context, sub Submission) (*models.VerificationResult, error)
}

// ApplyFunc stores a verdict on its post.
type ApplyFunc func(ctx context.Context, result *models.VerificationResult) error

// Worker drains a bounded queue of submissions with a fixed number of
// goroutines. Submit never blocks; a full queue drops the submission and the
// post stays pending until the verifier reports through the callback.
type Worker struct {
	checker Checker
	queue   chan Submission
	workers int
	logger  *slog.Logger

	wg        sync.WaitGroup
	startOnce sync.Once
}

func NewWorker(checker Checker, workers, queueSize int, logger *slog.Logger) *Worker {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = observability.Logger
	}
	return &Worker{
		checker: checker,
		queue:   make(chan Submission, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Submit enqueues sub and reports whether it was accepted.
func (w *Worker) Submit(sub Submission) bool {
	if w == nil {
		return false
	}
	select {
	case w.queue <- sub:
		return true
	default:
		observability.VerificationOutcomes.WithLabelValues("dropped").Inc()
		w.logger.Warn("verification queue full, submission dropped", slog.String("post_id", sub.PostID))
		return false
	}
}

// Start launches the workers. They stop when ctx is cancelled; Wait blocks
// until they have.
func (w *Worker) Start(ctx context.Context, apply ApplyFunc) {
	w.startOnce.Do(func() {
		for i := 0; i < w.workers; i++ {
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				w.loop(ctx, apply)
			}()
		}
	})
}

func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context, apply ApplyFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-w.queue:
			w.process(ctx, sub, apply)
		}
	}
}

func (w *Worker) process(ctx context.Context, sub Submission, apply ApplyFunc) {
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	result, err := w.checker.Verify(ctx, sub)
	if err != nil {
		observability.VerificationOutcomes.WithLabelValues("error").Inc()
		w.logger.Error("content verification failed", slog.String("post_id", sub.PostID), slog.Any("error", err))
		return
	}
	if err := apply(ctx, result); err != nil {
		w.logger.Error("apply verification failed", slog.String("post_id", sub.PostID), slog.Any("error", err))
		return
	}
	w.logger.Info("post verified", slog.String("post_id", sub.PostID), slog.Bool("approved", result.Approved))
}
