package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/anonto42/nearby/backend/internal/repositories"
)

const (
	DefaultSweepInterval  = time.Minute
	DefaultSweepBatchSize = 100
)

// Sweeper removes posts whose repost period is over, together with their
// image and comments.
type Sweeper struct {
	posts     repositories.PostRepository
	comments  repositories.CommentRepository
	images    ImageStore
	interval  time.Duration
	batchSize int64
	logger    *slog.Logger
	now       func() time.Time
}

func NewSweeper(posts repositories.PostRepository, comments repositories.CommentRepository, images ImageStore, interval time.Duration, batchSize int, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	if logger == nil {
		logger = observability.Logger
	}
	return &Sweeper{
		posts:     posts,
		comments:  comments,
		images:    images,
		interval:  interval,
		batchSize: int64(batchSize),
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil {
			s.logger.Error("sweep failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce deletes due posts one batch at a time and returns how many were
// removed. A post whose image cannot be removed is kept for the next pass and
// skipped for the rest of this one, so failing posts cannot hold back newer
// ones. The pass ends after a batch that had no failures.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	var skip []string
	removed := 0
	for ctx.Err() == nil {
		due, err := s.posts.GetPostsDueForDeletion(ctx, s.now(), skip, s.batchSize)
		if err != nil {
			return removed, err
		}

		failed := 0
		for i := range due {
			id := due[i].ID.Hex()
			if err := s.remove(ctx, &due[i]); err != nil {
				observability.SweepErrors.Inc()
				s.logger.Warn("sweep post failed", slog.String("post_id", id), slog.Any("error", err))
				skip = append(skip, id)
				failed++
				continue
			}
			removed++
			observability.PostsSwept.Inc()
		}
		if failed == 0 || int64(len(due)) < s.batchSize {
			break
		}
	}
	if removed > 0 {
		s.logger.Info("swept expired posts", slog.Int("count", removed))
	}
	return removed, nil
}

func (s *Sweeper) remove(ctx context.Context, post *models.Post) error {
	if err := releaseImage(ctx, s.posts, s.images, post); err != nil {
		return err
	}
	if _, err := s.comments.DeleteCommentsByPostID(ctx, post.ID.Hex()); err != nil {
		return err
	}
	return s.posts.DeletePost(ctx, post.ID.Hex())
}

// releaseImage deletes the image of post unless a repost still shows it.
func releaseImage(ctx context.Context, posts repositories.PostRepository, images ImageStore, post *models.Post) error {
	if post.ImageURL == "" || images == nil {
		return nil
	}
	n, err := posts.CountByImageURL(ctx, post.ImageURL)
	if err != nil {
		return err
	}
	if n > 1 {
		return nil
	}
	return images.Delete(ctx, post.ImageURL)
}
