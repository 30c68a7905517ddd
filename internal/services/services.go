// Package services holds the application logic between the HTTP handlers and
// the stores.
package services

import (
	"context"
	"errors"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/realtime"
	"github.com/anonto42/nearby/backend/internal/repositories"
	"github.com/anonto42/nearby/backend/internal/storage"
	"github.com/anonto42/nearby/backend/internal/verifier"
)

// EventPublisher pushes realtime events to a user. *realtime.Publisher
// satisfies it.
type EventPublisher interface {
	PublishUser(ctx context.Context, uid string, ev realtime.Event) error
}

// ImageStore keeps post images. *storage.ImageStore satisfies it.
type ImageStore interface {
	Upload(ctx context.Context, in storage.UploadImageInput) (string, error)
	Delete(ctx context.Context, rawURL string) error
}

// VerificationQueue accepts posts for content verification. *verifier.Worker
// satisfies it.
type VerificationQueue interface {
	Submit(sub verifier.Submission) bool
}

// Notifier records notifications. *NotificationService satisfies it.
type Notifier interface {
	Notify(ctx context.Context, in NotifyInput) error
}

// storeError turns store sentinels into application errors.
func storeError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, repositories.ErrInvalidID) {
		return models.NewNotFoundError(resource, id)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}
