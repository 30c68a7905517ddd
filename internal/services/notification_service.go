package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/anonto42/nearby/backend/internal/realtime"
	"github.com/anonto42/nearby/backend/internal/repositories"
)

// NotifyInput describes one notification. Actor is nil for system
// notifications such as verification results.
type NotifyInput struct {
	RecipientID string
	Type        models.NotificationType
	Actor       *models.User
	Post        *models.Post
}

type NotificationService struct {
	repo      repositories.NotificationRepository
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewNotificationService(repo repositories.NotificationRepository, publisher EventPublisher, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = observability.Logger
	}
	return &NotificationService{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// Notify stores the notification, bumps the recipient's count and pushes it
// to the recipient's open connections. Users are never notified of their own
// actions.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) error {
	if in.RecipientID == "" {
		return nil
	}
	if in.Actor != nil && in.Actor.ID == in.RecipientID {
		return nil
	}

	n := &models.Notification{
		RecipientID: in.RecipientID,
		Type:        in.Type,
		Message:     models.NotificationMessage(in.Type),
		CreatedAt:   s.now(),
	}
	if in.Actor != nil {
		n.TriggeringUserID = in.Actor.ID
		n.TriggeringUserName = in.Actor.Name()
		n.TriggeringUserAvatar = in.Actor.PhotoURL
	}
	if in.Post != nil {
		n.PostID = in.Post.ID.Hex()
		n.PostTitle = in.Post.Title
		if n.PostTitle == "" {
			n.PostTitle = "Untitled"
		}
		n.PostImage = in.Post.ImageURL
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return models.NewInternalError(err)
	}
	observability.NotificationsCreated.WithLabelValues(string(in.Type)).Inc()
	s.publish(ctx, in.RecipientID, realtime.Event{Type: realtime.EventNotification, Data: n})
	return nil
}

func (s *NotificationService) List(ctx context.Context, uid string, limit int) ([]models.Notification, error) {
	list, err := s.repo.GetByRecipientID(ctx, uid, limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, uid string) (int64, error) {
	count, err := s.repo.GetUnreadCount(ctx, uid)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// Open consumes a notification: it is deleted and the caller gets it back to
// navigate to its post.
func (s *NotificationService) Open(ctx context.Context, uid string, id uint) (*models.Notification, error) {
	n, err := s.repo.DeleteNotification(ctx, id, uid)
	if err != nil {
		return nil, storeError(err, "notification", strconv.FormatUint(uint64(id), 10))
	}
	s.publish(ctx, uid, realtime.Event{Type: realtime.EventNotificationRemoved, Data: map[string]uint{"id": n.ID}})
	return n, nil
}

// Dismiss deletes a notification without opening it.
func (s *NotificationService) Dismiss(ctx context.Context, uid string, id uint) error {
	_, err := s.Open(ctx, uid, id)
	return err
}

func (s *NotificationService) publish(ctx context.Context, uid string, ev realtime.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishUser(ctx, uid, ev); err != nil {
		s.logger.Warn("publish realtime event failed", slog.String("user_id", uid), slog.String("type", string(ev.Type)), slog.Any("error", err))
	}
}
