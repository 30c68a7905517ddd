package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/nearby/backend/internal/models"
	"gorm.io/gorm"
)

const defaultNotificationLimit = 50

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, recipientID string) (int64, error)
	DeleteNotification(ctx context.Context, id uint, recipientID string) (*models.Notification, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

// CreateNotification stores the notification and bumps the recipient's
// notification count in one transaction.
func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(notification).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", notification.RecipientID).
			UpdateColumn("notification_count", gorm.Expr("notification_count + ?", 1)).Error
	})
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	notifications := []models.Notification{}
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where(map[string]interface{}{"recipient_id": recipientID, "read": false}).
		Count(&count).Error
	return count, err
}

// DeleteNotification removes one of recipientID's notifications and
// decrements the count, never below zero. The removed record is returned.
func (r *postgresNotificationRepository) DeleteNotification(ctx context.Context, id uint, recipientID string) (*models.Notification, error) {
	var removed models.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND recipient_id = ?", id, recipientID).First(&removed).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&models.Notification{}, removed.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", recipientID).
			UpdateColumn("notification_count",
				gorm.Expr("CASE WHEN notification_count > 0 THEN notification_count - 1 ELSE 0 END")).Error
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}
