package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultMessageLimit = 100

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	OpenThreads(ctx context.Context, ownerID, otherID string) (*models.ChatThread, error)
	GetThreads(ctx context.Context, ownerID string) ([]models.ChatThread, error)
	GetThread(ctx context.Context, chatID, ownerID string) (*models.ChatThread, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, chatID, ownerID string) error
}

type postgresChatRepository struct {
	db *gorm.DB
}

func NewPostgresChatRepository(db *gorm.DB) ChatRepository {
	return &postgresChatRepository{db: db}
}

// OpenThreads creates both participants' copies of the chat in one
// transaction, keeping any copy that already exists, and returns the owner's.
func (r *postgresChatRepository) OpenThreads(ctx context.Context, ownerID, otherID string) (*models.ChatThread, error) {
	chatID := models.ChatID(ownerID, otherID)
	var thread models.ChatThread
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		copies := []models.ChatThread{
			{ChatID: chatID, OwnerID: ownerID, OtherUserID: otherID},
			{ChatID: chatID, OwnerID: otherID, OtherUserID: ownerID},
		}
		for i := range copies {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "chat_id"}, {Name: "owner_id"}},
				DoNothing: true,
			}).Create(&copies[i]).Error
			if err != nil {
				return err
			}
		}
		return tx.Where("chat_id = ? AND owner_id = ?", chatID, ownerID).First(&thread).Error
	})
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetThreads lists the owner's chats, most recent activity first.
func (r *postgresChatRepository) GetThreads(ctx context.Context, ownerID string) ([]models.ChatThread, error) {
	threads := []models.ChatThread{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("last_message_at DESC").
		Order("updated_at DESC").
		Find(&threads).Error
	return threads, err
}

func (r *postgresChatRepository) GetThread(ctx context.Context, chatID, ownerID string) (*models.ChatThread, error) {
	var thread models.ChatThread
	err := r.db.WithContext(ctx).Where("chat_id = ? AND owner_id = ?", chatID, ownerID).First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &thread, nil
}

// AppendMessage writes msg, moves both copies' last message and increments
// the recipient's unread count, all in one transaction.
func (r *postgresChatRepository) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		res := tx.Model(&models.ChatThread{}).
			Where("chat_id = ?", msg.ChatID).
			Updates(map[string]interface{}{
				"last_message":           msg.Preview(),
				"last_message_sender_id": msg.SenderID,
				"last_message_at":        msg.CreatedAt,
				"unread_count": gorm.Expr(
					"CASE WHEN owner_id <> ? THEN unread_count + 1 ELSE unread_count END", msg.SenderID),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 2 {
			return ErrNotFound
		}
		return nil
	})
}

// GetMessages returns the latest limit messages in chronological order.
func (r *postgresChatRepository) GetMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	messages := []models.Message{}
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkRead clears the owner's unread count and marks the other party's
// messages read.
func (r *postgresChatRepository) MarkRead(ctx context.Context, chatID, ownerID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChatThread{}).
			Where("chat_id = ? AND owner_id = ?", chatID, ownerID).
			UpdateColumn("unread_count", 0)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Message{}).
			Where("chat_id = ? AND sender_id <> ?", chatID, ownerID).
			Where(map[string]interface{}{"read": false}).
			UpdateColumn("read", true).Error
	})
}
