package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/anonto42/nearby/backend/internal/loaders"
	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/anonto42/nearby/backend/internal/realtime"
	"github.com/anonto42/nearby/backend/internal/repositories"
)

type ChatService struct {
	chats     repositories.ChatRepository
	users     repositories.UserRepository
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewChatService(chats repositories.ChatRepository, users repositories.UserRepository, publisher EventPublisher, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = observability.Logger
	}
	return &ChatService{chats: chats, users: users, publisher: publisher, logger: logger, now: time.Now}
}

// OpenChat returns the conversation between uid and otherID, creating both
// participants' copies on first contact. Opening a chat reads it.
func (s *ChatService) OpenChat(ctx context.Context, uid, otherID string) (*models.ChatWithUser, error) {
	otherID = strings.TrimSpace(otherID)
	if otherID == "" || otherID == uid {
		return nil, models.NewValidationError("Cannot open a chat with yourself")
	}
	other, err := s.users.GetUserByID(ctx, otherID)
	if err != nil {
		return nil, storeError(err, "user", otherID)
	}

	thread, err := s.chats.OpenThreads(ctx, uid, otherID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if thread.UnreadCount > 0 {
		if err := s.chats.MarkRead(ctx, thread.ChatID, uid); err != nil {
			return nil, storeError(err, "chat", thread.ChatID)
		}
		thread.UnreadCount = 0
	}
	return &models.ChatWithUser{ChatThread: *thread, OtherUser: other.ToCompact()}, nil
}

// ListChats returns uid's conversations with the other participant's
// current profile, most recent first.
func (s *ChatService) ListChats(ctx context.Context, uid string) ([]models.ChatWithUser, error) {
	threads, err := s.chats.GetThreads(ctx, uid)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	ids := make([]string, 0, len(threads))
	for _, t := range threads {
		ids = append(ids, t.OtherUserID)
	}
	loader := loaders.NewUserLoader(s.users)
	if l := loaders.For(ctx); l != nil && l.Users != nil {
		loader = l.Users
	}
	users, err := loader.LoadMany(ctx, ids)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make([]models.ChatWithUser, 0, len(threads))
	for _, t := range threads {
		other := models.UserCompact{ID: t.OtherUserID, DisplayName: models.UnknownUserName}
		if u, ok := users[t.OtherUserID]; ok {
			other = u.ToCompact()
		}
		out = append(out, models.ChatWithUser{ChatThread: t, OtherUser: other})
	}
	return out, nil
}

// Messages returns the latest messages of a chat uid takes part in.
func (s *ChatService) Messages(ctx context.Context, uid, chatID string, limit int) ([]models.Message, error) {
	if _, err := s.chats.GetThread(ctx, chatID, uid); err != nil {
		return nil, storeError(err, "chat", chatID)
	}
	messages, err := s.chats.GetMessages(ctx, chatID, limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

// SendMessage appends a message to the chat and pushes it to both
// participants.
func (s *ChatService) SendMessage(ctx context.Context, uid, chatID string, req models.SendMessageRequest) (*models.Message, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.MediaURL == "" {
		return nil, models.NewValidationError("A message needs text or media")
	}
	if req.MediaURL != "" && req.MediaType == "" {
		return nil, models.NewValidationError("mediaType is required with mediaUrl")
	}
	thread, err := s.chats.GetThread(ctx, chatID, uid)
	if err != nil {
		return nil, storeError(err, "chat", chatID)
	}

	msg := &models.Message{
		ChatID:    chatID,
		SenderID:  uid,
		Text:      text,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		CreatedAt: s.now(),
	}
	if err := s.chats.AppendMessage(ctx, msg); err != nil {
		return nil, storeError(err, "chat", chatID)
	}
	observability.MessagesSent.Inc()

	ev := realtime.Event{Type: realtime.EventMessage, Data: msg}
	s.publish(ctx, thread.OtherUserID, ev)
	s.publish(ctx, uid, ev)
	return msg, nil
}

// MarkRead clears uid's unread count and tells the other participant.
func (s *ChatService) MarkRead(ctx context.Context, uid, chatID string) error {
	thread, err := s.chats.GetThread(ctx, chatID, uid)
	if err != nil {
		return storeError(err, "chat", chatID)
	}
	if err := s.chats.MarkRead(ctx, chatID, uid); err != nil {
		return storeError(err, "chat", chatID)
	}
	s.publish(ctx, thread.OtherUserID, realtime.Event{
		Type: realtime.EventChatRead,
		Data: map[string]string{"chatId": chatID, "readerId": uid},
	})
	return nil
}

func (s *ChatService) publish(ctx context.Context, uid string, ev realtime.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishUser(ctx, uid, ev); err != nil {
		s.logger.Warn("publish realtime event failed", slog.String("user_id", uid), slog.String("type", string(ev.Type)), slog.Any("error", err))
	}
}
