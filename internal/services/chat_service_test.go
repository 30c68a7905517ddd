package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/realtime"
	"github.com/anonto42/nearby/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatService(t *testing.T) (*ChatService, *publisherStub) {
	t.Helper()

	db := setupTestDB(t)
	users := repositories.NewPostgresUserRepository(db)
	seedUser(t, users, "alice", "Alice")
	seedUser(t, users, "bob", "Bob")

	publisher := &publisherStub{}
	svc := NewChatService(repositories.NewPostgresChatRepository(db), users, publisher, nil)
	svc.now = func() time.Time { return testNow }
	return svc, publisher
}

func TestChatService_OpenChat(t *testing.T) {
	svc, _ := newChatService(t)
	ctx := context.Background()

	chat, err := svc.OpenChat(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.ChatID("alice", "bob"), chat.ChatID)
	assert.Equal(t, "Bob", chat.OtherUser.DisplayName)

	again, err := svc.OpenChat(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, chat.ChatID, again.ChatID)
	assert.Equal(t, "Alice", again.OtherUser.DisplayName)

	_, err = svc.OpenChat(ctx, "alice", "alice")
	assert.True(t, models.IsCode(err, models.CodeValidation))
	_, err = svc.OpenChat(ctx, "alice", "nobody")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestChatService_SendAndRead(t *testing.T) {
	svc, publisher := newChatService(t)
	ctx := context.Background()

	chat, err := svc.OpenChat(ctx, "alice", "bob")
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "alice", chat.ChatID, models.SendMessageRequest{Text: " hi bob "})
	require.NoError(t, err)
	assert.Equal(t, "hi bob", msg.Text)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, "bob", publisher.events[0].UserID)
	assert.Equal(t, realtime.EventMessage, publisher.events[0].Event.Type)

	bobChats, err := svc.ListChats(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobChats, 1)
	assert.Equal(t, 1, bobChats[0].UnreadCount)
	assert.Equal(t, "hi bob", bobChats[0].LastMessage)
	assert.Equal(t, "Alice", bobChats[0].OtherUser.DisplayName)

	require.NoError(t, svc.MarkRead(ctx, "bob", chat.ChatID))
	assert.Equal(t, realtime.EventChatRead, publisher.events[2].Event.Type)
	assert.Equal(t, "alice", publisher.events[2].UserID)

	messages, err := svc.Messages(ctx, "bob", chat.ChatID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Read)

	bobChats, err = svc.ListChats(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, bobChats[0].UnreadCount)
}

func TestChatService_RejectsOutsiders(t *testing.T) {
	svc, _ := newChatService(t)
	ctx := context.Background()

	chat, err := svc.OpenChat(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.Messages(ctx, "mallory", chat.ChatID, 10)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = svc.SendMessage(ctx, "mallory", chat.ChatID, models.SendMessageRequest{Text: "hey"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestChatService_SendMessage_Validation(t *testing.T) {
	svc, _ := newChatService(t)
	ctx := context.Background()
	chat, err := svc.OpenChat(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "alice", chat.ChatID, models.SendMessageRequest{Text: "  "})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.SendMessage(ctx, "alice", chat.ChatID, models.SendMessageRequest{MediaURL: "https://cdn.test/a.png"})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	msg, err := svc.SendMessage(ctx, "alice", chat.ChatID, models.SendMessageRequest{MediaURL: "https://cdn.test/a.png", MediaType: "image"})
	require.NoError(t, err)
	assert.Equal(t, "Sent an image", msg.Preview())
}
