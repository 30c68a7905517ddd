package models

import (
	"sort"
	"strings"
	"time"
)

// ChatID is the deterministic id of the conversation between a and b.
func ChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// ChatThread is one participant's copy of a chat (PostgreSQL). Every chat has
// exactly two threads sharing a ChatID.
type ChatThread struct {
	ID                  uint      `json:"-" gorm:"primaryKey"`
	ChatID              string    `json:"id" gorm:"size:260;uniqueIndex:idx_chat_owner"`
	OwnerID             string    `json:"ownerId" gorm:"size:128;uniqueIndex:idx_chat_owner;index"`
	OtherUserID         string    `json:"otherUserId" gorm:"size:128"`
	LastMessage         string    `json:"lastMessage"`
	LastMessageSenderID string    `json:"lastMessageSenderId" gorm:"size:128"`
	LastMessageAt       time.Time `json:"lastMessageAt"`
	UnreadCount         int       `json:"unreadCount" gorm:"default:0"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Message is one entry of a chat log (PostgreSQL).
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ChatID    string    `json:"chatId" gorm:"size:260;index"`
	SenderID  string    `json:"senderId" gorm:"size:128"`
	Text      string    `json:"text"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	MediaType string    `json:"mediaType,omitempty" gorm:"size:20"`
	Read      bool      `json:"read" gorm:"default:false"`
	CreatedAt time.Time `json:"timestamp" gorm:"index"`
}

// Preview is the text stored as a thread's last message.
func (m *Message) Preview() string {
	if m.Text != "" {
		return m.Text
	}
	switch m.MediaType {
	case "image":
		return "Sent an image"
	case "video":
		return "Sent a video"
	}
	return "Sent an attachment"
}

// ChatWithUser is a thread joined with the other participant's profile.
type ChatWithUser struct {
	ChatThread
	OtherUser UserCompact `json:"otherUser"`
}

// OpenChatRequest is the body of POST /chats.
type OpenChatRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// SendMessageRequest is the body of POST /chats/:chatId/messages.
type SendMessageRequest struct {
	Text      string `json:"text" validate:"required_without=MediaURL,max=4000"`
	MediaURL  string `json:"mediaUrl" validate:"omitempty,url"`
	MediaType string `json:"mediaType" validate:"omitempty,oneof=image video"`
}
