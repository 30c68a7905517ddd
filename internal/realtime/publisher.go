// Package realtime fans out per-user events over Redis pub/sub and streams
// them to connected clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventType names the events pushed to clients.
type EventType string

const (
	EventNotification        EventType = "notification"
	EventNotificationRemoved EventType = "notification_removed"
	EventMessage             EventType = "message"
	EventChatRead            EventType = "chat_read"
	EventPostVerified        EventType = "post_verified"
)

// Event is the JSON envelope written to subscribers.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// UserChannel is the Redis channel carrying events for uid.
func UserChannel(uid string) string {
	return "notifications:user:" + uid
}

// Publisher publishes events into Redis. A nil client turns every call into
// a no-op so the API keeps working without Redis in development.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// PublishUser sends ev to every connection of uid.
func (p *Publisher) PublishUser(ctx context.Context, uid string, ev Event) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.rdb.Publish(ctx, UserChannel(uid), payload).Err()
}

// Subscribe opens a subscription to uid's channel and waits for Redis to
// confirm it, so no event published after it returns is missed.
func (p *Publisher) Subscribe(ctx context.Context, uid string) (*redis.PubSub, error) {
	if p == nil || p.rdb == nil {
		return nil, fmt.Errorf("realtime is not configured")
	}
	sub := p.rdb.Subscribe(ctx, UserChannel(uid))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", uid, err)
	}
	return sub, nil
}
