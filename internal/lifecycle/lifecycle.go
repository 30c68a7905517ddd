// Package lifecycle holds the time rules of a post: when it stops being shown,
// how long its owner may still repost it, and when the sweeper removes it.
package lifecycle

import (
	"fmt"
	"time"
)

const (
	MinDurationHours     = 1
	MaxDurationHours     = 24
	DefaultDurationHours = 12
)

// State is the position of a post in its lifecycle.
type State string

const (
	StatePending  State = "pending"
	StateRejected State = "rejected"
	StateActive   State = "active"
	StateExpired  State = "expired"
	StateDeleted  State = "deleted"
)

// Verification is the moderation outcome relevant to the lifecycle.
type Verification int

const (
	Unverified Verification = iota
	Approved
	Rejected
)

// Window is the time frame of one post. Duration applies twice: once for the
// visible period and once more for the expired period during which the owner
// may repost.
type Window struct {
	CreatedAt time.Time
	ExpiresAt time.Time
	Duration  time.Duration
}

// NewWindow starts a window at createdAt lasting hours.
func NewWindow(createdAt time.Time, hours int) Window {
	d := time.Duration(hours) * time.Hour
	return Window{
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(d),
		Duration:  d,
	}
}

// DeleteAt is the instant after which the post is physically removed.
func (w Window) DeleteAt() time.Time {
	return w.ExpiresAt.Add(w.Duration)
}

// Active reports whether the post is still within its visible period.
func (w Window) Active(now time.Time) bool {
	return w.ExpiresAt.After(now)
}

// Expired reports whether the post has expired but not yet reached DeleteAt.
func (w Window) Expired(now time.Time) bool {
	return !w.Active(now) && !w.DueForDeletion(now)
}

// DueForDeletion reports whether now is past DeleteAt.
func (w Window) DueForDeletion(now time.Time) bool {
	return now.After(w.DeleteAt())
}

// CanRepost reports whether the window allows a repost at now.
func (w Window) CanRepost(now time.Time) bool {
	return w.Expired(now)
}

// StateAt combines the moderation outcome with the window.
func StateAt(w Window, v Verification, now time.Time) State {
	switch {
	case w.DueForDeletion(now):
		return StateDeleted
	case !w.Active(now):
		return StateExpired
	case v == Rejected:
		return StateRejected
	case v == Approved:
		return StateActive
	default:
		return StatePending
	}
}

// ClampDuration returns hours bounded to the allowed range, or the default
// when hours is zero.
func ClampDuration(hours int) int {
	switch {
	case hours == 0:
		return DefaultDurationHours
	case hours < MinDurationHours:
		return MinDurationHours
	case hours > MaxDurationHours:
		return MaxDurationHours
	}
	return hours
}

// FormatTimeRemaining renders the time left until expiresAt using the two
// most significant units.
func FormatTimeRemaining(expiresAt, now time.Time) string {
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return "Expired"
	}

	days := int(diff / (24 * time.Hour))
	hours := int(diff/time.Hour) % 24
	minutes := int(diff/time.Minute) % 60
	seconds := int(diff/time.Second) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh remaining", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm remaining", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds remaining", minutes, seconds)
	default:
		return fmt.Sprintf("%ds remaining", seconds)
	}
}
