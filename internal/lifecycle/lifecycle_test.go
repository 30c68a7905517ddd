package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewWindow(t *testing.T) {
	t.Parallel()

	w := NewWindow(t0, 6)
	assert.Equal(t, t0.Add(6*time.Hour), w.ExpiresAt)
	assert.Equal(t, t0.Add(12*time.Hour), w.DeleteAt())
}

func TestWindow_OneHourPost(t *testing.T) {
	t.Parallel()

	w := NewWindow(t0, 1)

	at59 := t0.Add(59 * time.Minute)
	assert.True(t, w.Active(at59))
	assert.False(t, w.CanRepost(at59))

	at61 := t0.Add(61 * time.Minute)
	assert.False(t, w.Active(at61))
	assert.True(t, w.Expired(at61))
	assert.True(t, w.CanRepost(at61))

	at2h := t0.Add(2 * time.Hour)
	assert.True(t, w.CanRepost(at2h))
	assert.False(t, w.DueForDeletion(at2h))

	after := at2h.Add(time.Second)
	assert.False(t, w.CanRepost(after))
	assert.True(t, w.DueForDeletion(after))
}

func TestStateAt(t *testing.T) {
	t.Parallel()

	w := NewWindow(t0, 1)
	tests := []struct {
		name string
		v    Verification
		now  time.Time
		want State
	}{
		{"pending", Unverified, t0.Add(time.Minute), StatePending},
		{"approved", Approved, t0.Add(time.Minute), StateActive},
		{"rejected", Rejected, t0.Add(time.Minute), StateRejected},
		{"expired", Approved, t0.Add(90 * time.Minute), StateExpired},
		{"expired while pending", Unverified, t0.Add(90 * time.Minute), StateExpired},
		{"deleted", Approved, t0.Add(3 * time.Hour), StateDeleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateAt(w, tt.v, tt.now))
		})
	}
}

func TestClampDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultDurationHours, ClampDuration(0))
	assert.Equal(t, MinDurationHours, ClampDuration(-4))
	assert.Equal(t, MaxDurationHours, ClampDuration(48))
	assert.Equal(t, 5, ClampDuration(5))
}

func TestFormatTimeRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		left time.Duration
		want string
	}{
		{26*time.Hour + 10*time.Minute, "1d 2h remaining"},
		{3*time.Hour + 15*time.Minute, "3h 15m remaining"},
		{4*time.Minute + 5*time.Second, "4m 5s remaining"},
		{42 * time.Second, "42s remaining"},
		{0, "Expired"},
		{-time.Minute, "Expired"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeRemaining(t0.Add(tt.left), t0))
		})
	}
}
