package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	AnonymousName   = "Anonymous"
	DefaultUserName = "Anonymous User"
	UnknownUserName = "Unknown User"

	DefaultRadiusKm = 5
	ThemeDark       = "dark"
	ThemeLight      = "light"
)

// Settings are the per-user preferences merged into the user row.
type Settings struct {
	Radius int    `json:"radius" gorm:"default:5"`
	Theme  string `json:"theme" gorm:"size:10;default:dark"`
}

// DefaultSettings are applied to new profiles.
func DefaultSettings() Settings {
	return Settings{Radius: DefaultRadiusKm, Theme: ThemeDark}
}

// User is a profile keyed by the Firebase UID (PostgreSQL).
type User struct {
	ID                string    `json:"id" gorm:"primaryKey;size:128"`
	Email             string    `json:"email" gorm:"index"`
	DisplayName       string    `json:"displayName"`
	Nickname          string    `json:"nickname"`
	PhotoURL          string    `json:"photoURL"`
	Bio               string    `json:"bio"`
	Settings          Settings  `json:"settings" gorm:"embedded;embeddedPrefix:settings_"`
	NotificationCount int       `json:"notificationCount" gorm:"default:0"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UserCompact is the public subset of a profile attached to other records.
type UserCompact struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Nickname    string `json:"nickname,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:          u.ID,
		DisplayName: u.Name(),
		Nickname:    u.Nickname,
		PhotoURL:    u.PhotoURL,
	}
}

// Name is the display name, falling back to the default for profiles that
// never set one.
func (u *User) Name() string {
	if strings.TrimSpace(u.DisplayName) != "" {
		return u.DisplayName
	}
	return DefaultUserName
}

// CommentName is the name stamped on comments: display name, then e-mail.
func (u *User) CommentName() string {
	switch {
	case strings.TrimSpace(u.DisplayName) != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	}
	return UnknownUserName
}

// UpdateProfileRequest is the body of PUT /profile. Empty fields are kept.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,min=1,max=50"`
	Nickname    *string `json:"nickname" validate:"omitempty,max=30"`
	Bio         *string `json:"bio" validate:"omitempty,max=300"`
	PhotoURL    *string `json:"photoURL" validate:"omitempty,url"`
}

// UpdateSettingsRequest is the body of PUT /settings.
type UpdateSettingsRequest struct {
	Radius *int    `json:"radius" validate:"omitempty,min=1,max=50"`
	Theme  *string `json:"theme" validate:"omitempty,theme"`
}

// SessionClaims are the claims of a backend session token.
type SessionClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
