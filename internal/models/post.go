package models

import (
	"encoding/json"
	"time"

	"github.com/anonto42/nearby/backend/internal/lifecycle"
	"github.com/anonto42/nearby/backend/pkg/geo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VerificationStatus is the moderation flag set by the content verifier.
type VerificationStatus string

const (
	VerificationNone     VerificationStatus = "None"
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "Approved"
	VerificationRejected VerificationStatus = "Rejected"
)

// NotProcessed marks a safety check the verifier has not run yet.
const NotProcessed = "not_processed"

// Location is stored as a GeoJSON point so MongoDB can serve radius queries
// from a 2dsphere index. On the wire it is {"lat":..,"lng":..}.
type Location struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"` // [lng, lat]
}

// NewLocation builds a GeoJSON point from p.
func NewLocation(p geo.Point) *Location {
	return &Location{Type: "Point", Coordinates: []float64{p.Lng, p.Lat}}
}

// Point converts l back to a latitude/longitude pair.
func (l *Location) Point() geo.Point {
	if l == nil || len(l.Coordinates) != 2 {
		return geo.Point{}
	}
	return geo.Point{Lat: l.Coordinates[1], Lng: l.Coordinates[0]}
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Point())
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var p geo.Point
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = *NewLocation(p)
	return nil
}

// Post is a time-bound, location-tagged update stored in MongoDB.
type Post struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CreatorID          string             `json:"creatorId" bson:"creatorId"`
	Username           *string            `json:"username" bson:"username"` // nil for anonymous posts
	UserAvatar         *string            `json:"userAvatar" bson:"userAvatar"`
	IsAnonymous        bool               `json:"isAnonymous" bson:"isAnonymous"`
	Title              string             `json:"title" bson:"title"`
	Caption            string             `json:"caption" bson:"caption"`
	Tags               []string           `json:"tags" bson:"tags"`
	ImageURL           string             `json:"imageUrl" bson:"imageUrl"`
	Location           *Location          `json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	Duration           int                `json:"duration" bson:"duration"` // hours
	ExpiresAt          time.Time          `json:"expiresAt" bson:"expiresAt"`
	DeleteAt           time.Time          `json:"deleteAt" bson:"deleteAt"`
	Likes              int                `json:"likes" bson:"likes"`
	LikedBy            []string           `json:"likedBy" bson:"likedBy"`
	Eyewitnesses       int                `json:"eyewitnesses" bson:"eyewitnesses"`
	EyewitnessedBy     []string           `json:"eyewitnessedBy" bson:"eyewitnessedBy"`
	CommentCount       int                `json:"commentCount" bson:"commentCount"`
	VerificationStatus VerificationStatus `json:"verification_status" bson:"verification_status"`
	IsVisible          bool               `json:"is_visible" bson:"is_visible"`
	TextSafe           string             `json:"text_safe" bson:"text_safe"`
	ImageSafe          string             `json:"image_safe" bson:"image_safe"`
	ImageAI            string             `json:"image_ai" bson:"image_ai"`
	ContentLabel       string             `json:"content_label,omitempty" bson:"content_label,omitempty"`
	RejectedReasons    []string           `json:"rejected_reason,omitempty" bson:"rejected_reason,omitempty"`
	LastVerified       *time.Time         `json:"last_verified,omitempty" bson:"last_verified,omitempty"`
	RepostOf           string             `json:"repostOf,omitempty" bson:"repostOf,omitempty"`
}

// Window returns the lifecycle window of the post.
func (p *Post) Window() lifecycle.Window {
	return lifecycle.Window{
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
		Duration:  time.Duration(p.Duration) * time.Hour,
	}
}

// Approved reports whether the verifier cleared the post for the feed.
func (p *Post) Approved() bool {
	return p.VerificationStatus == VerificationApproved && p.IsVisible
}

// Verification maps the moderation flags onto the lifecycle enum.
func (p *Post) Verification() lifecycle.Verification {
	switch {
	case p.Approved():
		return lifecycle.Approved
	case p.VerificationStatus == VerificationRejected:
		return lifecycle.Rejected
	default:
		return lifecycle.Unverified
	}
}

// State is the lifecycle state at now.
func (p *Post) State(now time.Time) lifecycle.State {
	return lifecycle.StateAt(p.Window(), p.Verification(), now)
}

// HasLocation reports whether the post carries coordinates.
func (p *Post) HasLocation() bool {
	return p.Location != nil && len(p.Location.Coordinates) == 2
}

// DisplayName is the name shown for the author of the post.
func (p *Post) DisplayName() string {
	if p.IsAnonymous || p.Username == nil {
		return AnonymousName
	}
	return *p.Username
}

// Repost copies p into a fresh post that starts at now. Reactions and
// comments are not carried over.
func (p *Post) Repost(now time.Time) *Post {
	w := lifecycle.NewWindow(now, p.Duration)
	tags := append([]string(nil), p.Tags...)

	r := &Post{
		CreatorID:          p.CreatorID,
		Username:           p.Username,
		UserAvatar:         p.UserAvatar,
		IsAnonymous:        p.IsAnonymous,
		Title:              p.Title,
		Caption:            p.Caption,
		Tags:               tags,
		ImageURL:           p.ImageURL,
		CreatedAt:          w.CreatedAt,
		Duration:           p.Duration,
		ExpiresAt:          w.ExpiresAt,
		DeleteAt:           w.DeleteAt(),
		LikedBy:            []string{},
		EyewitnessedBy:     []string{},
		VerificationStatus: p.VerificationStatus,
		IsVisible:          p.IsVisible,
		TextSafe:           p.TextSafe,
		ImageSafe:          p.ImageSafe,
		ImageAI:            p.ImageAI,
		ContentLabel:       p.ContentLabel,
		RepostOf:           p.ID.Hex(),
	}
	if p.IsAnonymous {
		r.Username = nil
		r.UserAvatar = nil
	}
	if p.Location != nil {
		r.Location = NewLocation(p.Location.Point())
	}
	return r
}

// PostStats summarises a user's posts for the profile page.
type PostStats struct {
	Posts        int `json:"posts"`
	Likes        int `json:"likes"`
	Eyewitnesses int `json:"eyewitnesses"`
	ActivePosts  int `json:"activePosts"`
	ExpiredPosts int `json:"expiredPosts"`
}

// CreatePostRequest is the multipart form accepted by POST /posts. The image
// part is read separately.
type CreatePostRequest struct {
	Title       string   `form:"title" json:"title" validate:"required,min=1,max=120"`
	Caption     string   `form:"caption" json:"caption" validate:"required,min=1,max=2000"`
	Tags        []string `form:"tags" json:"tags" validate:"tags"`
	Duration    int      `form:"duration" json:"duration" validate:"omitempty,min=1,max=24"`
	IsAnonymous bool     `form:"isAnonymous" json:"isAnonymous"`
	Lat         string   `form:"lat" json:"lat" validate:"required,latitude"`
	Lng         string   `form:"lng" json:"lng" validate:"required,longitude"`
}

// VerificationResult is what the content verifier reports for a post.
type VerificationResult struct {
	PostID       string   `json:"postId" validate:"required"`
	Approved     bool     `json:"approved"`
	Message      string   `json:"message,omitempty"`
	Reasons      []string `json:"details,omitempty"`
	ContentLabel string   `json:"content_label,omitempty"`
}
