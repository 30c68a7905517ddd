package models

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a top-level comment stored in MongoDB. Replies live in the
// Replies array of their parent and share the same shape; a reply never has
// replies of its own.
type Comment struct {
	ID         string    `json:"id" bson:"_id"`
	PostID     string    `json:"postId,omitempty" bson:"postId,omitempty"`
	SenderID   string    `json:"senderId" bson:"senderId"`
	Username   string    `json:"username" bson:"username"`
	UserAvatar string    `json:"userAvatar" bson:"userAvatar"`
	Text       string    `json:"text" bson:"text"`
	Likes      int       `json:"likes" bson:"likes"`
	LikedBy    []string  `json:"likedBy" bson:"likedBy"`
	Replies    []Comment `json:"replies,omitempty" bson:"replies,omitempty"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// NewComment creates a top-level comment on postID. Author fields are copied
// from author at write time.
func NewComment(postID string, author *User, text string, now time.Time) *Comment {
	return &Comment{
		ID:         primitive.NewObjectID().Hex(),
		PostID:     postID,
		SenderID:   author.ID,
		Username:   author.CommentName(),
		UserAvatar: author.PhotoURL,
		Text:       text,
		LikedBy:    []string{},
		Replies:    []Comment{},
		Timestamp:  now,
	}
}

// NewReply creates a reply. It carries a snapshot of the author's display
// fields, which is not refreshed when the profile changes.
func NewReply(author *User, text string, now time.Time) Comment {
	return Comment{
		ID:         uuid.NewString(),
		SenderID:   author.ID,
		Username:   author.CommentName(),
		UserAvatar: author.PhotoURL,
		Text:       text,
		LikedBy:    []string{},
		Timestamp:  now,
	}
}

// LikedByUser reports whether uid is in LikedBy.
func (c *Comment) LikedByUser(uid string) bool {
	for _, id := range c.LikedBy {
		if id == uid {
			return true
		}
	}
	return false
}

// CommentLocation is the result of FindComment.
type CommentLocation struct {
	Comment *Comment
	Parent  *Comment // set when IsReply
	IsReply bool
}

// FindComment looks id up among the top-level comments first, then inside
// each comment's replies, and returns the first match.
func FindComment(comments []Comment, id string) (CommentLocation, bool) {
	for i := range comments {
		if comments[i].ID == id {
			return CommentLocation{Comment: &comments[i]}, true
		}
	}
	for i := range comments {
		parent := &comments[i]
		for j := range parent.Replies {
			if parent.Replies[j].ID == id {
				return CommentLocation{Comment: &parent.Replies[j], Parent: parent, IsReply: true}, true
			}
		}
	}
	return CommentLocation{}, false
}

// CommentRequest is the body of POST /comments and /replies.
type CommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}
