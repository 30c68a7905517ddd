package models

import "time"

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationLike             NotificationType = "like"
	NotificationUnlike           NotificationType = "unlike"
	NotificationEyewitness       NotificationType = "eyewitness"
	NotificationRemoveEyewitness NotificationType = "remove_eyewitness"
	NotificationComment          NotificationType = "comment"
	NotificationReply            NotificationType = "reply"
	NotificationCommentLike      NotificationType = "comment_like"
	NotificationReplyLike        NotificationType = "reply_like"
	NotificationPostPending      NotificationType = "post_pending"
	NotificationPostApproved     NotificationType = "post_approved"
	NotificationPostRejected     NotificationType = "post_rejected"
)

// Notification is a per-recipient record (PostgreSQL). It is deleted once
// the recipient opens it.
type Notification struct {
	ID                   uint             `json:"id" gorm:"primaryKey"`
	RecipientID          string           `json:"recipientId" gorm:"size:128;index"`
	Type                 NotificationType `json:"type" gorm:"size:30;index"`
	Message              string           `json:"message"`
	TriggeringUserID     string           `json:"triggeringUserId" gorm:"size:128"`
	TriggeringUserName   string           `json:"triggeringUserName"`
	TriggeringUserAvatar string           `json:"triggeringUserAvatar"`
	PostID               string           `json:"postId" gorm:"size:64;index"`
	PostTitle            string           `json:"postTitle"`
	PostImage            string           `json:"postImage"`
	Seen                 bool             `json:"seen" gorm:"default:false"`
	Read                 bool             `json:"read" gorm:"default:false"`
	CreatedAt            time.Time        `json:"timestamp" gorm:"index"`
}

// NotificationMessage is the text shown for t.
func NotificationMessage(t NotificationType) string {
	switch t {
	case NotificationLike:
		return "liked your post"
	case NotificationUnlike:
		return "unliked your post"
	case NotificationEyewitness:
		return "marked themselves as an eyewitness to your post"
	case NotificationRemoveEyewitness:
		return "is no longer an eyewitness to your post"
	case NotificationComment:
		return "commented on your post"
	case NotificationReply:
		return "replied to your comment"
	case NotificationCommentLike:
		return "liked your comment"
	case NotificationReplyLike:
		return "liked your reply"
	case NotificationPostPending:
		return "Your post is pending verification"
	case NotificationPostApproved:
		return "Your post has been approved and is now visible"
	case NotificationPostRejected:
		return "Your post was rejected by content verification"
	}
	return ""
}
