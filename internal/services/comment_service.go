package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/anonto42/nearby/backend/internal/loaders"
	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/anonto42/nearby/backend/internal/repositories"
)

// CommentLikeResult reports the like state of a comment or reply after a
// toggle.
type CommentLikeResult struct {
	CommentID string `json:"commentId"`
	IsReply   bool   `json:"isReply"`
	Liked     bool   `json:"liked"`
	Likes     int    `json:"likes"`
}

type CommentService struct {
	comments repositories.CommentRepository
	posts    repositories.PostRepository
	users    repositories.UserRepository
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewCommentService(comments repositories.CommentRepository, posts repositories.PostRepository, users repositories.UserRepository, notifier Notifier, logger *slog.Logger) *CommentService {
	if logger == nil {
		logger = observability.Logger
	}
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ListComments returns the comments of a post oldest first. Top-level
// authors are resolved from their current profile; replies keep the name
// they were written with.
func (s *CommentService) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, storeError(err, "post", postID)
	}
	comments, err := s.comments.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.SenderID)
	}
	authors, err := s.userLoader(ctx).LoadMany(ctx, ids)
	if err != nil {
		s.logger.Warn("resolve comment authors failed", slog.String("post_id", postID), slog.Any("error", err))
		return comments, nil
	}
	for i := range comments {
		if u, ok := authors[comments[i].SenderID]; ok {
			comments[i].Username = u.CommentName()
			comments[i].UserAvatar = u.PhotoURL
		}
	}
	return comments, nil
}

// AddComment adds a top-level comment and notifies the post creator.
func (s *CommentService) AddComment(ctx context.Context, uid, postID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, storeError(err, "post", postID)
	}
	author, err := s.users.GetUserByID(ctx, uid)
	if err != nil {
		return nil, storeError(err, "user", uid)
	}

	comment := models.NewComment(postID, author, text, s.now())
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.bumpCount(ctx, postID)
	s.notify(ctx, NotifyInput{RecipientID: post.CreatorID, Type: models.NotificationComment, Actor: author, Post: post})
	return comment, nil
}

// AddReply replies to a top-level comment of postID and notifies the comment
// author.
func (s *CommentService) AddReply(ctx context.Context, uid, postID, commentID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Reply text is required")
	}
	parent, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, storeError(err, "comment", commentID)
	}
	if parent.PostID != postID {
		return nil, models.NewNotFoundError("comment", commentID)
	}
	author, err := s.users.GetUserByID(ctx, uid)
	if err != nil {
		return nil, storeError(err, "user", uid)
	}

	reply := models.NewReply(author, text, s.now())
	if err := s.comments.AppendReply(ctx, commentID, reply); err != nil {
		return nil, storeError(err, "comment", commentID)
	}
	s.bumpCount(ctx, parent.PostID)

	post, err := s.posts.GetPostByID(ctx, parent.PostID)
	if err != nil {
		post = nil
	}
	s.notify(ctx, NotifyInput{RecipientID: parent.SenderID, Type: models.NotificationReply, Actor: author, Post: post})
	return &reply, nil
}

// ToggleCommentLike likes or unlikes a comment or reply of postID. The
// author is only notified of likes.
func (s *CommentService) ToggleCommentLike(ctx context.Context, uid, postID, commentID string) (*CommentLikeResult, error) {
	comments, err := s.comments.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	loc, ok := models.FindComment(comments, commentID)
	if !ok {
		return nil, models.NewNotFoundError("comment", commentID)
	}

	target := loc.Comment
	on := !target.LikedByUser(uid)
	var changed bool
	if loc.IsReply {
		changed, err = s.comments.SetReplyLike(ctx, loc.Parent.ID, target.ID, uid, on)
	} else {
		changed, err = s.comments.SetCommentLike(ctx, target.ID, uid, on)
	}
	if err != nil {
		return nil, storeError(err, "comment", commentID)
	}

	likes := target.Likes
	if changed && on {
		likes++
	} else if changed {
		likes--
	}
	result := &CommentLikeResult{CommentID: target.ID, IsReply: loc.IsReply, Liked: on, Likes: likes}
	if !changed {
		return result, nil
	}

	if on {
		kind := models.NotificationCommentLike
		if loc.IsReply {
			kind = models.NotificationReplyLike
		}
		actor, err := s.users.GetUserByID(ctx, uid)
		if err != nil {
			actor = &models.User{ID: uid}
		}
		post, err := s.posts.GetPostByID(ctx, postID)
		if err != nil {
			post = nil
		}
		s.notify(ctx, NotifyInput{RecipientID: target.SenderID, Type: kind, Actor: actor, Post: post})
	}
	return result, nil
}

func (s *CommentService) userLoader(ctx context.Context) *loaders.UserLoader {
	if l := loaders.For(ctx); l != nil && l.Users != nil {
		return l.Users
	}
	return loaders.NewUserLoader(s.users)
}

func (s *CommentService) bumpCount(ctx context.Context, postID string) {
	if err := s.posts.IncrementCommentCount(ctx, postID, 1); err != nil {
		s.logger.Warn("increment comment count failed", slog.String("post_id", postID), slog.Any("error", err))
	}
}

func (s *CommentService) notify(ctx context.Context, in NotifyInput) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, in); err != nil {
		s.logger.Warn("notification failed", slog.String("type", string(in.Type)), slog.String("recipient", in.RecipientID), slog.Any("error", err))
	}
}
