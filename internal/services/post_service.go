package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/nearby/backend/internal/feed"
	"github.com/anonto42/nearby/backend/internal/lifecycle"
	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/anonto42/nearby/backend/internal/realtime"
	"github.com/anonto42/nearby/backend/internal/repositories"
	"github.com/anonto42/nearby/backend/internal/storage"
	"github.com/anonto42/nearby/backend/internal/verifier"
	"github.com/anonto42/nearby/backend/pkg/geo"
	"github.com/anonto42/nearby/backend/pkg/tags"
)

const (
	ProfileTabActive  = "active"
	ProfileTabExpired = "expired"

	imageSafe   = "safe"
	imageUnsafe = "unsafe"
	aiGenerated = "ai_generated"
	notAI       = "not_ai"
)

// RadiusResolver returns a user's preferred feed radius. *UserService
// satisfies it.
type RadiusResolver interface {
	RadiusFor(ctx context.Context, uid string) float64
}

// FeedPost is a post as listed to clients.
type FeedPost struct {
	*models.Post
	TimeRemaining string   `json:"timeRemaining"`
	DistanceKm    *float64 `json:"distanceKm,omitempty"`
}

type CreatePostInput struct {
	UserID   string
	Request  models.CreatePostRequest
	Filename string
	Image    []byte
}

type FeedInput struct {
	UserID   string
	Search   string
	Tag      string
	Origin   *geo.Point
	RadiusKm float64
}

type MapInput struct {
	UserID   string
	Tags     []string
	Origin   geo.Point
	RadiusKm float64
}

type ReactionResult struct {
	Post   *models.Post `json:"post"`
	Active bool         `json:"active"`
}

type ExploreResult struct {
	PopularPosts []FeedPost      `json:"popularPosts"`
	PopularTags  []feed.TagCount `json:"popularTags"`
}

type ProfilePosts struct {
	Posts []FeedPost       `json:"posts"`
	Stats models.PostStats `json:"stats"`
}

type PostService struct {
	posts        repositories.PostRepository
	comments     repositories.CommentRepository
	users        repositories.UserRepository
	images       ImageStore
	notifier     Notifier
	verification VerificationQueue
	publisher    EventPublisher
	radius       RadiusResolver
	logger       *slog.Logger
	now          func() time.Time
}

type PostServiceDeps struct {
	Posts        repositories.PostRepository
	Comments     repositories.CommentRepository
	Users        repositories.UserRepository
	Images       ImageStore
	Notifier     Notifier
	Verification VerificationQueue
	Publisher    EventPublisher
	Radius       RadiusResolver
	Logger       *slog.Logger
}

func NewPostService(deps PostServiceDeps) *PostService {
	logger := deps.Logger
	if logger == nil {
		logger = observability.Logger
	}
	return &PostService{
		posts:        deps.Posts,
		comments:     deps.Comments,
		users:        deps.Users,
		images:       deps.Images,
		notifier:     deps.Notifier,
		verification: deps.Verification,
		publisher:    deps.Publisher,
		radius:       deps.Radius,
		logger:       logger,
		now:          time.Now,
	}
}

// CreatePost uploads the image, stores the post pending verification and
// queues it for the verifier. A verifier that is down or busy never fails
// the request.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	req := in.Request
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(req.Lat), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(req.Lng), 64)
	origin := geo.Point{Lat: lat, Lng: lng}
	if errLat != nil || errLng != nil || !origin.Valid() {
		return nil, models.NewValidationError("A valid location is required")
	}

	postTags := tags.Clean(req.Tags)
	if len(postTags) > tags.MaxPerPost {
		return nil, models.NewValidationError("A post can have at most 3 tags")
	}
	if len(in.Image) == 0 {
		return nil, models.NewValidationError("Image is required")
	}

	author, err := s.users.GetUserByID(ctx, in.UserID)
	if err != nil {
		return nil, storeError(err, "user", in.UserID)
	}

	imageURL, err := s.images.Upload(ctx, storage.UploadImageInput{
		UserID:   in.UserID,
		Filename: in.Filename,
		Content:  in.Image,
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewUpstreamError("Image upload failed", err)
	}

	now := s.now()
	window := lifecycle.NewWindow(now, lifecycle.ClampDuration(req.Duration))
	post := &models.Post{
		CreatorID:          in.UserID,
		IsAnonymous:        req.IsAnonymous,
		Title:              strings.TrimSpace(req.Title),
		Caption:            strings.TrimSpace(req.Caption),
		Tags:               postTags,
		ImageURL:           imageURL,
		Location:           models.NewLocation(origin),
		CreatedAt:          window.CreatedAt,
		Duration:           int(window.Duration / time.Hour),
		ExpiresAt:          window.ExpiresAt,
		DeleteAt:           window.DeleteAt(),
		LikedBy:            []string{},
		EyewitnessedBy:     []string{},
		VerificationStatus: models.VerificationNone,
		IsVisible:          false,
		TextSafe:           models.NotProcessed,
		ImageSafe:          models.NotProcessed,
		ImageAI:            models.NotProcessed,
	}
	if !req.IsAnonymous {
		name := author.Name()
		avatar := author.PhotoURL
		post.Username = &name
		post.UserAvatar = &avatar
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		if derr := s.images.Delete(ctx, imageURL); derr != nil {
			s.logger.Warn("remove orphaned image failed", slog.String("url", imageURL), slog.Any("error", derr))
		}
		return nil, models.NewInternalError(err)
	}
	observability.PostsCreated.WithLabelValues("post").Inc()

	s.notify(ctx, NotifyInput{RecipientID: post.CreatorID, Type: models.NotificationPostPending, Post: post})

	if s.verification != nil {
		s.verification.Submit(verifier.Submission{
			PostID:   post.ID.Hex(),
			Title:    post.Title,
			Caption:  post.Caption,
			Filename: in.Filename,
			Image:    in.Image,
		})
	}
	return post, nil
}

// GetPost returns a post. Posts that are not approved are only shown to
// their creator.
func (s *PostService) GetPost(ctx context.Context, viewerID, id string) (*FeedPost, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "post", id)
	}
	if !post.Approved() && post.CreatorID != viewerID {
		return nil, models.NewNotFoundError("post", id)
	}
	fp := s.view(post, nil)
	return &fp, nil
}

// DeletePost removes a post, its image and its comments. Only the creator may
// delete.
func (s *PostService) DeletePost(ctx context.Context, uid, id string) error {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return storeError(err, "post", id)
	}
	if post.CreatorID != uid {
		return models.NewForbiddenError("Only the creator can delete this post")
	}
	return s.purge(ctx, post)
}

func (s *PostService) purge(ctx context.Context, post *models.Post) error {
	if err := releaseImage(ctx, s.posts, s.images, post); err != nil {
		return models.NewUpstreamError("Image removal failed", err)
	}
	if _, err := s.comments.DeleteCommentsByPostID(ctx, post.ID.Hex()); err != nil {
		return models.NewInternalError(err)
	}
	if err := s.posts.DeletePost(ctx, post.ID.Hex()); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return models.NewInternalError(err)
	}
	return nil
}

// ToggleLike likes or unlikes a post for uid.
func (s *PostService) ToggleLike(ctx context.Context, uid, postID string) (*ReactionResult, error) {
	return s.toggle(ctx, uid, postID, repositories.ReactionLike)
}

// ToggleEyewitness marks or unmarks uid as an eyewitness of a post.
func (s *PostService) ToggleEyewitness(ctx context.Context, uid, postID string) (*ReactionResult, error) {
	return s.toggle(ctx, uid, postID, repositories.ReactionEyewitness)
}

func (s *PostService) toggle(ctx context.Context, uid, postID string, reaction repositories.Reaction) (*ReactionResult, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, storeError(err, "post", postID)
	}
	if !post.Approved() {
		return nil, models.NewNotFoundError("post", postID)
	}

	members := post.LikedBy
	if reaction == repositories.ReactionEyewitness {
		members = post.EyewitnessedBy
	}
	on := !contains(members, uid)

	updated, changed, err := s.posts.SetReaction(ctx, postID, reaction, uid, on)
	if err != nil {
		return nil, storeError(err, "post", postID)
	}
	if !changed {
		// A concurrent toggle got there first; report the stored state.
		current := updated.LikedBy
		if reaction == repositories.ReactionEyewitness {
			current = updated.EyewitnessedBy
		}
		return &ReactionResult{Post: updated, Active: contains(current, uid)}, nil
	}

	action := "add"
	if !on {
		action = "remove"
	}
	observability.Reactions.WithLabelValues(string(reaction), action).Inc()

	actor, err := s.users.GetUserByID(ctx, uid)
	if err != nil {
		actor = &models.User{ID: uid}
	}
	s.notify(ctx, NotifyInput{
		RecipientID: updated.CreatorID,
		Type:        reactionNotification(reaction, on),
		Actor:       actor,
		Post:        updated,
	})
	return &ReactionResult{Post: updated, Active: on}, nil
}

func reactionNotification(reaction repositories.Reaction, on bool) models.NotificationType {
	switch {
	case reaction == repositories.ReactionLike && on:
		return models.NotificationLike
	case reaction == repositories.ReactionLike:
		return models.NotificationUnlike
	case on:
		return models.NotificationEyewitness
	default:
		return models.NotificationRemoveEyewitness
	}
}

// Repost republishes an expired post of uid as a new post starting now.
func (s *PostService) Repost(ctx context.Context, uid, postID string) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, storeError(err, "post", postID)
	}
	if post.CreatorID != uid {
		return nil, models.NewForbiddenError("Only the creator can repost this post")
	}
	now := s.now()
	if !post.Window().CanRepost(now) {
		return nil, models.NewConflictError("Only expired posts can be reposted")
	}

	repost := post.Repost(now)
	if err := s.posts.CreatePost(ctx, repost); err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.PostsCreated.WithLabelValues("repost").Inc()
	return repost, nil
}

// Feed lists the posts visible to the viewer. Posts without a location are
// kept; the radius is skipped while searching or filtering by tag.
func (s *PostService) Feed(ctx context.Context, in FeedInput) ([]FeedPost, error) {
	now := s.now()
	stored, err := s.posts.GetVisiblePosts(ctx, now)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	visible := feed.Filter(pointers(stored), feed.Query{
		Now:         now,
		Search:      in.Search,
		SelectedTag: strings.TrimSpace(in.Tag),
		Origin:      in.Origin,
		RadiusKm:    s.radiusFor(ctx, in.UserID, in.RadiusKm),
		Missing:     feed.IncludeMissing,
	})
	return s.views(visible, in.Origin), nil
}

// Map lists the posts to pin around origin. Every pinned post has a location.
func (s *PostService) Map(ctx context.Context, in MapInput) ([]FeedPost, error) {
	if !in.Origin.Valid() {
		return nil, models.NewValidationError("A valid location is required")
	}
	now := s.now()
	radius := s.radiusFor(ctx, in.UserID, in.RadiusKm)
	stored, err := s.posts.GetVisiblePostsNear(ctx, in.Origin, radius, now)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	origin := in.Origin
	pinned := feed.FilterMap(pointers(stored), feed.MapQuery{
		Now:      now,
		Tags:     tags.Clean(in.Tags),
		Origin:   &origin,
		RadiusKm: radius,
	})
	return s.views(pinned, &origin), nil
}

// Explore returns the most liked fifth of active posts and the most used tags.
func (s *PostService) Explore(ctx context.Context) (*ExploreResult, error) {
	now := s.now()
	stored, err := s.posts.GetVisiblePosts(ctx, now)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	active := feed.Filter(pointers(stored), feed.Query{Now: now})
	return &ExploreResult{
		PopularPosts: s.views(feed.PopularPosts(active), nil),
		PopularTags:  feed.PopularTags(active, feed.PopularTagsMax),
	}, nil
}

// ProfilePosts returns the owner's own posts for tab with their stats.
func (s *PostService) ProfilePosts(ctx context.Context, uid, tab string) (*ProfilePosts, error) {
	stored, err := s.posts.GetPostsByCreator(ctx, uid)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	now := s.now()

	var stats models.PostStats
	selected := make([]*models.Post, 0, len(stored))
	for i := range stored {
		p := &stored[i]
		w := p.Window()
		if w.DueForDeletion(now) {
			continue
		}
		stats.Posts++
		stats.Likes += p.Likes
		stats.Eyewitnesses += p.Eyewitnesses
		switch {
		case w.Active(now):
			stats.ActivePosts++
			if tab != ProfileTabExpired {
				selected = append(selected, p)
			}
		case w.Expired(now):
			stats.ExpiredPosts++
			if tab == ProfileTabExpired {
				selected = append(selected, p)
			}
		}
	}
	return &ProfilePosts{Posts: s.views(selected, nil), Stats: stats}, nil
}

// PublicPosts lists the approved active posts shown on another user's
// profile. Anonymous posts are never linked to their author.
func (s *PostService) PublicPosts(ctx context.Context, uid string) ([]FeedPost, error) {
	stored, err := s.posts.GetPostsByCreator(ctx, uid)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	now := s.now()
	out := make([]*models.Post, 0, len(stored))
	for i := range stored {
		p := &stored[i]
		if p.IsAnonymous || !p.Approved() || !p.Window().Active(now) {
			continue
		}
		out = append(out, p)
	}
	return s.views(out, nil), nil
}

// ApplyVerification stores the verifier's verdict, notifies the creator and
// pushes the new state to their connections.
func (s *PostService) ApplyVerification(ctx context.Context, result *models.VerificationResult) error {
	if result == nil || result.PostID == "" {
		return models.NewValidationError("postId is required")
	}

	update := verificationUpdate(result, s.now())
	post, err := s.posts.ApplyVerification(ctx, result.PostID, update)
	if err != nil {
		return storeError(err, "post", result.PostID)
	}

	outcome, kind := "rejected", models.NotificationPostRejected
	if result.Approved {
		outcome, kind = "approved", models.NotificationPostApproved
	}
	observability.VerificationOutcomes.WithLabelValues(outcome).Inc()

	s.notify(ctx, NotifyInput{RecipientID: post.CreatorID, Type: kind, Post: post})
	if s.publisher != nil {
		if err := s.publisher.PublishUser(ctx, post.CreatorID, realtime.Event{Type: realtime.EventPostVerified, Data: post}); err != nil {
			s.logger.Warn("publish verification failed", slog.String("post_id", result.PostID), slog.Any("error", err))
		}
	}
	return nil
}

func verificationUpdate(result *models.VerificationResult, now time.Time) repositories.VerificationUpdate {
	if result.Approved {
		ai := notAI
		if result.ContentLabel != "" {
			ai = aiGenerated
		}
		return repositories.VerificationUpdate{
			Status:       models.VerificationApproved,
			Visible:      true,
			TextSafe:     imageSafe,
			ImageSafe:    imageSafe,
			ImageAI:      ai,
			ContentLabel: result.ContentLabel,
			VerifiedAt:   now,
		}
	}

	u := repositories.VerificationUpdate{
		Status:          models.VerificationRejected,
		Visible:         false,
		TextSafe:        models.NotProcessed,
		ImageSafe:       models.NotProcessed,
		ImageAI:         models.NotProcessed,
		RejectedReasons: result.Reasons,
		VerifiedAt:      now,
	}
	msg := strings.ToLower(result.Message)
	switch {
	case strings.Contains(msg, "image"):
		u.TextSafe, u.ImageSafe = imageSafe, imageUnsafe
	case strings.Contains(msg, "title"), strings.Contains(msg, "caption"):
		u.TextSafe = imageUnsafe
	}
	if len(u.RejectedReasons) == 0 && result.Message != "" {
		u.RejectedReasons = []string{result.Message}
	}
	return u
}

func (s *PostService) radiusFor(ctx context.Context, uid string, requested float64) float64 {
	if requested > 0 {
		return requested
	}
	if s.radius != nil && uid != "" {
		return s.radius.RadiusFor(ctx, uid)
	}
	return models.DefaultRadiusKm
}

func (s *PostService) notify(ctx context.Context, in NotifyInput) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, in); err != nil {
		s.logger.Warn("notification failed", slog.String("type", string(in.Type)), slog.String("recipient", in.RecipientID), slog.Any("error", err))
	}
}

func (s *PostService) view(p *models.Post, origin *geo.Point) FeedPost {
	fp := FeedPost{Post: p, TimeRemaining: lifecycle.FormatTimeRemaining(p.ExpiresAt, s.now())}
	if origin != nil && p.HasLocation() {
		d := geo.Distance(*origin, p.Location.Point())
		fp.DistanceKm = &d
	}
	return fp
}

func (s *PostService) views(posts []*models.Post, origin *geo.Point) []FeedPost {
	out := make([]FeedPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.view(p, origin))
	}
	return out
}

func pointers(posts []models.Post) []*models.Post {
	out := make([]*models.Post, len(posts))
	for i := range posts {
		out[i] = &posts[i]
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
