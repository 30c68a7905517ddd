package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/realtime"
	"github.com/anonto42/nearby/backend/internal/repositories"
	"github.com/anonto42/nearby/backend/internal/storage"
	"github.com/anonto42/nearby/backend/internal/verifier"
	"github.com/anonto42/nearby/backend/pkg/geo"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Notification{}, &models.ChatThread{}, &models.Message{}))
	return db
}

func seedUser(t *testing.T, repo repositories.UserRepository, id, name string) *models.User {
	t.Helper()
	u := &models.User{ID: id, DisplayName: name, Email: id + "@example.com", Settings: models.DefaultSettings()}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

// memPostRepo is an in-memory PostRepository.
type memPostRepo struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newMemPostRepo(posts ...*models.Post) *memPostRepo {
	r := &memPostRepo{posts: map[string]*models.Post{}}
	for _, p := range posts {
		_ = r.CreatePost(context.Background(), p)
	}
	return r
}

func (r *memPostRepo) CreatePost(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	cp := *post
	r.posts[post.ID.Hex()] = &cp
	return nil
}

func (r *memPostRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPostRepo) list(keep func(*models.Post) bool) []models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Post{}
	for _, p := range r.posts {
		if keep(p) {
			out = append(out, *p)
		}
	}
	return out
}

func (r *memPostRepo) GetVisiblePosts(_ context.Context, now time.Time) ([]models.Post, error) {
	return r.list(func(p *models.Post) bool { return p.Approved() && p.ExpiresAt.After(now) }), nil
}

func (r *memPostRepo) GetVisiblePostsNear(_ context.Context, origin geo.Point, radiusKm float64, now time.Time) ([]models.Post, error) {
	return r.list(func(p *models.Post) bool {
		return p.Approved() && p.ExpiresAt.After(now) && p.HasLocation() && geo.Within(origin, p.Location.Point(), radiusKm)
	}), nil
}

func (r *memPostRepo) GetPostsByCreator(_ context.Context, creatorID string) ([]models.Post, error) {
	return r.list(func(p *models.Post) bool { return p.CreatorID == creatorID }), nil
}

func (r *memPostRepo) SetReaction(_ context.Context, postID string, reaction repositories.Reaction, userID string, on bool) (*models.Post, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return nil, false, repositories.ErrNotFound
	}
	set, count := &p.LikedBy, &p.Likes
	if reaction == repositories.ReactionEyewitness {
		set, count = &p.EyewitnessedBy, &p.Eyewitnesses
	}
	has := contains(*set, userID)
	changed := has != on
	if changed && on {
		*set = append(*set, userID)
		*count++
	} else if changed {
		kept := []string{}
		for _, id := range *set {
			if id != userID {
				kept = append(kept, id)
			}
		}
		*set = kept
		*count--
	}
	cp := *p
	return &cp, changed, nil
}

func (r *memPostRepo) IncrementCommentCount(_ context.Context, postID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return repositories.ErrNotFound
	}
	p.CommentCount += delta
	return nil
}

func (r *memPostRepo) ApplyVerification(_ context.Context, postID string, u repositories.VerificationUpdate) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	p.VerificationStatus = u.Status
	p.IsVisible = u.Visible
	p.TextSafe, p.ImageSafe, p.ImageAI = u.TextSafe, u.ImageSafe, u.ImageAI
	p.ContentLabel = u.ContentLabel
	p.RejectedReasons = u.RejectedReasons
	at := u.VerifiedAt
	p.LastVerified = &at
	cp := *p
	return &cp, nil
}

func (r *memPostRepo) GetPostsDueForDeletion(_ context.Context, now time.Time, skip []string, limit int64) ([]models.Post, error) {
	out := r.list(func(p *models.Post) bool {
		return p.DeleteAt.Before(now) && !contains(skip, p.ID.Hex())
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DeleteAt.Before(out[j].DeleteAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPostRepo) DeletePost(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *memPostRepo) CountByImageURL(_ context.Context, imageURL string) (int64, error) {
	return int64(len(r.list(func(p *models.Post) bool { return p.ImageURL == imageURL }))), nil
}

// memCommentRepo is an in-memory CommentRepository.
type memCommentRepo struct {
	mu       sync.Mutex
	comments []*models.Comment
}

func (r *memCommentRepo) CreateComment(_ context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, c)
	return nil
}

func (r *memCommentRepo) find(id string) *models.Comment {
	for _, c := range r.comments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (r *memCommentRepo) GetCommentByID(_ context.Context, id string) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(id)
	if c == nil {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCommentRepo) GetCommentsByPostID(_ context.Context, postID string) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Comment{}
	for _, c := range r.comments {
		if c.PostID == postID {
			cp := *c
			cp.Replies = append([]models.Comment(nil), c.Replies...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *memCommentRepo) AppendReply(_ context.Context, commentID string, reply models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(commentID)
	if c == nil {
		return repositories.ErrNotFound
	}
	c.Replies = append(c.Replies, reply)
	return nil
}

func toggleLike(c *models.Comment, userID string, on bool) bool {
	if c.LikedByUser(userID) == on {
		return false
	}
	if on {
		c.LikedBy = append(c.LikedBy, userID)
		c.Likes++
		return true
	}
	kept := []string{}
	for _, id := range c.LikedBy {
		if id != userID {
			kept = append(kept, id)
		}
	}
	c.LikedBy = kept
	c.Likes--
	return true
}

func (r *memCommentRepo) SetCommentLike(_ context.Context, commentID, userID string, on bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(commentID)
	if c == nil {
		return false, repositories.ErrNotFound
	}
	return toggleLike(c, userID, on), nil
}

func (r *memCommentRepo) SetReplyLike(_ context.Context, commentID, replyID, userID string, on bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.find(commentID)
	if c == nil {
		return false, repositories.ErrNotFound
	}
	for i := range c.Replies {
		if c.Replies[i].ID == replyID {
			return toggleLike(&c.Replies[i], userID, on), nil
		}
	}
	return false, repositories.ErrNotFound
}

func (r *memCommentRepo) DeleteCommentsByPostID(_ context.Context, postID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.comments[:0]
	var n int64
	for _, c := range r.comments {
		if c.PostID == postID {
			n++
			continue
		}
		kept = append(kept, c)
	}
	r.comments = kept
	return n, nil
}

type imageStoreStub struct {
	uploadFn func(context.Context, storage.UploadImageInput) (string, error)
	deleted  []string
	deleteFn func(context.Context, string) error
}

func (s *imageStoreStub) Upload(ctx context.Context, in storage.UploadImageInput) (string, error) {
	if s.uploadFn != nil {
		return s.uploadFn(ctx, in)
	}
	return "https://images.test/" + in.UserID + "/" + in.Filename, nil
}

func (s *imageStoreStub) Delete(ctx context.Context, rawURL string) error {
	if s.deleteFn != nil {
		if err := s.deleteFn(ctx, rawURL); err != nil {
			return err
		}
	}
	s.deleted = append(s.deleted, rawURL)
	return nil
}

type queueStub struct {
	submitted []verifier.Submission
}

func (q *queueStub) Submit(sub verifier.Submission) bool {
	q.submitted = append(q.submitted, sub)
	return true
}

type notifierStub struct {
	mu   sync.Mutex
	sent []NotifyInput
}

func (n *notifierStub) Notify(_ context.Context, in NotifyInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, in)
	return nil
}

func (n *notifierStub) types() []models.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []models.NotificationType{}
	for _, in := range n.sent {
		out = append(out, in.Type)
	}
	return out
}

type publishedEvent struct {
	UserID string
	Event  realtime.Event
}

type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *publisherStub) PublishUser(_ context.Context, uid string, ev realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: uid, Event: ev})
	return nil
}

type fixedRadius float64

func (r fixedRadius) RadiusFor(context.Context, string) float64 { return float64(r) }

// approvedPost builds an approved post created at createdAt lasting hours.
func approvedPost(creator string, createdAt time.Time, hours int, at *geo.Point) *models.Post {
	p := &models.Post{
		CreatorID:          creator,
		Title:              "Flooded street",
		Caption:            "Water up to the knees",
		Tags:               []string{"flood"},
		ImageURL:           "https://images.test/" + primitive.NewObjectID().Hex(),
		CreatedAt:          createdAt,
		Duration:           hours,
		ExpiresAt:          createdAt.Add(time.Duration(hours) * time.Hour),
		DeleteAt:           createdAt.Add(2 * time.Duration(hours) * time.Hour),
		LikedBy:            []string{},
		EyewitnessedBy:     []string{},
		VerificationStatus: models.VerificationApproved,
		IsVisible:          true,
	}
	if at != nil {
		p.Location = models.NewLocation(*at)
	}
	return p
}
