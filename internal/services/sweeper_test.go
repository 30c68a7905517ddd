package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_SweepOnce(t *testing.T) {
	due := approvedPost("owner", testNow.Add(-5*time.Hour), 2, nil)
	repostable := approvedPost("owner", testNow.Add(-3*time.Hour), 2, nil)
	active := approvedPost("owner", testNow, 2, nil)
	posts := newMemPostRepo(due, repostable, active)
	comments := &memCommentRepo{}
	ctx := context.Background()
	require.NoError(t, comments.CreateComment(ctx, &models.Comment{ID: "c1", PostID: due.ID.Hex()}))
	require.NoError(t, comments.CreateComment(ctx, &models.Comment{ID: "c2", PostID: active.ID.Hex()}))
	images := &imageStoreStub{}

	s := NewSweeper(posts, comments, images, time.Minute, 0, nil)
	s.now = func() time.Time { return testNow }

	removed, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{due.ImageURL}, images.deleted)

	_, err = posts.GetPostByID(ctx, due.ID.Hex())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = posts.GetPostByID(ctx, repostable.ID.Hex())
	assert.NoError(t, err)
	require.Len(t, comments.comments, 1)
	assert.Equal(t, "c2", comments.comments[0].ID)
}

func TestSweeper_KeepsPostWhenImageRemovalFails(t *testing.T) {
	due := approvedPost("owner", testNow.Add(-5*time.Hour), 2, nil)
	posts := newMemPostRepo(due)
	images := &imageStoreStub{deleteFn: func(context.Context, string) error { return errors.New("storage down") }}

	s := NewSweeper(posts, &memCommentRepo{}, images, 0, 0, nil)
	s.now = func() time.Time { return testNow }

	removed, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	_, err = posts.GetPostByID(context.Background(), due.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, DefaultSweepInterval, s.interval)
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	posts := newMemPostRepo()
	s := NewSweeper(posts, &memCommentRepo{}, &imageStoreStub{}, time.Hour, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeper_KeepsPostAtExactDeleteAt(t *testing.T) {
	boundary := approvedPost("owner", testNow.Add(-4*time.Hour), 2, nil)
	require.Equal(t, testNow, boundary.DeleteAt)
	require.False(t, boundary.Window().DueForDeletion(testNow))
	posts := newMemPostRepo(boundary)

	s := NewSweeper(posts, &memCommentRepo{}, &imageStoreStub{}, time.Minute, 10, nil)
	s.now = func() time.Time { return testNow }

	removed, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	s.now = func() time.Time { return testNow.Add(time.Second) }
	removed, err = s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestSweeper_FailingPostsDoNotBlockNewerOnes(t *testing.T) {
	stuck := approvedPost("owner", testNow.Add(-10*time.Hour), 2, nil)
	newer := approvedPost("owner", testNow.Add(-6*time.Hour), 2, nil)
	newest := approvedPost("owner", testNow.Add(-5*time.Hour), 2, nil)
	posts := newMemPostRepo(stuck, newer, newest)
	images := &imageStoreStub{deleteFn: func(_ context.Context, url string) error {
		if url == stuck.ImageURL {
			return errors.New("permission denied")
		}
		return nil
	}}

	s := NewSweeper(posts, &memCommentRepo{}, images, time.Minute, 1, nil)
	s.now = func() time.Time { return testNow }

	for _, want := range []*models.Post{newer, newest} {
		removed, err := s.SweepOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		_, err = posts.GetPostByID(context.Background(), want.ID.Hex())
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	}
	assert.Equal(t, []string{newer.ImageURL, newest.ImageURL}, images.deleted)

	_, err := posts.GetPostByID(context.Background(), stuck.ID.Hex())
	assert.NoError(t, err)
}
