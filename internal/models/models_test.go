package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/anonto42/nearby/backend/internal/lifecycle"
	"github.com/anonto42/nearby/backend/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFindComment_TopLevel(t *testing.T) {
	t.Parallel()

	comments := []Comment{
		{ID: "c1", Text: "first"},
		{ID: "c2", Text: "second"},
	}

	loc, ok := FindComment(comments, "c2")
	require.True(t, ok)
	assert.False(t, loc.IsReply)
	assert.Nil(t, loc.Parent)
	assert.Equal(t, "second", loc.Comment.Text)
}

func TestFindComment_Reply(t *testing.T) {
	t.Parallel()

	comments := []Comment{
		{ID: "c1", Text: "no replies"},
		{
			ID:   "c2",
			Text: "parent",
			Replies: []Comment{
				{ID: "r1", SenderID: "u9", Username: "Rita", UserAvatar: "https://img/rita.png", Text: "reply", Likes: 2, LikedBy: []string{"a", "b"}},
			},
		},
	}

	loc, ok := FindComment(comments, "r1")
	require.True(t, ok)
	assert.True(t, loc.IsReply)
	require.NotNil(t, loc.Parent)
	assert.Equal(t, "c2", loc.Parent.ID)
	assert.Equal(t, "reply", loc.Comment.Text)
	assert.Equal(t, "Rita", loc.Comment.Username)
	assert.Equal(t, "https://img/rita.png", loc.Comment.UserAvatar)
	assert.Equal(t, 2, loc.Comment.Likes)
	assert.Equal(t, []string{"a", "b"}, loc.Comment.LikedBy)
}

func TestFindComment_Missing(t *testing.T) {
	t.Parallel()

	_, ok := FindComment([]Comment{{ID: "c1"}}, "nope")
	assert.False(t, ok)
}

func TestNewReply_SnapshotsAuthor(t *testing.T) {
	t.Parallel()

	author := &User{ID: "u1", DisplayName: "Ana", PhotoURL: "https://img/ana.png"}
	reply := NewReply(author, "hi", time.Now())

	author.DisplayName = "Ana Renamed"
	assert.Equal(t, "Ana", reply.Username)
	assert.NotEmpty(t, reply.ID)
	assert.Equal(t, "u1", reply.SenderID)
}

func TestUser_CommentNameFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ana", (&User{DisplayName: "Ana", Email: "a@x.io"}).CommentName())
	assert.Equal(t, "a@x.io", (&User{Email: "a@x.io"}).CommentName())
	assert.Equal(t, UnknownUserName, (&User{}).CommentName())
	assert.Equal(t, DefaultUserName, (&User{}).Name())
}

func TestPost_Repost(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	name := "Ana"
	orig := &Post{
		ID:                 primitive.NewObjectID(),
		CreatorID:          "u1",
		Username:           &name,
		Title:              "Road closed",
		Caption:            "Main street",
		Tags:               []string{"traffic"},
		Location:           NewLocation(geo.Point{Lat: 23.8, Lng: 90.4}),
		CreatedAt:          created,
		Duration:           2,
		ExpiresAt:          created.Add(2 * time.Hour),
		Likes:              7,
		LikedBy:            []string{"a"},
		Eyewitnesses:       3,
		EyewitnessedBy:     []string{"b"},
		CommentCount:       4,
		VerificationStatus: VerificationApproved,
		IsVisible:          true,
	}

	now := created.Add(3 * time.Hour)
	r := orig.Repost(now)

	assert.True(t, r.ID.IsZero())
	assert.Equal(t, now, r.CreatedAt)
	assert.Equal(t, now.Add(2*time.Hour), r.ExpiresAt)
	assert.Equal(t, now.Add(4*time.Hour), r.DeleteAt)
	assert.Zero(t, r.Likes)
	assert.Zero(t, r.Eyewitnesses)
	assert.Zero(t, r.CommentCount)
	assert.Empty(t, r.LikedBy)
	assert.Empty(t, r.EyewitnessedBy)
	assert.Equal(t, orig.Title, r.Title)
	assert.Equal(t, orig.Tags, r.Tags)
	assert.Equal(t, orig.Location.Point(), r.Location.Point())
	assert.Equal(t, orig.ID.Hex(), r.RepostOf)
	assert.Equal(t, lifecycle.StateActive, r.State(now))
}

func TestPost_RepostAnonymousDropsIdentity(t *testing.T) {
	t.Parallel()

	name, avatar := "Ana", "https://img/ana.png"
	orig := &Post{ID: primitive.NewObjectID(), IsAnonymous: true, Username: &name, UserAvatar: &avatar, Duration: 1}

	r := orig.Repost(time.Now())
	assert.Nil(t, r.Username)
	assert.Nil(t, r.UserAvatar)
	assert.Equal(t, AnonymousName, r.DisplayName())
}

func TestLocation_JSON(t *testing.T) {
	t.Parallel()

	loc := NewLocation(geo.Point{Lat: 10.5, Lng: -20.25})
	assert.Equal(t, []float64{-20.25, 10.5}, loc.Coordinates)

	data, err := json.Marshal(loc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lat":10.5,"lng":-20.25}`, string(data))

	var back Location
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "Point", back.Type)
	assert.Equal(t, loc.Point(), back.Point())
}

func TestChatID_IsOrderIndependent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alice_bob", ChatID("bob", "alice"))
	assert.Equal(t, ChatID("alice", "bob"), ChatID("bob", "alice"))
}

func TestAppError(t *testing.T) {
	t.Parallel()

	err := NewNotFoundError("post", "abc")
	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(err, CodeForbidden))
	assert.Contains(t, err.Error(), "post not found: abc")
}
