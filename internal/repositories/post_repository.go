package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/pkg/geo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Reaction names a per-user toggle on a post.
type Reaction string

const (
	ReactionLike       Reaction = "like"
	ReactionEyewitness Reaction = "eyewitness"
)

// counterField and setField are the post fields backing r.
func (r Reaction) fields() (counterField, setField string, err error) {
	switch r {
	case ReactionLike:
		return "likes", "likedBy", nil
	case ReactionEyewitness:
		return "eyewitnesses", "eyewitnessedBy", nil
	}
	return "", "", fmt.Errorf("unknown reaction %q", r)
}

// VerificationUpdate is the moderation state written back to a post.
type VerificationUpdate struct {
	Status          models.VerificationStatus
	Visible         bool
	TextSafe        string
	ImageSafe       string
	ImageAI         string
	ContentLabel    string
	RejectedReasons []string
	VerifiedAt      time.Time
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetVisiblePosts(ctx context.Context, now time.Time) ([]models.Post, error)
	GetVisiblePostsNear(ctx context.Context, origin geo.Point, radiusKm float64, now time.Time) ([]models.Post, error)
	GetPostsByCreator(ctx context.Context, creatorID string) ([]models.Post, error)
	SetReaction(ctx context.Context, postID string, reaction Reaction, userID string, on bool) (*models.Post, bool, error)
	IncrementCommentCount(ctx context.Context, postID string, delta int) error
	ApplyVerification(ctx context.Context, postID string, update VerificationUpdate) (*models.Post, error)
	GetPostsDueForDeletion(ctx context.Context, now time.Time, skip []string, limit int64) ([]models.Post, error)
	DeletePost(ctx context.Context, id string) error
	CountByImageURL(ctx context.Context, imageURL string) (int64, error)
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// EnsureIndexes creates the geo, sweep and creator indexes.
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "deleteAt", Value: 1}}},
		{Keys: bson.D{{Key: "creatorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "verification_status", Value: 1}, {Key: "is_visible", Value: 1}, {Key: "expiresAt", Value: 1}}},
	})
	return err
}

func postObjectID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	return objID, nil
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.LikedBy == nil {
		post.LikedBy = []string{}
	}
	if post.EyewitnessedBy == nil {
		post.EyewitnessedBy = []string{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := postObjectID(id)
	if err != nil {
		return nil, err
	}

	var post models.Post
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func visibleFilter(now time.Time) bson.M {
	return bson.M{
		"verification_status": models.VerificationApproved,
		"is_visible":          true,
		"expiresAt":           bson.M{"$gt": now},
	}
}

// GetVisiblePosts returns approved posts that have not expired, newest first.
func (r *MongoPostRepository) GetVisiblePosts(ctx context.Context, now time.Time) ([]models.Post, error) {
	return r.find(ctx, visibleFilter(now), options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// GetVisiblePostsNear narrows GetVisiblePosts to posts within radiusKm of
// origin. Posts without a location never match.
func (r *MongoPostRepository) GetVisiblePostsNear(ctx context.Context, origin geo.Point, radiusKm float64, now time.Time) ([]models.Post, error) {
	filter := visibleFilter(now)
	filter["location"] = bson.M{"$geoWithin": bson.M{
		"$centerSphere": bson.A{bson.A{origin.Lng, origin.Lat}, radiusKm / geo.EarthRadiusKm},
	}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// GetPostsByCreator returns every stored post of creatorID, newest first.
func (r *MongoPostRepository) GetPostsByCreator(ctx context.Context, creatorID string) ([]models.Post, error) {
	return r.find(ctx, bson.M{"creatorId": creatorID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// SetReaction adds (on) or removes userID from the reaction set and moves the
// counter with it. The set membership guard in the filter makes repeated
// calls no-ops; changed reports whether this call did the update.
func (r *MongoPostRepository) SetReaction(ctx context.Context, postID string, reaction Reaction, userID string, on bool) (*models.Post, bool, error) {
	objID, err := postObjectID(postID)
	if err != nil {
		return nil, false, err
	}
	filter, update, err := reactionUpdate(objID, reaction, userID, on)
	if err != nil {
		return nil, false, err
	}

	var post models.Post
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&post)
	if err == nil {
		return &post, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	current, err := r.GetPostByID(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func reactionUpdate(id primitive.ObjectID, reaction Reaction, userID string, on bool) (bson.M, bson.M, error) {
	counter, set, err := reaction.fields()
	if err != nil {
		return nil, nil, err
	}
	if on {
		return bson.M{"_id": id, set: bson.M{"$ne": userID}},
			bson.M{"$inc": bson.M{counter: 1}, "$addToSet": bson.M{set: userID}}, nil
	}
	return bson.M{"_id": id, set: userID},
		bson.M{"$inc": bson.M{counter: -1}, "$pull": bson.M{set: userID}}, nil
}

// IncrementCommentCount moves the comment counter by delta.
func (r *MongoPostRepository) IncrementCommentCount(ctx context.Context, postID string, delta int) error {
	objID, err := postObjectID(postID)
	if err != nil {
		return err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{"commentCount": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyVerification stores the verifier's verdict and returns the updated post.
func (r *MongoPostRepository) ApplyVerification(ctx context.Context, postID string, u VerificationUpdate) (*models.Post, error) {
	objID, err := postObjectID(postID)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"verification_status": u.Status,
		"is_visible":          u.Visible,
		"text_safe":           u.TextSafe,
		"image_safe":          u.ImageSafe,
		"image_ai":            u.ImageAI,
		"last_verified":       u.VerifiedAt,
	}
	update := bson.M{"$set": set}
	unset := bson.M{}
	if u.ContentLabel != "" {
		set["content_label"] = u.ContentLabel
	} else {
		unset["content_label"] = ""
	}
	if len(u.RejectedReasons) > 0 {
		set["rejected_reason"] = u.RejectedReasons
	} else {
		unset["rejected_reason"] = ""
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var post models.Post
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsDueForDeletion returns up to limit posts whose deleteAt lies
// strictly before now, oldest first, leaving out the ids in skip.
func (r *MongoPostRepository) GetPostsDueForDeletion(ctx context.Context, now time.Time, skip []string, limit int64) ([]models.Post, error) {
	filter := bson.M{"deleteAt": bson.M{"$lt": now}}
	if len(skip) > 0 {
		ids := make([]primitive.ObjectID, 0, len(skip))
		for _, id := range skip {
			if oid, err := primitive.ObjectIDFromHex(id); err == nil {
				ids = append(ids, oid)
			}
		}
		filter["_id"] = bson.M{"$nin": ids}
	}
	opts := options.Find().SetSort(bson.D{{Key: "deleteAt", Value: 1}}).SetLimit(limit)
	return r.find(ctx, filter, opts)
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	objID, err := postObjectID(id)
	if err != nil {
		return err
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByImageURL counts the posts showing imageURL. Reposts share the image
// of their source post.
func (r *MongoPostRepository) CountByImageURL(ctx context.Context, imageURL string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"imageUrl": imageURL})
}

func (r *MongoPostRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
