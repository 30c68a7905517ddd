package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/nearby/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentRepository defines the interface for comment data operations.
// Replies are embedded in their parent comment document.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error)
	AppendReply(ctx context.Context, commentID string, reply models.Comment) error
	SetCommentLike(ctx context.Context, commentID, userID string, on bool) (bool, error)
	SetReplyLike(ctx context.Context, commentID, replyID, userID string, on bool) (bool, error)
	DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error)
}

// MongoCommentRepository implements CommentRepository for MongoDB
type MongoCommentRepository struct {
	collection *mongo.Collection
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{collection: db.Collection("comments")}
}

func (r *MongoCommentRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "postId", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}

// CreateComment inserts a top-level comment.
func (r *MongoCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.LikedBy == nil {
		comment.LikedBy = []string{}
	}
	if comment.Replies == nil {
		comment.Replies = []models.Comment{}
	}
	_, err := r.collection.InsertOne(ctx, comment)
	return err
}

// GetCommentByID retrieves a top-level comment with its replies.
func (r *MongoCommentRepository) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// GetCommentsByPostID returns the comments of a post, oldest first.
func (r *MongoCommentRepository) GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"postId": postID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// AppendReply pushes reply onto the parent's replies.
func (r *MongoCommentRepository) AppendReply(ctx context.Context, commentID string, reply models.Comment) error {
	if reply.LikedBy == nil {
		reply.LikedBy = []string{}
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": commentID}, bson.M{"$push": bson.M{"replies": reply}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCommentLike adds or removes userID from a top-level comment's likes.
func (r *MongoCommentRepository) SetCommentLike(ctx context.Context, commentID, userID string, on bool) (bool, error) {
	filter, update := commentLikeUpdate(commentID, userID, on)
	return r.toggle(ctx, filter, update)
}

// SetReplyLike adds or removes userID from a reply's likes through the
// positional operator.
func (r *MongoCommentRepository) SetReplyLike(ctx context.Context, commentID, replyID, userID string, on bool) (bool, error) {
	filter, update := replyLikeUpdate(commentID, replyID, userID, on)
	return r.toggle(ctx, filter, update)
}

func commentLikeUpdate(commentID, userID string, on bool) (bson.M, bson.M) {
	if on {
		return bson.M{"_id": commentID, "likedBy": bson.M{"$ne": userID}},
			bson.M{"$inc": bson.M{"likes": 1}, "$addToSet": bson.M{"likedBy": userID}}
	}
	return bson.M{"_id": commentID, "likedBy": userID},
		bson.M{"$inc": bson.M{"likes": -1}, "$pull": bson.M{"likedBy": userID}}
}

func replyLikeUpdate(commentID, replyID, userID string, on bool) (bson.M, bson.M) {
	if on {
		return bson.M{"_id": commentID, "replies": bson.M{"$elemMatch": bson.M{"_id": replyID, "likedBy": bson.M{"$ne": userID}}}},
			bson.M{"$inc": bson.M{"replies.$.likes": 1}, "$addToSet": bson.M{"replies.$.likedBy": userID}}
	}
	return bson.M{"_id": commentID, "replies": bson.M{"$elemMatch": bson.M{"_id": replyID, "likedBy": userID}}},
		bson.M{"$inc": bson.M{"replies.$.likes": -1}, "$pull": bson.M{"replies.$.likedBy": userID}}
}

func (r *MongoCommentRepository) toggle(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// DeleteCommentsByPostID removes every comment of a post.
func (r *MongoCommentRepository) DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"postId": postID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
