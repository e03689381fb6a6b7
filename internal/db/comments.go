package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleapp/circle/internal/core"
	"github.com/circleapp/circle/internal/models"
)

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// Create creates a comment, flattening the thread at write time: when
// the parent is itself a reply, the new comment attaches to the
// parent's top-level comment, so TopLevelID never points at a reply and
// reads never recurse.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ParentID != nil {
		parent, err := r.Comment(ctx, *comment.ParentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("%w: parent comment %s", core.ErrNotFound, comment.ParentID.Hex())
		}
		if parent.PostID != comment.PostID {
			return fmt.Errorf("%w: parent comment %s belongs to another post", core.ErrInvalid, comment.ParentID.Hex())
		}
		if parent.TopLevelID != nil {
			comment.TopLevelID = parent.TopLevelID
		} else {
			comment.TopLevelID = &parent.ID
		}
	}

	comment.ID = primitive.NewObjectID()
	comment.IsActive = true
	comment.CreatedAt = r.now()
	if comment.Likes == nil {
		comment.Likes = []models.Reaction{}
	}
	_, err := r.db.Collection(models.FamilyComment).InsertOne(ctx, comment)
	return err
}

// Comment retrieves a visible comment by ID, nil when absent
func (r *CommentRepository) Comment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.Collection(models.FamilyComment).
		FindOne(ctx, r.visibleByID(models.FamilyComment, id)).Decode(&comment)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost retrieves one page of a post's visible top-level comments,
// oldest first.
func (r *CommentRepository) ListByPost(ctx context.Context, postID primitive.ObjectID, page, limit int64) ([]*models.Comment, error) {
	filter := r.visibleFilter(models.FamilyComment)
	filter["post_id"] = postID
	filter["top_level_id"] = nil
	return r.find(ctx, filter, page, limit)
}

// ListReplies retrieves the visible replies under a top-level comment,
// oldest first.
func (r *CommentRepository) ListReplies(ctx context.Context, topLevelID primitive.ObjectID, page, limit int64) ([]*models.Comment, error) {
	filter := r.visibleFilter(models.FamilyComment)
	filter["top_level_id"] = topLevelID
	return r.find(ctx, filter, page, limit)
}

func (r *CommentRepository) find(ctx context.Context, filter bson.M, page, limit int64) ([]*models.Comment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(page * limit).
		SetLimit(limit)

	cursor, err := r.db.Collection(models.FamilyComment).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	comments := []*models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}
