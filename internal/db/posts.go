package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleapp/circle/internal/models"
)

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.IsActive = true
	post.CreatedAt = r.now()
	if post.Likes == nil {
		post.Likes = []models.Reaction{}
	}
	if post.Media == nil {
		post.Media = []models.MediaItem{}
	}
	if post.Visibility == "" {
		post.Visibility = models.VisibilityPublic
	}
	_, err := r.db.Collection(models.FamilyPost).InsertOne(ctx, post)
	return err
}

// Post retrieves a visible post by ID, nil when absent
func (r *PostRepository) Post(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := r.db.Collection(models.FamilyPost).
		FindOne(ctx, r.visibleByID(models.FamilyPost, id)).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListByAuthor retrieves one page of an author's visible posts, newest
// first. Private posts are included only when the viewer is the author.
func (r *PostRepository) ListByAuthor(ctx context.Context, author, viewer primitive.ObjectID, page, limit int64) ([]*models.Post, error) {
	filter := r.visibleFilter(models.FamilyPost)
	filter["author_id"] = author
	if viewer != author {
		filter["visibility"] = models.VisibilityPublic
	}
	return r.find(ctx, filter, page, limit)
}

// ListFeed retrieves one page of the viewer's feed: public posts from
// the followed authors plus the viewer's own, newest first.
func (r *PostRepository) ListFeed(ctx context.Context, viewer primitive.ObjectID, following []primitive.ObjectID, page, limit int64) ([]*models.Post, error) {
	authors := append(append([]primitive.ObjectID{}, following...), viewer)
	filter := r.visibleFilter(models.FamilyPost)
	filter["$or"] = bson.A{
		bson.M{"author_id": bson.M{"$in": authors}, "visibility": models.VisibilityPublic},
		bson.M{"author_id": viewer},
	}
	return r.find(ctx, filter, page, limit)
}

func (r *PostRepository) find(ctx context.Context, filter bson.M, page, limit int64) ([]*models.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(page * limit).
		SetLimit(limit)

	cursor, err := r.db.Collection(models.FamilyPost).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []*models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
