package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleapp/circle/internal/models"
)

// StoryRepository handles story data operations
type StoryRepository struct {
	*Repository
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(repo *Repository) *StoryRepository {
	return &StoryRepository{Repository: repo}
}

// Create inserts a story. The expiry is fixed at creation; the TTL
// index on expires_at handles the physical purge.
func (r *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	now := r.now()
	story.ID = primitive.NewObjectID()
	story.IsActive = true
	story.CreatedAt = now
	story.ExpiresAt = now.Add(models.StoryLifetime)
	if story.Views == nil {
		story.Views = []models.Reaction{}
	}

	_, err := r.db.Collection(models.FamilyStory).InsertOne(ctx, story)
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

// ListActiveByAuthor returns the author's live stories, oldest first.
func (r *StoryRepository) ListActiveByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Story, error) {
	filter := r.visibleFilter(models.FamilyStory)
	filter["author_id"] = authorID

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.db.Collection(models.FamilyStory).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer cursor.Close(ctx)

	stories := []models.Story{}
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}
	return stories, nil
}
