package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleapp/circle/internal/models"
)

// ServiceRepository handles marketplace listing data operations
type ServiceRepository struct {
	*Repository
}

// NewServiceRepository creates a new service repository
func NewServiceRepository(repo *Repository) *ServiceRepository {
	return &ServiceRepository{Repository: repo}
}

// Create inserts a listing with an empty rating aggregate.
func (r *ServiceRepository) Create(ctx context.Context, service *models.Service) error {
	service.ID = primitive.NewObjectID()
	service.IsActive = true
	service.CreatedAt = r.now()
	service.Rating = models.Rating{Reviews: []models.Review{}}

	_, err := r.db.Collection(models.FamilyService).InsertOne(ctx, service)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

// Service returns a visible listing, or nil when absent or soft-deleted.
func (r *ServiceRepository) Service(ctx context.Context, id primitive.ObjectID) (*models.Service, error) {
	var service models.Service
	err := r.db.Collection(models.FamilyService).FindOne(ctx, r.visibleByID(models.FamilyService, id)).Decode(&service)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}

// AddReview appends the review and bumps the aggregate count and sum in
// the same document update. The one-review-per-account rule is enforced
// by the filter, so a replay reports changed=false.
func (r *ServiceRepository) AddReview(ctx context.Context, id primitive.ObjectID, review models.Review) (bool, error) {
	filter := r.visibleByID(models.FamilyService, id)
	filter["rating.reviews.user"] = bson.M{"$ne": review.User}

	update := bson.M{
		"$push": bson.M{"rating.reviews": review},
		"$inc": bson.M{
			"rating.count": 1,
			"rating.sum":   review.Rating,
		},
	}

	result, err := r.db.Collection(models.FamilyService).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("add review: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// ListByCategory returns visible listings, newest first. An empty
// category matches everything.
func (r *ServiceRepository) ListByCategory(ctx context.Context, category string, skip, limit int64) ([]models.Service, error) {
	filter := r.visibleFilter(models.FamilyService)
	if category != "" {
		filter["category"] = category
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.db.Collection(models.FamilyService).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer cursor.Close(ctx)

	services := []models.Service{}
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	return services, nil
}
