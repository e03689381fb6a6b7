package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleapp/circle/internal/core"
	"github.com/circleapp/circle/internal/models"
)

// AdRepository handles advertisement data operations
type AdRepository struct {
	*Repository
}

// NewAdRepository creates a new advertisement repository
func NewAdRepository(repo *Repository) *AdRepository {
	return &AdRepository{Repository: repo}
}

// Create inserts a campaign with zeroed metrics.
func (r *AdRepository) Create(ctx context.Context, ad *models.Advertisement) error {
	ad.ID = primitive.NewObjectID()
	ad.IsActive = true
	ad.CreatedAt = r.now()
	ad.Metrics = models.AdMetrics{}
	if ad.Status == "" {
		ad.Status = models.AdStatusActive
	}

	_, err := r.db.Collection(models.FamilyAdvertisement).InsertOne(ctx, ad)
	if err != nil {
		return fmt.Errorf("insert advertisement: %w", err)
	}
	return nil
}

// Advertisement returns a visible campaign, or nil when absent or
// soft-deleted.
func (r *AdRepository) Advertisement(ctx context.Context, id primitive.ObjectID) (*models.Advertisement, error) {
	var ad models.Advertisement
	err := r.db.Collection(models.FamilyAdvertisement).FindOne(ctx, r.visibleByID(models.FamilyAdvertisement, id)).Decode(&ad)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

// Eligible lists active campaigns whose schedule window contains now,
// up to limit, oldest start first so every campaign gets rotation.
func (r *AdRepository) Eligible(ctx context.Context, now time.Time, limit int) ([]*models.Advertisement, error) {
	filter := r.visibleFilter(models.FamilyAdvertisement)
	filter["status"] = models.AdStatusActive
	filter["schedule.start_date"] = bson.M{"$lte": now}
	filter["schedule.end_date"] = bson.M{"$gte": now}

	opts := options.Find().
		SetSort(bson.D{{Key: "schedule.start_date", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.db.Collection(models.FamilyAdvertisement).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list eligible ads: %w", err)
	}
	defer cursor.Close(ctx)

	ads := []*models.Advertisement{}
	if err := cursor.All(ctx, &ads); err != nil {
		return nil, fmt.Errorf("decode ads: %w", err)
	}
	return ads, nil
}

// UpdateStatus moves a campaign between active, paused and ended.
func (r *AdRepository) UpdateStatus(ctx context.Context, id, advertiserID primitive.ObjectID, status string) error {
	switch status {
	case models.AdStatusActive, models.AdStatusPaused, models.AdStatusEnded:
	default:
		return fmt.Errorf("%w: unknown status %q", core.ErrInvalid, status)
	}

	filter := r.visibleByID(models.FamilyAdvertisement, id)
	filter["advertiser_id"] = advertiserID

	result, err := r.db.Collection(models.FamilyAdvertisement).UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("update ad status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: advertisement %s", core.ErrNotFound, id.Hex())
	}
	return nil
}

// ListByAdvertiser returns an advertiser's campaigns, newest first.
func (r *AdRepository) ListByAdvertiser(ctx context.Context, advertiserID primitive.ObjectID) ([]models.Advertisement, error) {
	filter := r.visibleFilter(models.FamilyAdvertisement)
	filter["advertiser_id"] = advertiserID

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.db.Collection(models.FamilyAdvertisement).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	defer cursor.Close(ctx)

	ads := []models.Advertisement{}
	if err := cursor.All(ctx, &ads); err != nil {
		return nil, fmt.Errorf("decode ads: %w", err)
	}
	return ads, nil
}
