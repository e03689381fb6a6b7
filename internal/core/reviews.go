package core

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/models"
	"github.com/circleapp/circle/pkg/logging"
)

// Review rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// ReviewStore reads services and appends reviews.
type ReviewStore interface {
	// Service returns the service, or nil when absent or not visible.
	Service(ctx context.Context, id primitive.ObjectID) (*models.Service, error)
	// AddReview appends the review and bumps count and sum in the same
	// document update; changed=false when the actor already reviewed.
	AddReview(ctx context.Context, id primitive.ObjectID, review models.Review) (changed bool, err error)
}

// Reviews maintains the per-service rating aggregate: the stored count
// and sum always move with the review they describe, so the derived
// average is exact.
type Reviews struct {
	store  ReviewStore
	cache  *cache.Cache
	logger *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewReviews creates the review engine.
func NewReviews(store ReviewStore, c *cache.Cache) *Reviews {
	return &Reviews{
		store:  store,
		cache:  c,
		logger: logging.WithComponent("reviews"),
		now:    time.Now,
	}
}

// Add records one account's review of a service. At most one review per
// (service, account) pair; a second attempt fails with ErrConflict and
// leaves the aggregate untouched.
func (r *Reviews) Add(ctx context.Context, serviceID, actor primitive.ObjectID, rating int, comment string) (*models.Service, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, fmt.Errorf("%w: rating %d out of [%d,%d]", ErrInvalid, rating, MinRating, MaxRating)
	}

	svc, err := r.store.Service(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: service %s", ErrNotFound, serviceID.Hex())
	}
	if svc.ProviderID == actor {
		return nil, fmt.Errorf("%w: providers cannot review their own service", ErrForbidden)
	}

	review := models.Review{
		User:    actor,
		Rating:  rating,
		Comment: comment,
		At:      r.now(),
	}

	changed, err := r.store.AddReview(ctx, serviceID, review)
	if err != nil {
		return nil, fmt.Errorf("add review: %w", err)
	}
	if !changed {
		return nil, fmt.Errorf("%w: account %s already reviewed service %s", ErrConflict, actor.Hex(), serviceID.Hex())
	}

	r.cache.Invalidate(ctx, cache.NamespaceService,
		[]string{cache.ServiceKey(serviceID.Hex())}, nil)

	refreshed, err := r.store.Service(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("reload service: %w", err)
	}
	if refreshed == nil {
		return nil, fmt.Errorf("%w: service %s", ErrNotFound, serviceID.Hex())
	}

	r.logger.Debug("Review added",
		zap.String("service", serviceID.Hex()),
		zap.Int("rating", rating),
		zap.Float64("average", refreshed.Rating.Average()))
	return refreshed, nil
}
