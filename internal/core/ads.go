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

// AdStore reads advertisements for serving.
type AdStore interface {
	// Advertisement returns the ad, or nil when absent or not visible.
	Advertisement(ctx context.Context, id primitive.ObjectID) (*models.Advertisement, error)
	// Eligible lists ads with status active whose schedule window
	// contains now, up to limit.
	Eligible(ctx context.Context, now time.Time, limit int) ([]*models.Advertisement, error)
}

// Ads serves eligible advertisements and accumulates gross metrics.
// Impressions count serve batches, not unique viewers.
type Ads struct {
	store  AdStore
	ledger *Ledger
	cache  *cache.Cache
	logger *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewAds creates the advertisement engine.
func NewAds(store AdStore, ledger *Ledger, c *cache.Cache) *Ads {
	return &Ads{
		store:  store,
		ledger: ledger,
		cache:  c,
		logger: logging.WithComponent("ads"),
		now:    time.Now,
	}
}

// Serve returns up to limit eligible ads and counts one impression per
// served ad.
func (a *Ads) Serve(ctx context.Context, limit int) ([]*models.Advertisement, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalid)
	}

	ads, err := a.store.Eligible(ctx, a.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("list eligible ads: %w", err)
	}

	for _, ad := range ads {
		if err := a.ledger.Adjust(ctx, models.FamilyAdvertisement, ad.ID, FieldImpressions, 1); err != nil {
			return nil, err
		}
		ad.Metrics.Impressions++
	}

	if len(ads) > 0 {
		a.cache.Invalidate(ctx, cache.NamespaceAdvertisement, nil, nil)
	}

	return ads, nil
}

// RecordClick counts one click on a served ad.
func (a *Ads) RecordClick(ctx context.Context, id primitive.ObjectID) error {
	return a.recordMetric(ctx, id, FieldClicks)
}

// RecordConversion counts one conversion attributed to an ad.
func (a *Ads) RecordConversion(ctx context.Context, id primitive.ObjectID) error {
	return a.recordMetric(ctx, id, FieldConversions)
}

func (a *Ads) recordMetric(ctx context.Context, id primitive.ObjectID, field string) error {
	ad, err := a.store.Advertisement(ctx, id)
	if err != nil {
		return fmt.Errorf("load advertisement: %w", err)
	}
	if ad == nil {
		return fmt.Errorf("%w: advertisement %s", ErrNotFound, id.Hex())
	}

	if err := a.ledger.Adjust(ctx, models.FamilyAdvertisement, id, field, 1); err != nil {
		return err
	}

	a.cache.Invalidate(ctx, cache.NamespaceAdvertisement,
		[]string{cache.AdKey(id.Hex())}, nil)

	a.logger.Debug("Ad metric recorded",
		zap.String("id", id.Hex()),
		zap.String("field", field))
	return nil
}
