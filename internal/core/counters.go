package core

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/circleapp/circle/internal/models"
	"github.com/circleapp/circle/pkg/logging"
)

// Aggregate field names, as stored on the owning documents.
const (
	FieldFollowersCount = "followers_count"
	FieldFollowingCount = "following_count"
	FieldPostsCount     = "posts_count"
	FieldLikesCount     = "likes_count"
	FieldCommentsCount  = "comments_count"
	FieldRepliesCount   = "replies_count"
	FieldSharesCount    = "shares_count"
	FieldViewsCount     = "views_count"
	FieldImpressions    = "metrics.impressions"
	FieldClicks         = "metrics.clicks"
	FieldConversions    = "metrics.conversions"
)

// allowedFields whitelists which aggregate each entity family owns.
// A ledger adjustment outside this table is a programming error.
var allowedFields = map[models.Family]map[string]bool{
	models.FamilyAccount: {
		FieldFollowersCount: true,
		FieldFollowingCount: true,
		FieldPostsCount:     true,
	},
	models.FamilyPost: {
		FieldLikesCount:    true,
		FieldCommentsCount: true,
		FieldSharesCount:   true,
	},
	models.FamilyComment: {
		FieldLikesCount:   true,
		FieldRepliesCount: true,
	},
	models.FamilyStory: {
		FieldViewsCount: true,
	},
	models.FamilyAdvertisement: {
		FieldImpressions: true,
		FieldClicks:      true,
		FieldConversions: true,
	},
}

// Adjuster is the durable store's atomic increment primitive. The
// increment must never be lost under concurrent adjustments to the same
// field of the same document.
type Adjuster interface {
	IncField(ctx context.Context, family models.Family, id primitive.ObjectID, field string, delta int64) error
}

// Ledger applies deltas to denormalized aggregate fields.
//
// Ledger failures leave the aggregate knowably inconsistent with its
// authoritative set; they must propagate, never be swallowed. Drift is
// repaired offline by the recount tool.
type Ledger struct {
	store  Adjuster
	logger *zap.Logger
}

// NewLedger creates a counter ledger over the given store.
func NewLedger(store Adjuster) *Ledger {
	return &Ledger{
		store:  store,
		logger: logging.WithComponent("counter-ledger"),
	}
}

// Adjust applies delta to one aggregate field of one entity.
func (l *Ledger) Adjust(ctx context.Context, family models.Family, id primitive.ObjectID, field string, delta int64) error {
	if !allowedFields[family][field] {
		return fmt.Errorf("%w: field %q is not an aggregate of family %q", ErrInvalid, field, family)
	}
	if delta == 0 {
		return nil
	}
	if err := l.store.IncField(ctx, family, id, field, delta); err != nil {
		l.logger.Error("Counter adjustment failed",
			zap.String("family", string(family)),
			zap.String("id", id.Hex()),
			zap.String("field", field),
			zap.Int64("delta", delta),
			zap.Error(err))
		return fmt.Errorf("adjust %s.%s by %d: %w", family, field, delta, err)
	}
	return nil
}
