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

// Lifecycled is implemented by every entity model: the raw facts the
// single visibility predicate needs.
type Lifecycled interface {
	ActiveFlag() bool
	Expiry() (time.Time, bool)
}

// Visible is the one exclusion predicate every read path applies: the
// entity is not soft-deleted, and its natural expiry (if any) has not
// passed. A cached story must be re-checked with this at read time: its
// cache entry may outlive the entity's own window.
func Visible(e Lifecycled, now time.Time) bool {
	if e == nil || !e.ActiveFlag() {
		return false
	}
	if expiresAt, ok := e.Expiry(); ok && !expiresAt.After(now) {
		return false
	}
	return true
}

// LifecycleStore resolves ownership and flips the soft-delete flag.
type LifecycleStore interface {
	// Owner returns the owning account of a visible entity, or
	// found=false when it is absent or already excluded.
	Owner(ctx context.Context, family models.Family, id primitive.ObjectID) (owner primitive.ObjectID, found bool, err error)
	// Deactivate flips is_active to false. Idempotent.
	Deactivate(ctx context.Context, family models.Family, id primitive.ObjectID) error
	// Comment loads a visible comment; needed for the mirrored counter
	// decrements a comment deletion triggers.
	Comment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
}

// Lifecycle implements owner-authorized soft deletion. The transition is
// one-way: nothing in this system re-activates an entity.
type Lifecycle struct {
	store  LifecycleStore
	ledger *Ledger
	cache  *cache.Cache
	logger *zap.Logger
}

// NewLifecycle creates the lifecycle engine.
func NewLifecycle(store LifecycleStore, ledger *Ledger, c *cache.Cache) *Lifecycle {
	return &Lifecycle{
		store:  store,
		ledger: ledger,
		cache:  c,
		logger: logging.WithComponent("lifecycle"),
	}
}

// SoftDelete deactivates an entity on behalf of requester. Fails with
// ErrForbidden unless requester owns the entity (for accounts: is the
// account). Aggregates that counted the entity are decremented in the
// same operation.
func (l *Lifecycle) SoftDelete(ctx context.Context, family models.Family, id, requester primitive.ObjectID) error {
	if !family.Valid() {
		return fmt.Errorf("%w: unknown family %q", ErrInvalid, family)
	}

	// A comment's references are needed before the flag flips
	var comment *models.Comment
	if family == models.FamilyComment {
		var err error
		comment, err = l.store.Comment(ctx, id)
		if err != nil {
			return err
		}
		if comment == nil {
			return fmt.Errorf("%w: comment %s", ErrNotFound, id.Hex())
		}
	}

	owner, found, err := l.store.Owner(ctx, family, id)
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s %s", ErrNotFound, family, id.Hex())
	}
	if owner != requester {
		return fmt.Errorf("%w: not the owner of %s %s", ErrForbidden, family, id.Hex())
	}

	if err := l.store.Deactivate(ctx, family, id); err != nil {
		return fmt.Errorf("deactivate %s %s: %w", family, id.Hex(), err)
	}

	if err := l.adjustAggregates(ctx, family, owner, comment); err != nil {
		return err
	}

	l.invalidate(ctx, family, id, owner, comment)

	l.logger.Info("Entity soft-deleted",
		zap.String("family", string(family)),
		zap.String("id", id.Hex()))
	return nil
}

// adjustAggregates mirrors the counter increments the entity's creation
// applied. Cross-document, hence eventually consistent with the flag
// flip; the recount tool repairs interrupted sequences.
func (l *Lifecycle) adjustAggregates(ctx context.Context, family models.Family, owner primitive.ObjectID, comment *models.Comment) error {
	switch family {
	case models.FamilyPost:
		return l.ledger.Adjust(ctx, models.FamilyAccount, owner, FieldPostsCount, -1)
	case models.FamilyComment:
		if err := l.ledger.Adjust(ctx, models.FamilyPost, comment.PostID, FieldCommentsCount, -1); err != nil {
			return err
		}
		if comment.TopLevelID != nil {
			return l.ledger.Adjust(ctx, models.FamilyComment, *comment.TopLevelID, FieldRepliesCount, -1)
		}
	}
	return nil
}

func (l *Lifecycle) invalidate(ctx context.Context, family models.Family, id, owner primitive.ObjectID, comment *models.Comment) {
	switch family {
	case models.FamilyAccount:
		l.cache.Invalidate(ctx, cache.NamespaceAccount, []string{cache.ProfileKey(id.Hex())}, nil)
	case models.FamilyPost:
		l.cache.Invalidate(ctx, cache.NamespacePost,
			[]string{cache.PostKey(id.Hex())},
			[]string{cache.PostListPrefix(owner.Hex())})
		// The author's postsCount changed too
		l.cache.Invalidate(ctx, cache.NamespaceAccount, []string{cache.ProfileKey(owner.Hex())}, nil)
	case models.FamilyComment:
		keys := []string{cache.PostKey(comment.PostID.Hex()), cache.CommentsKey(comment.PostID.Hex())}
		if comment.TopLevelID != nil {
			keys = append(keys, cache.RepliesKey(comment.TopLevelID.Hex()))
		}
		l.cache.Invalidate(ctx, cache.NamespacePost, keys, nil)
	case models.FamilyStory:
		l.cache.Invalidate(ctx, cache.NamespaceStory, []string{cache.StoriesKey(owner.Hex())}, nil)
	case models.FamilyService:
		l.cache.Invalidate(ctx, cache.NamespaceService, []string{cache.ServiceKey(id.Hex())}, nil)
	case models.FamilyAdvertisement:
		l.cache.Invalidate(ctx, cache.NamespaceAdvertisement, []string{cache.AdKey(id.Hex())}, nil)
	}
}
