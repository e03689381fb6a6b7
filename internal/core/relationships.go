package core

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/models"
	"github.com/circleapp/circle/pkg/logging"
)

// RelationshipStore mutates the two membership sets of a follow edge.
//
// Each Add/Remove is one conditional single-document update: the set
// mutation and its counter delta land together or not at all, and a
// replay is a no-op (changed=false). The actor-side and target-side
// writes are two independent documents with no cross-document
// transaction; between them a reader can observe the edge half-applied.
type RelationshipStore interface {
	// Account returns the account, or nil when absent or not visible.
	Account(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	// AddFollowing puts target into actor's following set and bumps the
	// count; changed=false when the edge already existed.
	AddFollowing(ctx context.Context, actor, target primitive.ObjectID) (changed bool, err error)
	RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) (changed bool, err error)
	// AddFollower puts actor into target's followers set and bumps the
	// count; changed=false when already present.
	AddFollower(ctx context.Context, target, actor primitive.ObjectID) (changed bool, err error)
	RemoveFollower(ctx context.Context, target, actor primitive.ObjectID) (changed bool, err error)
}

// FollowResult reports the relationship state after the operation.
type FollowResult struct {
	IsFollowing bool `json:"isFollowing"`
}

// Relationships keeps the bidirectional follow state consistent across
// the two account documents.
type Relationships struct {
	store  RelationshipStore
	cache  *cache.Cache
	logger *zap.Logger
}

// NewRelationships creates the relationship engine.
func NewRelationships(store RelationshipStore, c *cache.Cache) *Relationships {
	return &Relationships{
		store:  store,
		cache:  c,
		logger: logging.WithComponent("relationships"),
	}
}

// Follow adds the actor→target edge. Following an account twice is a
// no-op that still reports isFollowing=true now.
func (r *Relationships) Follow(ctx context.Context, actor, target primitive.ObjectID) (FollowResult, error) {
	if actor == target {
		return FollowResult{}, fmt.Errorf("%w: cannot follow yourself", ErrForbidden)
	}
	if err := r.requireAccounts(ctx, actor, target); err != nil {
		return FollowResult{}, err
	}

	changed, err := r.store.AddFollowing(ctx, actor, target)
	if err != nil {
		return FollowResult{}, fmt.Errorf("add following: %w", err)
	}
	if !changed {
		// Already following
		return FollowResult{IsFollowing: true}, nil
	}

	// Second document; eventually consistent with the first. A failure
	// here leaves drift for the offline recount to repair.
	if _, err := r.store.AddFollower(ctx, target, actor); err != nil {
		r.logger.Error("Follower-side write failed after following-side succeeded",
			zap.String("actor", actor.Hex()),
			zap.String("target", target.Hex()),
			zap.Error(err))
		return FollowResult{}, fmt.Errorf("add follower: %w", err)
	}

	// Invalidate after the durable writes, never before
	r.invalidate(ctx, actor, target)

	return FollowResult{IsFollowing: true}, nil
}

// Unfollow removes the actor→target edge, symmetric to Follow.
func (r *Relationships) Unfollow(ctx context.Context, actor, target primitive.ObjectID) (FollowResult, error) {
	if actor == target {
		return FollowResult{}, fmt.Errorf("%w: cannot unfollow yourself", ErrForbidden)
	}
	if err := r.requireAccounts(ctx, actor, target); err != nil {
		return FollowResult{}, err
	}

	changed, err := r.store.RemoveFollowing(ctx, actor, target)
	if err != nil {
		return FollowResult{}, fmt.Errorf("remove following: %w", err)
	}
	if !changed {
		// Was not following
		return FollowResult{IsFollowing: false}, nil
	}

	if _, err := r.store.RemoveFollower(ctx, target, actor); err != nil {
		r.logger.Error("Follower-side write failed after following-side succeeded",
			zap.String("actor", actor.Hex()),
			zap.String("target", target.Hex()),
			zap.Error(err))
		return FollowResult{}, fmt.Errorf("remove follower: %w", err)
	}

	r.invalidate(ctx, actor, target)

	return FollowResult{IsFollowing: false}, nil
}

func (r *Relationships) requireAccounts(ctx context.Context, actor, target primitive.ObjectID) error {
	for _, id := range []primitive.ObjectID{actor, target} {
		acc, err := r.store.Account(ctx, id)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		if acc == nil {
			return fmt.Errorf("%w: account %s", ErrNotFound, id.Hex())
		}
	}
	return nil
}

func (r *Relationships) invalidate(ctx context.Context, actor, target primitive.ObjectID) {
	r.cache.Invalidate(ctx, cache.NamespaceAccount,
		[]string{cache.ProfileKey(actor.Hex()), cache.ProfileKey(target.Hex())},
		nil)
}
