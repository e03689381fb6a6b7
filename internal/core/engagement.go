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

// LikeState is the durable like membership of one actor on one entity,
// plus the references the engine needs for cache invalidation.
type LikeState struct {
	Liked   bool
	Count   int64
	OwnerID primitive.ObjectID
	// PostID is set for comments: the post whose listings embed this
	// comment's counts.
	PostID primitive.ObjectID
}

// ViewState is the durable view membership of one actor on one entity.
type ViewState struct {
	Viewed  bool
	Count   int64
	OwnerID primitive.ObjectID
}

// EngagementStore reads and mutates reaction sets.
//
// The Add/Remove mutations are conditional single-document updates that
// bundle the set change with its counter delta; changed=false means the
// membership was already in the requested state and nothing moved.
type EngagementStore interface {
	// LikeState reads membership from the durable store, never a cache.
	// Returns ErrNotFound (wrapped) when the entity is absent or not
	// visible.
	LikeState(ctx context.Context, family models.Family, id, actor primitive.ObjectID) (*LikeState, error)
	AddLike(ctx context.Context, family models.Family, id, actor primitive.ObjectID, at time.Time) (count int64, changed bool, err error)
	RemoveLike(ctx context.Context, family models.Family, id, actor primitive.ObjectID) (count int64, changed bool, err error)

	ViewState(ctx context.Context, family models.Family, id, actor primitive.ObjectID) (*ViewState, error)
	AddView(ctx context.Context, family models.Family, id, actor primitive.ObjectID, at time.Time) (count int64, changed bool, err error)
}

// ToggleResult reports the like state after a toggle.
type ToggleResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

// ViewResult reports a view marking.
type ViewResult struct {
	IsNewView  bool  `json:"isNewView"`
	ViewsCount int64 `json:"viewsCount"`
}

// Engagement implements like toggling and monotonic view marking.
type Engagement struct {
	store  EngagementStore
	cache  *cache.Cache
	logger *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewEngagement creates the engagement engine.
func NewEngagement(store EngagementStore, c *cache.Cache) *Engagement {
	return &Engagement{
		store:  store,
		cache:  c,
		logger: logging.WithComponent("engagement"),
		now:    time.Now,
	}
}

// likeableFamilies are the entity families that carry a likes set.
var likeableFamilies = map[models.Family]bool{
	models.FamilyPost:    true,
	models.FamilyComment: true,
}

// ToggleLike flips the actor's like on the entity. Two consecutive calls
// cancel out. The membership check reads durable state at call time; a
// cached copy would silently double-toggle.
func (e *Engagement) ToggleLike(ctx context.Context, family models.Family, id, actor primitive.ObjectID) (ToggleResult, error) {
	if !likeableFamilies[family] {
		return ToggleResult{}, fmt.Errorf("%w: family %q has no likes", ErrInvalid, family)
	}

	state, err := e.store.LikeState(ctx, family, id, actor)
	if err != nil {
		return ToggleResult{}, err
	}

	var (
		count   int64
		changed bool
		liked   bool
	)
	if state.Liked {
		count, changed, err = e.store.RemoveLike(ctx, family, id, actor)
		liked = false
	} else {
		count, changed, err = e.store.AddLike(ctx, family, id, actor, e.now())
		liked = true
	}
	if err != nil {
		return ToggleResult{}, fmt.Errorf("toggle like: %w", err)
	}
	if !changed {
		// A concurrent toggle from the same actor got there first: the
		// filter did not match because the set is already in the intended
		// state, so liked is correct as computed.
		e.logger.Debug("Lost toggle race",
			zap.String("family", string(family)),
			zap.String("id", id.Hex()),
			zap.String("actor", actor.Hex()))
	}

	e.invalidateLike(ctx, family, id, state)

	return ToggleResult{Liked: liked, LikesCount: count}, nil
}

// MarkViewed records a first view: monotonic, never un-views. Replays
// return isNewView=false and leave the count untouched.
func (e *Engagement) MarkViewed(ctx context.Context, family models.Family, id, actor primitive.ObjectID) (ViewResult, error) {
	if family != models.FamilyStory {
		return ViewResult{}, fmt.Errorf("%w: family %q has no views", ErrInvalid, family)
	}

	state, err := e.store.ViewState(ctx, family, id, actor)
	if err != nil {
		return ViewResult{}, err
	}
	if state.Viewed {
		return ViewResult{IsNewView: false, ViewsCount: state.Count}, nil
	}

	count, changed, err := e.store.AddView(ctx, family, id, actor, e.now())
	if err != nil {
		return ViewResult{}, fmt.Errorf("mark viewed: %w", err)
	}

	e.cache.Invalidate(ctx, cache.NamespaceStory,
		[]string{cache.StoriesKey(state.OwnerID.Hex())}, nil)

	return ViewResult{IsNewView: changed, ViewsCount: count}, nil
}

func (e *Engagement) invalidateLike(ctx context.Context, family models.Family, id primitive.ObjectID, state *LikeState) {
	switch family {
	case models.FamilyPost:
		e.cache.Invalidate(ctx, cache.NamespacePost,
			[]string{cache.PostKey(id.Hex())},
			[]string{cache.PostListPrefix(state.OwnerID.Hex())})
	case models.FamilyComment:
		// Comment listings are cached under the post namespace
		e.cache.Invalidate(ctx, cache.NamespacePost,
			[]string{cache.CommentsKey(state.PostID.Hex()), cache.RepliesKey(id.Hex())},
			nil)
	}
}
