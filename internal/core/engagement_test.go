package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/models"
)

func TestToggleLikePair(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	eng := NewEngagement(store, newTestCache())

	alice := store.addAccount("alice")
	post := store.addPost(store.addAccount("author").ID)

	before := post.LikesCount

	res, err := eng.ToggleLike(ctx, models.FamilyPost, post.ID, alice.ID)
	if err != nil {
		t.Fatalf("first ToggleLike() error: %v", err)
	}
	if !res.Liked {
		t.Error("first toggle should report liked=true")
	}
	if res.LikesCount != before+1 {
		t.Errorf("first toggle likesCount = %d, want %d", res.LikesCount, before+1)
	}

	res, err = eng.ToggleLike(ctx, models.FamilyPost, post.ID, alice.ID)
	if err != nil {
		t.Fatalf("second ToggleLike() error: %v", err)
	}
	if res.Liked {
		t.Error("second toggle should report liked=false")
	}
	if res.LikesCount != before {
		t.Errorf("likesCount after the pair = %d, want %d", res.LikesCount, before)
	}
	if int64(len(post.Likes)) != post.LikesCount {
		t.Error("likesCount must equal the set size after the pair")
	}
}

func TestToggleLikeThreeAccounts(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	eng := NewEngagement(store, newTestCache())

	post := store.addPost(store.addAccount("author").ID)

	var last ToggleResult
	actors := []string{"u1", "u2", "u3"}
	for _, h := range actors {
		u := store.addAccount(h)
		var err error
		last, err = eng.ToggleLike(ctx, models.FamilyPost, post.ID, u.ID)
		if err != nil {
			t.Fatalf("ToggleLike(%s) error: %v", h, err)
		}
	}
	if last.LikesCount != 3 {
		t.Errorf("likesCount after three distinct likes = %d, want 3", last.LikesCount)
	}

	// One of them toggles again
	res, err := eng.ToggleLike(ctx, models.FamilyPost, post.ID, post.Likes[0].User)
	if err != nil {
		t.Fatalf("repeat ToggleLike() error: %v", err)
	}
	if res.Liked || res.LikesCount != 2 {
		t.Errorf("after un-like: liked=%v likesCount=%d, want false and 2", res.Liked, res.LikesCount)
	}
}

func TestToggleLikeComment(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	eng := NewEngagement(store, newTestCache())

	alice := store.addAccount("alice")
	post := store.addPost(alice.ID)
	comment := store.addComment(post.ID, alice.ID, nil)

	res, err := eng.ToggleLike(ctx, models.FamilyComment, comment.ID, alice.ID)
	if err != nil {
		t.Fatalf("ToggleLike(comment) error: %v", err)
	}
	if !res.Liked || res.LikesCount != 1 {
		t.Errorf("ToggleLike(comment) = %+v, want liked=true count=1", res)
	}
}

func TestToggleLikeRejectsFamiliesWithoutLikes(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	eng := NewEngagement(store, newTestCache())

	alice := store.addAccount("alice")
	story := store.addStory(alice.ID, time.Now().Add(time.Hour))

	if _, err := eng.ToggleLike(ctx, models.FamilyStory, story.ID, alice.ID); !errors.Is(err, ErrInvalid) {
		t.Errorf("ToggleLike(story) error = %v, want ErrInvalid", err)
	}
}

func TestToggleLikeUnknownPost(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	eng := NewEngagement(store, newTestCache())

	alice := store.addAccount("alice")
	post := store.addPost(alice.ID)
	post.IsActive = false

	if _, err := eng.ToggleLike(ctx, models.FamilyPost, post.ID, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ToggleLike(soft-deleted post) error = %v, want ErrNotFound", err)
	}
}

// staleLikeStore simulates losing a toggle race: the membership read is
// stale, so the conditional mutation reports changed=false because the
// set already holds the intended state.
type staleLikeStore struct {
	state *LikeState
	count int64
}

func (s *staleLikeStore) LikeState(context.Context, models.Family, primitive.ObjectID, primitive.ObjectID) (*LikeState, error) {
	return s.state, nil
}

func (s *staleLikeStore) AddLike(context.Context, models.Family, primitive.ObjectID, primitive.ObjectID, time.Time) (int64, bool, error) {
	return s.count, false, nil
}

func (s *staleLikeStore) RemoveLike(context.Context, models.Family, primitive.ObjectID, primitive.ObjectID) (int64, bool, error) {
	return s.count, false, nil
}

func (s *staleLikeStore) ViewState(context.Context, models.Family, primitive.ObjectID, primitive.ObjectID) (*ViewState, error) {
	return nil, errors.New("not implemented")
}

func (s *staleLikeStore) AddView(context.Context, models.Family, primitive.ObjectID, primitive.ObjectID, time.Time) (int64, bool, error) {
	return 0, false, errors.New("not implemented")
}

func TestToggleLikeLostRaceReportsDurableState(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	id := primitive.NewObjectID()
	actor := primitive.NewObjectID()

	// Read said not-liked, but the add found the actor already present:
	// the durable state is liked, and that is what must be reported.
	store := &staleLikeStore{state: &LikeState{Liked: false, Count: 2, OwnerID: owner}, count: 3}
	eng := NewEngagement(store, newTestCache())

	res, err := eng.ToggleLike(ctx, models.FamilyPost, id, actor)
	if err != nil {
		t.Fatalf("ToggleLike() error: %v", err)
	}
	if !res.Liked {
		t.Error("lost add race must still report liked=true")
	}
	if res.LikesCount != 3 {
		t.Errorf("likesCount = %d, want the post-race count 3", res.LikesCount)
	}

	// Symmetric: read said liked, but the remove found the actor gone.
	store = &staleLikeStore{state: &LikeState{Liked: true, Count: 2, OwnerID: owner}, count: 1}
	eng = NewEngagement(store, newTestCache())

	res, err = eng.ToggleLike(ctx, models.FamilyPost, id, actor)
	if err != nil {
		t.Fatalf("ToggleLike() error: %v", err)
	}
	if res.Liked {
		t.Error("lost remove race must still report liked=false")
	}
	if res.LikesCount != 1 {
		t.Errorf("likesCount = %d, want the post-race count 1", res.LikesCount)
	}
}

func TestMarkViewedIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	eng := NewEngagement(store, newTestCache())

	author := store.addAccount("author")
	viewer := store.addAccount("viewer")
	story := store.addStory(author.ID, time.Now().Add(time.Hour))

	res, err := eng.MarkViewed(ctx, models.FamilyStory, story.ID, viewer.ID)
	if err != nil {
		t.Fatalf("first MarkViewed() error: %v", err)
	}
	if !res.IsNewView || res.ViewsCount != 1 {
		t.Errorf("first MarkViewed() = %+v, want isNewView=true count=1", res)
	}

	res, err = eng.MarkViewed(ctx, models.FamilyStory, story.ID, viewer.ID)
	if err != nil {
		t.Fatalf("second MarkViewed() error: %v", err)
	}
	if res.IsNewView {
		t.Error("replayed MarkViewed() should report isNewView=false")
	}
	if res.ViewsCount != 1 {
		t.Errorf("viewsCount after replay = %d, want 1", res.ViewsCount)
	}
	if story.ViewsCount != 1 || len(story.Views) != 1 {
		t.Error("replay must not mutate the views set or counter")
	}
}

func TestMarkViewedExpiredStory(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	eng := NewEngagement(store, newTestCache())

	author := store.addAccount("author")
	viewer := store.addAccount("viewer")
	story := store.addStory(author.ID, time.Now().Add(-time.Minute))

	if _, err := eng.MarkViewed(ctx, models.FamilyStory, story.ID, viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkViewed(expired story) error = %v, want ErrNotFound", err)
	}
}

func TestToggleLikeInvalidatesCachedPost(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := newTestCache()
	eng := NewEngagement(store, c)

	author := store.addAccount("author")
	alice := store.addAccount("alice")
	post := store.addPost(author.ID)

	// Populate the detail entry and a listing page for the author
	c.Set(ctx, cache.NamespacePost, cache.PostKey(post.ID.Hex()), []byte(`{"likesCount":0}`))
	c.Set(ctx, cache.NamespacePost, cache.PostListKey(author.ID.Hex(), "0"), []byte(`[...]`))

	if _, err := eng.ToggleLike(ctx, models.FamilyPost, post.ID, alice.ID); err != nil {
		t.Fatalf("ToggleLike() error: %v", err)
	}

	if _, ok := c.Get(ctx, cache.NamespacePost, cache.PostKey(post.ID.Hex())); ok {
		t.Error("toggle must invalidate the post's cached detail entry")
	}
	if _, ok := c.Get(ctx, cache.NamespacePost, cache.PostListKey(author.ID.Hex(), "0")); ok {
		t.Error("toggle must invalidate the author's cached listing pages")
	}
}
