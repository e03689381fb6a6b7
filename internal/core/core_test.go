package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/models"
	"github.com/circleapp/circle/pkg/config"
)

// fakeStore is an in-memory stand-in for the document store. It mirrors
// the durable semantics the engines rely on: visibility filtering on
// every read, and conditional set mutations that bundle their counter
// delta and report changed=false on replays.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[primitive.ObjectID]*models.Account
	posts    map[primitive.ObjectID]*models.Post
	comments map[primitive.ObjectID]*models.Comment
	stories  map[primitive.ObjectID]*models.Story
	services map[primitive.ObjectID]*models.Service
	ads      map[primitive.ObjectID]*models.Advertisement

	now func() time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[primitive.ObjectID]*models.Account),
		posts:    make(map[primitive.ObjectID]*models.Post),
		comments: make(map[primitive.ObjectID]*models.Comment),
		stories:  make(map[primitive.ObjectID]*models.Story),
		services: make(map[primitive.ObjectID]*models.Service),
		ads:      make(map[primitive.ObjectID]*models.Advertisement),
		now:      time.Now,
	}
}

func (f *fakeStore) addAccount(handle string) *models.Account {
	a := &models.Account{
		ID:       primitive.NewObjectID(),
		Handle:   handle,
		IsActive: true,
	}
	f.accounts[a.ID] = a
	return a
}

func (f *fakeStore) addPost(author primitive.ObjectID) *models.Post {
	p := &models.Post{
		ID:         primitive.NewObjectID(),
		AuthorID:   author,
		Visibility: models.VisibilityPublic,
		IsActive:   true,
	}
	f.posts[p.ID] = p
	return p
}

func (f *fakeStore) addComment(post, author primitive.ObjectID, topLevel *primitive.ObjectID) *models.Comment {
	c := &models.Comment{
		ID:         primitive.NewObjectID(),
		PostID:     post,
		AuthorID:   author,
		ParentID:   topLevel,
		TopLevelID: topLevel,
		IsActive:   true,
	}
	f.comments[c.ID] = c
	return c
}

func (f *fakeStore) addStory(author primitive.ObjectID, expiresAt time.Time) *models.Story {
	s := &models.Story{
		ID:        primitive.NewObjectID(),
		AuthorID:  author,
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	f.stories[s.ID] = s
	return s
}

func (f *fakeStore) addService(provider primitive.ObjectID) *models.Service {
	s := &models.Service{
		ID:         primitive.NewObjectID(),
		ProviderID: provider,
		IsActive:   true,
	}
	f.services[s.ID] = s
	return s
}

func (f *fakeStore) addAd(advertiser primitive.ObjectID, status string, start, end time.Time) *models.Advertisement {
	a := &models.Advertisement{
		ID:           primitive.NewObjectID(),
		AdvertiserID: advertiser,
		Status:       status,
		Schedule:     models.AdSchedule{StartDate: start, EndDate: end},
		IsActive:     true,
	}
	f.ads[a.ID] = a
	return a
}

// --- RelationshipStore ---

func (f *fakeStore) Account(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || !Visible(a, f.now()) {
		return nil, nil
	}
	return a, nil
}

func (f *fakeStore) AddFollowing(_ context.Context, actor, target primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[actor]
	if !ok {
		return false, fmt.Errorf("no account %s", actor.Hex())
	}
	if a.IsFollowing(target) {
		return false, nil
	}
	a.Following = append(a.Following, target)
	a.FollowingCount++
	return true, nil
}

func (f *fakeStore) RemoveFollowing(_ context.Context, actor, target primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[actor]
	if !ok {
		return false, fmt.Errorf("no account %s", actor.Hex())
	}
	for i, id := range a.Following {
		if id == target {
			a.Following = append(a.Following[:i], a.Following[i+1:]...)
			a.FollowingCount--
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) AddFollower(_ context.Context, target, actor primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[target]
	if !ok {
		return false, fmt.Errorf("no account %s", target.Hex())
	}
	for _, id := range a.Followers {
		if id == actor {
			return false, nil
		}
	}
	a.Followers = append(a.Followers, actor)
	a.FollowersCount++
	return true, nil
}

func (f *fakeStore) RemoveFollower(_ context.Context, target, actor primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[target]
	if !ok {
		return false, fmt.Errorf("no account %s", target.Hex())
	}
	for i, id := range a.Followers {
		if id == actor {
			a.Followers = append(a.Followers[:i], a.Followers[i+1:]...)
			a.FollowersCount--
			return true, nil
		}
	}
	return false, nil
}

// --- Adjuster ---

func (f *fakeStore) IncField(_ context.Context, family models.Family, id primitive.ObjectID, field string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch family {
	case models.FamilyAccount:
		a, ok := f.accounts[id]
		if !ok {
			return fmt.Errorf("no account %s", id.Hex())
		}
		switch field {
		case FieldFollowersCount:
			a.FollowersCount += delta
		case FieldFollowingCount:
			a.FollowingCount += delta
		case FieldPostsCount:
			a.PostsCount += delta
		}
	case models.FamilyPost:
		p, ok := f.posts[id]
		if !ok {
			return fmt.Errorf("no post %s", id.Hex())
		}
		switch field {
		case FieldLikesCount:
			p.LikesCount += delta
		case FieldCommentsCount:
			p.CommentsCount += delta
		case FieldSharesCount:
			p.SharesCount += delta
		}
	case models.FamilyComment:
		c, ok := f.comments[id]
		if !ok {
			return fmt.Errorf("no comment %s", id.Hex())
		}
		switch field {
		case FieldLikesCount:
			c.LikesCount += delta
		case FieldRepliesCount:
			c.RepliesCount += delta
		}
	case models.FamilyStory:
		s, ok := f.stories[id]
		if !ok {
			return fmt.Errorf("no story %s", id.Hex())
		}
		if field == FieldViewsCount {
			s.ViewsCount += delta
		}
	case models.FamilyAdvertisement:
		a, ok := f.ads[id]
		if !ok {
			return fmt.Errorf("no advertisement %s", id.Hex())
		}
		switch field {
		case FieldImpressions:
			a.Metrics.Impressions += delta
		case FieldClicks:
			a.Metrics.Clicks += delta
		case FieldConversions:
			a.Metrics.Conversions += delta
		}
	}
	return nil
}

// --- EngagementStore ---

func (f *fakeStore) LikeState(_ context.Context, family models.Family, id, actor primitive.ObjectID) (*LikeState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch family {
	case models.FamilyPost:
		p, ok := f.posts[id]
		if !ok || !Visible(p, f.now()) {
			return nil, fmt.Errorf("%w: post %s", ErrNotFound, id.Hex())
		}
		return &LikeState{Liked: p.LikedBy(actor), Count: p.LikesCount, OwnerID: p.AuthorID}, nil
	case models.FamilyComment:
		c, ok := f.comments[id]
		if !ok || !Visible(c, f.now()) {
			return nil, fmt.Errorf("%w: comment %s", ErrNotFound, id.Hex())
		}
		return &LikeState{Liked: c.LikedBy(actor), Count: c.LikesCount, OwnerID: c.AuthorID, PostID: c.PostID}, nil
	}
	return nil, fmt.Errorf("%w: family %q", ErrInvalid, family)
}

func (f *fakeStore) AddLike(_ context.Context, family models.Family, id, actor primitive.ObjectID, at time.Time) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch family {
	case models.FamilyPost:
		p := f.posts[id]
		if p.LikedBy(actor) {
			return p.LikesCount, false, nil
		}
		p.Likes = append(p.Likes, models.Reaction{User: actor, At: at})
		p.LikesCount++
		return p.LikesCount, true, nil
	case models.FamilyComment:
		c := f.comments[id]
		if c.LikedBy(actor) {
			return c.LikesCount, false, nil
		}
		c.Likes = append(c.Likes, models.Reaction{User: actor, At: at})
		c.LikesCount++
		return c.LikesCount, true, nil
	}
	return 0, false, fmt.Errorf("%w: family %q", ErrInvalid, family)
}

func (f *fakeStore) RemoveLike(_ context.Context, family models.Family, id, actor primitive.ObjectID) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch family {
	case models.FamilyPost:
		p := f.posts[id]
		for i, r := range p.Likes {
			if r.User == actor {
				p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
				p.LikesCount--
				return p.LikesCount, true, nil
			}
		}
		return p.LikesCount, false, nil
	case models.FamilyComment:
		c := f.comments[id]
		for i, r := range c.Likes {
			if r.User == actor {
				c.Likes = append(c.Likes[:i], c.Likes[i+1:]...)
				c.LikesCount--
				return c.LikesCount, true, nil
			}
		}
		return c.LikesCount, false, nil
	}
	return 0, false, fmt.Errorf("%w: family %q", ErrInvalid, family)
}

func (f *fakeStore) ViewState(_ context.Context, family models.Family, id, actor primitive.ObjectID) (*ViewState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stories[id]
	if !ok || !Visible(s, f.now()) {
		return nil, fmt.Errorf("%w: story %s", ErrNotFound, id.Hex())
	}
	return &ViewState{Viewed: s.ViewedBy(actor), Count: s.ViewsCount, OwnerID: s.AuthorID}, nil
}

func (f *fakeStore) AddView(_ context.Context, family models.Family, id, actor primitive.ObjectID, at time.Time) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stories[id]
	if s.ViewedBy(actor) {
		return s.ViewsCount, false, nil
	}
	s.Views = append(s.Views, models.Reaction{User: actor, At: at})
	s.ViewsCount++
	return s.ViewsCount, true, nil
}

// --- LifecycleStore ---

func (f *fakeStore) Owner(_ context.Context, family models.Family, id primitive.ObjectID) (primitive.ObjectID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	switch family {
	case models.FamilyAccount:
		if a, ok := f.accounts[id]; ok && Visible(a, now) {
			return a.ID, true, nil
		}
	case models.FamilyPost:
		if p, ok := f.posts[id]; ok && Visible(p, now) {
			return p.AuthorID, true, nil
		}
	case models.FamilyComment:
		if c, ok := f.comments[id]; ok && Visible(c, now) {
			return c.AuthorID, true, nil
		}
	case models.FamilyStory:
		if s, ok := f.stories[id]; ok && Visible(s, now) {
			return s.AuthorID, true, nil
		}
	case models.FamilyService:
		if s, ok := f.services[id]; ok && Visible(s, now) {
			return s.ProviderID, true, nil
		}
	case models.FamilyAdvertisement:
		if a, ok := f.ads[id]; ok && Visible(a, now) {
			return a.AdvertiserID, true, nil
		}
	}
	return primitive.NilObjectID, false, nil
}

func (f *fakeStore) Deactivate(_ context.Context, family models.Family, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch family {
	case models.FamilyAccount:
		f.accounts[id].IsActive = false
	case models.FamilyPost:
		f.posts[id].IsActive = false
	case models.FamilyComment:
		f.comments[id].IsActive = false
	case models.FamilyStory:
		f.stories[id].IsActive = false
	case models.FamilyService:
		f.services[id].IsActive = false
	case models.FamilyAdvertisement:
		f.ads[id].IsActive = false
	}
	return nil
}

func (f *fakeStore) Comment(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok || !Visible(c, f.now()) {
		return nil, nil
	}
	return c, nil
}

// --- ReviewStore ---

func (f *fakeStore) Service(_ context.Context, id primitive.ObjectID) (*models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[id]
	if !ok || !Visible(s, f.now()) {
		return nil, nil
	}
	return s, nil
}

func (f *fakeStore) AddReview(_ context.Context, id primitive.ObjectID, review models.Review) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[id]
	if !ok {
		return false, fmt.Errorf("no service %s", id.Hex())
	}
	if s.ReviewedBy(review.User) {
		return false, nil
	}
	s.Rating.Reviews = append(s.Rating.Reviews, review)
	s.Rating.Count++
	s.Rating.Sum += int64(review.Rating)
	return true, nil
}

// --- AdStore ---

func (f *fakeStore) Advertisement(_ context.Context, id primitive.ObjectID) (*models.Advertisement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.ads[id]
	if !ok || !Visible(a, f.now()) {
		return nil, nil
	}
	return a, nil
}

func (f *fakeStore) Eligible(_ context.Context, now time.Time, limit int) ([]*models.Advertisement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Advertisement
	for _, a := range f.ads {
		if a.Servable(now) {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// newTestCache builds a Cache over the in-process store with precise
// invalidation for accounts and posts, matching the default config.
func newTestCache() *cache.Cache {
	ttls := cache.TTLs{}
	for _, ns := range cache.Namespaces {
		ttls[ns] = time.Hour
	}
	store := cache.NewMemory(ttls, time.Minute)
	return cache.New(store, &config.CacheConfig{PreciseAccount: true, PrecisePost: true})
}
