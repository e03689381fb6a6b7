package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/models"
	"github.com/circleapp/circle/pkg/config"
)

func newTestCache() *cache.Cache {
	ttls := cache.TTLs{}
	for _, ns := range cache.Namespaces {
		ttls[ns] = time.Hour
	}
	store := cache.NewMemory(ttls, time.Minute)
	return cache.New(store, &config.CacheConfig{PreciseAccount: true, PrecisePost: true})
}

func cacheStoryPage(t *testing.T, c *cache.Cache, author primitive.ObjectID, stories ...models.Story) {
	t.Helper()
	entries := make([]storyCacheEntry, len(stories))
	for i, st := range stories {
		entries[i] = storyCacheEntry{Story: st, Active: st.IsActive}
	}
	body, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal story page: %v", err)
	}
	c.Set(context.Background(), cache.NamespaceStory, cache.StoriesKey(author.Hex()), body)
}

// A story whose window closes after its page was cached must not be
// served from that page, however long the entry itself lives.
func TestListStoriesExcludesExpiredCachedEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestCache()
	author := primitive.NewObjectID()

	expired := models.Story{
		ID:        primitive.NewObjectID(),
		AuthorID:  author,
		IsActive:  true,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	live := models.Story{
		ID:        primitive.NewObjectID(),
		AuthorID:  author,
		IsActive:  true,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	cacheStoryPage(t, c, author, expired, live)

	// The nil repository proves the durable store is never consulted on
	// a cache hit; the filtering has to happen on the cached page.
	api := &StoryAPI{stories: nil, cache: c}
	engine := gin.New()
	engine.GET("/accounts/:id/stories", api.ListByAuthor)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/"+author.Hex()+"/stories", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if strings.Contains(body, expired.ID.Hex()) {
		t.Errorf("expired story %s served from cache: %s", expired.ID.Hex(), body)
	}
	if !strings.Contains(body, live.ID.Hex()) {
		t.Errorf("live story %s missing from cached page: %s", live.ID.Hex(), body)
	}
}

func TestListStoriesExcludesDeactivatedCachedEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestCache()
	author := primitive.NewObjectID()

	deleted := models.Story{
		ID:        primitive.NewObjectID(),
		AuthorID:  author,
		IsActive:  false,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	cacheStoryPage(t, c, author, deleted)

	api := &StoryAPI{stories: nil, cache: c}
	engine := gin.New()
	engine.GET("/accounts/:id/stories", api.ListByAuthor)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/"+author.Hex()+"/stories", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), deleted.ID.Hex()) {
		t.Errorf("deactivated story served from cache: %s", w.Body.String())
	}
}

func TestStoryPageTTL(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		expires []time.Duration
		want    time.Duration
	}{
		{"empty page uses namespace default", nil, 0},
		{"single story", []time.Duration{2 * time.Hour}, 2 * time.Hour},
		{"soonest expiry wins", []time.Duration{3 * time.Hour, 30 * time.Minute, 2 * time.Hour}, 30 * time.Minute},
		{"already expired entries ignored", []time.Duration{-time.Minute, time.Hour}, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stories := make([]models.Story, len(tt.expires))
			for i, d := range tt.expires {
				stories[i] = models.Story{ExpiresAt: now.Add(d)}
			}
			if got := storyPageTTL(stories, now); got != tt.want {
				t.Errorf("storyPageTTL() = %v, want %v", got, tt.want)
			}
		})
	}
}
