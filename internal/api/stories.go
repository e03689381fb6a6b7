package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/core"
	"github.com/circleapp/circle/internal/db"
	"github.com/circleapp/circle/internal/models"
)

// StoryAPI handles ephemeral stories: creation, listing, view receipts
// and early deletion.
type StoryAPI struct {
	stories    *db.StoryRepository
	engagement *core.Engagement
	lifecycle  *core.Lifecycle
	cache      *cache.Cache
}

// NewStoryAPI creates a new story API handler
func NewStoryAPI(stories *db.StoryRepository, engagement *core.Engagement, lifecycle *core.Lifecycle, c *cache.Cache) *StoryAPI {
	return &StoryAPI{
		stories:    stories,
		engagement: engagement,
		lifecycle:  lifecycle,
		cache:      c,
	}
}

type createStoryRequest struct {
	Media models.MediaItem `json:"media" binding:"required"`
}

// Create publishes a story for the fixed lifetime.
func (s *StoryAPI) Create(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Media.URL == "" {
		badRequest(c, "media url required")
		return
	}

	self := actor(c)
	story := &models.Story{
		AuthorID: self,
		Media:    req.Media,
	}
	if err := s.stories.Create(c.Request.Context(), story); err != nil {
		respondError(c, err)
		return
	}

	s.cache.Invalidate(c.Request.Context(), cache.NamespaceStory,
		[]string{cache.StoriesKey(self.Hex())}, nil)
	c.JSON(http.StatusCreated, story)
}

// ListByAuthor returns an author's live stories, read through the story
// cache. A cache entry can outlive a story's own window, so cached
// entries are re-checked against the visibility predicate at read time;
// the entry's TTL is additionally capped at the soonest expiry in it.
func (s *StoryAPI) ListByAuthor(c *gin.Context) {
	author, ok := pathID(c, "id")
	if !ok {
		return
	}

	now := time.Now()
	key := cache.StoriesKey(author.Hex())
	if body, ok := s.cache.Get(c.Request.Context(), cache.NamespaceStory, key); ok {
		var cached []storyCacheEntry
		if err := json.Unmarshal(body, &cached); err == nil {
			c.JSON(http.StatusOK, gin.H{"stories": liveStories(cached, now)})
			return
		}
		// Undecodable entry: fall through to the durable read
	}

	stories, err := s.stories.ListActiveByAuthor(c.Request.Context(), author)
	if err != nil {
		respondError(c, err)
		return
	}

	entries := make([]storyCacheEntry, len(stories))
	for i, st := range stories {
		entries[i] = storyCacheEntry{Story: st, Active: st.IsActive}
	}
	body, err := json.Marshal(entries)
	if err != nil {
		respondError(c, err)
		return
	}
	s.cache.SetTTL(c.Request.Context(), cache.NamespaceStory, key, body, storyPageTTL(stories, now))
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// storyCacheEntry carries the lifecycle flag the client view hides, so
// a cached page can be re-checked with the visibility predicate.
type storyCacheEntry struct {
	models.Story
	Active bool `json:"active"`
}

// liveStories drops cached entries whose window closed after the page
// was cached.
func liveStories(cached []storyCacheEntry, now time.Time) []models.Story {
	live := make([]models.Story, 0, len(cached))
	for i := range cached {
		cached[i].Story.IsActive = cached[i].Active
		if core.Visible(&cached[i].Story, now) {
			live = append(live, cached[i].Story)
		}
	}
	return live
}

// storyPageTTL caps the page's cache lifetime at the soonest expiry
// among its stories; 0 defers to the namespace default.
func storyPageTTL(stories []models.Story, now time.Time) time.Duration {
	var ttl time.Duration
	for i := range stories {
		if until := stories[i].ExpiresAt.Sub(now); until > 0 && (ttl == 0 || until < ttl) {
			ttl = until
		}
	}
	return ttl
}

// View records the caller's first view of the story; replays are no-ops.
func (s *StoryAPI) View(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := s.engagement.MarkViewed(c.Request.Context(), models.FamilyStory, id, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete removes the caller's own story before its natural expiry.
func (s *StoryAPI) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.lifecycle.SoftDelete(c.Request.Context(), models.FamilyStory, id, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
