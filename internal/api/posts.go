package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/core"
	"github.com/circleapp/circle/internal/db"
	"github.com/circleapp/circle/internal/models"
)

// PostAPI handles post creation, reads, likes and deletion.
type PostAPI struct {
	posts      *db.PostRepository
	accounts   *db.AccountRepository
	ledger     *core.Ledger
	engagement *core.Engagement
	lifecycle  *core.Lifecycle
	cache      *cache.Cache
}

// NewPostAPI creates a new post API handler
func NewPostAPI(posts *db.PostRepository, accounts *db.AccountRepository, ledger *core.Ledger, engagement *core.Engagement, lifecycle *core.Lifecycle, c *cache.Cache) *PostAPI {
	return &PostAPI{
		posts:      posts,
		accounts:   accounts,
		ledger:     ledger,
		engagement: engagement,
		lifecycle:  lifecycle,
		cache:      c,
	}
}

type createPostRequest struct {
	Content    string             `json:"content" binding:"required,max=5000"`
	Media      []models.MediaItem `json:"media"`
	Visibility string             `json:"visibility"`
}

// Create inserts a post and bumps the author's posts_count.
func (p *PostAPI) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPublic
	}
	if req.Visibility != models.VisibilityPublic && req.Visibility != models.VisibilityPrivate {
		badRequest(c, "visibility must be public or private")
		return
	}

	self := actor(c)
	post := &models.Post{
		AuthorID:   self,
		Content:    req.Content,
		Media:      req.Media,
		Visibility: req.Visibility,
	}
	if err := p.posts.Create(c.Request.Context(), post); err != nil {
		respondError(c, err)
		return
	}

	if err := p.ledger.Adjust(c.Request.Context(), models.FamilyAccount, self, core.FieldPostsCount, 1); err != nil {
		respondError(c, err)
		return
	}

	p.cache.Invalidate(c.Request.Context(), cache.NamespaceAccount,
		[]string{cache.ProfileKey(self.Hex())}, nil)
	p.cache.Invalidate(c.Request.Context(), cache.NamespacePost,
		nil, []string{cache.PostListPrefix(self.Hex())})

	c.JSON(http.StatusCreated, post)
}

// Get returns a post, read through the post cache.
func (p *PostAPI) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	key := cache.PostKey(id.Hex())
	if body, ok := p.cache.Get(c.Request.Context(), cache.NamespacePost, key); ok {
		c.Data(http.StatusOK, "application/json", body)
		return
	}

	post, err := p.posts.Post(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	body, err := json.Marshal(post)
	if err != nil {
		respondError(c, err)
		return
	}
	p.cache.Set(c.Request.Context(), cache.NamespacePost, key, body)
	c.Data(http.StatusOK, "application/json", body)
}

// ListByAuthor returns an author's posts, one cached page at a time.
// Private posts are included only when the author asks for their own.
func (p *PostAPI) ListByAuthor(c *gin.Context) {
	author, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, limit := pagination(c)
	viewer := actor(c)

	// Only the author's own view of their page is cacheable under a
	// shared key; other viewers see public posts only.
	cacheable := viewer != author
	key := cache.PostListKey(author.Hex(), strconv.FormatInt(page, 10)+":"+strconv.FormatInt(limit, 10))
	if cacheable {
		if body, ok := p.cache.Get(c.Request.Context(), cache.NamespacePost, key); ok {
			c.Data(http.StatusOK, "application/json", body)
			return
		}
	}

	posts, err := p.posts.ListByAuthor(c.Request.Context(), author, viewer, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	body, err := json.Marshal(gin.H{"posts": posts})
	if err != nil {
		respondError(c, err)
		return
	}
	if cacheable {
		p.cache.Set(c.Request.Context(), cache.NamespacePost, key, body)
	}
	c.Data(http.StatusOK, "application/json", body)
}

// Feed returns recent posts from the accounts the caller follows plus
// their own. Viewer-specific, so never cached.
func (p *PostAPI) Feed(c *gin.Context) {
	self := actor(c)
	page, limit := pagination(c)

	account, err := p.accounts.Account(c.Request.Context(), self)
	if err != nil {
		respondError(c, err)
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	posts, err := p.posts.ListFeed(c.Request.Context(), self, account.Following, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Like toggles the caller's like on the post.
func (p *PostAPI) Like(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := p.engagement.ToggleLike(c.Request.Context(), models.FamilyPost, id, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete soft-deletes the caller's own post.
func (p *PostAPI) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := p.lifecycle.SoftDelete(c.Request.Context(), models.FamilyPost, id, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
