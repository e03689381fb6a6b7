package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/core"
	"github.com/circleapp/circle/internal/db"
	"github.com/circleapp/circle/internal/models"
)

// CommentAPI handles comment creation, thread reads, likes and deletion.
type CommentAPI struct {
	comments   *db.CommentRepository
	posts      *db.PostRepository
	ledger     *core.Ledger
	engagement *core.Engagement
	lifecycle  *core.Lifecycle
	cache      *cache.Cache
}

// NewCommentAPI creates a new comment API handler
func NewCommentAPI(comments *db.CommentRepository, posts *db.PostRepository, ledger *core.Ledger, engagement *core.Engagement, lifecycle *core.Lifecycle, c *cache.Cache) *CommentAPI {
	return &CommentAPI{
		comments:   comments,
		posts:      posts,
		ledger:     ledger,
		engagement: engagement,
		lifecycle:  lifecycle,
		cache:      c,
	}
}

type createCommentRequest struct {
	Content  string `json:"content" binding:"required,max=2000"`
	ParentID string `json:"parentId"`
}

// Create inserts a comment under a post, bumps the post's
// comments_count, and for replies bumps replies_count on the top-level
// comment the reply attaches to.
func (h *CommentAPI) Create(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	post, err := h.posts.Post(c.Request.Context(), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: actor(c),
		Content:  req.Content,
	}
	if req.ParentID != "" {
		parentID, err := primitive.ObjectIDFromHex(req.ParentID)
		if err != nil {
			badRequest(c, "invalid parentId")
			return
		}
		comment.ParentID = &parentID
	}

	if err := h.comments.Create(c.Request.Context(), comment); err != nil {
		respondError(c, err)
		return
	}

	if err := h.ledger.Adjust(c.Request.Context(), models.FamilyPost, postID, core.FieldCommentsCount, 1); err != nil {
		respondError(c, err)
		return
	}
	if comment.TopLevelID != nil {
		if err := h.ledger.Adjust(c.Request.Context(), models.FamilyComment, *comment.TopLevelID, core.FieldRepliesCount, 1); err != nil {
			respondError(c, err)
			return
		}
	}

	keys := []string{
		cache.PostKey(postID.Hex()),
		cache.CommentsKey(postID.Hex()),
	}
	if comment.TopLevelID != nil {
		keys = append(keys, cache.RepliesKey(comment.TopLevelID.Hex()))
	}
	h.cache.Invalidate(c.Request.Context(), cache.NamespacePost, keys, nil)

	c.JSON(http.StatusCreated, comment)
}

// ListByPost returns a post's top-level comments, oldest first. The
// first page is read through the cache; deeper pages always hit the
// durable store so the single invalidation key stays exact.
func (h *CommentAPI) ListByPost(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, limit := pagination(c)

	h.listCached(c, cache.CommentsKey(postID.Hex()), "comments", page, limit,
		func() ([]*models.Comment, error) {
			return h.comments.ListByPost(c.Request.Context(), postID, page, limit)
		})
}

// ListReplies returns the replies attached to a top-level comment,
// oldest first, with the same first-page caching as ListByPost.
func (h *CommentAPI) ListReplies(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, limit := pagination(c)

	h.listCached(c, cache.RepliesKey(id.Hex()), "replies", page, limit,
		func() ([]*models.Comment, error) {
			return h.comments.ListReplies(c.Request.Context(), id, page, limit)
		})
}

func (h *CommentAPI) listCached(c *gin.Context, key, field string, page, limit int64, load func() ([]*models.Comment, error)) {
	firstPage := page == 0 && limit == defaultPageSize
	if firstPage {
		if body, ok := h.cache.Get(c.Request.Context(), cache.NamespacePost, key); ok {
			c.Data(http.StatusOK, "application/json", body)
			return
		}
	}

	comments, err := load()
	if err != nil {
		respondError(c, err)
		return
	}

	body, err := json.Marshal(gin.H{field: comments})
	if err != nil {
		respondError(c, err)
		return
	}
	if firstPage {
		h.cache.Set(c.Request.Context(), cache.NamespacePost, key, body)
	}
	c.Data(http.StatusOK, "application/json", body)
}

// Like toggles the caller's like on the comment.
func (h *CommentAPI) Like(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.engagement.ToggleLike(c.Request.Context(), models.FamilyComment, id, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete soft-deletes the caller's own comment and rolls its aggregate
// contributions back.
func (h *CommentAPI) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.lifecycle.SoftDelete(c.Request.Context(), models.FamilyComment, id, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
