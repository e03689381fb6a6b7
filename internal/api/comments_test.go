package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/circleapp/circle/internal/cache"
)

func TestListCommentsServesCachedFirstPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestCache()
	postID := primitive.NewObjectID()

	cached := `{"comments":[{"content":"from-cache"}]}`
	c.Set(context.Background(), cache.NamespacePost, cache.CommentsKey(postID.Hex()), []byte(cached))

	// Nil repository: a first-page hit must never reach the store
	api := &CommentAPI{comments: nil, cache: c}
	engine := gin.New()
	engine.GET("/posts/:id/comments", api.ListByPost)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/"+postID.Hex()+"/comments", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != cached {
		t.Errorf("expected cached page, got %s", w.Body.String())
	}
}

func TestListRepliesServesCachedFirstPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestCache()
	commentID := primitive.NewObjectID()

	cached := `{"replies":[{"content":"from-cache"}]}`
	c.Set(context.Background(), cache.NamespacePost, cache.RepliesKey(commentID.Hex()), []byte(cached))

	api := &CommentAPI{comments: nil, cache: c}
	engine := gin.New()
	engine.GET("/comments/:id/replies", api.ListReplies)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/comments/"+commentID.Hex()+"/replies", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != cached {
		t.Errorf("expected cached page, got %s", w.Body.String())
	}
}
