package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/core"
	"github.com/circleapp/circle/internal/db"
	"github.com/circleapp/circle/pkg/config"
	"github.com/circleapp/circle/pkg/logging"
)

// Router sets up API routes
type Router struct {
	db     *db.DB
	cache  *cache.Cache
	cfg    *config.Config
	logger *zap.Logger

	auth     *AuthAPI
	accounts *AccountAPI
	posts    *PostAPI
	comments *CommentAPI
	stories  *StoryAPI
	services *ServiceAPI
	ads      *AdAPI
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, c *cache.Cache, cfg *config.Config) *Router {
	router := &Router{
		db:     database,
		cache:  c,
		cfg:    cfg,
		logger: logging.GetLogger().With(zap.String("component", "api-router")),
	}

	router.buildHandlers()
	return router
}

// buildHandlers wires repositories into engines and engines into
// handlers.
func (r *Router) buildHandlers() {
	repo := db.NewRepository(r.db)
	accounts := db.NewAccountRepository(repo)
	posts := db.NewPostRepository(repo)
	comments := db.NewCommentRepository(repo)
	stories := db.NewStoryRepository(repo)
	services := db.NewServiceRepository(repo)
	ads := db.NewAdRepository(repo)
	engagementStore := db.NewEngagementRepository(repo)

	ledger := core.NewLedger(repo)
	relationships := core.NewRelationships(accounts, r.cache)
	engagement := core.NewEngagement(engagementStore, r.cache)
	// CommentRepository embeds Repository, so it carries the Owner and
	// Deactivate methods plus the comment loader deletion needs.
	lifecycle := core.NewLifecycle(comments, ledger, r.cache)
	reviews := core.NewReviews(services, r.cache)
	adEngine := core.NewAds(ads, ledger, r.cache)

	r.auth = NewAuthAPI(accounts, &r.cfg.Auth)
	r.accounts = NewAccountAPI(accounts, relationships, lifecycle, r.cache)
	r.posts = NewPostAPI(posts, accounts, ledger, engagement, lifecycle, r.cache)
	r.comments = NewCommentAPI(comments, posts, ledger, engagement, lifecycle, r.cache)
	r.stories = NewStoryAPI(stories, engagement, lifecycle, r.cache)
	r.services = NewServiceAPI(services, reviews, lifecycle, r.cache)
	r.ads = NewAdAPI(ads, adEngine, lifecycle)
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(RequestID())
	engine.Use(cors.Default())

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := engine.Group("/v1")

	v1.POST("/auth/register", r.auth.Register)
	v1.POST("/auth/login", r.auth.Login)

	authed := v1.Group("")
	authed.Use(Auth(&r.cfg.Auth))

	authed.GET("/accounts/:id", r.accounts.GetProfile)
	authed.PATCH("/profile", r.accounts.UpdateProfile)
	authed.DELETE("/profile", r.accounts.Deactivate)
	authed.POST("/accounts/:id/follow", r.accounts.Follow)
	authed.DELETE("/accounts/:id/follow", r.accounts.Unfollow)
	authed.GET("/accounts/:id/followers", r.accounts.Followers)
	authed.GET("/accounts/:id/following", r.accounts.Following)
	authed.GET("/accounts/:id/posts", r.posts.ListByAuthor)
	authed.GET("/accounts/:id/stories", r.stories.ListByAuthor)

	authed.POST("/posts", r.posts.Create)
	authed.GET("/posts/:id", r.posts.Get)
	authed.DELETE("/posts/:id", r.posts.Delete)
	authed.POST("/posts/:id/like", r.posts.Like)
	authed.POST("/posts/:id/comments", r.comments.Create)
	authed.GET("/posts/:id/comments", r.comments.ListByPost)
	authed.GET("/feed", r.posts.Feed)

	authed.GET("/comments/:id/replies", r.comments.ListReplies)
	authed.POST("/comments/:id/like", r.comments.Like)
	authed.DELETE("/comments/:id", r.comments.Delete)

	authed.POST("/stories", r.stories.Create)
	authed.POST("/stories/:id/view", r.stories.View)
	authed.DELETE("/stories/:id", r.stories.Delete)

	authed.POST("/services", r.services.Create)
	authed.GET("/services", r.services.List)
	authed.GET("/services/:id", r.services.Get)
	authed.POST("/services/:id/reviews", r.services.Review)
	authed.DELETE("/services/:id", r.services.Delete)

	authed.POST("/ads", r.ads.Create)
	authed.GET("/ads", r.ads.List)
	authed.GET("/ads/serve", r.ads.Serve)
	authed.POST("/ads/:id/click", r.ads.Click)
	authed.POST("/ads/:id/conversion", r.ads.Conversion)
	authed.PATCH("/ads/:id/status", r.ads.UpdateStatus)
	authed.DELETE("/ads/:id", r.ads.Delete)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	if err := r.db.Health(c.Request.Context()); err != nil {
		c.JSON(503, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "circle-api",
	})
}
