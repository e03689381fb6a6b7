package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circleapp/circle/internal/cache"
	"github.com/circleapp/circle/internal/core"
	"github.com/circleapp/circle/internal/db"
	"github.com/circleapp/circle/internal/models"
)

// ServiceAPI handles marketplace listings and their reviews.
type ServiceAPI struct {
	services  *db.ServiceRepository
	reviews   *core.Reviews
	lifecycle *core.Lifecycle
	cache     *cache.Cache
}

// NewServiceAPI creates a new service API handler
func NewServiceAPI(services *db.ServiceRepository, reviews *core.Reviews, lifecycle *core.Lifecycle, c *cache.Cache) *ServiceAPI {
	return &ServiceAPI{
		services:  services,
		reviews:   reviews,
		lifecycle: lifecycle,
		cache:     c,
	}
}

type createServiceRequest struct {
	Title       string  `json:"title" binding:"required,max=120"`
	Description string  `json:"description" binding:"max=2000"`
	Category    string  `json:"category" binding:"required,max=64"`
	Price       float64 `json:"price" binding:"min=0"`
}

// Create publishes a listing offered by the caller.
func (s *ServiceAPI) Create(c *gin.Context) {
	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	service := &models.Service{
		ProviderID:  actor(c),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
	}
	if err := s.services.Create(c.Request.Context(), service); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, service)
}

// Get returns a listing with its rating aggregate, read through the
// service cache.
func (s *ServiceAPI) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	key := cache.ServiceKey(id.Hex())
	if body, ok := s.cache.Get(c.Request.Context(), cache.NamespaceService, key); ok {
		c.Data(http.StatusOK, "application/json", body)
		return
	}

	service, err := s.services.Service(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if service == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}

	body, err := json.Marshal(serviceView(service))
	if err != nil {
		respondError(c, err)
		return
	}
	s.cache.Set(c.Request.Context(), cache.NamespaceService, key, body)
	c.Data(http.StatusOK, "application/json", body)
}

// List returns visible listings, optionally filtered by category.
func (s *ServiceAPI) List(c *gin.Context) {
	page, limit := pagination(c)

	services, err := s.services.ListByCategory(c.Request.Context(), c.Query("category"), page*limit, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]gin.H, 0, len(services))
	for i := range services {
		views = append(views, serviceView(&services[i]))
	}
	c.JSON(http.StatusOK, gin.H{"services": views})
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment" binding:"max=1000"`
}

// Review adds the caller's one-time review of a listing and returns the
// refreshed aggregate.
func (s *ServiceAPI) Review(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	service, err := s.reviews.Add(c.Request.Context(), id, actor(c), req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, serviceView(service))
}

// Delete soft-deletes the caller's own listing.
func (s *ServiceAPI) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.lifecycle.SoftDelete(c.Request.Context(), models.FamilyService, id, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// serviceView flattens a listing with its derived average rating.
func serviceView(service *models.Service) gin.H {
	return gin.H{
		"service":       service,
		"averageRating": service.Rating.Average(),
	}
}
