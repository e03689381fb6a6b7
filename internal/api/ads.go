package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circleapp/circle/internal/core"
	"github.com/circleapp/circle/internal/db"
	"github.com/circleapp/circle/internal/models"
)

// AdAPI handles campaign management, serving and metric events.
type AdAPI struct {
	repo      *db.AdRepository
	ads       *core.Ads
	lifecycle *core.Lifecycle
}

// NewAdAPI creates a new advertisement API handler
func NewAdAPI(repo *db.AdRepository, ads *core.Ads, lifecycle *core.Lifecycle) *AdAPI {
	return &AdAPI{
		repo:      repo,
		ads:       ads,
		lifecycle: lifecycle,
	}
}

type createAdRequest struct {
	Title     string    `json:"title" binding:"required,max=120"`
	MediaURL  string    `json:"mediaUrl" binding:"required,max=512"`
	TargetURL string    `json:"targetUrl" binding:"required,max=512"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// Create registers a campaign owned by the caller.
func (a *AdAPI) Create(c *gin.Context) {
	var req createAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !req.EndDate.After(req.StartDate) {
		badRequest(c, "endDate must be after startDate")
		return
	}

	ad := &models.Advertisement{
		AdvertiserID: actor(c),
		Title:        req.Title,
		MediaURL:     req.MediaURL,
		TargetURL:    req.TargetURL,
		Schedule: models.AdSchedule{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
		},
	}
	if err := a.repo.Create(c.Request.Context(), ad); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ad)
}

// Serve returns eligible campaigns for display and counts one
// impression per ad served.
func (a *AdAPI) Serve(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "3"))

	ads, err := a.ads.Serve(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ads": ads})
}

// Click records a click on a served campaign.
func (a *AdAPI) Click(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := a.ads.RecordClick(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

// Conversion records a conversion attributed to a campaign.
func (a *AdAPI) Conversion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := a.ads.RecordConversion(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

// List returns the caller's campaigns with their metrics.
func (a *AdAPI) List(c *gin.Context) {
	ads, err := a.repo.ListByAdvertiser(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ads": ads})
}

type adStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves the caller's campaign between active, paused and
// ended.
func (a *AdAPI) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req adStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := a.repo.UpdateStatus(c.Request.Context(), id, actor(c), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// Delete soft-deletes the caller's own campaign.
func (a *AdAPI) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := a.lifecycle.SoftDelete(c.Request.Context(), models.FamilyAdvertisement, id, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
