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

// AccountAPI handles profile reads, profile updates and the follow graph.
type AccountAPI struct {
	accounts      *db.AccountRepository
	relationships *core.Relationships
	lifecycle     *core.Lifecycle
	cache         *cache.Cache
}

// NewAccountAPI creates a new account API handler
func NewAccountAPI(accounts *db.AccountRepository, relationships *core.Relationships, lifecycle *core.Lifecycle, c *cache.Cache) *AccountAPI {
	return &AccountAPI{
		accounts:      accounts,
		relationships: relationships,
		lifecycle:     lifecycle,
		cache:         c,
	}
}

// GetProfile returns a profile, read through the account cache.
func (a *AccountAPI) GetProfile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	key := cache.ProfileKey(id.Hex())
	if body, ok := a.cache.Get(c.Request.Context(), cache.NamespaceAccount, key); ok {
		c.Data(http.StatusOK, "application/json", body)
		return
	}

	account, err := a.accounts.Account(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	body, err := json.Marshal(account)
	if err != nil {
		respondError(c, err)
		return
	}
	a.cache.Set(c.Request.Context(), cache.NamespaceAccount, key, body)
	c.Data(http.StatusOK, "application/json", body)
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"max=64"`
	Bio         string `json:"bio" binding:"max=500"`
	AvatarURL   string `json:"avatarUrl" binding:"max=512"`
}

// UpdateProfile modifies the caller's own profile fields.
func (a *AccountAPI) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	self := actor(c)
	if err := a.accounts.UpdateProfile(c.Request.Context(), self, req.DisplayName, req.Bio, req.AvatarURL); err != nil {
		respondError(c, err)
		return
	}

	a.cache.Invalidate(c.Request.Context(), cache.NamespaceAccount,
		[]string{cache.ProfileKey(self.Hex())}, nil)
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// Follow creates the caller's follow edge toward the target account.
func (a *AccountAPI) Follow(c *gin.Context) {
	target, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := a.relationships.Follow(c.Request.Context(), actor(c), target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Unfollow removes the caller's follow edge toward the target account.
func (a *AccountAPI) Unfollow(c *gin.Context) {
	target, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := a.relationships.Unfollow(c.Request.Context(), actor(c), target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Followers lists the accounts following the target.
func (a *AccountAPI) Followers(c *gin.Context) {
	a.listEdge(c, func(followers, _ []primitive.ObjectID) []primitive.ObjectID {
		return followers
	})
}

// Following lists the accounts the target follows.
func (a *AccountAPI) Following(c *gin.Context) {
	a.listEdge(c, func(_, following []primitive.ObjectID) []primitive.ObjectID {
		return following
	})
}

func (a *AccountAPI) listEdge(c *gin.Context, pick func(followers, following []primitive.ObjectID) []primitive.ObjectID) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	account, err := a.accounts.Account(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	accounts, err := a.accounts.ListByIDs(c.Request.Context(), pick(account.Followers, account.Following), pageLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// Deactivate soft-deletes the caller's own account.
func (a *AccountAPI) Deactivate(c *gin.Context) {
	self := actor(c)
	if err := a.lifecycle.SoftDelete(c.Request.Context(), models.FamilyAccount, self, self); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deactivated": true})
}
