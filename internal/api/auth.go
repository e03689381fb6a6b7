package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/circleapp/circle/internal/db"
	"github.com/circleapp/circle/internal/models"
	"github.com/circleapp/circle/pkg/config"
)

// AuthAPI handles registration and login.
type AuthAPI struct {
	accounts *db.AccountRepository
	cfg      *config.AuthConfig
}

// NewAuthAPI creates a new auth API handler
func NewAuthAPI(accounts *db.AccountRepository, cfg *config.AuthConfig) *AuthAPI {
	return &AuthAPI{accounts: accounts, cfg: cfg}
}

type registerRequest struct {
	Handle      string `json:"handle" binding:"required,min=3,max=32"`
	Phone       string `json:"phone" binding:"required,min=7,max=20"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and issues a token for it.
func (a *AuthAPI) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}

	account := &models.Account{
		Handle:       req.Handle,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
	}
	if err := a.accounts.Create(c.Request.Context(), account); err != nil {
		// Handle and phone carry unique indexes
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "handle or phone already registered"})
			return
		}
		respondError(c, err)
		return
	}

	token, err := a.issueToken(account.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"account": account,
		"token":   token,
	})
}

// Login verifies credentials by handle or phone and issues a token.
func (a *AuthAPI) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var (
		account *models.Account
		err     error
	)
	switch {
	case req.Handle != "":
		account, err = a.accounts.GetByHandle(c.Request.Context(), req.Handle)
	case req.Phone != "":
		account, err = a.accounts.GetByPhone(c.Request.Context(), req.Phone)
	default:
		badRequest(c, "handle or phone required")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if account == nil ||
		bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := a.issueToken(account.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account": account,
		"token":   token,
	})
}

func (a *AuthAPI) issueToken(id primitive.ObjectID) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: id.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(a.cfg.JWTSecret))
}
