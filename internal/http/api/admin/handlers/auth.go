package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memberd/memberd/internal/config"
	"github.com/memberd/memberd/internal/models"
	"github.com/memberd/memberd/internal/ratelimit"
	"github.com/memberd/memberd/internal/security"
	"github.com/memberd/memberd/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthHandler manages login sessions.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	limiter  ratelimit.Limiter
	settings *settings.Store
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, limiter ratelimit.Limiter, settingStore *settings.Store) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, limiter: limiter, settings: settingStore}
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a session token. Attempts are rate
// limited per client address.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credentials"})
		return
	}

	if h.limiter != nil {
		limit := h.settings.Int(settings.LoginRateLimitKey, settings.DefaultLoginRateLimit)
		result, errLimit := h.limiter.Allow(c.Request.Context(), "login:"+c.ClientIP(), limit, time.Now())
		if errLimit == nil && !result.Allowed {
			c.Header("Retry-After", result.Reset.UTC().Format(http.TimeFormat))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
			return
		}
	}

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", username).
		First(&user).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.Active || !user.HasUsableCredential() || !security.CheckPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, errSign := security.IssueSessionToken(h.jwtCfg.Secret, user.ID, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	log.WithFields(log.Fields{"user": user.Username}).Info("login")
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int64(h.jwtCfg.Expiry.Seconds()),
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"name":      user.Name,
			"email":     user.Email,
			"superuser": user.Superuser,
		},
	})
}
