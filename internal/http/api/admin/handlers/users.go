package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	dbutil "github.com/memberd/memberd/internal/db"
	"github.com/memberd/memberd/internal/groups"
	"github.com/memberd/memberd/internal/models"
	"github.com/memberd/memberd/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// emailConfirmationTTL bounds how long a confirmation token stays usable.
const emailConfirmationTTL = 7 * 24 * time.Hour

// UserHandler manages user account endpoints.
type UserHandler struct {
	db     *gorm.DB
	groups *groups.Store
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, groupStore *groups.Store) *UserHandler {
	return &UserHandler{db: db, groups: groupStore}
}

// createUserRequest defines the request body for user creation.
type createUserRequest struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Superuser bool   `json:"superuser"`
}

// Create creates a new user account. An empty password creates a
// placeholder user that cannot sign in.
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	if body.Superuser {
		if viewer := viewerFrom(c); viewer == nil || !viewer.Superuser {
			c.JSON(http.StatusForbidden, gin.H{"error": "superuser required"})
			return
		}
	}

	hash := ""
	if password := strings.TrimSpace(body.Password); password != "" {
		var errHash error
		hash, errHash = security.HashPassword(password)
		if errHash != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
			return
		}
	}

	now := time.Now().UTC()
	user := models.User{
		Username:  username,
		Name:      strings.TrimSpace(body.Name),
		Email:     strings.TrimSpace(body.Email),
		Password:  hash,
		Superuser: body.Superuser,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}
	c.JSON(http.StatusCreated, formatUser(&user))
}

// List returns users with optional filters.
func (h *UserHandler) List(c *gin.Context) {
	var (
		usernameQ = strings.TrimSpace(c.Query("username"))
		emailQ    = strings.TrimSpace(c.Query("email"))
		searchQ   = strings.TrimSpace(c.Query("search"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if usernameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+usernameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), pattern)
	}
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
	}
	if searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "username")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "name")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "email"),
			pattern, pattern, pattern,
		)
	}

	var rows []models.User
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatUser(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// Get returns a user by ID.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatUser(&user))
}

// updateUserRequest defines the request body for user updates.
type updateUserRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Active *bool   `json:"active"`
}

// Update changes mutable user fields.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if body.Name != nil {
		user.Name = strings.TrimSpace(*body.Name)
	}
	if body.Email != nil {
		user.Email = strings.TrimSpace(*body.Email)
	}
	if body.Active != nil {
		user.Active = *body.Active
	}
	user.UpdatedAt = time.Now().UTC()

	if errSave := h.db.WithContext(c.Request.Context()).Save(&user).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update user failed"})
		return
	}
	c.JSON(http.StatusOK, formatUser(&user))
}

// Delete removes a user account.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if viewer := viewerFrom(c); viewer == nil || !viewer.Superuser {
		c.JSON(http.StatusForbidden, gin.H{"error": "superuser required"})
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
		return
	}
	// Memberships end with terminal records before the account goes away.
	if errEnd := h.groups.EndUserMemberships(c.Request.Context(), id); errEnd != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "end memberships failed"})
		return
	}
	if errDelete := h.db.WithContext(c.Request.Context()).Delete(&models.User{}, id).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete user failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	Password string `json:"password"`
}

// ChangePassword replaces a user's password hash.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"password": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update password failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": id})
}

// RequestConfirmation creates a pending email confirmation token for the
// user's current address.
func (h *UserHandler) RequestConfirmation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	email := strings.TrimSpace(user.Email)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user has no email"})
		return
	}

	now := time.Now().UTC()
	confirmation := models.EmailConfirmation{
		UserID:    user.ID,
		Email:     email,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(emailConfirmationTTL),
		CreatedAt: now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&confirmation).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create confirmation failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":      confirmation.Token,
		"email":      confirmation.Email,
		"expires_at": confirmation.ExpiresAt,
	})
}

// Confirm marks an email address verified and promotes bulk memberships
// held by placeholder users with the same address.
func (h *UserHandler) Confirm(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
		return
	}

	ctx := c.Request.Context()
	var confirmation models.EmailConfirmation
	if errFind := h.db.WithContext(ctx).Where("token = ?", token).First(&confirmation).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now().UTC()
	if confirmation.Confirmed() {
		c.JSON(http.StatusConflict, gin.H{"error": "already confirmed"})
		return
	}
	if confirmation.Expired(now) {
		c.JSON(http.StatusGone, gin.H{"error": "token expired"})
		return
	}

	confirmation.ConfirmedAt = &now
	if errSave := h.db.WithContext(ctx).Save(&confirmation).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirm failed"})
		return
	}

	// Placeholder accounts sharing the verified address hand their bulk
	// memberships over to this user.
	var placeholders []models.User
	if errFind := h.db.WithContext(ctx).
		Where("email = ? AND id <> ? AND password = ''", confirmation.Email, confirmation.UserID).
		Find(&placeholders).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	promoted := 0
	for _, placeholder := range placeholders {
		if errPromote := h.groups.PromoteBulkMemberships(ctx, placeholder.ID, confirmation.UserID); errPromote != nil {
			log.WithError(errPromote).WithFields(log.Fields{
				"placeholder": placeholder.ID,
				"user":        confirmation.UserID,
			}).Error("bulk membership promotion failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "promote memberships failed"})
			return
		}
		promoted++
	}

	c.JSON(http.StatusOK, gin.H{
		"confirmed": confirmation.Email,
		"user_id":   confirmation.UserID,
		"promoted":  promoted,
	})
}

func formatUser(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"name":       user.Name,
		"email":      user.Email,
		"superuser":  user.Superuser,
		"active":     user.Active,
		"registered": user.HasUsableCredential(),
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
}
