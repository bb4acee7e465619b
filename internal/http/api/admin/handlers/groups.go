package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/memberd/memberd/internal/db"
	"github.com/memberd/memberd/internal/groups"
	"github.com/memberd/memberd/internal/models"
	"gorm.io/gorm"
)

// GroupHandler manages group endpoints.
type GroupHandler struct {
	store *groups.Store
	db    *gorm.DB
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(store *groups.Store) *GroupHandler {
	return &GroupHandler{store: store, db: store.DB()}
}

// createGroupRequest defines the request body for group creation.
type createGroupRequest struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	Visibility  string  `json:"visibility"`
	Private     bool    `json:"private"`
	NetworkType string  `json:"network_type"`
	ParentID    *uint64 `json:"parent_id"`
}

// Create creates a group. The authenticated user becomes its creator and
// first admin.
func (h *GroupHandler) Create(c *gin.Context) {
	viewer := viewerFrom(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body createGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	group, errCreate := h.store.CreateGroup(c.Request.Context(), groups.NewGroupParams{
		Name:        body.Name,
		Kind:        body.Kind,
		Visibility:  body.Visibility,
		Private:     body.Private,
		NetworkType: body.NetworkType,
		ParentID:    body.ParentID,
		CreatorID:   viewer.ID,
	})
	if errCreate != nil {
		switch {
		case errors.Is(errCreate, groups.ErrInvalidSlug),
			errors.Is(errCreate, groups.ErrInvalidVisibility):
			c.JSON(http.StatusBadRequest, gin.H{"error": errCreate.Error()})
		case errors.Is(errCreate, groups.ErrGroupNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "parent not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create group failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, formatGroup(group))
}

// List returns groups matching the optional filters, restricted to those
// visible to the authenticated user.
func (h *GroupHandler) List(c *gin.Context) {
	var (
		kindQ   = strings.TrimSpace(c.Query("kind"))
		slugQ   = strings.TrimSpace(c.Query("slug"))
		searchQ = strings.TrimSpace(c.Query("search"))
	)

	ctx := c.Request.Context()

	// Kind narrows a slug lookup but is not required for one.
	if slugQ != "" {
		group, errFind := h.store.GroupBySlug(ctx, slugQ, kindQ)
		if errFind != nil {
			if errors.Is(errFind, groups.ErrGroupNotFound) {
				c.JSON(http.StatusOK, gin.H{"groups": []gin.H{}})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		visible, errVisible := h.store.IsVisible(ctx, group, viewerFrom(c))
		if errVisible != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if !visible {
			c.JSON(http.StatusOK, gin.H{"groups": []gin.H{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"groups": []gin.H{formatGroup(group)}})
		return
	}

	q := h.db.WithContext(ctx).Model(&models.Group{})
	if kindQ != "" {
		q = q.Where("kind = ?", kindQ)
	}
	if searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "name")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "slug"),
			pattern, pattern,
		)
	}

	var rows []models.Group
	if errFind := q.Order("name ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list groups failed"})
		return
	}

	viewer := viewerFrom(c)
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		visible, errVisible := h.store.IsVisible(ctx, &rows[i], viewer)
		if errVisible != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if visible {
			out = append(out, formatGroup(&rows[i]))
		}
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

// Get returns a group by ID if it is visible to the authenticated user.
func (h *GroupHandler) Get(c *gin.Context) {
	group, ok := h.loadVisibleGroup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatGroup(group))
}

// updateGroupRequest defines the request body for group updates. The slug
// never changes after creation.
type updateGroupRequest struct {
	Name       *string `json:"name"`
	Visibility *string `json:"visibility"`
	Private    *bool   `json:"private"`
}

// Update changes mutable group fields. Requires group admin.
func (h *GroupHandler) Update(c *gin.Context) {
	group, ok := h.requireGroupAdmin(c)
	if !ok {
		return
	}
	var body updateGroupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
			return
		}
		group.Name = name
	}
	if body.Visibility != nil {
		if !models.ValidVisibility(*body.Visibility) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visibility"})
			return
		}
		group.Visibility = *body.Visibility
	}
	if body.Private != nil {
		group.Private = *body.Private
	}
	group.UpdatedAt = time.Now().UTC()

	if errSave := h.db.WithContext(c.Request.Context()).Save(group).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update group failed"})
		return
	}
	c.JSON(http.StatusOK, formatGroup(group))
}

// Delete removes a group, ending every membership. Requires group admin.
func (h *GroupHandler) Delete(c *gin.Context) {
	group, ok := h.requireGroupAdmin(c)
	if !ok {
		return
	}
	if errDelete := h.store.DeleteGroup(c.Request.Context(), group.ID); errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete group failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": group.ID})
}

// setParentRequest defines the request body for reparenting.
type setParentRequest struct {
	ParentID *uint64 `json:"parent_id"`
}

// SetParent moves a group under a new parent, or detaches it. Requires
// group admin.
func (h *GroupHandler) SetParent(c *gin.Context) {
	group, ok := h.requireGroupAdmin(c)
	if !ok {
		return
	}
	var body setParentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if errSet := h.store.SetParent(c.Request.Context(), group.ID, body.ParentID); errSet != nil {
		switch {
		case errors.Is(errSet, groups.ErrCyclicHierarchy):
			c.JSON(http.StatusConflict, gin.H{"error": "cyclic hierarchy"})
		case errors.Is(errSet, groups.ErrGroupNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "set parent failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": group.ID, "parent_id": body.ParentID})
}

// Children lists the group's children visible to the authenticated user.
func (h *GroupHandler) Children(c *gin.Context) {
	group, ok := h.loadVisibleGroup(c)
	if !ok {
		return
	}
	children, errList := h.store.VisibleChildren(c.Request.Context(), group, viewerFrom(c))
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list children failed"})
		return
	}
	out := make([]gin.H, 0, len(children))
	for i := range children {
		out = append(out, formatGroup(&children[i]))
	}
	c.JSON(http.StatusOK, gin.H{"children": out})
}

// loadVisibleGroup loads the group in the :id path param and enforces
// visibility for the authenticated user.
func (h *GroupHandler) loadVisibleGroup(c *gin.Context) (*models.Group, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	group, errFind := h.store.GroupByID(c.Request.Context(), id)
	if errFind != nil {
		if errors.Is(errFind, groups.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	visible, errVisible := h.store.IsVisible(c.Request.Context(), group, viewerFrom(c))
	if errVisible != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	if !visible {
		// Hidden groups are indistinguishable from missing ones.
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return group, true
}

// requireGroupAdmin loads the group and enforces that the authenticated
// user administers it. Superusers always pass.
func (h *GroupHandler) requireGroupAdmin(c *gin.Context) (*models.Group, bool) {
	group, ok := h.loadVisibleGroup(c)
	if !ok {
		return nil, false
	}
	viewer := viewerFrom(c)
	isAdmin, errAdmin := h.store.UserIsAdmin(c.Request.Context(), group, viewer)
	if errAdmin != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	if !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "group admin required"})
		return nil, false
	}
	return group, true
}

func formatGroup(group *models.Group) gin.H {
	return gin.H{
		"id":           group.ID,
		"slug":         group.Slug,
		"kind":         group.Kind,
		"name":         group.Name,
		"parent_id":    group.ParentID,
		"private":      group.Private,
		"visibility":   group.Visibility,
		"network_type": group.NetworkType,
		"creator_id":   group.CreatorID,
		"created_at":   group.CreatedAt,
		"updated_at":   group.UpdatedAt,
	}
}
