package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/memberd/memberd/internal/groups"
	"github.com/memberd/memberd/internal/models"
	"gorm.io/gorm"
)

// LocationHandler manages group location endpoints.
type LocationHandler struct {
	db      *gorm.DB
	groupsH *GroupHandler
}

// NewLocationHandler constructs a LocationHandler.
func NewLocationHandler(store *groups.Store) *LocationHandler {
	return &LocationHandler{db: store.DB(), groupsH: NewGroupHandler(store)}
}

// createLocationRequest defines the request body for adding a location.
type createLocationRequest struct {
	Place     string   `json:"place"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Create attaches a location to the group. Requires group admin.
func (h *LocationHandler) Create(c *gin.Context) {
	group, ok := h.groupsH.requireGroupAdmin(c)
	if !ok {
		return
	}
	var body createLocationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	place := strings.TrimSpace(body.Place)
	if place == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing place"})
		return
	}

	location := models.GroupLocation{
		GroupID:   group.ID,
		Place:     place,
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&location).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create location failed"})
		return
	}
	c.JSON(http.StatusCreated, formatLocation(&location))
}

// List returns the group's locations.
func (h *LocationHandler) List(c *gin.Context) {
	group, ok := h.groupsH.loadVisibleGroup(c)
	if !ok {
		return
	}
	var rows []models.GroupLocation
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("group_id = ?", group.ID).
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list locations failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatLocation(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"locations": out})
}

// Delete removes a location from the group. Requires group admin.
func (h *LocationHandler) Delete(c *gin.Context) {
	group, ok := h.groupsH.requireGroupAdmin(c)
	if !ok {
		return
	}
	locationID, okID := parseIDParam(c, "location_id")
	if !okID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND group_id = ?", locationID, group.ID).
		Delete(&models.GroupLocation{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete location failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": locationID})
}

func formatLocation(location *models.GroupLocation) gin.H {
	return gin.H{
		"id":        location.ID,
		"group_id":  location.GroupID,
		"place":     location.Place,
		"latitude":  location.Latitude,
		"longitude": location.Longitude,
	}
}
