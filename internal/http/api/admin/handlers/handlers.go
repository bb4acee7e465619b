// Package handlers implements the admin HTTP endpoints.
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/memberd/memberd/internal/models"
)

// Context keys set by the auth middleware.
const (
	ContextViewerKey = "viewer"
)

// viewerFrom returns the authenticated user stored on the context, or nil.
func viewerFrom(c *gin.Context) *models.User {
	raw, ok := c.Get(ContextViewerKey)
	if !ok {
		return nil
	}
	viewer, _ := raw.(*models.User)
	return viewer
}

// parseIDParam parses a numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	return parseQueryID(c.Param(name))
}

// parseQueryID parses a numeric identifier from raw input.
func parseQueryID(raw string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}
