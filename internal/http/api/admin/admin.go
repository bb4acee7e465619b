// Package admin wires the admin HTTP surface.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/memberd/memberd/internal/config"
	"github.com/memberd/memberd/internal/groups"
	handlers "github.com/memberd/memberd/internal/http/api/admin/handlers"
	"github.com/memberd/memberd/internal/models"
	"github.com/memberd/memberd/internal/notify"
	"github.com/memberd/memberd/internal/profiles"
	"github.com/memberd/memberd/internal/ratelimit"
	"github.com/memberd/memberd/internal/security"
	"github.com/memberd/memberd/internal/settings"
	"gorm.io/gorm"
)

// Deps bundles the services the admin surface needs.
type Deps struct {
	DB       *gorm.DB
	JWT      config.JWTConfig
	Groups   *groups.Store
	Profiles *profiles.Service
	Settings *settings.Store
	Limiter  ratelimit.Limiter
	Sender   notify.Sender
}

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT, deps.Limiter, deps.Settings)
	adminGroup.POST("/login", authHandler.Login)

	userHandler := handlers.NewUserHandler(deps.DB, deps.Groups)
	adminGroup.POST("/confirmations/:token", userHandler.Confirm)

	authed := adminGroup.Group("")
	authed.Use(sessionAuthMiddleware(deps.DB, deps.JWT))

	authed.POST("/users", userHandler.Create)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.PUT("/users/:id", userHandler.Update)
	authed.DELETE("/users/:id", userHandler.Delete)
	authed.PUT("/users/:id/password", userHandler.ChangePassword)
	authed.POST("/users/:id/confirmations", userHandler.RequestConfirmation)

	recordHandler := handlers.NewRecordHandler(deps.Profiles)
	authed.POST("/users/:id/student-records", recordHandler.CreateStudentRecord)
	authed.GET("/users/:id/student-records", recordHandler.ListStudentRecords)
	authed.PUT("/users/:id/student-records/:record_id", recordHandler.UpdateStudentRecord)
	authed.DELETE("/users/:id/student-records/:record_id", recordHandler.DeleteStudentRecord)
	authed.POST("/users/:id/work-records", recordHandler.CreateWorkRecord)
	authed.GET("/users/:id/work-records", recordHandler.ListWorkRecords)
	authed.PUT("/users/:id/work-records/:record_id", recordHandler.UpdateWorkRecord)
	authed.DELETE("/users/:id/work-records/:record_id", recordHandler.DeleteWorkRecord)

	groupHandler := handlers.NewGroupHandler(deps.Groups)
	authed.POST("/groups", groupHandler.Create)
	authed.GET("/groups", groupHandler.List)
	authed.GET("/groups/:id", groupHandler.Get)
	authed.PUT("/groups/:id", groupHandler.Update)
	authed.DELETE("/groups/:id", groupHandler.Delete)
	authed.PUT("/groups/:id/parent", groupHandler.SetParent)
	authed.GET("/groups/:id/children", groupHandler.Children)

	memberHandler := handlers.NewMemberHandler(deps.Groups, deps.Sender, deps.Settings)
	authed.POST("/groups/:id/members", memberHandler.Add)
	authed.GET("/groups/:id/members", memberHandler.List)
	authed.DELETE("/groups/:id/members/:user_id", memberHandler.Remove)
	authed.PUT("/groups/:id/members/:user_id/status", memberHandler.SetStatus)
	authed.PUT("/groups/:id/members/:user_id/admin", memberHandler.SetAdmin)
	authed.GET("/groups/:id/records", memberHandler.Records)
	authed.GET("/groups/:id/emails", memberHandler.Emails)
	authed.POST("/groups/:id/notify", memberHandler.Notify)

	locationHandler := handlers.NewLocationHandler(deps.Groups)
	authed.POST("/groups/:id/locations", locationHandler.Create)
	authed.GET("/groups/:id/locations", locationHandler.List)
	authed.DELETE("/groups/:id/locations/:location_id", locationHandler.Delete)

	settingHandler := handlers.NewSettingHandler(deps.DB, deps.Settings)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)
}

// sessionAuthMiddleware validates session JWTs and loads the viewer.
func sessionAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseSessionToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		c.Set(handlers.ContextViewerKey, &user)
		c.Next()
	}
}
