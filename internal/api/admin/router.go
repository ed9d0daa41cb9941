package admin

import (
	"github.com/ZJUSCT/DailyBoard/internal/api"
	"github.com/ZJUSCT/DailyBoard/internal/config"
	"github.com/ZJUSCT/DailyBoard/internal/league"
	"github.com/gin-gonic/gin"
)

// NewAdminRouter creates and configures the admin Gin engine. It has no
// authentication and must only listen on a trusted interface.
func NewAdminRouter(cfg *config.Config, svc *league.Service) *gin.Engine {
	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, svc)

	v1 := r.Group("/api/v1")
	{
		// User Management
		users := v1.Group("/users")
		{
			users.GET("", h.getAllUsers)
			users.POST("", h.createUser)
			users.GET("/:id", h.getUser)
			users.GET("/:id/results", h.getUserResults)
			users.POST("/:id/token", h.issueToken)
		}

		// Group & Membership Management
		groups := v1.Group("/groups")
		{
			groups.GET("", h.getAllGroups)
			groups.POST("", h.createGroup)
			groups.GET("/:id/members", h.getMembers)
			groups.POST("/:id/members", h.addMember)
			groups.PATCH("/:id/members/:userID", h.updateMember)
			groups.DELETE("/:id/members/:userID", h.removeMember)
			groups.POST("/:id/refresh", h.refreshGroup)
		}

		// Refresh Management
		v1.GET("/refresh/status", h.getRefreshStatus)
		v1.POST("/refresh", h.refreshAll)
	}

	return r
}
