package user

import (
	"github.com/ZJUSCT/DailyBoard/internal/api"
	"github.com/ZJUSCT/DailyBoard/internal/config"
	"github.com/ZJUSCT/DailyBoard/internal/league"
	"github.com/ZJUSCT/DailyBoard/internal/pubsub"
	"github.com/gin-gonic/gin"
)

// NewUserRouter creates and configures the user Gin engine.
func NewUserRouter(
	cfg *config.Config,
	svc *league.Service,
	broker *pubsub.Broker) *gin.Engine {

	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, svc, broker)

	v1 := r.Group("/api/v1")
	{
		// Websocket for live leaderboard updates, token passed as query
		v1.GET("/ws/groups/:id/leaderboard", h.handleLeaderboardWs)

		// Publicly accessible info
		v1.GET("/groups/:id/leaderboard", h.getLeaderboard)
		v1.GET("/groups/:id/days", h.getDayHistory)
		v1.GET("/days/:dayKey/status", h.getPendingStatus)

		// Authenticated routes
		authed := v1.Group("/")
		authed.Use(api.AuthMiddleware(cfg.Auth.JWT.Secret))
		{
			authed.POST("/results", h.submitResult)
			authed.GET("/results", h.getMyResults)

			// Group admin actions
			groups := authed.Group("/groups/:id")
			{
				groups.GET("/members", h.getMembers)
				groups.GET("/adjustments", h.getAdjustments)
				groups.POST("/adjustments", h.recordAdjustment)
				groups.POST("/reset", h.resetGroup)
			}
		}
	}

	return r
}
