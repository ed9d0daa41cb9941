package admin

import (
	"github.com/ZJUSCT/DailyBoard/internal/api"
	"github.com/ZJUSCT/DailyBoard/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) getRefreshStatus(c *gin.Context) {
	util.Success(c, h.svc.RefreshStatus(), "Refresh status retrieved")
}

func (h *Handler) refreshGroup(c *gin.Context) {
	if err := h.svc.ForceRefresh(c.Request.Context(), c.Param("id")); err != nil {
		api.Fail(c, err)
		return
	}
	snap, err := h.svc.GetLeaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, snap, "Leaderboard refreshed")
}

func (h *Handler) refreshAll(c *gin.Context) {
	if err := h.svc.WarmUp(c.Request.Context()); err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, h.svc.RefreshStatus(), "All leaderboards refreshed")
}
