package user

import (
	"github.com/ZJUSCT/DailyBoard/internal/api"
	"github.com/ZJUSCT/DailyBoard/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) getLeaderboard(c *gin.Context) {
	groupID := c.Param("id")
	snap, err := h.svc.GetLeaderboard(c.Request.Context(), groupID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	msg := "Leaderboard retrieved"
	if snap.Stale {
		msg = "Leaderboard retrieved, refresh pending"
	}
	util.Success(c, snap, msg)
}

func (h *Handler) getDayHistory(c *gin.Context) {
	groupID := c.Param("id")
	days, err := h.svc.GetDayHistory(c.Request.Context(), groupID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, days, "Day history retrieved")
}

func (h *Handler) getPendingStatus(c *gin.Context) {
	status, err := h.svc.GetPendingStatus(c.Param("dayKey"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, status, "Day status retrieved")
}
