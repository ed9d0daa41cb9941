package user

import (
	"net/http"

	"github.com/ZJUSCT/DailyBoard/internal/api"
	"github.com/ZJUSCT/DailyBoard/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) getMembers(c *gin.Context) {
	members, err := h.svc.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, members, "Members retrieved")
}

func (h *Handler) getAdjustments(c *gin.Context) {
	adjustments, err := h.svc.ListAdjustments(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, adjustments, "Adjustments retrieved")
}

func (h *Handler) recordAdjustment(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Delta  int    `json:"delta"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	adj, err := h.svc.RecordAdjustment(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.UserID, req.Delta, req.Reason)
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, adj, "Adjustment recorded")
}

func (h *Handler) resetGroup(c *gin.Context) {
	if err := h.svc.ResetGroup(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, nil, "Group results and adjustments deleted")
}
