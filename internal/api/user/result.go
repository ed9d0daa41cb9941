package user

import (
	"net/http"
	"time"

	"github.com/ZJUSCT/DailyBoard/internal/api"
	"github.com/ZJUSCT/DailyBoard/internal/league"
	"github.com/ZJUSCT/DailyBoard/internal/scoring"
	"github.com/ZJUSCT/DailyBoard/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) submitResult(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		GroupID               *string    `json:"group_id"`
		GuessCount            int        `json:"guess_count"`
		Solved                bool       `json:"solved"`
		RawLocalDate          string     `json:"raw_local_date"`
		TimezoneOffsetMinutes int        `json:"timezone_offset_minutes"`
		SubmittedAt           *time.Time `json:"submitted_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	in := scoring.DayKeyInputs{
		RawLocalDate:          req.RawLocalDate,
		TimezoneOffsetMinutes: req.TimezoneOffsetMinutes,
	}
	if req.SubmittedAt != nil {
		in.SubmittedAt = *req.SubmittedAt
	}

	result, err := h.svc.SubmitResult(c.Request.Context(), league.SubmitRequest{
		UserID:     userID,
		GroupID:    req.GroupID,
		GuessCount: req.GuessCount,
		Solved:     req.Solved,
		DayKey:     in,
	})
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, result, "Result submitted")
}

func (h *Handler) getMyResults(c *gin.Context) {
	results, err := h.svc.UserResults(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, results, "Results retrieved")
}
