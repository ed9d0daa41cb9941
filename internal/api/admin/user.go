package admin

import (
	"net/http"

	"github.com/ZJUSCT/DailyBoard/internal/api"
	"github.com/ZJUSCT/DailyBoard/internal/auth"
	"github.com/ZJUSCT/DailyBoard/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) getAllUsers(c *gin.Context) {
	users, err := h.svc.Users(c.Request.Context())
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, users, "Users retrieved successfully")
}

func (h *Handler) createUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Nickname string `json:"nickname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), req.Username, req.Nickname)
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, user, "User created successfully")
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.svc.User(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, user, "User retrieved successfully")
}

func (h *Handler) getUserResults(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")
	if _, err := h.svc.User(ctx, userID); err != nil {
		api.Fail(c, err)
		return
	}
	results, err := h.svc.UserResults(ctx, userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, results, "Results retrieved successfully")
}

// issueToken mints a bearer token for a user. Identity is managed outside
// this service.
func (h *Handler) issueToken(c *gin.Context) {
	user, err := h.svc.User(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.Fail(c, err)
		return
	}

	token, err := auth.GenerateJWT(user.ID, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, "failed to generate token")
		return
	}
	zap.S().Infof("issued token for user %s", user.ID)
	util.Success(c, gin.H{"token": token}, "Token issued successfully")
}
