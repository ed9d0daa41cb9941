package admin

import (
	"net/http"

	"github.com/ZJUSCT/DailyBoard/internal/api"
	"github.com/ZJUSCT/DailyBoard/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) getAllGroups(c *gin.Context) {
	groups, err := h.svc.Groups(c.Request.Context())
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, groups, "Groups retrieved successfully")
}

func (h *Handler) createGroup(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	group, err := h.svc.CreateGroup(c.Request.Context(), req.Name)
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, group, "Group created successfully")
}

func (h *Handler) getMembers(c *gin.Context) {
	members, err := h.svc.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, members, "Members retrieved successfully")
}

func (h *Handler) addMember(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		IsAdmin bool   `json:"is_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	m, err := h.svc.AddMember(c.Request.Context(), c.Param("id"), req.UserID, req.IsAdmin)
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, m, "Member added successfully")
}

func (h *Handler) updateMember(c *gin.Context) {
	var req struct {
		IsAdmin *bool `json:"is_admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	if err := h.svc.SetMemberAdmin(c.Request.Context(), c.Param("id"), c.Param("userID"), *req.IsAdmin); err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, nil, "Member updated successfully")
}

func (h *Handler) removeMember(c *gin.Context) {
	if err := h.svc.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("userID")); err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, nil, "Member removed successfully")
}
