package handler

import (
	"errors"
	"net/http"
	"strconv"

	response "game-hub-app/backend/internal/infra/common"
	adminusersvc "game-hub-app/backend/internal/service/adminuser"

	"github.com/gin-gonic/gin"
)

// AdminUserHandler 负责管理员后台的用户管理接口。
type AdminUserHandler struct {
	service *adminusersvc.Service
}

// NewAdminUserHandler 初始化管理员用户 Handler。
func NewAdminUserHandler(service *adminusersvc.Service) *AdminUserHandler {
	return &AdminUserHandler{service: service}
}

type adminUserListRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// List 返回用户列表，供管理员总览。
func (h *AdminUserHandler) List(c *gin.Context) {
	if h == nil || h.service == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal, "admin user service unavailable", nil)
		return
	}

	var req adminUserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	result, err := h.service.List(c.Request.Context(), adminusersvc.ListParams{
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, err.Error(), nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"items": result.Items},
		response.NewMetaPagination(result.Page, result.PageSize, result.Total, len(result.Items)))
}

type changeRoleRequest struct {
	IsAdmin *bool `json:"is_admin" binding:"required"`
}

// ChangeRole 授予或回收管理员权限，不允许修改自己的角色。
func (h *AdminUserHandler) ChangeRole(c *gin.Context) {
	actorID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return
	}

	targetID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	if err := h.service.ChangeRole(c.Request.Context(), actorID, targetID, *req.IsAdmin); err != nil {
		h.failMutation(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user_id": targetID, "is_admin": *req.IsAdmin}, nil)
}

// Delete 删除用户账号，不允许删除自己。
func (h *AdminUserHandler) Delete(c *gin.Context) {
	actorID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return
	}

	targetID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actorID, targetID); err != nil {
		h.failMutation(c, err)
		return
	}

	response.NoContent(c)
}

func (h *AdminUserHandler) failMutation(c *gin.Context, err error) {
	switch {
	case errors.Is(err, adminusersvc.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, err.Error(), nil)
	case errors.Is(err, adminusersvc.ErrSelfDemotion), errors.Is(err, adminusersvc.ErrSelfDeletion):
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, err.Error(), nil)
	}
}

func parseUserIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid user id", nil)
		return 0, false
	}
	return uint(id), true
}
