package handler

import (
	"errors"
	"net/http"

	response "game-hub-app/backend/internal/infra/common"
	usersvc "game-hub-app/backend/internal/service/user"

	"github.com/gin-gonic/gin"
)

// UserHandler 提供当前登录用户相关的接口。
type UserHandler struct {
	service *usersvc.Service
}

// NewUserHandler 构造用户 handler。
func NewUserHandler(service *usersvc.Service) *UserHandler {
	return &UserHandler{service: service}
}

// GetMe 返回当前登录用户的公开资料。
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, usersvc.ErrUserNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound, "user not found", nil)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, err.Error(), nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": profile}, nil)
}

// extractUserID 从上下文取出鉴权中间件写入的用户 ID。
func extractUserID(c *gin.Context) (uint, bool) {
	val, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	switch id := val.(type) {
	case uint:
		return id, true
	case uint64:
		return uint(id), true
	case int:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case int64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case float64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	default:
		return 0, false
	}
}

// isAdmin 判断当前请求是否带有管理员标记。
func isAdmin(c *gin.Context) bool {
	val, ok := c.Get("isAdmin")
	if !ok {
		return false
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}
