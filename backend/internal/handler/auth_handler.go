/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-14 19:02:31
 * @FilePath: \game-hub-app\backend\internal\handler\auth_handler.go
 * @LastEditTime: 2026-06-15 22:40:18
 */
package handler

import (
	"errors"
	"net/http"

	response "game-hub-app/backend/internal/infra/common"
	appLogger "game-hub-app/backend/internal/infra/logger"
	"game-hub-app/backend/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 负责对接 Gin，处理鉴权相关的 HTTP 请求。
type AuthHandler struct {
	service *auth.Service
	logger  *zap.SugaredLogger
}

// NewAuthHandler 构造鉴权 handler，注入业务层服务做实际处理。
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  appLogger.S().With("component", "auth.handler"),
	}
}

type registerRequest struct {
	Username    string `json:"username" binding:"required,min=3"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register 处理用户注册请求，校验参数后交给业务层。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	user, tokens, err := h.service.Register(c.Request.Context(), auth.RegisterParams{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		CaptchaID:   req.CaptchaID,
		CaptchaCode: req.CaptchaCode,
	})
	if err != nil {
		h.failRegister(c, err)
		return
	}

	response.Created(c, gin.H{
		"user":   user.Public(),
		"tokens": tokens,
	}, nil)
}

func (h *AuthHandler) failRegister(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrEmailAndUsernameTaken):
		response.Fail(c, http.StatusConflict, response.ErrConflict, err.Error(), nil)
	case errors.Is(err, auth.ErrCaptchaRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrCaptchaRequired, err.Error(), nil)
	case errors.Is(err, auth.ErrCaptchaInvalid):
		response.Fail(c, http.StatusBadRequest, response.ErrCaptchaInvalid, err.Error(), nil)
	case errors.Is(err, auth.ErrCaptchaExpired):
		response.Fail(c, http.StatusBadRequest, response.ErrCaptchaExpired, err.Error(), nil)
	default:
		h.logger.Errorw("register failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "注册失败，请稍后再试", nil)
	}
}

// Login 校验登录凭证并签发访问令牌，identifier 可以是邮箱或用户名。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	user, tokens, err := h.service.Login(c.Request.Context(), auth.LoginParams{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidLogin) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials, err.Error(), nil)
			return
		}
		h.logger.Errorw("login failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "登录失败，请稍后再试", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":   user.Public(),
		"tokens": tokens,
	}, nil)
}

// Refresh 用刷新令牌换取新的令牌对，旧刷新令牌随即作废。
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshTokenInvalid),
			errors.Is(err, auth.ErrRefreshTokenExpired),
			errors.Is(err, auth.ErrRefreshTokenRevoked),
			errors.Is(err, auth.ErrRefreshTokenRequired):
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, err.Error(), nil)
		default:
			h.logger.Errorw("refresh failed", "error", err)
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "刷新令牌失败", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tokens": tokens}, nil)
}

// Logout 注销刷新令牌。令牌已失效时同样返回成功，保证幂等。
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	if err := h.service.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.logger.Warnw("logout failed", "error", err)
	}

	response.NoContent(c)
}

// Captcha 生成图形验证码。未启用验证码时返回 enabled=false，前端据此隐藏输入框。
func (h *AuthHandler) Captcha(c *gin.Context) {
	if !h.service.CaptchaEnabled() {
		response.Success(c, http.StatusOK, gin.H{"enabled": false}, nil)
		return
	}

	id, image, remaining, err := h.service.GenerateCaptcha(c.Request.Context(), c.ClientIP())
	if err != nil {
		if errors.Is(err, auth.ErrCaptchaRateLimited) {
			response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, err.Error(), gin.H{"remaining": remaining})
			return
		}
		h.logger.Errorw("generate captcha failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "生成验证码失败", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"enabled":    true,
		"captcha_id": id,
		"image":      image,
		"remaining":  remaining,
	}, nil)
}
