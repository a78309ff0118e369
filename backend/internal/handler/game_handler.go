/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-16 09:27:55
 * @FilePath: \game-hub-app\backend\internal\handler\game_handler.go
 * @LastEditTime: 2026-06-21 17:03:42
 */
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"game-hub-app/backend/internal/config"
	domain "game-hub-app/backend/internal/domain/game"
	response "game-hub-app/backend/internal/infra/common"
	appLogger "game-hub-app/backend/internal/infra/logger"
	gamesvc "game-hub-app/backend/internal/service/game"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// gameFileField 是上传游戏文件的表单字段名。
	gameFileField = "gameFile"
	// thumbnailField 是可选缩略图的表单字段名。
	thumbnailField = "thumbnail"
	// remoteFetchTimeout 限制代理远端 HTML 的抓取时长。
	remoteFetchTimeout = 15 * time.Second
	// remoteBodyLimit 限制代理转发的远端响应体大小。
	remoteBodyLimit = 32 << 20
)

// GameHandler 承接游戏目录相关的 HTTP 请求：上传、浏览、播放与管理操作。
type GameHandler struct {
	service *gamesvc.Service
	cfg     config.UploadConfig
	client  *http.Client
	logger  *zap.SugaredLogger
}

// NewGameHandler 构造游戏 handler。
func NewGameHandler(service *gamesvc.Service, cfg config.UploadConfig) *GameHandler {
	return &GameHandler{
		service: service,
		cfg:     cfg,
		client:  &http.Client{Timeout: remoteFetchTimeout},
		logger:  appLogger.S().With("component", "game.handler"),
	}
}

func (h *GameHandler) scope(action string) *zap.SugaredLogger {
	return h.logger.With("action", action)
}

// Upload 接收 multipart 上传并执行入库流水线。
// 表单字段：gameFile（必填，.html 或 .zip）、thumbnail（可选）、
// title（必填）、description、category（必填）、genre。
func (h *GameHandler) Upload(c *gin.Context) {
	log := h.scope("upload")

	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return
	}

	fileHeader, err := c.FormFile(gameFileField)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrNoFileProvided, "game file is required", nil)
		return
	}
	if fileHeader.Size > h.cfg.MaxUploadBytes {
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", h.cfg.MaxUploadBytes), nil)
		return
	}

	gameFile, err := h.saveToScratch(c, fileHeader)
	if err != nil {
		log.Errorw("save upload to scratch failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "保存上传文件失败", nil)
		return
	}

	var thumbFile *gamesvc.UploadFile
	if thumbHeader, err := c.FormFile(thumbnailField); err == nil && thumbHeader != nil {
		if saved, err := h.saveToScratch(c, thumbHeader); err != nil {
			// 缩略图保存失败不阻断上传流程
			log.Warnw("save thumbnail to scratch failed", "error", err)
		} else {
			thumbFile = saved
		}
	}

	record, err := h.service.Ingest(c.Request.Context(), gamesvc.IngestParams{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Category:    strings.TrimSpace(c.PostForm("category")),
		Genre:       strings.TrimSpace(c.PostForm("genre")),
		UploaderID:  userID,
		File:        gameFile,
		Thumbnail:   thumbFile,
	})
	if err != nil {
		h.failIngest(c, err)
		return
	}

	response.Created(c, gin.H{
		"game":     record,
		"play_url": fmt.Sprintf("/api/games/%d/play", record.ID),
	}, nil)
}

// saveToScratch 把 multipart 文件落到暂存目录，返回指向它的 UploadFile。
// 之后的清理由流水线负责。
func (h *GameHandler) saveToScratch(c *gin.Context, header *multipart.FileHeader) (*gamesvc.UploadFile, error) {
	if err := os.MkdirAll(h.cfg.ScratchRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	dst := filepath.Join(h.cfg.ScratchRoot, uuid.NewString()+strings.ToLower(filepath.Ext(header.Filename)))
	if err := c.SaveUploadedFile(header, dst); err != nil {
		return nil, fmt.Errorf("save uploaded file: %w", err)
	}

	return &gamesvc.UploadFile{
		Name: header.Filename,
		Size: header.Size,
		Path: dst,
	}, nil
}

func (h *GameHandler) failIngest(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gamesvc.ErrNoFileProvided):
		response.Fail(c, http.StatusBadRequest, response.ErrNoFileProvided, err.Error(), nil)
	case errors.Is(err, gamesvc.ErrFileTooLarge):
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge, err.Error(), nil)
	case errors.Is(err, gamesvc.ErrUnsupportedFileType):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFileType, err.Error(), nil)
	case errors.Is(err, gamesvc.ErrInvalidTitle), errors.Is(err, gamesvc.ErrInvalidCategory):
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
	case errors.Is(err, gamesvc.ErrDuplicateTitle):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateTitle, err.Error(), nil)
	case errors.Is(err, gamesvc.ErrMissingEntryFile):
		response.Fail(c, http.StatusBadRequest, response.ErrMissingEntryFile, err.Error(), nil)
	case errors.Is(err, gamesvc.ErrProcessingFailed):
		h.scope("upload").Errorw("ingest failed", "error", err)
		response.Fail(c, http.StatusBadRequest, response.ErrProcessingFailed, "上传处理失败，请检查文件内容", nil)
	default:
		h.scope("upload").Errorw("ingest failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "上传处理失败，请稍后再试", nil)
	}
}

// List 返回公开目录，支持分类、题材、关键词过滤与排序。
func (h *GameHandler) List(c *gin.Context) {
	h.list(c, h.service.List)
}

// AdminList 返回包含隐藏条目的完整目录，仅管理员可见。
func (h *GameHandler) AdminList(c *gin.Context) {
	h.list(c, h.service.AdminList)
}

// Featured 返回公开目录中的推荐游戏。
func (h *GameHandler) Featured(c *gin.Context) {
	h.list(c, h.service.Featured)
}

// listFn 统一公开列表、推荐列表与管理列表的取数入口。
type listFn func(ctx context.Context, params gamesvc.ListParams) ([]domain.Game, int64, int, int, error)

func (h *GameHandler) list(c *gin.Context, fn listFn) {
	params := gamesvc.ListParams{
		Category: c.Query("category"),
		Genre:    c.Query("genre"),
		Search:   strings.TrimSpace(c.Query("search")),
		SortBy:   c.Query("sortBy"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		params.PageSize = size
	}

	items, total, page, pageSize, err := fn(c.Request.Context(), params)
	if err != nil {
		h.scope("list").Errorw("list games failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "获取游戏列表失败", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"items": items},
		response.NewMetaPagination(page, pageSize, total, len(items)))
}

// Get 返回单个游戏详情。
func (h *GameHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	record, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.failLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"game": record}, nil)
}

// Play 输出游戏入口 HTML 并累计一次播放。
//
// 本地存储直接流式输出入口文件；远端存储抓取入口 URL 并以 text/html
// 转发，保证浏览器按页面渲染而不是触发下载。远端抓取失败时退回 302，
// 让浏览器自行访问远端地址。
func (h *GameHandler) Play(c *gin.Context) {
	log := h.scope("play")

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	res, err := h.service.ResolvePlay(c.Request.Context(), id)
	if err != nil {
		h.failLookup(c, err)
		return
	}

	if !res.Remote {
		h.serveLocalEntry(c, res.Location)
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, res.Location, nil)
	if err != nil {
		log.Errorw("build remote request failed", "error", err, "game_id", id)
		c.Redirect(http.StatusFound, res.Location)
		return
	}

	remote, err := h.client.Do(req)
	if err != nil {
		log.Warnw("fetch remote entry failed, falling back to redirect", "error", err, "game_id", id)
		c.Redirect(http.StatusFound, res.Location)
		return
	}
	defer remote.Body.Close()

	if remote.StatusCode < http.StatusOK || remote.StatusCode >= http.StatusMultipleChoices {
		log.Warnw("remote entry returned non-2xx, falling back to redirect",
			"status", remote.StatusCode, "game_id", id)
		c.Redirect(http.StatusFound, res.Location)
		return
	}

	body, err := io.ReadAll(io.LimitReader(remote.Body, remoteBodyLimit))
	if err != nil {
		log.Warnw("read remote entry failed, falling back to redirect", "error", err, "game_id", id)
		c.Redirect(http.StatusFound, res.Location)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

// serveLocalEntry 把本地入口文件作为 HTML 页面流式返回。
func (h *GameHandler) serveLocalEntry(c *gin.Context, location string) {
	f, err := os.Open(location)
	if err != nil {
		h.scope("play").Errorw("open local entry failed", "error", err, "location", location)
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, "game content unavailable", nil)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.scope("play").Errorw("stat local entry failed", "error", err, "location", location)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "game content unavailable", nil)
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), "text/html; charset=utf-8", f, nil)
}

// Update 修改游戏元数据，可携带替换用的缩略图（multipart 表单）。
func (h *GameHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	params := gamesvc.UpdateParams{
		Title:       formField(c, "title"),
		Description: formField(c, "description"),
		Category:    formField(c, "category"),
		Genre:       formField(c, "genre"),
	}

	if thumbHeader, err := c.FormFile(thumbnailField); err == nil && thumbHeader != nil {
		saved, err := h.saveToScratch(c, thumbHeader)
		if err != nil {
			h.scope("update").Errorw("save thumbnail to scratch failed", "error", err)
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "保存缩略图失败", nil)
			return
		}
		params.Thumbnail = saved
	}

	record, err := h.service.Update(c.Request.Context(), id, params)
	if err != nil {
		switch {
		case errors.Is(err, gamesvc.ErrGameNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound, err.Error(), nil)
		case errors.Is(err, gamesvc.ErrInvalidTitle), errors.Is(err, gamesvc.ErrInvalidCategory):
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		case errors.Is(err, gamesvc.ErrProcessingFailed):
			response.Fail(c, http.StatusBadRequest, response.ErrProcessingFailed, "更新失败，请检查提交内容", nil)
		default:
			h.scope("update").Errorw("update game failed", "error", err, "game_id", id)
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "更新失败，请稍后再试", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"game": record}, nil)
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// SetVisibility 上架或下架游戏，管理员审核入口。
func (h *GameHandler) SetVisibility(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	record, err := h.service.SetVisibility(c.Request.Context(), id, *req.Visible)
	if err != nil {
		h.failLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"game": record}, nil)
}

type featuredRequest struct {
	Featured *bool `json:"featured" binding:"required"`
}

// SetFeatured 设置或取消推荐标记。
func (h *GameHandler) SetFeatured(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req featuredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	record, err := h.service.SetFeatured(c.Request.Context(), id, *req.Featured)
	if err != nil {
		h.failLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"game": record}, nil)
}

// Delete 删除游戏，上传者本人或管理员可操作。
func (h *GameHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID, isAdmin(c)); err != nil {
		switch {
		case errors.Is(err, gamesvc.ErrGameNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound, err.Error(), nil)
		case errors.Is(err, gamesvc.ErrPermissionDenied):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden, err.Error(), nil)
		default:
			h.scope("delete").Errorw("delete game failed", "error", err, "game_id", id)
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "删除失败，请稍后再试", nil)
		}
		return
	}

	response.NoContent(c)
}

// Categories 返回公开目录按分类聚合的数量。
func (h *GameHandler) Categories(c *gin.Context) {
	counts, err := h.service.CategoryCounts(c.Request.Context())
	if err != nil {
		h.scope("categories").Errorw("count categories failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "获取分类统计失败", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"categories": counts}, nil)
}

// Stats 返回管理端的目录总览指标。
func (h *GameHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.scope("stats").Errorw("load stats failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "获取统计数据失败", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats}, nil)
}

func (h *GameHandler) failLookup(c *gin.Context, err error) {
	if errors.Is(err, gamesvc.ErrGameNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, err.Error(), nil)
		return
	}
	h.logger.Errorw("game lookup failed", "error", err)
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal, err.Error(), nil)
}

// parseIDParam 解析路径中的游戏 ID，非法时直接写出 400。
func parseIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid game id", nil)
		return 0, false
	}
	return uint(id), true
}

// formField 读取可选表单字段，未提交时返回 nil 以便区分“清空”和“不改”。
func formField(c *gin.Context, name string) *string {
	if val, ok := c.GetPostForm(name); ok {
		trimmed := strings.TrimSpace(val)
		return &trimmed
	}
	return nil
}
