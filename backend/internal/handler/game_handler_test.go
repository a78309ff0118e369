package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"game-hub-app/backend/internal/config"
	domain "game-hub-app/backend/internal/domain/game"
	"game-hub-app/backend/internal/infra/storage/local"
	"game-hub-app/backend/internal/repository"
	gamesvc "game-hub-app/backend/internal/service/game"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestGameHandler(t *testing.T) (*GameHandler, *gamesvc.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Game{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	backend, err := local.New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("create local backend: %v", err)
	}

	cfg := config.UploadConfig{
		MaxUploadBytes: 1 << 20,
		ScratchRoot:    filepath.Join(t.TempDir(), "scratch"),
	}

	svc := gamesvc.NewService(repository.NewGameRepository(db), backend, cfg)
	return NewGameHandler(svc, cfg), svc
}

// asUser 在请求上下文注入鉴权中间件写入的身份信息。
func asUser(userID uint, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("isAdmin", admin)
		c.Next()
	}
}

func newTestRouter(h *GameHandler, identity gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	games := r.Group("/api/games")
	if identity != nil {
		games.Use(identity)
	}
	games.POST("/upload", h.Upload)
	games.GET("", h.List)
	games.GET("/:id", h.Get)
	games.GET("/:id/play", h.Play)
	games.DELETE("/:id", h.Delete)
	games.PATCH("/:id/visibility", h.SetVisibility)
	return r
}

func multipartUpload(t *testing.T, fields map[string]string, fileField, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, val := range fields {
		if err := writer.WriteField(key, val); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, fileContent); err != nil {
		t.Fatalf("write file content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return payload
}

func TestUploadSingleHTMLReturnsCreated(t *testing.T) {
	h, _ := newTestGameHandler(t)
	r := newTestRouter(h, asUser(7, false))

	body, contentType := multipartUpload(t, map[string]string{
		"title":    "Pixel Runner",
		"category": "Arcade",
	}, gameFileField, "game.html", "<html><body>run</body></html>")

	req := httptest.NewRequest(http.MethodPost, "/api/games/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}

	payload := decodeEnvelope(t, rec)
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", payload)
	}
	playURL, _ := data["play_url"].(string)
	if !strings.HasPrefix(playURL, "/api/games/") || !strings.HasSuffix(playURL, "/play") {
		t.Fatalf("unexpected play url %q", playURL)
	}
	game, ok := data["game"].(map[string]any)
	if !ok {
		t.Fatalf("expected game object, got %v", data)
	}
	if game["slug"] != "pixel-runner" {
		t.Fatalf("expected slug pixel-runner, got %v", game["slug"])
	}
	if game["is_visible"] != false {
		t.Fatalf("new uploads must start hidden, got %v", game["is_visible"])
	}
}

func TestUploadWithoutFileReturnsNoFileCode(t *testing.T) {
	h, _ := newTestGameHandler(t)
	r := newTestRouter(h, asUser(7, false))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("title", "No File"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/games/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	errObj, _ := payload["error"].(map[string]any)
	if errObj == nil || errObj["code"] != "NO_FILE_PROVIDED" {
		t.Fatalf("expected NO_FILE_PROVIDED, got %v", payload)
	}
}

func TestUploadDuplicateTitleReturnsConflict(t *testing.T) {
	h, _ := newTestGameHandler(t)
	r := newTestRouter(h, asUser(7, false))

	send := func() *httptest.ResponseRecorder {
		body, contentType := multipartUpload(t, map[string]string{
			"title":    "Same Name",
			"category": "Puzzle",
		}, gameFileField, "game.html", "<html></html>")
		req := httptest.NewRequest(http.MethodPost, "/api/games/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	if first := send(); first.Code != http.StatusCreated {
		t.Fatalf("first upload should succeed, got %d", first.Code)
	}
	second := send()
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body %s)", second.Code, second.Body.String())
	}
	payload := decodeEnvelope(t, second)
	errObj, _ := payload["error"].(map[string]any)
	if errObj == nil || errObj["code"] != "DUPLICATE_TITLE" {
		t.Fatalf("expected DUPLICATE_TITLE, got %v", payload)
	}
}

func TestUploadRequiresAuthenticatedUser(t *testing.T) {
	h, _ := newTestGameHandler(t)
	r := newTestRouter(h, nil)

	body, contentType := multipartUpload(t, map[string]string{
		"title":    "Anon Game",
		"category": "Other",
	}, gameFileField, "game.html", "<html></html>")

	req := httptest.NewRequest(http.MethodPost, "/api/games/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func uploadGame(t *testing.T, r *gin.Engine, title, category string) uint {
	t.Helper()

	body, contentType := multipartUpload(t, map[string]string{
		"title":    title,
		"category": category,
	}, gameFileField, "game.html", fmt.Sprintf("<html><title>%s</title></html>", title))

	req := httptest.NewRequest(http.MethodPost, "/api/games/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload %q failed with %d (body %s)", title, rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec)
	data := payload["data"].(map[string]any)
	game := data["game"].(map[string]any)
	return uint(game["id"].(float64))
}

func TestPlayStreamsLocalEntryAsHTML(t *testing.T) {
	h, svc := newTestGameHandler(t)
	r := newTestRouter(h, asUser(7, false))

	id := uploadGame(t, r, "Maze Crawl", "Adventure")
	if _, err := svc.SetVisibility(context.Background(), id, true); err != nil {
		t.Fatalf("set visibility: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/games/%d/play", id), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected text/html content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Maze Crawl") {
		t.Fatalf("expected entry html in body, got %q", rec.Body.String())
	}
}

func TestPlayUnknownGameReturnsNotFound(t *testing.T) {
	h, _ := newTestGameHandler(t)
	r := newTestRouter(h, asUser(7, false))

	req := httptest.NewRequest(http.MethodGet, "/api/games/9999/play", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteForbiddenForOtherUsers(t *testing.T) {
	h, _ := newTestGameHandler(t)
	owner := newTestRouter(h, asUser(7, false))
	stranger := newTestRouter(h, asUser(8, false))

	id := uploadGame(t, owner, "Owned Game", "Action")

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/games/%d", id), nil)
	rec := httptest.NewRecorder()
	stranger.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	owner.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/games/%d", id), nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("owner delete should return 204, got %d", rec.Code)
	}
}

func TestSetVisibilityValidatesBody(t *testing.T) {
	h, _ := newTestGameHandler(t)
	r := newTestRouter(h, asUser(1, true))

	id := uploadGame(t, r, "Hidden Gem", "Puzzle")

	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/games/%d/visibility", id), strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing flag, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/games/%d/visibility", id), strings.NewReader(`{"visible":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/games", nil)
	listRec := httptest.NewRecorder()
	r.ServeHTTP(listRec, listReq)
	payload := decodeEnvelope(t, listRec)
	data := payload["data"].(map[string]any)
	items := data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 visible game, got %d", len(items))
	}
}

func TestListPaginationMeta(t *testing.T) {
	h, _ := newTestGameHandler(t)
	admin := newTestRouter(h, asUser(1, true))

	for i := 0; i < 3; i++ {
		id := uploadGame(t, admin, fmt.Sprintf("Game %c", 'A'+i), "Arcade")
		req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/games/%d/visibility", id), strings.NewReader(`{"visible":true}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		admin.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("approve game: %d", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/games?page=1&limit=2", nil)
	rec := httptest.NewRecorder()
	admin.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	meta, _ := payload["meta"].(map[string]any)
	if meta == nil {
		t.Fatalf("expected pagination meta, got %v", payload)
	}
	if meta["total_items"].(float64) != 3 {
		t.Fatalf("expected 3 total items, got %v", meta["total_items"])
	}
	if meta["total_pages"].(float64) != 2 {
		t.Fatalf("expected 2 total pages, got %v", meta["total_pages"])
	}
	data := payload["data"].(map[string]any)
	if items := data["items"].([]any); len(items) != 2 {
		t.Fatalf("expected 2 items on page, got %d", len(items))
	}
}

func TestUploadCorruptArchiveReturnsBadRequest(t *testing.T) {
	h, _ := newTestGameHandler(t)
	r := newTestRouter(h, asUser(7, false))

	body, contentType := multipartUpload(t, map[string]string{
		"title":    "Broken Archive",
		"category": "Puzzle",
	}, gameFileField, "game.zip", "this is not a zip archive")

	req := httptest.NewRequest(http.MethodPost, "/api/games/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body %s)", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec)
	errObj, _ := payload["error"].(map[string]any)
	if errObj == nil || errObj["code"] != "PROCESSING_FAILED" {
		t.Fatalf("expected PROCESSING_FAILED, got %v", payload)
	}
}

func TestListSearchAndSortParams(t *testing.T) {
	h, svc := newTestGameHandler(t)
	admin := newTestRouter(h, asUser(1, true))

	for _, title := range []string{"Pixel Runner", "Maze Master"} {
		id := uploadGame(t, admin, title, "Arcade")
		if _, err := svc.SetVisibility(context.Background(), id, true); err != nil {
			t.Fatalf("set visibility: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/games?search=Pixel&sortBy=oldest", nil)
	rec := httptest.NewRecorder()
	admin.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	data := payload["data"].(map[string]any)
	items := data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 match for search, got %d", len(items))
	}
	game := items[0].(map[string]any)
	if game["title"] != "Pixel Runner" {
		t.Fatalf("expected Pixel Runner, got %v", game["title"])
	}
}
