/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-15 15:03:42
 * @FilePath: \game-hub-app\backend\internal\service\game\ingest.go
 * @LastEditTime: 2026-06-18 23:17:55
 */
package game

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	domain "game-hub-app/backend/internal/domain/game"
	"game-hub-app/backend/internal/infra/metrics"
	"game-hub-app/backend/internal/infra/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadFile 描述一个已经落到临时目录的上传文件。
// Path 指向临时文件，流水线结束后（无论成败）负责将其删除。
type UploadFile struct {
	Name string
	Size int64
	Path string
}

// IngestParams 封装一次游戏上传所需的全部输入。
type IngestParams struct {
	Title       string
	Description string
	Category    string
	Genre       string
	UploaderID  uint
	File        *UploadFile
	Thumbnail   *UploadFile
}

// Ingest 执行完整的上传流水线：校验、解压、入口发现、落存储、写目录。
//
// 失败策略：任何一步失败都会中止后续步骤，并对本次调用已经写入的内容
// 做逆序补偿清理——绝不动调用之前已存在的状态。从客户端视角看，上传
// 是全有或全无的。
func (s *Service) Ingest(ctx context.Context, params IngestParams) (*domain.Game, error) {
	start := time.Now()
	fileType := ""
	if params.File != nil {
		fileType = strings.TrimPrefix(strings.ToLower(filepath.Ext(params.File.Name)), ".")
	}

	record, err := s.ingest(ctx, params)

	status := "success"
	var size int64
	switch {
	case err == nil:
		size = record.FileSize
	case errors.Is(err, ErrProcessingFailed):
		status = "failed"
	default:
		status = "rejected"
	}
	metrics.ObserveGameUpload(status, fileType, time.Since(start), size)

	return record, err
}

func (s *Service) ingest(ctx context.Context, params IngestParams) (*domain.Game, error) {
	log := s.scope("ingest").With(
		"title", params.Title,
		"uploader_id", params.UploaderID,
	)

	if params.File == nil || strings.TrimSpace(params.File.Path) == "" {
		log.Warn("no game file provided")
		return nil, ErrNoFileProvided
	}

	// 临时上传产物在流水线结束后一律清理，拒绝路径也不例外。
	defer removeTempFile(params.File)
	defer removeTempFile(params.Thumbnail)

	if params.File.Size > s.cfg.MaxUploadBytes {
		log.Warnw("upload exceeds size limit", "size", params.File.Size, "limit", s.cfg.MaxUploadBytes)
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(params.File.Name))
	var fileType domain.FileType
	switch ext {
	case ".html":
		fileType = domain.FileTypeHTML
	case ".zip":
		fileType = domain.FileTypeZip
	default:
		log.Warnw("unsupported file extension", "ext", ext)
		return nil, ErrUnsupportedFileType
	}

	if !domain.ValidCategory(params.Category) {
		log.Warnw("invalid category", "category", params.Category)
		return nil, ErrInvalidCategory
	}

	slug := domain.Slugify(params.Title)
	if slug == "" {
		log.Warn("title normalizes to empty slug")
		return nil, ErrInvalidTitle
	}
	log = log.With("slug", slug)

	// 读后写的查重只是第一道防线，并发竞态由 slug 唯一索引在写入时兜底。
	if _, err := s.games.FindBySlug(ctx, slug); err == nil {
		log.Warn("slug already taken")
		return nil, ErrDuplicateTitle
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorw("check slug unique failed", "error", err)
		return nil, fmt.Errorf("check slug unique: %w", err)
	}

	rb := newRollbackList(log)

	var (
		entryFile    string
		playLocation string
		handles      []string
	)

	switch fileType {
	case domain.FileTypeZip:
		scratch := filepath.Join(s.cfg.ScratchRoot, uuid.NewString())
		if err := extractZip(params.File.Path, scratch, s.extractionLimit()); err != nil {
			log.Errorw("extract archive failed", "error", err)
			_ = os.RemoveAll(scratch)
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
		defer os.RemoveAll(scratch)

		entry, ok := findEntryFile(scratch)
		if !ok {
			log.Warn("no entry file found in archive")
			return nil, ErrMissingEntryFile
		}
		entryFile = entry

		stored, err := s.store.StoreTree(ctx, scratch, slug, entry)
		if err != nil {
			log.Errorw("store tree failed", "error", err)
			rb.Run(ctx)
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
		handles = stored.Handles
		playLocation = s.playLocation(stored.EntryLocation, stored.EntryURL)
		rb.Add("game assets", func(ctx context.Context) {
			s.store.DeleteHandles(ctx, handles)
			s.store.DeleteNamespace(ctx, slug)
		})

	case domain.FileTypeHTML:
		// 单文件上传统一落成 index.html，播放解析对两种类型保持一致。
		entryFile = "index.html"
		stored, err := s.store.StoreFile(ctx, params.File.Path, slug, entryFile)
		if err != nil {
			log.Errorw("store file failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
		handles = []string{stored.Handle}
		playLocation = s.playLocation(stored.Location, stored.URL)
		rb.Add("game assets", func(ctx context.Context) {
			s.store.DeleteHandles(ctx, handles)
			s.store.DeleteNamespace(ctx, slug)
		})
	}

	// 缩略图失败不终止上传：它只是展示素材，游戏本体才是关键路径。
	thumbLocation, thumbHandle := s.storeThumbnail(ctx, rb, slug, params.Thumbnail)

	encodedHandles, err := domain.EncodeHandles(handles)
	if err != nil {
		log.Errorw("encode asset handles failed", "error", err)
		rb.Run(ctx)
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	record := &domain.Game{
		Slug:              slug,
		Title:             strings.TrimSpace(params.Title),
		Description:       strings.TrimSpace(params.Description),
		Category:          domain.Category(params.Category),
		Genre:             strings.TrimSpace(params.Genre),
		FileType:          fileType,
		FileSize:          params.File.Size,
		EntryFile:         entryFile,
		PlayLocation:      playLocation,
		ThumbnailLocation: thumbLocation,
		ThumbnailHandle:   thumbHandle,
		AssetHandles:      encodedHandles,
		UploadedBy:        params.UploaderID,
		IsVisible:         false,
	}

	if err := s.games.Create(ctx, record); err != nil {
		log.Errorw("create game record failed", "error", err)
		rb.Run(ctx)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTitle
		}
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	log.With("game_id", record.ID, "file_type", fileType).Infow("game ingested")

	return record, nil
}

// storeThumbnail 持久化缩略图，失败时记日志并按“没有缩略图”继续。
func (s *Service) storeThumbnail(ctx context.Context, rb *rollbackList, slug string, thumb *UploadFile) (string, string) {
	if thumb == nil || strings.TrimSpace(thumb.Path) == "" {
		return "", ""
	}

	logical := slug + strings.ToLower(filepath.Ext(thumb.Name))
	stored, err := s.store.StoreFile(ctx, thumb.Path, thumbnailNamespace, logical)
	if err != nil {
		s.scope("ingest").Warnw("store thumbnail failed, continuing without one", "error", err, "slug", slug)
		return "", ""
	}

	handle := stored.Handle
	rb.Add("thumbnail", func(ctx context.Context) {
		s.store.DeleteHandles(ctx, []string{handle})
	})

	return stored.URL, handle
}

// extractionLimit 控制 ZIP 解压后的总大小上限，上传上限的 4 倍以容忍正常压缩率。
func (s *Service) extractionLimit() int64 {
	return s.cfg.MaxUploadBytes * 4
}

// playLocation 选择播放解析使用的位置：本地后端用文件系统路径直接流式输出，
// 远端后端用可公开访问的 URL。
func (s *Service) playLocation(location, url string) string {
	if s.store.Kind() == storage.KindLocal {
		return location
	}
	return url
}

func removeTempFile(f *UploadFile) {
	if f == nil || f.Path == "" {
		return
	}
	_ = os.Remove(f.Path)
}
