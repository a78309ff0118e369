/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-15 14:10:07
 * @FilePath: \game-hub-app\backend\internal\service\game\service.go
 * @LastEditTime: 2026-06-19 11:36:24
 */
package game

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"game-hub-app/backend/internal/config"
	domain "game-hub-app/backend/internal/domain/game"
	appLogger "game-hub-app/backend/internal/infra/logger"
	"game-hub-app/backend/internal/infra/metrics"
	"game-hub-app/backend/internal/infra/storage"
	"game-hub-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNoFileProvided      = errors.New("no game file provided")
	ErrFileTooLarge        = errors.New("uploaded file exceeds size limit")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrInvalidTitle        = errors.New("title produces an empty slug")
	ErrInvalidCategory     = errors.New("unknown game category")
	ErrDuplicateTitle      = errors.New("a game with this title already exists")
	ErrMissingEntryFile    = errors.New("archive contains no entry html file")
	ErrProcessingFailed    = errors.New("game processing failed")
	ErrGameNotFound        = errors.New("game not found")
	ErrPermissionDenied    = errors.New("not allowed to modify this game")
)

// thumbnailNamespace 是缩略图在存储后端中的独立命名空间，按 slug 命名文件。
const thumbnailNamespace = "thumbnails"

// Service 承载游戏目录的全部业务：上传流水线、播放解析、列表查询与管理操作。
type Service struct {
	games  *repository.GameRepository
	store  storage.Backend
	cfg    config.UploadConfig
	logger *zap.SugaredLogger
}

// NewService 创建游戏服务，注入目录仓储、存储后端与上传配置。
func NewService(games *repository.GameRepository, store storage.Backend, cfg config.UploadConfig) *Service {
	return &Service{
		games:  games,
		store:  store,
		cfg:    cfg,
		logger: appLogger.S().With("component", "game.service"),
	}
}

func (s *Service) ensureLogger() *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = appLogger.S().With("component", "game.service")
	}
	return s.logger
}

func (s *Service) scope(operation string) *zap.SugaredLogger {
	return s.ensureLogger().With("operation", operation)
}

// ListParams 描述公开/管理列表查询的过滤与分页参数。
type ListParams struct {
	Page     int
	PageSize int
	Category string
	Genre    string
	Search   string
	SortBy   string
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p ListParams) normalize() (int, int) {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func (s *Service) list(ctx context.Context, params ListParams, visibleOnly, featuredOnly bool) ([]domain.Game, int64, int, int, error) {
	page, size := params.normalize()

	filter := repository.GameListFilter{
		VisibleOnly:  visibleOnly,
		FeaturedOnly: featuredOnly,
		Category:     strings.TrimSpace(params.Category),
		Genre:        strings.TrimSpace(params.Genre),
		Query:        strings.TrimSpace(params.Search),
		Sort:         domain.ParseSortOrder(params.SortBy),
		Limit:        size,
		Offset:       (page - 1) * size,
	}

	items, total, err := s.games.List(ctx, filter)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("list games: %w", err)
	}
	return items, total, page, size, nil
}

// List 返回公开目录：仅 isVisible=true 的记录，带分页与过滤。
func (s *Service) List(ctx context.Context, params ListParams) ([]domain.Game, int64, int, int, error) {
	return s.list(ctx, params, true, false)
}

// AdminList 返回不过滤可见性的完整目录，供管理后台使用。
func (s *Service) AdminList(ctx context.Context, params ListParams) ([]domain.Game, int64, int, int, error) {
	return s.list(ctx, params, false, false)
}

// Featured 返回公开目录中被推荐的记录。
func (s *Service) Featured(ctx context.Context, params ListParams) ([]domain.Game, int64, int, int, error) {
	return s.list(ctx, params, true, true)
}

// Get 按 ID 取单条记录。
func (s *Service) Get(ctx context.Context, id uint) (*domain.Game, error) {
	record, err := s.games.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("find game: %w", err)
	}
	return record, nil
}

// UpdateParams 描述管理端的元数据更新，nil 字段表示不修改。
type UpdateParams struct {
	Title       *string
	Description *string
	Category    *string
	Genre       *string
	Thumbnail   *UploadFile
}

// Update 更新游戏元数据，可选替换缩略图。
//
// 缩略图替换顺序是先存新图、再删旧图：新图落盘失败时旧图保持可用，
// 不会出现两头都没有的窗口。slug 在创建后不变，标题修改不会迁移存储命名空间。
func (s *Service) Update(ctx context.Context, id uint, params UpdateParams) (*domain.Game, error) {
	log := s.scope("update").With("game_id", id)

	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	defer removeTempFile(params.Thumbnail)

	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return nil, ErrInvalidTitle
		}
		record.Title = title
	}
	if params.Description != nil {
		record.Description = strings.TrimSpace(*params.Description)
	}
	if params.Category != nil {
		if !domain.ValidCategory(*params.Category) {
			return nil, ErrInvalidCategory
		}
		record.Category = domain.Category(*params.Category)
	}
	if params.Genre != nil {
		record.Genre = strings.TrimSpace(*params.Genre)
	}

	if params.Thumbnail != nil && params.Thumbnail.Path != "" {
		logical := record.Slug + strings.ToLower(filepath.Ext(params.Thumbnail.Name))
		stored, err := s.store.StoreFile(ctx, params.Thumbnail.Path, thumbnailNamespace, logical)
		if err != nil {
			log.Errorw("store replacement thumbnail failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}

		oldHandle := record.ThumbnailHandle
		record.ThumbnailLocation = stored.URL
		record.ThumbnailHandle = stored.Handle

		if oldHandle != "" && oldHandle != stored.Handle {
			s.store.DeleteHandles(ctx, []string{oldHandle})
		}
	}

	if err := s.games.Update(ctx, record); err != nil {
		log.Errorw("update game failed", "error", err)
		return nil, fmt.Errorf("update game: %w", err)
	}

	log.Infow("game updated")
	return record, nil
}

// SetVisibility 设置可见性标记，供管理端审核上架/下架。
func (s *Service) SetVisibility(ctx context.Context, id uint, visible bool) (*domain.Game, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	record.IsVisible = visible
	if err := s.games.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("update visibility: %w", err)
	}

	s.scope("visibility").Infow("visibility changed", "game_id", id, "visible", visible)
	return record, nil
}

// SetFeatured 设置推荐标记。
func (s *Service) SetFeatured(ctx context.Context, id uint, featured bool) (*domain.Game, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	record.IsFeatured = featured
	if err := s.games.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("update featured: %w", err)
	}

	s.scope("featured").Infow("featured changed", "game_id", id, "featured", featured)
	return record, nil
}

// Delete 删除目录记录并级联清理存储资产。
//
// 顺序是先删记录、再清资产：记录删除失败时整个操作失败；资产清理是
// 尽力而为，失败只记日志——宁可泄漏存储也不让用户面对“删不掉”的记录。
func (s *Service) Delete(ctx context.Context, id uint, actorID uint, actorIsAdmin bool) error {
	log := s.scope("delete").With("game_id", id, "actor_id", actorID)

	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !actorIsAdmin && record.UploadedBy != actorID {
		log.Warn("actor is neither owner nor admin")
		return ErrPermissionDenied
	}

	if err := s.games.Delete(ctx, id); err != nil {
		log.Errorw("delete game record failed", "error", err)
		metrics.RecordGameDelete("error")
		return fmt.Errorf("delete game: %w", err)
	}

	handles, err := domain.DecodeHandles(record.AssetHandles)
	if err != nil {
		log.Warnw("decode asset handles failed, falling back to namespace delete", "error", err)
	}
	if record.ThumbnailHandle != "" {
		handles = append(handles, record.ThumbnailHandle)
	}

	s.store.DeleteHandles(ctx, handles)
	s.store.DeleteNamespace(ctx, record.Slug)

	metrics.RecordGameDelete("success")
	log.Infow("game deleted", "slug", record.Slug)
	return nil
}

// PlayResolution 是播放解析的结果。本地后端返回文件系统路径由进程直接
// 流式输出；远端后端返回 URL，由 HTTP 层抓取内容并以 HTML 类型转发。
type PlayResolution struct {
	Remote   bool
	Location string
}

// ResolvePlay 解析游戏的播放位置，并为本次调用恰好加一次播放计数。
// 计数在解析成功时即发生，与下游是否真正渲染无关。
func (s *Service) ResolvePlay(ctx context.Context, id uint) (PlayResolution, error) {
	log := s.scope("play").With("game_id", id)

	record, err := s.Get(ctx, id)
	if err != nil {
		metrics.RecordGamePlay("not_found")
		return PlayResolution{}, err
	}

	if record.PlayLocation == "" {
		log.Error("record has no play location")
		metrics.RecordGamePlay("error")
		return PlayResolution{}, ErrGameNotFound
	}

	if err := s.games.IncrementPlayCount(ctx, id); err != nil {
		log.Errorw("increment play count failed", "error", err)
		metrics.RecordGamePlay("error")
		return PlayResolution{}, fmt.Errorf("increment play count: %w", err)
	}

	metrics.RecordGamePlay("success")
	return PlayResolution{
		Remote:   s.store.Kind() != storage.KindLocal,
		Location: record.PlayLocation,
	}, nil
}

// CategoryCounts 返回公开目录按分类聚合的数量。
func (s *Service) CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error) {
	counts, err := s.games.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	return counts, nil
}

// Stats 返回管理端聚合统计。
func (s *Service) Stats(ctx context.Context) (domain.AdminStats, error) {
	stats, err := s.games.AdminStats(ctx)
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("admin stats: %w", err)
	}
	return stats, nil
}
