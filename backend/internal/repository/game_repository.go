/*
 * @Author: NEFU AB-IN
 * @Date: 2026-07-15 14:03:58
 * @FilePath: \game-hub-app\backend\internal\repository\game_repository.go
 * @LastEditTime: 2026-07-19 22:47:30
 */
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gamedomain "game-hub-app/backend/internal/domain/game"

	"gorm.io/gorm"
)

// GameRepository 负责游戏记录的持久化操作。
type GameRepository struct {
	db *gorm.DB
}

// GameListFilter 定义游戏列表查询的过滤条件。
// VisibleOnly 为 false 时返回全部记录（后台视角）。
type GameListFilter struct {
	VisibleOnly  bool
	FeaturedOnly bool
	Category     string
	Genre        string
	Query        string
	Sort         gamedomain.SortOrder
	Limit        int
	Offset       int
}

// NewGameRepository 创建 GameRepository。
func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{db: db}
}

// Create 新增游戏记录。slug 上的唯一索引会在并发上传同名标题时兜底，
// 调用方需把唯一键冲突映射为“标题重复”。
func (r *GameRepository) Create(ctx context.Context, entity *gamedomain.Game) error {
	if entity == nil {
		return errors.New("game entity is nil")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

// Update 保存游戏记录的全部字段。
func (r *GameRepository) Update(ctx context.Context, entity *gamedomain.Game) error {
	if entity == nil {
		return errors.New("game entity is nil")
	}
	if err := r.db.WithContext(ctx).Save(entity).Error; err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

// FindByID 根据主键查询游戏。
func (r *GameRepository) FindByID(ctx context.Context, id uint) (*gamedomain.Game, error) {
	var entity gamedomain.Game
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindBySlug 根据 slug 查询游戏，用于上传前的重名预检。
func (r *GameRepository) FindBySlug(ctx context.Context, slug string) (*gamedomain.Game, error) {
	var entity gamedomain.Game
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// List 按过滤条件返回游戏列表与总数。
func (r *GameRepository) List(ctx context.Context, filter GameListFilter) ([]gamedomain.Game, int64, error) {
	query := r.db.WithContext(ctx).Model(&gamedomain.Game{})

	if filter.VisibleOnly {
		query = query.Where("is_visible = ?", true)
	}
	if filter.FeaturedOnly {
		query = query.Where("is_featured = ?", true)
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		query = query.Where("category = ?", c)
	}
	if g := strings.TrimSpace(filter.Genre); g != "" {
		query = query.Where("genre = ?", g)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		keyword := "%" + q + "%"
		query = query.Where("(title LIKE ? OR description LIKE ?)", keyword, keyword)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count games: %w", err)
	}

	query = query.Order(orderClause(filter.Sort))
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var records []gamedomain.Game
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("list games: %w", err)
	}
	return records, total, nil
}

// orderClause 把排序枚举翻译成 SQL 片段，默认按创建时间倒序。
func orderClause(sort gamedomain.SortOrder) string {
	switch sort {
	case gamedomain.SortOldest:
		return "created_at ASC"
	case gamedomain.SortMostPlayed:
		return "play_count DESC, created_at DESC"
	case gamedomain.SortTopRated:
		return "rating DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

// IncrementPlayCount 以原子方式把播放次数加一。
func (r *GameRepository) IncrementPlayCount(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&gamedomain.Game{}).
		Where("id = ?", id).
		UpdateColumn("play_count", gorm.Expr("play_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("increment play count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除游戏记录。
func (r *GameRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&gamedomain.Game{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete game: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByCategory 统计每个分类下的可见游戏数量。
func (r *GameRepository) CountByCategory(ctx context.Context) ([]gamedomain.CategoryCount, error) {
	var rows []gamedomain.CategoryCount
	err := r.db.WithContext(ctx).
		Model(&gamedomain.Game{}).
		Select("category, COUNT(*) AS count").
		Where("is_visible = ?", true).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	return rows, nil
}

// AdminStats 汇总后台统计数据：总数、可见数、精选数、存储总量与播放总量。
func (r *GameRepository) AdminStats(ctx context.Context) (gamedomain.AdminStats, error) {
	var stats gamedomain.AdminStats

	base := r.db.WithContext(ctx).Model(&gamedomain.Game{})
	if err := base.Session(&gorm.Session{}).Count(&stats.TotalGames).Error; err != nil {
		return gamedomain.AdminStats{}, fmt.Errorf("count games: %w", err)
	}
	if err := base.Session(&gorm.Session{}).Where("is_visible = ?", true).Count(&stats.VisibleGames).Error; err != nil {
		return gamedomain.AdminStats{}, fmt.Errorf("count visible games: %w", err)
	}
	if err := base.Session(&gorm.Session{}).Where("is_featured = ?", true).Count(&stats.FeaturedGames).Error; err != nil {
		return gamedomain.AdminStats{}, fmt.Errorf("count featured games: %w", err)
	}

	type sums struct {
		TotalBytes int64
		TotalPlays int64
	}
	var agg sums
	if err := r.db.WithContext(ctx).
		Model(&gamedomain.Game{}).
		Select("COALESCE(SUM(file_size),0) AS total_bytes, COALESCE(SUM(play_count),0) AS total_plays").
		Scan(&agg).Error; err != nil {
		return gamedomain.AdminStats{}, fmt.Errorf("aggregate games: %w", err)
	}
	stats.TotalBytes = agg.TotalBytes
	stats.TotalPlays = agg.TotalPlays

	return stats, nil
}
