package adminuser

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "game-hub-app/backend/internal/domain/user"
	appLogger "game-hub-app/backend/internal/infra/logger"
	"game-hub-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 表示目标用户不存在。
	ErrUserNotFound = errors.New("user not found")
	// ErrSelfDemotion 表示管理员试图撤销自己的管理员身份。
	ErrSelfDemotion = errors.New("cannot change your own admin role")
	// ErrSelfDeletion 表示管理员试图删除自己的账号。
	ErrSelfDeletion = errors.New("cannot delete your own account")
)

// Config 描述管理员用户列表服务的分页参数。
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service 支撑管理后台的用户管理页面：分页列表、角色变更与删除。
type Service struct {
	cfg    Config
	users  *repository.UserRepository
	logger *zap.SugaredLogger
}

// ListParams 描述用户列表查询参数。
type ListParams struct {
	Page     int
	PageSize int
}

// ListResult 返回分页的用户列表。
type ListResult struct {
	Items    []domain.PublicProfile `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

// NewService 构造管理员用户服务，确保配置项使用有效默认值。
func NewService(cfg Config, users *repository.UserRepository, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = appLogger.S().With("component", "service.adminuser")
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	return &Service{
		cfg:    cfg,
		users:  users,
		logger: logger,
	}
}

// List 返回分页的用户列表，按创建时间倒序。
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	if s == nil || s.users == nil {
		return ListResult{}, errors.New("admin user service not initialised")
	}

	page := params.Page
	if page <= 0 {
		page = 1
	}

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}

	rows, total, err := s.users.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return ListResult{}, fmt.Errorf("list users: %w", err)
	}

	items := make([]domain.PublicProfile, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].Public())
	}

	return ListResult{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// ChangeRole 授予或撤销目标用户的管理员身份。
// 管理员不能改自己的角色，避免把最后一个管理员降级后失去后台入口。
func (s *Service) ChangeRole(ctx context.Context, actorID, targetID uint, isAdmin bool) error {
	if actorID == targetID {
		return ErrSelfDemotion
	}

	if err := s.users.UpdateAdmin(ctx, targetID, isAdmin); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update admin flag: %w", err)
	}

	s.logger.Infow("user role changed",
		"actor_id", actorID,
		"target_id", targetID,
		"is_admin", isAdmin,
		"at", time.Now(),
	)
	return nil
}

// Delete 删除目标用户账号。管理员不能删除自己。
func (s *Service) Delete(ctx context.Context, actorID, targetID uint) error {
	if actorID == targetID {
		return ErrSelfDeletion
	}

	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Infow("user deleted", "actor_id", actorID, "target_id", targetID)
	return nil
}
