/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-12 22:37:41
 * @FilePath: \game-hub-app\backend\internal\service\user\service.go
 * @LastEditTime: 2026-06-12 22:37:45
 */
package user

import (
	"context"
	"errors"
	"fmt"

	domain "game-hub-app/backend/internal/domain/user"
	"game-hub-app/backend/internal/repository"

	"gorm.io/gorm"
)

// Service 负责用户资料的查询。
type Service struct {
	users *repository.UserRepository
}

// NewService 构造用户服务层实例。
func NewService(users *repository.UserRepository) *Service {
	return &Service{users: users}
}

// ErrUserNotFound 表示请求的用户不存在。
var ErrUserNotFound = errors.New("user not found")

// GetProfile 返回指定用户的公开资料。
func (s *Service) GetProfile(ctx context.Context, userID uint) (domain.PublicProfile, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PublicProfile{}, ErrUserNotFound
		}
		return domain.PublicProfile{}, fmt.Errorf("find user: %w", err)
	}

	return u.Public(), nil
}
