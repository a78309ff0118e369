/*
 * @Author: NEFU AB-IN
 * @Date: 2026-07-14 20:05:12
 * @FilePath: \game-hub-app\backend\internal\domain\user\entity.go
 * @LastEditTime: 2026-07-16 09:41:27
 */
package user

import (
	"time"
)

// User represents the persisted user entity in the system.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`                // 自增主键
	Username     string     `gorm:"size:64;uniqueIndex" json:"username"` // 登录/展示用的唯一用户名
	Email        string     `gorm:"size:255;uniqueIndex" json:"email"`   // 登录邮箱（唯一）
	PasswordHash string     `gorm:"size:255" json:"-"`                   // Bcrypt 生成的密码哈希
	IsAdmin      bool       `gorm:"default:false" json:"is_admin"`       // 管理员标记，控制审核与管理接口
	LastLoginAt  *time.Time `json:"last_login_at"`                       // 上次登录时间，可为空
	CreatedAt    time.Time  `json:"created_at"`                          // 创建时间戳（gorm 自动维护）
	UpdatedAt    time.Time  `json:"updated_at"`                          // 更新时间戳（gorm 自动维护）
}

// PublicProfile 是可以对外展示的用户信息子集，避免泄露敏感字段。
type PublicProfile struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// Public 返回用户的公开信息。
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:       u.ID,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
	}
}
