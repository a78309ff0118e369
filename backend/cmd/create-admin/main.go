package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"game-hub-app/backend/internal/app"
	userdomain "game-hub-app/backend/internal/domain/user"
	"game-hub-app/backend/internal/infra/logger"
	"game-hub-app/backend/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	email    = flag.String("email", "", "管理员邮箱")
	username = flag.String("username", "", "管理员用户名")
	password = flag.String("password", "", "初始密码，仅在创建新账号时使用")
)

// main 是管理员引导工具入口：指定邮箱已存在时提升为管理员，
// 否则用给定的用户名与密码创建一个管理员账号。
func main() {
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -email <email> [-username <name> -password <pass>]")
		os.Exit(2)
	}

	if _, err := logger.Init(); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	defer logger.Sync()
	sugar := logger.S().With("component", "create-admin")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resources, err := app.Bootstrap(ctx)
	if err != nil {
		sugar.Fatalw("initialise resources failed", "error", err)
	}
	defer func() {
		if closeErr := resources.Close(); closeErr != nil {
			sugar.Errorw("close resources failed", "error", closeErr)
		}
	}()

	users := repository.NewUserRepository(resources.DBConn())

	existing, err := users.FindByEmail(ctx, strings.TrimSpace(*email))
	switch {
	case err == nil:
		if existing.IsAdmin {
			sugar.Infow("user is already an admin", "email", existing.Email, "user_id", existing.ID)
			return
		}
		if err := users.UpdateAdmin(ctx, existing.ID, true); err != nil {
			sugar.Fatalw("promote user failed", "error", err)
		}
		sugar.Infow("user promoted to admin", "email", existing.Email, "user_id", existing.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		if strings.TrimSpace(*username) == "" || strings.TrimSpace(*password) == "" {
			sugar.Fatalw("user not found; -username and -password are required to create one", "email", *email)
		}
		created, err := createAdmin(ctx, users, *email, *username, *password)
		if err != nil {
			sugar.Fatalw("create admin failed", "error", err)
		}
		sugar.Infow("admin account created", "email", created.Email, "user_id", created.ID)
	default:
		sugar.Fatalw("lookup user failed", "error", err)
	}
}

func createAdmin(ctx context.Context, users *repository.UserRepository, email, username, password string) (*userdomain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &userdomain.User{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := users.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return account, nil
}
