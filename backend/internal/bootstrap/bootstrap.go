/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-18 10:06:44
 * @FilePath: \game-hub-app\backend\internal\bootstrap\bootstrap.go
 * @LastEditTime: 2026-06-23 16:29:51
 */
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"game-hub-app/backend/internal/app"
	"game-hub-app/backend/internal/config"
	"game-hub-app/backend/internal/handler"
	"game-hub-app/backend/internal/infra/captcha"
	"game-hub-app/backend/internal/infra/metrics"
	"game-hub-app/backend/internal/infra/ratelimit"
	"game-hub-app/backend/internal/infra/storage"
	"game-hub-app/backend/internal/infra/token"
	"game-hub-app/backend/internal/middleware"
	"game-hub-app/backend/internal/repository"
	"game-hub-app/backend/internal/server"
	adminusersvc "game-hub-app/backend/internal/service/adminuser"
	authsvc "game-hub-app/backend/internal/service/auth"
	gamesvc "game-hub-app/backend/internal/service/game"
	usersvc "game-hub-app/backend/internal/service/user"

	"go.uber.org/zap"
)

// RuntimeConfig 汇总 HTTP 服务运行所需的参数。
type RuntimeConfig struct {
	Port       string
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Application 聚合构建完毕的服务与路由，供入口启动。
type Application struct {
	Resources *app.Resources
	AuthSvc   *authsvc.Service
	GameSvc   *gamesvc.Service
	Router    http.Handler
}

// BuildApplication 组装仓储、服务与 HTTP 层，并启动后台清扫任务。
func BuildApplication(ctx context.Context, logger *zap.SugaredLogger, resources *app.Resources, cfg RuntimeConfig) (*Application, error) {
	metrics.MustRegister()

	userRepo := repository.NewUserRepository(resources.DBConn())
	gameRepo := repository.NewGameRepository(resources.DBConn())

	tokens := token.NewJWTManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)

	var refreshStore authsvc.RefreshTokenStore
	if resources.Redis != nil {
		refreshStore = token.NewRedisRefreshTokenStore(resources.Redis, "")
	} else {
		refreshStore = token.NewMemoryRefreshTokenStore()
		logger.Infow("using in-memory refresh token store; tokens won't persist across restarts")
	}

	captchaManager, err := initCaptchaManager(resources, logger)
	if err != nil {
		return nil, err
	}

	authService := authsvc.NewService(userRepo, tokens, refreshStore, captchaManager)
	authHandler := handler.NewAuthHandler(authService)

	userService := usersvc.NewService(userRepo)
	userHandler := handler.NewUserHandler(userService)

	gameService := gamesvc.NewService(gameRepo, resources.Store, resources.Upload)
	gameHandler := handler.NewGameHandler(gameService, resources.Upload)

	adminUserService := adminusersvc.NewService(adminusersvc.Config{}, userRepo, logger)
	adminUserHandler := handler.NewAdminUserHandler(adminUserService)

	// 后台清扫暂存目录里的解压残留
	gamesvc.NewSweeper(resources.Upload).Start(ctx)

	var authMW middleware.Authenticator
	if resources.Flags.Mode == config.ModeLocal {
		// 本地单机模式跳过 JWT，注入固定的管理员身份
		authMW = middleware.NewOfflineAuthMiddleware(1, true)
		logger.Infow("local mode: offline identity injected, auth endpoints are cosmetic")
	} else {
		authMW = middleware.NewAuthMiddleware(cfg.JWTSecret)
	}

	var staticFS http.FileSystem
	if resources.Store.Kind() == storage.KindLocal {
		staticFS = server.NewUploadsFS(resources.Storage.LocalRoot)
	}

	router := server.NewRouter(server.RouterOptions{
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		GameHandler:      gameHandler,
		AdminUserHandler: adminUserHandler,
		AuthMW:           authMW,
		StaticFS:         staticFS,
	})

	return &Application{
		Resources: resources,
		AuthSvc:   authService,
		GameSvc:   gameService,
		Router:    router,
	}, nil
}

func initCaptchaManager(resources *app.Resources, logger *zap.SugaredLogger) (authsvc.CaptchaManager, error) {
	captchaOpts, captchaEnabled, err := captcha.LoadOptionsFromEnv()
	if err != nil {
		logger.Errorw("load captcha config failed", "error", err)
		return nil, fmt.Errorf("load captcha config: %w", err)
	}

	if !captchaEnabled {
		return nil, nil
	}

	if resources.Redis == nil {
		return nil, fmt.Errorf("captcha enabled but redis not configured")
	}

	limiter := ratelimit.NewRedisLimiter(resources.Redis, "captcha")
	manager := captcha.NewManager(resources.Redis, limiter, captchaOpts)
	logger.Infow("captcha enabled", "prefix", captchaOpts.Prefix, "ttl", captchaOpts.TTL)
	return manager, nil
}
