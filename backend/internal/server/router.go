/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-17 21:14:02
 * @FilePath: \game-hub-app\backend\internal\server\router.go
 * @LastEditTime: 2026-06-22 11:48:36
 */
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"game-hub-app/backend/internal/handler"
	"game-hub-app/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	GameHandler      *handler.GameHandler
	AdminUserHandler *handler.AdminUserHandler
	AuthMW           middleware.Authenticator
	StaticFS         http.FileSystem
}

// NewRouter 构建应用的 Gin Engine，汇总所有 REST 接口与公共中间件配置。
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// gin 中间件配置
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  false,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return false
			}
			if origin == "null" {
				return true
			}
			if strings.HasPrefix(origin, "http://localhost:") {
				return true
			}
			if strings.HasPrefix(origin, "http://127.0.0.1:") {
				return true
			}
			return false
		},
	}))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
	}))

	// 本地存储模式下由进程直接托管游戏资源与缩略图。
	if opts.StaticFS != nil {
		r.StaticFS("/static", opts.StaticFS)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		if opts.AuthHandler != nil {
			authGroup.GET("/captcha", opts.AuthHandler.Captcha)
			authGroup.POST("/register", opts.AuthHandler.Register)
			authGroup.POST("/login", opts.AuthHandler.Login)
			authGroup.POST("/refresh", opts.AuthHandler.Refresh)
			authGroup.POST("/logout", opts.AuthHandler.Logout)
		}

		if opts.GameHandler != nil {
			games := api.Group("/games")
			// 浏览与播放无需登录
			games.GET("", opts.GameHandler.List)
			games.GET("/featured", opts.GameHandler.Featured)
			games.GET("/categories/count", opts.GameHandler.Categories)
			games.GET("/:id", opts.GameHandler.Get)
			games.GET("/:id/play", opts.GameHandler.Play)

			// 上传与删除需要登录，删除在业务层校验“本人或管理员”
			authed := games.Group("")
			if opts.AuthMW != nil {
				authed.Use(opts.AuthMW.Handle())
			}
			authed.POST("/upload", opts.GameHandler.Upload)
			authed.DELETE("/:id", opts.GameHandler.Delete)

			// 元数据修改与上架审核属于管理操作
			managed := games.Group("")
			if opts.AuthMW != nil {
				managed.Use(opts.AuthMW.Handle())
			}
			managed.Use(middleware.RequireAdmin())
			managed.GET("/admin/all", opts.GameHandler.AdminList)
			managed.GET("/admin/stats", opts.GameHandler.Stats)
			managed.PATCH("/:id", opts.GameHandler.Update)
			managed.PATCH("/:id/visibility", opts.GameHandler.SetVisibility)
			managed.PATCH("/:id/featured", opts.GameHandler.SetFeatured)
		}

		// /api/users 下的路由需要登录才能访问，所以单独分组，再挂载 JWT 鉴权中间件。
		userGroup := api.Group("/users")
		if opts.AuthMW != nil {
			userGroup.Use(opts.AuthMW.Handle())
		}
		if opts.UserHandler != nil {
			userGroup.GET("/me", opts.UserHandler.GetMe)
		}

		if opts.AdminUserHandler != nil {
			admin := api.Group("/admin")
			if opts.AuthMW != nil {
				admin.Use(opts.AuthMW.Handle())
			}
			admin.Use(middleware.RequireAdmin())
			admin.GET("/users", opts.AdminUserHandler.List)
			admin.PATCH("/users/:id/role", opts.AdminUserHandler.ChangeRole)
			admin.DELETE("/users/:id", opts.AdminUserHandler.Delete)
		}
	}

	return r
}
