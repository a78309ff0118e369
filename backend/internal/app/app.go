/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-13 20:31:09
 * @FilePath: \game-hub-app\backend\internal\app\app.go
 * @LastEditTime: 2026-06-20 18:55:27
 */
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"game-hub-app/backend/internal/config"
	gamedomain "game-hub-app/backend/internal/domain/game"
	userdomain "game-hub-app/backend/internal/domain/user"
	"game-hub-app/backend/internal/infra/client"
	"game-hub-app/backend/internal/infra/storage"
	"game-hub-app/backend/internal/infra/storage/local"
	"game-hub-app/backend/internal/infra/storage/s3"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Resources 聚合应用依赖的外部资源：数据库、Redis 与存储后端。
type Resources struct {
	Flags   config.RuntimeFlags
	Upload  config.UploadConfig
	Storage storage.Options

	DB    *gorm.DB
	sqlDB *sql.DB
	Redis *redis.Client
	Store storage.Backend
}

// Bootstrap 按运行模式初始化所有外部资源。
// 本地模式使用 SQLite 与内存组件，在线模式连接 MySQL，Redis 可选。
func Bootstrap(ctx context.Context) (*Resources, error) {
	config.LoadEnvFiles()

	flags := config.LoadRuntimeFlags()
	upload := config.LoadUploadConfig()

	db, sqlDB, err := openDatabase(flags)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&userdomain.User{}, &gamedomain.Game{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	var redisClient *redis.Client
	if os.Getenv("REDIS_ENDPOINT") != "" {
		opts, err := client.NewDefaultRedisOptions()
		if err != nil {
			return nil, fmt.Errorf("load redis options: %w", err)
		}
		redisClient, err = client.NewRedisClient(opts)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	storageOpts := storage.LoadOptionsFromEnv(config.DefaultUploadsRoot())
	store, err := openStorage(storageOpts)
	if err != nil {
		return nil, err
	}

	return &Resources{
		Flags:   flags,
		Upload:  upload,
		Storage: storageOpts,
		DB:      db,
		sqlDB:   sqlDB,
		Redis:   redisClient,
		Store:   store,
	}, nil
}

func openDatabase(flags config.RuntimeFlags) (*gorm.DB, *sql.DB, error) {
	if flags.Mode == config.ModeLocal {
		path := flags.Local.DBPath
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := gorm.Open(sqlite.Open(path), client.NewGORMConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("unwrap sqlite conn: %w", err)
		}
		return db, sqlDB, nil
	}

	mysqlCfg, err := client.LoadMySQLConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load mysql config: %w", err)
	}
	db, sqlDB, err := client.NewGORMMySQL(mysqlCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, sqlDB, nil
}

func openStorage(opts storage.Options) (storage.Backend, error) {
	switch opts.Kind {
	case storage.KindS3:
		backend, err := s3.New(s3.Config{
			Endpoint:  opts.S3Endpoint,
			Region:    opts.S3Region,
			Bucket:    opts.S3Bucket,
			AccessKey: opts.S3AccessKey,
			SecretKey: opts.S3SecretKey,
			Prefix:    opts.S3Prefix,
			PathStyle: opts.S3PathStyle,
			URLMode:   opts.S3URLMode,
			PublicURL: opts.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		return backend, nil
	case storage.KindLocal:
		backend, err := local.New(opts.LocalRoot)
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Kind)
	}
}

// Close 释放数据库与 Redis 连接。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			return err
		}
	}
	if r.sqlDB != nil {
		if err := r.sqlDB.Close(); err != nil {
			return err
		}
	}
	return nil
}

// DBConn 返回 gorm 连接，repository 层统一通过它访问数据库。
func (r *Resources) DBConn() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.DB
}

func WithShutdown(ctx context.Context, cancel func(), fn func(context.Context) error) {
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
