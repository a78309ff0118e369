package game

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"game-hub-app/backend/internal/config"
	appLogger "game-hub-app/backend/internal/infra/logger"

	"go.uber.org/zap"
)

// Sweeper 周期性清理遗留的临时解压目录。
//
// 上传中途断开连接会在 scratch 目录下留下半成品，流水线本身无法感知，
// 这里按修改时间把超龄的条目整个删掉。
type Sweeper struct {
	root     string
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.SugaredLogger
}

// NewSweeper 基于上传配置创建清理器。
func NewSweeper(cfg config.UploadConfig) *Sweeper {
	return &Sweeper{
		root:     cfg.ScratchRoot,
		interval: cfg.SweepInterval,
		maxAge:   cfg.SweepMaxAge,
		logger:   appLogger.S().With("component", "game.sweeper"),
	}
}

// Start 启动后台清理循环，ctx 取消时退出。
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 || s.maxAge <= 0 {
		s.logger.Info("scratch sweeper disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepOnce(time.Now())
			}
		}
	}()
}

// SweepOnce 执行一轮清理，删除修改时间早于 now-maxAge 的条目。
// 返回删除的条目数，便于测试断言。
func (s *Sweeper) SweepOnce(now time.Time) int {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warnw("read scratch root failed", "error", err, "root", s.root)
		}
		return 0
	}

	cutoff := now.Add(-s.maxAge)
	removed := 0

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		target := filepath.Join(s.root, entry.Name())
		if err := os.RemoveAll(target); err != nil {
			s.logger.Warnw("remove stale scratch entry failed", "error", err, "path", target)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Infow("swept stale scratch entries", "removed", removed)
	}

	return removed
}
