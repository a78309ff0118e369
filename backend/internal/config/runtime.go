package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// ModeLocal 表示使用本地 SQLite 的开发模式。
	ModeLocal = "local"
	// ModeOnline 表示使用 MySQL 的默认在线模式。
	ModeOnline = "online"

	defaultLocalDBRelPath = "data/gamehub-local.db"

	defaultMaxUploadBytes = 50 * 1024 * 1024
	defaultScratchRelPath = "data/scratch"
	defaultUploadsRelPath = "data/uploads"

	defaultSweepInterval = 30 * time.Minute
	defaultSweepMaxAge   = 2 * time.Hour
)

// RuntimeFlags 汇总运行期所需的模式与本地环境配置。
type RuntimeFlags struct {
	Mode  string
	Local LocalRuntime
}

// LocalRuntime 描述本地模式下需要的额外配置。
type LocalRuntime struct {
	DBPath string
}

// UploadConfig 描述上传流水线的资源参数：体积上限、临时解压目录与清理策略。
// 这些值通过 env 显式注入流水线，避免散落在代码里的隐式全局路径。
type UploadConfig struct {
	MaxUploadBytes int64
	ScratchRoot    string
	SweepInterval  time.Duration
	SweepMaxAge    time.Duration
}

// LoadRuntimeFlags 读取环境变量，推导当前运行模式及本地模式参数。
func LoadRuntimeFlags() RuntimeFlags {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("APP_MODE")))
	if mode == "" {
		mode = ModeOnline
	}

	local := LocalRuntime{DBPath: normalisePath(defaultLocalDBRelPath)}
	if rawPath := strings.TrimSpace(os.Getenv("LOCAL_SQLITE_PATH")); rawPath != "" {
		local.DBPath = normalisePath(rawPath)
	}

	return RuntimeFlags{
		Mode:  mode,
		Local: local,
	}
}

// LoadUploadConfig 读取上传相关的环境变量，缺省回退到默认值。
func LoadUploadConfig() UploadConfig {
	cfg := UploadConfig{
		MaxUploadBytes: defaultMaxUploadBytes,
		ScratchRoot:    normalisePath(defaultScratchRelPath),
		SweepInterval:  defaultSweepInterval,
		SweepMaxAge:    defaultSweepMaxAge,
	}

	if raw := strings.TrimSpace(os.Getenv("UPLOAD_MAX_BYTES")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			cfg.MaxUploadBytes = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("UPLOAD_SCRATCH_DIR")); raw != "" {
		cfg.ScratchRoot = normalisePath(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("UPLOAD_SWEEP_INTERVAL")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.SweepInterval = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("UPLOAD_SWEEP_MAX_AGE")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.SweepMaxAge = parsed
		}
	}

	return cfg
}

// DefaultUploadsRoot 返回本地存储后端的默认根目录（绝对路径）。
func DefaultUploadsRoot() string {
	if raw := strings.TrimSpace(os.Getenv("UPLOAD_LOCAL_ROOT")); raw != "" {
		return normalisePath(raw)
	}
	return normalisePath(defaultUploadsRelPath)
}

// normalisePath 将路径展开为绝对路径，兼容 ~ 前缀与相对路径。
func normalisePath(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	if abs, err := filepath.Abs(raw); err == nil {
		return abs
	}
	return raw
}
