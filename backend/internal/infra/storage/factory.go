package storage

import (
	"os"
	"strings"
)

// Options 汇总存储后端的选择与参数，全部来自环境变量。
type Options struct {
	Kind      string
	LocalRoot string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
	S3PathStyle bool
	S3URLMode   string
	S3PublicURL string
}

// LoadOptionsFromEnv 从环境变量读取存储配置，默认使用本地后端。
func LoadOptionsFromEnv(defaultLocalRoot string) Options {
	opts := Options{
		Kind:      strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_BACKEND"))),
		LocalRoot: strings.TrimSpace(os.Getenv("STORAGE_LOCAL_ROOT")),

		S3Endpoint:  strings.TrimSpace(os.Getenv("STORAGE_S3_ENDPOINT")),
		S3Region:    strings.TrimSpace(os.Getenv("STORAGE_S3_REGION")),
		S3Bucket:    strings.TrimSpace(os.Getenv("STORAGE_S3_BUCKET")),
		S3AccessKey: strings.TrimSpace(os.Getenv("STORAGE_S3_ACCESS_KEY")),
		S3SecretKey: strings.TrimSpace(os.Getenv("STORAGE_S3_SECRET_KEY")),
		S3Prefix:    strings.TrimSpace(os.Getenv("STORAGE_S3_PREFIX")),
		S3URLMode:   strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_S3_URL_MODE"))),
		S3PublicURL: strings.TrimSpace(os.Getenv("STORAGE_S3_PUBLIC_URL")),
	}

	if opts.Kind == "" {
		opts.Kind = KindLocal
	}
	if opts.LocalRoot == "" {
		opts.LocalRoot = defaultLocalRoot
	}
	if raw := strings.TrimSpace(os.Getenv("STORAGE_S3_PATH_STYLE")); raw != "" {
		opts.S3PathStyle = raw == "1" || strings.EqualFold(raw, "true")
	}
	if opts.S3Prefix == "" {
		opts.S3Prefix = "game-hub"
	}

	return opts
}
