/*
 * @Author: NEFU AB-IN
 * @Date: 2026-07-16 10:27:55
 * @FilePath: \game-hub-app\backend\internal\infra\storage\s3\s3.go
 * @LastEditTime: 2026-07-20 11:12:30
 */
package s3

// 基于 aws-sdk-go-v2 的 S3 兼容后端，可对接 AWS S3、MinIO、各家 OSS。
// 对象 key 形如 <prefix>/<namespace>/<相对路径>，删除句柄就是对象 key。

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	appLogger "game-hub-app/backend/internal/infra/logger"
	"game-hub-app/backend/internal/infra/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// URLModePresigned 为每个对象生成带签名的访问地址。
	URLModePresigned = "presigned"
	// URLModePublic 直接拼接公共访问前缀，适合开放读的桶。
	URLModePublic = "public"

	defaultPresignExpiry = 7 * 24 * time.Hour
	defaultContentType   = "application/octet-stream"
)

// Config 描述 S3 后端的连接与寻址配置。
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string // 桶内根前缀，如 game-hub
	PathStyle bool   // MinIO 等需要 path-style 访问
	URLMode   string // presigned / public
	PublicURL string // URLModePublic 时的访问前缀
}

// Backend 实现 storage.Backend 接口。
type Backend struct {
	client        *awss3.Client
	presignClient *awss3.PresignClient
	bucket        string
	prefix        string
	urlMode       string
	publicURL     string
	logger        *zap.SugaredLogger
}

// New 创建 S3 后端并校验必填配置。
func New(cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("access key and secret key are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.URLMode == "" {
		cfg.URLMode = URLModePresigned
	}
	if cfg.URLMode == URLModePublic && cfg.PublicURL == "" {
		return nil, fmt.Errorf("public url is required in public url mode")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3OptFns []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3OptFns = append(s3OptFns, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.PathStyle {
		s3OptFns = append(s3OptFns, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	client := awss3.NewFromConfig(awsCfg, s3OptFns...)

	return &Backend{
		client:        client,
		presignClient: awss3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		urlMode:       cfg.URLMode,
		publicURL:     strings.TrimRight(cfg.PublicURL, "/"),
		logger:        appLogger.S().With("component", "storage.s3"),
	}, nil
}

// StoreFile 上传单个文件到 <prefix>/<namespace>/<logicalName>。
func (b *Backend) StoreFile(ctx context.Context, sourcePath, namespace, logicalName string) (storage.StoredFile, error) {
	key := b.objectKey(namespace, logicalName)
	if err := b.putFile(ctx, key, sourcePath); err != nil {
		return storage.StoredFile{}, err
	}

	url, err := b.objectURL(ctx, key)
	if err != nil {
		return storage.StoredFile{}, err
	}

	return storage.StoredFile{Location: url, URL: url, Handle: key}, nil
}

// StoreTree 上传 sourceDir 下的所有文件，保留相对路径。
func (b *Backend) StoreTree(ctx context.Context, sourceDir, namespace, entryRel string) (storage.StoredTree, error) {
	entryRel = path.Clean(filepath.ToSlash(entryRel))

	var tree storage.StoredTree
	err := filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		key := b.objectKey(namespace, rel)
		if err := b.putFile(ctx, key, p); err != nil {
			return err
		}

		tree.Handles = append(tree.Handles, key)
		if rel == entryRel {
			url, err := b.objectURL(ctx, key)
			if err != nil {
				return err
			}
			tree.EntryLocation = url
			tree.EntryURL = url
		}
		return nil
	})
	if err != nil {
		return storage.StoredTree{}, fmt.Errorf("store tree: %w", err)
	}
	if tree.EntryLocation == "" {
		return storage.StoredTree{}, fmt.Errorf("entry file %q not found under source dir", entryRel)
	}
	return tree, nil
}

// DeleteHandles 按对象 key 逐个删除，失败只记日志。
func (b *Backend) DeleteHandles(ctx context.Context, handles []string) {
	for _, key := range handles {
		_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			b.logger.Warnw("delete object failed", "key", key, "error", err)
		}
	}
}

// DeleteNamespace 按前缀列举并删除命名空间下的所有对象。
func (b *Backend) DeleteNamespace(ctx context.Context, namespace string) {
	prefix := b.objectKey(namespace, "") + "/"

	paginator := awss3.NewListObjectsV2Paginator(b.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			b.logger.Warnw("list namespace failed", "prefix", prefix, "error", err)
			return
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
				Bucket: aws.String(b.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				b.logger.Warnw("delete object failed", "key", *obj.Key, "error", err)
			}
		}
	}
}

// Kind 返回后端类型。
func (b *Backend) Kind() string {
	return storage.KindS3
}

func (b *Backend) objectKey(namespace, rel string) string {
	parts := make([]string, 0, 3)
	if b.prefix != "" {
		parts = append(parts, b.prefix)
	}
	parts = append(parts, strings.Trim(filepath.ToSlash(namespace), "/"))
	if rel != "" {
		parts = append(parts, rel)
	}
	return path.Join(parts...)
}

// objectURL 根据 URL 模式生成对象的访问地址。
func (b *Backend) objectURL(ctx context.Context, key string) (string, error) {
	if b.urlMode == URLModePublic {
		return b.publicURL + "/" + key, nil
	}

	presigned, err := b.presignClient.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, func(opts *awss3.PresignOptions) {
		opts.Expires = defaultPresignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}
	return presigned.URL, nil
}

// putFile 打开本地文件并上传，按扩展名推断 Content-Type。
func (b *Backend) putFile(ctx context.Context, key, sourcePath string) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat source file: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(sourcePath)))
	if contentType == "" {
		contentType = defaultContentType
	}

	_, err = b.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
