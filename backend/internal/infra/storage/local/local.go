/*
 * @Author: NEFU AB-IN
 * @Date: 2026-07-15 17:10:02
 * @FilePath: \game-hub-app\backend\internal\infra\storage\local\local.go
 * @LastEditTime: 2026-07-20 11:10:54
 */
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	appLogger "game-hub-app/backend/internal/infra/logger"
	"game-hub-app/backend/internal/infra/storage"

	"go.uber.org/zap"
)

// Backend 把资产写到本地磁盘：<root>/<namespace>/<相对路径>。
// Location 返回绝对路径，URL 返回 /static/<namespace>/<相对路径>，
// 由路由层把 /static 挂载到 root 目录。句柄即相对键，删除命名空间
// 本身已经足够，句柄保留是为了与远端后端保持同一调用形态。
type Backend struct {
	root   string
	logger *zap.SugaredLogger
}

// New 创建本地存储后端，root 必须是绝对路径。
func New(root string) (*Backend, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	if !filepath.IsAbs(root) {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve storage root: %w", err)
		}
		root = abs
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Backend{
		root:   root,
		logger: appLogger.S().With("component", "storage.local"),
	}, nil
}

// Root 返回存储根目录，路由层用它挂载静态文件服务。
func (b *Backend) Root() string {
	return b.root
}

// StoreFile 把单个文件拷贝到 <root>/<namespace>/<logicalName>。
func (b *Backend) StoreFile(_ context.Context, sourcePath, namespace, logicalName string) (storage.StoredFile, error) {
	key := path.Join(namespace, logicalName)
	dst := filepath.Join(b.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return storage.StoredFile{}, fmt.Errorf("create namespace dir: %w", err)
	}
	if err := copyFile(sourcePath, dst); err != nil {
		return storage.StoredFile{}, fmt.Errorf("copy file: %w", err)
	}

	return storage.StoredFile{
		Location: dst,
		URL:      "/static/" + key,
		Handle:   key,
	}, nil
}

// StoreTree 递归拷贝 sourceDir 下的所有文件，保留相对路径。
func (b *Backend) StoreTree(_ context.Context, sourceDir, namespace, entryRel string) (storage.StoredTree, error) {
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

		key := path.Join(namespace, rel)
		dst := filepath.Join(b.root, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := copyFile(p, dst); err != nil {
			return err
		}

		tree.Handles = append(tree.Handles, key)
		if rel == entryRel {
			tree.EntryLocation = dst
			tree.EntryURL = "/static/" + key
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

// DeleteHandles 按相对键逐个删除文件，缺失视为已删除。
func (b *Backend) DeleteHandles(_ context.Context, handles []string) {
	for _, key := range handles {
		dst, ok := b.safeJoin(key)
		if !ok {
			b.logger.Warnw("skip suspicious handle", "handle", key)
			continue
		}
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			b.logger.Warnw("delete asset failed", "handle", key, "error", err)
		}
	}
}

// DeleteNamespace 整目录移除命名空间。
func (b *Backend) DeleteNamespace(_ context.Context, namespace string) {
	dst, ok := b.safeJoin(namespace)
	if !ok {
		b.logger.Warnw("skip suspicious namespace", "namespace", namespace)
		return
	}
	if err := os.RemoveAll(dst); err != nil {
		b.logger.Warnw("delete namespace failed", "namespace", namespace, "error", err)
	}
}

// Kind 返回后端类型。
func (b *Backend) Kind() string {
	return storage.KindLocal
}

// safeJoin 把相对键拼到根目录下，拒绝绝对路径与越界路径。
func (b *Backend) safeJoin(key string) (string, bool) {
	clean := path.Clean(filepath.ToSlash(key))
	if clean == "." || clean == ".." || path.IsAbs(clean) || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
