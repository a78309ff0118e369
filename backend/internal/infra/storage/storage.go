/*
 * @Author: NEFU AB-IN
 * @Date: 2026-07-15 16:44:21
 * @FilePath: \game-hub-app\backend\internal\infra\storage\storage.go
 * @LastEditTime: 2026-07-20 11:09:38
 */
package storage

// Package storage 定义游戏资产的存储抽象：上传流水线只面向 Backend
// 接口编程，本地磁盘与 S3 兼容对象存储通过配置切换，流水线逻辑不变。

import (
	"context"
)

const (
	// KindLocal 表示本地文件系统后端。
	KindLocal = "local"
	// KindS3 表示 S3 兼容的对象存储后端。
	KindS3 = "s3"
)

// StoredFile 描述单个文件落库后的寻址信息。
//
// Location 是规范存储位置：本地后端为绝对路径（由应用进程直接读流），
// S3 后端为可访问的 URL。URL 则始终是浏览器可直接引用的地址，本地后端
// 会映射到 /static 路由。Handle 是删除时使用的不透明句柄。
type StoredFile struct {
	Location string
	URL      string
	Handle   string
}

// StoredTree 描述整棵目录树落库后的寻址信息，Handles 覆盖树内全部文件。
type StoredTree struct {
	EntryLocation string
	EntryURL      string
	Handles       []string
}

// Backend 是存储后端必须满足的能力集。
//
// 删除类操作都是尽力而为：失败只记日志，不向调用方升级——删除一个
// 已经不存在的资产不算错误。
type Backend interface {
	// StoreFile 把单个文件以 logicalName 持久化到 namespace 下。
	StoreFile(ctx context.Context, sourcePath, namespace, logicalName string) (StoredFile, error)

	// StoreTree 把 sourceDir 下的所有文件按相对路径持久化到 namespace 下，
	// 返回 entryRel 对应的寻址信息与整棵树的删除句柄。
	StoreTree(ctx context.Context, sourceDir, namespace, entryRel string) (StoredTree, error)

	// DeleteHandles 按句柄逐个删除资产。
	DeleteHandles(ctx context.Context, handles []string)

	// DeleteNamespace 删除整个命名空间，作为句柄删除之外的兜底清理。
	DeleteNamespace(ctx context.Context, namespace string)

	// Kind 返回后端类型标识（local/s3）。
	Kind() string
}
