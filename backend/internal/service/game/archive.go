/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-15 14:22:30
 * @FilePath: \game-hub-app\backend\internal\service\game\archive.go
 * @LastEditTime: 2026-06-17 09:48:11
 */
package game

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractZip 将 src 指向的压缩包解压到 dest 目录，保留相对路径。
//
// 两条安全约束：
//   - 条目路径经过 safeguards，拒绝绝对路径与 ".." 穿越（zip-slip）。
//   - 解压后的总字节数不得超过 limit，防止压缩炸弹撑爆磁盘。
func extractZip(src, dest string, limit int64) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}

	var written int64
	for _, entry := range reader.File {
		target, ok := safeExtractPath(dest, entry.Name)
		if !ok {
			return fmt.Errorf("archive entry escapes extract dir: %s", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", entry.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", entry.Name, err)
		}

		n, err := extractEntry(entry, target, limit-written)
		if err != nil {
			return err
		}

		written += n
		if limit > 0 && written > limit {
			return fmt.Errorf("archive exceeds extraction limit of %d bytes", limit)
		}
	}

	return nil
}

// extractEntry 解压单个文件条目，返回写入的字节数。
func extractEntry(entry *zip.File, target string, budget int64) (int64, error) {
	rc, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create file %s: %w", entry.Name, err)
	}
	defer out.Close()

	// 多拷贝一个字节以便检测超限，而不是默默截断内容。
	n, err := io.Copy(out, io.LimitReader(rc, budget+1))
	if err != nil {
		return n, fmt.Errorf("write entry %s: %w", entry.Name, err)
	}
	if n > budget {
		return n, fmt.Errorf("archive entry %s exceeds extraction limit", entry.Name)
	}

	return n, nil
}

// safeExtractPath 把压缩包内的条目名映射为 dest 下的安全路径。
func safeExtractPath(dest, name string) (string, bool) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) {
		return "", false
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(dest, clean), true
}

// findEntryFile 在解压目录中定位可运行的入口文件，返回相对路径。
//
// 匹配优先级，命中即返回：
//  1. 根目录下的 index.html。
//  2. 任意一级子目录下的 index.html（按目录名字典序取第一个，保证跨平台确定性）。
//  3. 根目录下任意 .html 文件（同样按字典序）。
func findEntryFile(rootDir string) (string, bool) {
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if !entry.IsDir() && entry.Name() == "index.html" {
			return "index.html", true
		}
	}

	// os.ReadDir 保证按文件名排序，子目录间的平局因此是确定的。
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(rootDir, entry.Name(), "index.html")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return filepath.ToSlash(filepath.Join(entry.Name(), "index.html")), true
		}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".html") {
			return entry.Name(), true
		}
	}

	return "", false
}
