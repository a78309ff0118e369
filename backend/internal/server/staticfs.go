package server

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

type uploadsFS struct {
	base http.FileSystem
}

// NewUploadsFS 构造托管上传目录的文件系统，禁止目录列举，
// 只允许按完整路径访问游戏资源与缩略图。
func NewUploadsFS(root string) http.FileSystem {
	return &uploadsFS{base: gin.Dir(root, false)}
}

func (u *uploadsFS) Open(name string) (http.File, error) {
	f, err := u.base.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}

	return f, nil
}
