/*
 * @Author: NEFU AB-IN
 * @Date: 2026-07-14 20:31:46
 * @FilePath: \game-hub-app\backend\internal\domain\game\entity.go
 * @LastEditTime: 2026-07-18 15:02:11
 */
package game

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// FileType 表示上传文件的类型，决定入库与播放的处理路径。
type FileType string

const (
	FileTypeHTML FileType = "html"
	FileTypeZip  FileType = "zip"
)

// Category 是游戏分类的封闭枚举，新增分类需要发版。
type Category string

const (
	CategoryAction    Category = "Action"
	CategoryPuzzle    Category = "Puzzle"
	CategoryArcade    Category = "Arcade"
	CategoryAdventure Category = "Adventure"
	CategoryRacing    Category = "Racing"
	CategorySports    Category = "Sports"
	CategoryStrategy  Category = "Strategy"
	CategoryOther     Category = "Other"
)

// Categories 返回全部合法分类，顺序即展示顺序。
func Categories() []Category {
	return []Category{
		CategoryAction,
		CategoryPuzzle,
		CategoryArcade,
		CategoryAdventure,
		CategoryRacing,
		CategorySports,
		CategoryStrategy,
		CategoryOther,
	}
}

// ValidCategory 校验给定字符串是否属于封闭枚举。
func ValidCategory(raw string) bool {
	for _, c := range Categories() {
		if string(c) == raw {
			return true
		}
	}
	return false
}

// SortOrder 是列表接口支持的排序方式。
type SortOrder string

const (
	SortNewest     SortOrder = "newest"
	SortOldest     SortOrder = "oldest"
	SortMostPlayed SortOrder = "mostPlayed"
	SortTopRated   SortOrder = "topRated"
)

// ParseSortOrder 将查询参数解析为排序方式，未知值回退到默认的 newest。
func ParseSortOrder(raw string) SortOrder {
	switch SortOrder(raw) {
	case SortOldest, SortMostPlayed, SortTopRated:
		return SortOrder(raw)
	default:
		return SortNewest
	}
}

// Game 表示一条已入库的游戏记录。
//
// Slug 既是唯一键也是存储命名空间：上传内容落在 <backend>/games/<slug>/ 下，
// 缩略图落在 <backend>/thumbnails/ 下。AssetHandles 保存存储后端返回的
// 不透明删除句柄（如对象 key），删除记录时无需重新推导路径。
type Game struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Slug              string         `gorm:"size:128;uniqueIndex" json:"slug"` // 由标题推导，唯一索引在写入侧兜底并发冲突
	Title             string         `gorm:"size:100" json:"title"`
	Description       string         `gorm:"size:500" json:"description"`
	Category          Category       `gorm:"size:32;index" json:"category"`
	Genre             string         `gorm:"size:64;index" json:"genre"`
	FileType          FileType       `gorm:"size:8" json:"file_type"`
	FileSize          int64          `json:"file_size"`
	EntryFile         string         `gorm:"size:255" json:"-"`          // 入口文件相对路径，如 index.html 或 sub/index.html
	PlayLocation      string         `gorm:"size:1024" json:"-"`         // 入口文件的托管位置：本地绝对路径或远端 URL
	ThumbnailLocation string         `gorm:"size:1024" json:"thumbnail"` // 缩略图位置，可为空
	ThumbnailHandle   string         `gorm:"size:512" json:"-"`          // 缩略图的删除句柄，替换缩略图时先存新再删旧
	AssetHandles      datatypes.JSON `gorm:"type:json" json:"-"`         // 存储后端的删除句柄列表
	UploadedBy        uint           `gorm:"index" json:"uploaded_by"`   // 上传者，创建后不可变
	IsVisible         bool           `gorm:"default:false;index" json:"is_visible"`
	IsFeatured        bool           `gorm:"default:false;index" json:"is_featured"`
	PlayCount         int64          `gorm:"default:0" json:"play_count"`
	Rating            float64        `gorm:"default:0" json:"rating"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// EncodeHandles 将句柄列表编码为 JSON 列值。
func EncodeHandles(handles []string) (datatypes.JSON, error) {
	if len(handles) == 0 {
		return datatypes.JSON("[]"), nil
	}
	raw, err := json.Marshal(handles)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeHandles 从 JSON 列值还原句柄列表，空值返回 nil。
func DecodeHandles(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var handles []string
	if err := json.Unmarshal(raw, &handles); err != nil {
		return nil, err
	}
	return handles, nil
}

// CategoryCount 聚合每个分类下的可见游戏数量。
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int64    `json:"count"`
}

// AdminStats 汇总后台统计口径。
type AdminStats struct {
	TotalGames    int64 `json:"total_games"`
	VisibleGames  int64 `json:"visible_games"`
	FeaturedGames int64 `json:"featured_games"`
	TotalBytes    int64 `json:"total_bytes"`
	TotalPlays    int64 `json:"total_plays"`
}
