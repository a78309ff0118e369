package game

import (
	"regexp"
	"strings"
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugSeparate = regexp.MustCompile(`[\s_]+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// Slugify 把任意标题转成 URL 安全的 slug：小写、去首尾空白、剔除
// 非 [字母数字_ 空白 -] 字符、把空白与下划线折叠为单个连字符、合并
// 连续连字符并去掉首尾连字符。
//
// 纯符号标题会得到空字符串，由调用方按非法标题拒绝，这里不做兜底。
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSeparate.ReplaceAllString(s, "-")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
