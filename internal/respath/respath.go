// Package respath 负责资源请求路径的分类与本地映射：判断请求是否为“目录型”
// 路径、是否命中混淆标记，以及将远端相对路径映射到本地文件系统。
package respath

import (
	"path/filepath"
	"strings"
)

// IsPathLike 判断请求是否按目录/列表处理：以 / 或 \ 结尾，或携带查询串。
// 携带查询串的文件请求同样会被视为目录型路径。
func IsPathLike(url string) bool {
	return strings.HasSuffix(url, "/") ||
		strings.HasSuffix(url, "\\") ||
		strings.Contains(url, "?")
}

// IsObfuscated 判断请求路径是否包含混淆标记；空标记视为关闭混淆。
func IsObfuscated(url, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(url, marker)
}

// StripQuery 去掉第一个 ? 及其后的全部内容。
func StripQuery(url string) string {
	if idx := strings.IndexByte(url, '?'); idx >= 0 {
		return url[:idx]
	}
	return url
}

// MapToLocal 将远端相对路径拼接到 baseDir 下。pathLike 不影响结果，
// 目录型请求与文件请求映射到同一路径。
//
// 这里不清理 .. 等越界片段，调用方需自行拒绝逃出 baseDir 的结果。
func MapToLocal(url string, pathLike bool, baseDir string) string {
	rel := StripQuery(url)
	return filepath.Join(baseDir, filepath.FromSlash(rel))
}

// Within 判断 target 是否位于 root 目录内（含 root 本身）。
func Within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
