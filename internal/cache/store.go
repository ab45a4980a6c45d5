package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理磁盘资源的读写。磁盘布局遵循：
//
//	<Root>/<request path without query>
//
// 不写入任何 sidecar 元数据，文件的 ModTime/Size 由文件系统提供。
type Store interface {
	// Get 返回一个可流式读取的条目。若不存在或目标是目录则返回 ErrNotFound。
	Get(ctx context.Context, locator Locator) (*ReadResult, error)

	// Put 将资源写入磁盘。实现需通过临时文件 + rename 保证写入原子性，
	// 并在失败时清理临时文件。
	Put(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Entry, error)

	// Remove 删除单个资源文件，不存在时视为成功；供 DELETE /-/cache/* 失效接口使用。
	Remove(ctx context.Context, locator Locator) error

	// Root 返回存储根目录的绝对路径。
	Root() string
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
}

// Locator 唯一定位一个资源：原始请求路径（可带查询串）及其目录型标记。
type Locator struct {
	Path     string
	PathLike bool
}

// Entry 表示一次命中结果，包含绝对文件路径及文件信息。
type Entry struct {
	Locator   Locator
	FilePath  string
	SizeBytes int64
	ModTime   time.Time
}

// ReadResult 组合 Entry 与正文 Reader。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

var (
	// ErrNotFound 表示资源不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrInvalidPath 表示请求路径映射后逃出了存储根目录。
	ErrInvalidPath = errors.New("invalid cache path")
	// ErrReadOnly 表示当前存储不允许写入（例如 Mod 目录）。
	ErrReadOnly = errors.New("cache store is read-only")
)

// ReadAll 读取完整条目内容并关闭 Reader，供解析流水线一次性取用字节。
func ReadAll(ctx context.Context, store Store, locator Locator) ([]byte, error) {
	result, err := store.Get(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer result.Reader.Close()
	return io.ReadAll(result.Reader)
}
