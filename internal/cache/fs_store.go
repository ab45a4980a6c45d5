package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/JehanneDarc/majsoul-plus-client/internal/respath"
)

// NewStore 以 basePath 为根目录构建可写的本地缓存，整站复用一份实例。
func NewStore(basePath string) (Store, error) {
	abs, err := resolveRoot(basePath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &fileStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}, nil
}

// NewOverlay 构建只读存储，用于 Mod 文件目录；不会创建目录，Put 返回 ErrReadOnly。
func NewOverlay(basePath string) (Store, error) {
	abs, err := resolveRoot(basePath)
	if err != nil {
		return nil, err
	}
	return &fileStore{
		basePath: abs,
		readOnly: true,
		locks:    make(map[string]*entryLock),
	}, nil
}

func resolveRoot(basePath string) (string, error) {
	if basePath == "" {
		return "", errors.New("storage path required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}
	return abs, nil
}

// fileStore 通过 entryLock 避免同一路径并发写入，同时复用 basePath。
type fileStore struct {
	basePath string
	readOnly bool

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Root() string {
	return s.basePath
}

func (s *fileStore) Get(ctx context.Context, locator Locator) (*ReadResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	filePath, err := s.entryPath(locator)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	entry := Entry{
		Locator:   locator,
		FilePath:  filePath,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}

	return &ReadResult{
		Entry:  entry,
		Reader: f,
	}, nil
}

func (s *fileStore) Put(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Entry, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}

	filePath, err := s.entryPath(locator)
	if err != nil {
		return nil, err
	}
	if filePath == s.basePath {
		return nil, ErrInvalidPath
	}

	unlock := s.lockEntry(filePath)
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(filePath), ".cache-*")
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()

	written, err := copyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return nil, err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return nil, err
	}

	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now().UTC()
	}
	if err := os.Chtimes(filePath, modTime, modTime); err != nil {
		return nil, err
	}

	entry := Entry{
		Locator:   locator,
		FilePath:  filePath,
		SizeBytes: written,
		ModTime:   modTime,
	}
	return &entry, nil
}

// Remove 删除单个缓存文件，不存在时视为成功；根目录与目录返回 ErrInvalidPath。
func (s *fileStore) Remove(ctx context.Context, locator Locator) error {
	if s.readOnly {
		return ErrReadOnly
	}

	filePath, err := s.entryPath(locator)
	if err != nil {
		return err
	}
	if filePath == s.basePath {
		return ErrInvalidPath
	}

	unlock := s.lockEntry(filePath)
	defer unlock()

	// 只删除单个文件，目录不在失效范围内。
	if info, err := os.Stat(filePath); err == nil && info.IsDir() {
		return ErrInvalidPath
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// entryPath 将请求路径映射到 basePath 下，拒绝任何逃出根目录的结果。
func (s *fileStore) entryPath(locator Locator) (string, error) {
	rel := strings.ReplaceAll(locator.Path, "\\", "/")
	filePath := respath.MapToLocal(rel, locator.PathLike, s.basePath)
	if !respath.Within(s.basePath, filePath) {
		return "", ErrInvalidPath
	}
	return filePath, nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
