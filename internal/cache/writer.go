package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrStoreUnavailable 表示未注入可写的缓存存储实例。
var ErrStoreUnavailable = errors.New("cache store unavailable")

const defaultWriteTimeout = 30 * time.Second

// AsyncWriter 在后台持久化回源结果：调用方提交后立即返回，写入失败只记录日志。
// Wait 用于优雅退出或测试中等待所有挂起写入完成。
type AsyncWriter struct {
	store   Store
	logger  *logrus.Logger
	timeout time.Duration

	// pending 由 mu 保护；归零时通过 idle 唤醒 Wait。
	// Submit 与 Wait 可能并发，因此不使用 sync.WaitGroup。
	mu      sync.Mutex
	idle    *sync.Cond
	pending int
}

// NewAsyncWriter 构造后台写入器；store 为 nil 时 Submit 直接忽略。
func NewAsyncWriter(store Store, logger *logrus.Logger) *AsyncWriter {
	w := &AsyncWriter{
		store:   store,
		logger:  logger,
		timeout: defaultWriteTimeout,
	}
	w.idle = sync.NewCond(&w.mu)
	return w
}

// Enabled 返回当前是否具备缓存写入能力。
func (w *AsyncWriter) Enabled() bool {
	return w != nil && w.store != nil
}

// Put 同步写入，保持与 Store 相同的语义。
func (w *AsyncWriter) Put(ctx context.Context, locator Locator, data []byte) (*Entry, error) {
	if !w.Enabled() {
		return nil, ErrStoreUnavailable
	}
	return w.store.Put(ctx, locator, bytes.NewReader(data), PutOptions{})
}

// Submit 异步写入 data 的副本，不阻塞调用方，也不向调用方报告失败。
func (w *AsyncWriter) Submit(locator Locator, data []byte) {
	if !w.Enabled() {
		return
	}
	payload := append([]byte(nil), data...)

	w.mu.Lock()
	w.pending++
	w.mu.Unlock()
	go func() {
		defer w.done()
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		entry, err := w.Put(ctx, locator, payload)
		if err != nil {
			w.log().WithError(err).WithFields(logrus.Fields{
				"action": "cache_write",
				"path":   locator.Path,
			}).Warn("cache_write_failed")
			return
		}
		w.log().WithFields(logrus.Fields{
			"action":     "cache_write",
			"path":       locator.Path,
			"file_path":  entry.FilePath,
			"size_bytes": entry.SizeBytes,
		}).Debug("cache_write_complete")
	}()
}

// Wait 阻塞直到所有已提交的写入结束，或 ctx 结束。
func (w *AsyncWriter) Wait(ctx context.Context) error {
	if w == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		w.mu.Lock()
		for w.pending > 0 {
			w.idle.Wait()
		}
		w.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AsyncWriter) done() {
	w.mu.Lock()
	w.pending--
	if w.pending == 0 {
		w.idle.Broadcast()
	}
	w.mu.Unlock()
}

func (w *AsyncWriter) log() *logrus.Logger {
	if w.logger == nil {
		return logrus.StandardLogger()
	}
	return w.logger
}
