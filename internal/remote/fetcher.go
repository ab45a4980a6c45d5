// Package remote 负责从官方资源服务器获取资源字节，并按状态码区分成功与失败。
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/JehanneDarc/majsoul-plus-client/internal/codec"
)

// Outcome 是一次回源的结果，成功与失败都携带状态码与正文。
type Outcome struct {
	StatusCode int
	Data       []byte
}

// RemoteError 表示上游返回了 [200,400) 之外的状态码，正文用于兜底响应。
type RemoteError struct {
	URL        string
	StatusCode int
	Data       []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s responded with status %d", e.URL, e.StatusCode)
}

// Options 描述 Fetcher 的固定参数。
type Options struct {
	Domain    string
	UserAgent string
	Codec     codec.XOR
}

// Fetcher 对单个资源发起一次 GET，不做重试。
type Fetcher struct {
	client *http.Client
	logger *logrus.Logger
	opts   Options
}

// NewFetcher constructs a fetcher sharing the given client and logger.
func NewFetcher(client *http.Client, logger *logrus.Logger, opts Options) *Fetcher {
	if client == nil {
		client = NewClient(0)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{client: client, logger: logger, opts: opts}
}

// URL 将请求路径拼接到上游域名后，合并连接处重复的 /。
func (f *Fetcher) URL(originalURL string) string {
	domain := f.opts.Domain
	if strings.HasSuffix(domain, "/") && strings.HasPrefix(originalURL, "/") {
		return domain + originalURL[1:]
	}
	return domain + originalURL
}

// Fetch 获取 originalURL 对应的远端资源。obfuscate 为 true 时正文经过 XOR
// 处理（成功与失败均如此）。状态码不在 [200,400) 时返回 *RemoteError，
// Outcome 仍携带同样的状态码与正文；传输层错误不带状态码。
func (f *Fetcher) Fetch(ctx context.Context, originalURL string, obfuscate bool) (Outcome, error) {
	remoteURL := f.URL(originalURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, http.NoBody)
	if err != nil {
		return Outcome{}, fmt.Errorf("build remote request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch %s: %w", remoteURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("read %s: %w", remoteURL, err)
	}
	if obfuscate {
		f.opts.Codec.TransformInPlace(data)
	}

	outcome := Outcome{StatusCode: resp.StatusCode, Data: data}
	if !IsSuccess(resp.StatusCode) {
		f.logger.WithFields(logrus.Fields{
			"action":          "remote_fetch",
			"upstream":        remoteURL,
			"upstream_status": resp.StatusCode,
		}).Warn("remote_fetch_failed")
		return outcome, &RemoteError{URL: remoteURL, StatusCode: resp.StatusCode, Data: data}
	}
	return outcome, nil
}

// IsSuccess 判断状态码是否落在 [200,400)。
func IsSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusBadRequest
}

// AsRemoteError 从 err 链中提取 *RemoteError。
func AsRemoteError(err error) (*RemoteError, bool) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr, true
	}
	return nil, false
}
