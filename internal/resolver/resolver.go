// Package resolver 实现资源解析流水线：依次尝试各 Mod 的重写路径与原始路径、
// 本地缓存、远端回源，命中即返回，回源成功后异步写入缓存。
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JehanneDarc/majsoul-plus-client/internal/cache"
	"github.com/JehanneDarc/majsoul-plus-client/internal/codec"
	"github.com/JehanneDarc/majsoul-plus-client/internal/logging"
	"github.com/JehanneDarc/majsoul-plus-client/internal/mods"
	"github.com/JehanneDarc/majsoul-plus-client/internal/remote"
	"github.com/JehanneDarc/majsoul-plus-client/internal/respath"
)

// 命中来源标识，写入日志与 X-Resource-Source 响应头。
const (
	SourceModPrefix = "mod:"
	SourceCache     = "cache"
	SourceRemote    = "remote"
	SourceError     = "error"
)

// RemoteFetcher 抽象回源能力，便于测试注入。
type RemoteFetcher interface {
	Fetch(ctx context.Context, originalURL string, obfuscate bool) (remote.Outcome, error)
}

// Options 汇总流水线依赖。Mods 与 Fetcher 必填；Cache 为空时跳过缓存读写。
type Options struct {
	Mods    *mods.Loader
	Cache   cache.Store
	Writer  *cache.AsyncWriter
	Fetcher RemoteFetcher
	Codec   codec.XOR
	Marker  string
	Logger  *logrus.Logger
}

// Result 是一次解析的最终产物，由 HTTP 层写回客户端。
type Result struct {
	Body       []byte
	StatusCode int
	Source     string
	Encrypt    bool
	PathLike   bool
}

// Resolver 无请求级可变状态，可被任意数量的请求并发使用。
type Resolver struct {
	mods    *mods.Loader
	cache   cache.Store
	writer  *cache.AsyncWriter
	fetcher RemoteFetcher
	codec   codec.XOR
	marker  string
	logger  *logrus.Logger
}

// New 校验依赖并构造 Resolver。
func New(opts Options) (*Resolver, error) {
	if opts.Mods == nil {
		return nil, errors.New("mods loader is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("remote fetcher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	writer := opts.Writer
	if writer == nil {
		writer = cache.NewAsyncWriter(opts.Cache, logger)
	}
	return &Resolver{
		mods:    opts.Mods,
		cache:   opts.Cache,
		writer:  writer,
		fetcher: opts.Fetcher,
		codec:   opts.Codec,
		marker:  opts.Marker,
		logger:  logger,
	}, nil
}

// Resolve 按 Mod → 本地缓存 → 远端 的顺序解析 originalURL。
// 任何阶段的 panic 都会被记录并转换为 500，Resolve 本身从不向外抛出。
func (r *Resolver) Resolve(ctx context.Context, originalURL string) (res Result) {
	started := time.Now()
	encrypt := respath.IsObfuscated(originalURL, r.marker)
	pathLike := respath.IsPathLike(originalURL)

	defer func() {
		if recovered := recover(); recovered != nil {
			fields := logging.RequestFields(originalURL, SourceError, encrypt, pathLike)
			fields["action"] = "resolve"
			fields["error"] = fmt.Sprintf("panic: %v", recovered)
			r.logger.WithFields(fields).Error("resolve_panic")
			res = Result{
				StatusCode: http.StatusInternalServerError,
				Source:     SourceError,
				Encrypt:    encrypt,
				PathLike:   pathLike,
			}
		}
	}()

	registry := r.mods.Registry()
	steps := r.buildSteps(originalURL, registry, encrypt, pathLike)
	source, result, ok := firstFound(ctx, steps, func(source string, sr stepResult) {
		r.traceStep(originalURL, source, sr)
	})

	if ok {
		res = Result{
			Body:       r.preparePayload(result.data, encrypt, pathLike),
			StatusCode: result.statusCode,
			Source:     source,
			Encrypt:    encrypt,
			PathLike:   pathLike,
		}
	} else {
		status := result.statusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		res = Result{
			Body:       toText(result.data),
			StatusCode: status,
			Source:     SourceError,
			Encrypt:    encrypt,
			PathLike:   pathLike,
		}
	}

	r.logResult(ctx, originalURL, res, started, result.err)
	return res
}

// Flush 等待所有挂起的缓存写入完成。
func (r *Resolver) Flush(ctx context.Context) error {
	return r.writer.Wait(ctx)
}

// buildSteps 构造本次请求的完整回退链。每个 Mod 先尝试命中的重写规则（按规则顺序），
// 再尝试原始路径；随后是本地缓存与远端。
func (r *Resolver) buildSteps(originalURL string, registry *mods.Registry, encrypt, pathLike bool) []step {
	var steps []step
	for _, mod := range registry.Mods() {
		source := SourceModPrefix + mod.DisplayName()
		root := mod.Root()
		for _, rule := range mod.Replace {
			if !rule.Matches(originalURL) {
				continue
			}
			rewritten, ok := rule.Rewrite(originalURL)
			if !ok {
				continue
			}
			steps = append(steps, r.readStep(source, root, rewritten, pathLike))
		}
		steps = append(steps, r.readStep(source, root, originalURL, pathLike))
	}

	if r.cache != nil {
		locator := cache.Locator{Path: originalURL, PathLike: pathLike}
		steps = append(steps, step{
			source: SourceCache,
			run: func(ctx context.Context) stepResult {
				return readFrom(ctx, r.cache, locator)
			},
		})
	}

	steps = append(steps, step{
		source: SourceRemote,
		run: func(ctx context.Context) stepResult {
			return r.fetchRemote(ctx, originalURL, encrypt, pathLike)
		},
	})
	return steps
}

func (r *Resolver) readStep(source, root, url string, pathLike bool) step {
	return step{
		source: source,
		run: func(ctx context.Context) stepResult {
			overlay, err := cache.NewOverlay(root)
			if err != nil {
				return failed(nil, 0, err)
			}
			return readFrom(ctx, overlay, cache.Locator{Path: url, PathLike: pathLike})
		},
	}
}

func readFrom(ctx context.Context, store cache.Store, locator cache.Locator) stepResult {
	data, err := cache.ReadAll(ctx, store, locator)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return notFound(err)
		}
		return failed(nil, 0, err)
	}
	return found(data, http.StatusOK)
}

func (r *Resolver) fetchRemote(ctx context.Context, originalURL string, encrypt, pathLike bool) stepResult {
	outcome, err := r.fetcher.Fetch(ctx, originalURL, encrypt && !pathLike)
	if err != nil {
		if remoteErr, ok := remote.AsRemoteError(err); ok {
			return failed(remoteErr.Data, remoteErr.StatusCode, err)
		}
		return failed(nil, 0, err)
	}
	if !pathLike && r.cache != nil {
		r.writer.Submit(cache.Locator{Path: originalURL, PathLike: pathLike}, outcome.Data)
	}
	return found(outcome.Data, outcome.StatusCode)
}

// preparePayload 生成最终响应字节：目录型请求先规整为合法 UTF-8 文本，
// 需要混淆时对该文本的 UTF-8 字节做 XOR。
func (r *Resolver) preparePayload(data []byte, encrypt, pathLike bool) []byte {
	payload := data
	if pathLike {
		payload = toText(data)
	}
	if encrypt {
		return r.codec.Transform(payload)
	}
	return payload
}

// toText 将任意字节规整为合法 UTF-8，非法序列替换为 U+FFFD。
func toText(data []byte) []byte {
	return []byte(strings.ToValidUTF8(string(data), "�"))
}

func (r *Resolver) traceStep(originalURL, source string, result stepResult) {
	if !r.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	fields := logrus.Fields{
		"action": "resolve_step",
		"path":   originalURL,
		"source": source,
	}
	switch result.status {
	case stepFound:
		fields["outcome"] = "found"
	case stepNotFound:
		fields["outcome"] = "not_found"
	default:
		fields["outcome"] = "failed"
		if result.err != nil {
			fields["error"] = result.err.Error()
		}
	}
	r.logger.WithFields(fields).Debug("resolve_step")
}

func (r *Resolver) logResult(ctx context.Context, originalURL string, res Result, started time.Time, err error) {
	fields := logging.RequestFields(originalURL, res.Source, res.Encrypt, res.PathLike)
	fields["action"] = "resolve"
	if id := logging.RequestID(ctx); id != "" {
		fields["request_id"] = id
	}
	fields["status"] = res.StatusCode
	fields["size_bytes"] = len(res.Body)
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if res.Source == SourceError {
		if err != nil {
			fields["error"] = err.Error()
		}
		r.logger.WithFields(fields).Warn("resolve_exhausted")
		return
	}
	r.logger.WithFields(fields).Info("resolve_complete")
}
