package server

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/utils/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/JehanneDarc/majsoul-plus-client/internal/logging"
	"github.com/JehanneDarc/majsoul-plus-client/internal/respath"
	"github.com/JehanneDarc/majsoul-plus-client/internal/resolver"
)

// Resolver describes the component that turns a request path into bytes.
// It allows injecting fake resolvers during tests.
type Resolver interface {
	Resolve(ctx context.Context, originalURL string) resolver.Result
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context, string) resolver.Result

// Resolve makes ResolverFunc satisfy Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, originalURL string) resolver.Result {
	return f(ctx, originalURL)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Resolver   Resolver
	ListenPort int
}

const (
	contextKeyRequestID = "_majsoul_request_id"

	// HeaderResourceSource 标记响应内容来自哪一级回退链。
	HeaderResourceSource = "X-Resource-Source"
	// HeaderObfuscated 标记响应正文是否经过 XOR。
	HeaderObfuscated = "X-Resource-Obfuscated"
)

// NewApp builds a Fiber application with request-id middleware, panic
// recovery, and the catch-all resource route.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  errorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())

	app.Get("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		return serveResource(c, opts.Resolver)
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并写入响应头与请求上下文。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		c.SetContext(logging.WithRequestID(c.Context(), reqID))
		return c.Next()
	}
}

func serveResource(c fiber.Ctx, r Resolver) error {
	originalURL := requestPath(c)
	result := r.Resolve(c.Context(), originalURL)

	c.Set(HeaderResourceSource, result.Source)
	c.Set(HeaderObfuscated, strconv.FormatBool(result.Encrypt))
	setContentType(c, originalURL, result)

	status := result.StatusCode
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).Send(result.Body)
}

// setContentType 混淆后的正文一律按二进制返回；目录型请求按文本返回，
// 其他按扩展名推断，推断不出时按二进制返回。
func setContentType(c fiber.Ctx, originalURL string, result resolver.Result) {
	switch {
	case result.Encrypt:
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	case result.Source == resolver.SourceError:
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	default:
		ext := path.Ext(respath.StripQuery(originalURL))
		if ext != "" {
			mimeType := utils.GetMIME(ext)
			if result.PathLike {
				if mimeType == fiber.MIMEOctetStream {
					mimeType = fiber.MIMETextPlain
				}
				mimeType += "; charset=utf-8"
			}
			c.Set(fiber.HeaderContentType, mimeType)
			return
		}
		if result.PathLike {
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
}

// requestPath 返回未解码的原始请求路径，带查询串时原样拼回。
// 保持百分号编码，%3F / %23 不会被误判为查询串或锚点。
func requestPath(c fiber.Ctx) string {
	uri := c.Request().URI()
	pathVal := string(uri.PathOriginal())
	if pathVal == "" {
		pathVal = "/"
	}
	if query := uri.QueryString(); len(query) > 0 {
		return pathVal + "?" + string(query)
	}
	if strings.HasSuffix(string(c.Request().Header.RequestURI()), "?") {
		return pathVal + "?"
	}
	return pathVal
}

func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
		fields := logrus.Fields{
			"action":     "http",
			"path":       string(c.Request().URI().Path()),
			"status":     status,
			"request_id": RequestID(c),
		}
		if status >= fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(fields).Error("request_failed")
		} else {
			logger.WithError(err).WithFields(fields).Debug("request_rejected")
		}
		return c.Status(status).JSON(fiber.Map{"error": errorCode(status)})
	}
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusBadRequest:
		return "bad_request"
	}
	if status >= fiber.StatusInternalServerError {
		return "internal_error"
	}
	return "request_failed"
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
