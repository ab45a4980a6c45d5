package server

import (
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/JehanneDarc/majsoul-plus-client/internal/resolver"
)

func acquireCtx(t *testing.T, app *fiber.App, uri string) fiber.Ctx {
	t.Helper()
	fctx := new(fasthttp.RequestCtx)
	fctx.Request.SetRequestURI(uri)
	ctx := app.AcquireCtx(fctx)
	t.Cleanup(func() { app.ReleaseCtx(ctx) })
	return ctx
}

func TestRequestPath(t *testing.T) {
	app := fiber.New()
	defer app.Shutdown()

	testCases := []struct {
		uri  string
		want string
	}{
		{"/", "/"},
		{"/1/v0.5.1.w/res/a.png", "/1/v0.5.1.w/res/a.png"},
		{"/version.json?randv=1", "/version.json?randv=1"},
		{"/lang/", "/lang/"},
		{"/%E9%9B%80%E9%AD%82.png", "/%E9%9B%80%E9%AD%82.png"},
		{"/res/a%3Fb.png", "/res/a%3Fb.png"},
		{"/res/a%23b.png", "/res/a%23b.png"},
		{"/res/a%3Fb.png?v=1", "/res/a%3Fb.png?v=1"},
	}

	for _, tc := range testCases {
		ctx := acquireCtx(t, app, tc.uri)
		if got := requestPath(ctx); got != tc.want {
			t.Fatalf("requestPath(%s) = %s, want %s", tc.uri, got, tc.want)
		}
	}
}

func TestSetContentType(t *testing.T) {
	app := fiber.New()
	defer app.Shutdown()

	testCases := []struct {
		name   string
		uri    string
		result resolver.Result
		want   string
	}{
		{"binary asset", "/a.png", resolver.Result{Source: resolver.SourceCache}, "image/png"},
		{"obfuscated asset", "/extendRes/a.png", resolver.Result{Source: resolver.SourceCache, Encrypt: true}, fiber.MIMEOctetStream},
		{"listing", "/lang/", resolver.Result{Source: resolver.SourceRemote, PathLike: true}, fiber.MIMETextPlainCharsetUTF8},
		{"versioned json", "/version.json?v=1", resolver.Result{Source: resolver.SourceRemote, PathLike: true}, "application/json; charset=utf-8"},
		{"json asset", "/res/config.json", resolver.Result{Source: resolver.SourceCache}, fiber.MIMEApplicationJSON},
		{"failure", "/gone.png", resolver.Result{Source: resolver.SourceError}, fiber.MIMETextPlainCharsetUTF8},
		{"unknown", "/blob", resolver.Result{Source: resolver.SourceRemote}, fiber.MIMEOctetStream},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := acquireCtx(t, app, tc.uri)
			setContentType(ctx, tc.uri, tc.result)
			if got := string(ctx.Response().Header.ContentType()); got != tc.want {
				t.Fatalf("expected content type %s, got %s", tc.want, got)
			}
		})
	}
}
