package remote

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/JehanneDarc/majsoul-plus-client/internal/codec"
)

func newTestFetcher(t *testing.T, origin string, key byte) (*Fetcher, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	return NewFetcher(NewClient(5*time.Second), logger, Options{
		Domain:    origin + "/",
		UserAgent: "majsoul-plus-test",
		Codec:     codec.NewXOR(key),
	}), hook
}

func TestFetchSuccessSendsUserAgent(t *testing.T) {
	var gotUA, gotPath string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.RequestURI()
		_, _ = w.Write([]byte{0x00, 0xff, 0x10})
	}))
	defer origin.Close()

	fetcher, _ := newTestFetcher(t, origin.URL, 0x49)
	outcome, err := fetcher.Fetch(context.Background(), "/1/res/a.bin?v=1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", outcome.StatusCode)
	}
	if !bytes.Equal(outcome.Data, []byte{0x00, 0xff, 0x10}) {
		t.Fatalf("binary body must be preserved, got %x", outcome.Data)
	}
	if gotUA != "majsoul-plus-test" {
		t.Fatalf("expected configured User-Agent, got %q", gotUA)
	}
	if gotPath != "/1/res/a.bin?v=1" {
		t.Fatalf("重复的 / 应被合并且查询串原样转发，得到 %s", gotPath)
	}
}

func TestFetchObfuscatesBody(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secret"))
	}))
	defer origin.Close()

	fetcher, _ := newTestFetcher(t, origin.URL, 0x49)
	outcome, err := fetcher.Fetch(context.Background(), "/extendRes/a.png", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := codec.NewXOR(0x49).Transform([]byte("secret"))
	if !bytes.Equal(outcome.Data, want) {
		t.Fatalf("expected xor body %x, got %x", want, outcome.Data)
	}
}

func TestFetchFailureCarriesStatusAndBody(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))
	defer origin.Close()

	fetcher, hook := newTestFetcher(t, origin.URL, 1)
	outcome, err := fetcher.Fetch(context.Background(), "/nope.png", true)
	remoteErr, ok := AsRemoteError(err)
	if !ok {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.StatusCode != http.StatusNotFound || outcome.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 in both error and outcome, got %d/%d", remoteErr.StatusCode, outcome.StatusCode)
	}
	want := codec.NewXOR(1).Transform([]byte("missing"))
	if !bytes.Equal(remoteErr.Data, want) {
		t.Fatalf("失败正文同样需要经过 XOR，得到 %x", remoteErr.Data)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("非 2xx/3xx 状态应记录 warn 日志")
	}
}

func TestFetchDoesNotFollowRedirects(t *testing.T) {
	var hits atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer origin.Close()

	fetcher, _ := newTestFetcher(t, origin.URL, 0)
	outcome, err := fetcher.Fetch(context.Background(), "/moved", false)
	if err != nil {
		t.Fatalf("3xx 应视为成功: %v", err)
	}
	if outcome.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", outcome.StatusCode)
	}
	if hits.Load() != 1 {
		t.Fatalf("不应跟随跳转，得到 %d 次请求", hits.Load())
	}
}

func TestFetchTransportErrorHasNoStatus(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := origin.URL
	origin.Close()

	fetcher, _ := newTestFetcher(t, url, 0)
	outcome, err := fetcher.Fetch(context.Background(), "/a", false)
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if _, ok := AsRemoteError(err); ok {
		t.Fatalf("传输错误不应是 RemoteError")
	}
	if outcome.StatusCode != 0 {
		t.Fatalf("传输错误不应携带状态码，得到 %d", outcome.StatusCode)
	}
}

func TestIsSuccessBoundaries(t *testing.T) {
	cases := map[int]bool{199: false, 200: true, 304: true, 399: true, 400: false, 500: false}
	for status, want := range cases {
		if IsSuccess(status) != want {
			t.Fatalf("IsSuccess(%d) should be %v", status, want)
		}
	}
}

func TestNewClientUsesTimeout(t *testing.T) {
	client := NewClient(45 * time.Second)
	if client.Timeout != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %s", client.Timeout)
	}
	if NewClient(0).Timeout != 30*time.Second {
		t.Fatalf("非法超时应回退到 30s")
	}
}
