package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/JehanneDarc/majsoul-plus-client/internal/cache"
	"github.com/JehanneDarc/majsoul-plus-client/internal/codec"
	"github.com/JehanneDarc/majsoul-plus-client/internal/config"
	"github.com/JehanneDarc/majsoul-plus-client/internal/logging"
	"github.com/JehanneDarc/majsoul-plus-client/internal/mods"
	"github.com/JehanneDarc/majsoul-plus-client/internal/remote"
	"github.com/JehanneDarc/majsoul-plus-client/internal/resolver"
	"github.com/JehanneDarc/majsoul-plus-client/internal/server"
	"github.com/JehanneDarc/majsoul-plus-client/internal/server/routes"
	"github.com/JehanneDarc/majsoul-plus-client/internal/version"
)

const (
	configEnvKey    = "MAJSOUL_PLUS_CONFIG"
	shutdownTimeout = 10 * time.Second
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	compare     string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}
	if opts.compare != "" {
		return runCompare(opts.compare)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["remote"] = cfg.Remote.RemoteHost()
		fields["storage"] = cfg.Global.StoragePath
		fields["mods_config"] = cfg.Global.ModsConfigPath
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 磁盘缓存 → Mod 加载器 → 回源客户端 → 解析流水线 → Fiber server。
	svc, err := buildServices(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化解析流水线失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["remote"] = cfg.Remote.RemoteHost()
	fields["storage"] = cfg.Global.StoragePath
	fields["mods_config"] = cfg.Global.ModsConfigPath
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := startHTTPServer(ctx, cfg, svc, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// services 汇总解析流水线及诊断接口共享的组件。
type services struct {
	resolver *resolver.Resolver
	loader   *mods.Loader
	store    cache.Store
}

func buildServices(cfg *config.Config, logger *logrus.Logger) (*services, error) {
	store, err := cache.NewStore(cfg.Global.StoragePath)
	if err != nil {
		return nil, err
	}

	xor := codec.NewXOR(cfg.Remote.ObfuscationKey.Byte())
	fetcher := remote.NewFetcher(remote.NewClient(cfg.Remote.Timeout.DurationValue()), logger, remote.Options{
		Domain:    cfg.Remote.Domain,
		UserAgent: cfg.Remote.UserAgent,
		Codec:     xor,
	})
	loader := mods.NewLoader(cfg.Global.ModsConfigPath, logger)

	res, err := resolver.New(resolver.Options{
		Mods:    loader,
		Cache:   store,
		Writer:  cache.NewAsyncWriter(store, logger),
		Fetcher: fetcher,
		Codec:   xor,
		Marker:  cfg.Remote.ObfuscationMarker,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return &services{resolver: res, loader: loader, store: store}, nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("majsoul-plus", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		compare    string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 MAJSOUL_PLUS_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.StringVar(&compare, "compare", "", "比较两个版本标签，格式 vA,vB，输出更新幅度")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv(configEnvKey)
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		compare:     strings.TrimSpace(compare),
	}, nil
}

func startHTTPServer(ctx context.Context, cfg *config.Config, svc *services, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Resolver:   svc.resolver,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterModRoutes(app, svc.loader)
	routes.RegisterCacheRoutes(app, svc.store)
	routes.RegisterVersionRoutes(app)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return shutdown(app, svc.resolver, logger)
}

// shutdown 先停止接收新请求，再等待挂起的缓存写入落盘。
func shutdown(app *fiber.App, res *resolver.Resolver, logger *logrus.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.WithField("action", "shutdown").Info("Fiber 服务停止")
	serverErr := app.ShutdownWithContext(shutdownCtx)
	if err := res.Flush(shutdownCtx); err != nil {
		logger.WithError(err).WithField("action", "shutdown").Warn("cache_flush_incomplete")
		return errors.Join(serverErr, err)
	}
	return serverErr
}
