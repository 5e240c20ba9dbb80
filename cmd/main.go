package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/pdf-ingest/api"
	"github.com/fyerfyer/pdf-ingest/api/handler"
	"github.com/fyerfyer/pdf-ingest/api/middleware"
	appconfig "github.com/fyerfyer/pdf-ingest/config"
	"github.com/fyerfyer/pdf-ingest/internal/cache"
	"github.com/fyerfyer/pdf-ingest/internal/document"
	"github.com/fyerfyer/pdf-ingest/internal/services"
	"github.com/fyerfyer/pdf-ingest/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// 命令行参数，显式设置时覆盖配置文件
type flags struct {
	ConfigFile  string // 配置文件路径
	EnvFile     string // .env文件路径
	Port        int    // 服务端口
	Mode        string // 运行模式 (debug/release)
	StoragePath string // 临时目录
	LogLevel    string // 日志级别
	CacheType   string // 阶段记录存储类型
	PagePolicy  string // 失败时页面处理策略
}

func main() {
	// 解析命令行参数
	f := parseFlags()

	// .env文件不存在时忽略
	if err := godotenv.Load(f.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Failed to load env file %s: %v", f.EnvFile, err)
	}

	// 加载配置文件
	cfg, err := appconfig.Load(f.ConfigFile)
	if err != nil {
		log.Printf("Warning: Failed to load config file: %v, using defaults and command line args", err)
		cfg = appconfig.Default()
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化日志
	logger, err := setupLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting PDF ingestion service...")

	// 创建临时存储
	fileStorage, err := storage.NewLocalStorage(storage.LocalConfig{Path: cfg.Storage.Path})
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	logger.WithField("path", fileStorage.Root()).Info("Transient store ready")

	// 创建阶段记录存储
	stageCache, err := setupCache(cfg.Cache)
	if err != nil {
		logger.Fatalf("Failed to initialize stage store: %v", err)
	}
	defer stageCache.Close()

	tracker := services.NewStageTracker(stageCache, time.Duration(cfg.Cache.TTL)*time.Second, logger)

	// 创建编排服务
	ingestService := services.NewIngestService(
		fileStorage,
		document.NewPDFSplitter(),
		nil, // 使用ParserFactory按文件类型选择提取器
		services.WithLogger(logger),
		services.WithStageTracker(tracker),
		services.WithPagePrefix(cfg.Ingest.PagePrefix),
		services.WithPagePolicy(services.PagePolicy(cfg.Ingest.PagePolicy)),
	)

	// 初始化API处理器并设置路由
	ingestHandler := handler.NewIngestHandler(ingestService, handler.UploadLimits{
		MaxFileBytes: cfg.Upload.MaxSizeMB << 20,
		MemoryBytes:  cfg.Upload.MemoryMB << 20,
	})
	r, err := api.SetupRouter(ingestHandler)
	if err != nil {
		logger.Fatalf("Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 收到终止信号后优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	f := flags{}

	flag.StringVar(&f.ConfigFile, "config", "config.yaml", "Path to config file")
	flag.StringVar(&f.EnvFile, "env", ".env", "Path to .env file")
	flag.IntVar(&f.Port, "port", 5000, "Server port")
	flag.StringVar(&f.Mode, "mode", "release", "Run mode (debug/release)")
	flag.StringVar(&f.StoragePath, "storage", "./uploads", "Transient storage directory")
	flag.StringVar(&f.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.StringVar(&f.CacheType, "cache", "memory", "Stage store type (memory/redis)")
	flag.StringVar(&f.PagePolicy, "page-policy", "leave", "Page files on failure (leave/rollback)")

	flag.Parse()
	return f
}

// applyFlags 用命令行上明确设置的参数覆盖配置文件
func applyFlags(cfg *appconfig.Config, f flags) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "port":
			cfg.Server.Port = f.Port
		case "mode":
			cfg.Server.Mode = f.Mode
		case "storage":
			cfg.Storage.Path = f.StoragePath
		case "log-level":
			cfg.Log.Level = f.LogLevel
		case "cache":
			cfg.Cache.Type = f.CacheType
		case "page-policy":
			cfg.Ingest.PagePolicy = f.PagePolicy
		}
	})
}

// setupLogger 设置日志系统
func setupLogger(cfg appconfig.LogConfig) (*logrus.Logger, error) {
	err := middleware.ConfigureLogger(middleware.LogOptions{
		Level:      cfg.Level,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, err
	}
	return middleware.GetLogger(), nil
}

// setupCache 设置阶段记录存储
func setupCache(cfg appconfig.CacheConfig) (cache.Cache, error) {
	cacheConfig := cache.Config{
		Type:            cfg.Type,
		DefaultTTL:      time.Duration(cfg.TTL) * time.Second,
		CleanupInterval: 10 * time.Minute,
	}

	// 如果配置了Redis，添加Redis配置
	if cfg.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Address
		cacheConfig.RedisPassword = cfg.Password
		cacheConfig.RedisDB = cfg.DB
	}

	return cache.NewCache(cacheConfig)
}
