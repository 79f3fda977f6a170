package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/api/handler"
	"github.com/142spp/qi4u-in-pnu-team8/internal/api/router"
	"github.com/142spp/qi4u-in-pnu-team8/internal/catalog"
	"github.com/142spp/qi4u-in-pnu-team8/internal/repository"
	"github.com/142spp/qi4u-in-pnu-team8/internal/service"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/database"
	applogger "github.com/142spp/qi4u-in-pnu-team8/pkg/logger"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/redis"
)

func main() {
	// 0. 加载 .env（可选，不存在时忽略）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "加载 .env 失败: %v\n", err)
	}

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("PLANNER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("optimizer", cfg.Optimizer.BaseURL),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，限流与任务状态缓存将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	catalogs := catalog.NewHolder()
	client := optimizer.NewClient(&cfg.Optimizer, logger)
	svc := service.NewService(cfg, repo, catalogs, client, rdb, logger)
	h := handler.NewHandler(svc)

	// 5.1 加载课程目录（目录为空时服务照常启动，搜索接口返回未加载）
	bootCtx, bootCancel := context.WithTimeout(context.Background(), time.Minute)
	n, err := svc.Lecture.Bootstrap(bootCtx, cfg.Catalog.Path, cfg.Catalog.AutoImport)
	bootCancel()
	if err != nil {
		logger.Error("课程目录加载失败", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	} else if n == 0 {
		logger.Warn("课程目录为空，请通过 POST /api/v1/lectures/import 导入")
	}

	// 6. 初始化路由
	engine := router.Setup(cfg, h, rdb, logger)

	// 7. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 8. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止优化任务轮询
	if err := svc.Optimization.Shutdown(ctx); err != nil {
		logger.Error("优化任务轮询未能及时停止", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
