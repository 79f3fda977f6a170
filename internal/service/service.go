package service

import (
	"go.uber.org/zap"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/catalog"
	"github.com/142spp/qi4u-in-pnu-team8/internal/repository"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Lecture      LectureService
	Selection    SelectionService
	Grid         GridService
	Optimization OptimizationService
	Export       ExportService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时优化提交不限流，任务状态不做跨进程缓存
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	catalogs *catalog.Holder,
	client OptimizerClient,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	selection := NewSelectionService(&cfg.Planner, repo, catalogs, logger)

	var (
		limiter RateLimiter
		cache   TaskStatusCache
	)
	if rdb != nil {
		limiter, cache = rdb, rdb
	}

	return &Service{
		Lecture:      NewLectureService(repo, catalogs, logger),
		Selection:    selection,
		Grid:         NewGridService(&cfg.Grid, selection),
		Optimization: NewOptimizationService(&cfg.Optimizer, client, selection, limiter, cache, nil, logger),
		Export:       NewExportService(&cfg.Grid, &cfg.Planner, selection, logger),
	}
}
