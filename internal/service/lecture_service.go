package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/142spp/qi4u-in-pnu-team8/internal/catalog"
	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/repository"
)

// ── 课程目录模块业务错误 ──

var (
	ErrCatalogNotLoaded = errors.New("课程目录尚未加载")
	ErrLectureNotFound  = errors.New("课程不存在")
)

const defaultPageSize = 50

// ── LectureService 接口 ──────────────────────────────────────
//
// 设计说明：
//   - 数据库是目录的权威来源；内存索引（catalog.Holder）在启动与每次导入后整体重建
//   - 导入采用全量替换，在单个事务中完成，失败时旧目录保持不变
//   - 查询全部走内存索引，不访问数据库
// ─────────────────────────────────────────────────────────────

// LectureService 课程目录业务接口
type LectureService interface {
	// Bootstrap 数据库为空且配置了目录文件时先导入，然后加载内存索引
	Bootstrap(ctx context.Context, path string, autoImport bool) (int, error)
	// Reload 从数据库重建内存索引
	Reload(ctx context.Context) (int, error)
	// Import 导入目录文件并替换现有目录
	Import(ctx context.Context, filename string, r io.Reader) (*dto.ImportCatalogResponse, error)
	// Search 按关键词分页搜索
	Search(ctx context.Context, q *dto.LectureSearchQuery) ([]dto.LectureResponse, int64, error)
	// Get 按 ID 查询
	Get(ctx context.Context, id string) (*dto.LectureResponse, error)
}

type lectureService struct {
	repo     *repository.Repository
	catalogs *catalog.Holder
	logger   *zap.Logger
}

// NewLectureService 创建 LectureService 实例
func NewLectureService(repo *repository.Repository, catalogs *catalog.Holder, logger *zap.Logger) LectureService {
	return &lectureService{repo: repo, catalogs: catalogs, logger: logger}
}

func (s *lectureService) Bootstrap(ctx context.Context, path string, autoImport bool) (int, error) {
	if autoImport && path != "" {
		n, err := s.repo.Lecture.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("统计课程数失败: %w", err)
		}
		if n == 0 {
			f, err := os.Open(path)
			if err != nil {
				return 0, fmt.Errorf("打开课程目录文件失败: %w", err)
			}
			defer f.Close()
			if _, err := s.Import(ctx, filepath.Base(path), f); err != nil {
				return 0, err
			}
		}
	}
	return s.Reload(ctx)
}

func (s *lectureService) Reload(ctx context.Context) (int, error) {
	lectures, err := s.repo.Lecture.List(ctx)
	if err != nil {
		s.logger.Error("加载课程目录失败", zap.Error(err))
		return 0, err
	}
	c := catalog.New(lectures)
	s.catalogs.Replace(c)
	s.logger.Info("课程目录已加载", zap.Int("lectures", c.Len()))
	return c.Len(), nil
}

func (s *lectureService) Import(ctx context.Context, filename string, r io.Reader) (*dto.ImportCatalogResponse, error) {
	lectures, err := catalog.Import(filename, r)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Lecture.ReplaceAll(ctx, lectures); err != nil {
		s.logger.Error("写入课程目录失败", zap.String("filename", filename), zap.Error(err))
		return nil, err
	}
	s.catalogs.Replace(catalog.New(lectures))

	s.logger.Info("课程目录导入完成",
		zap.String("filename", filename),
		zap.Int("lectures", len(lectures)),
	)
	return &dto.ImportCatalogResponse{ImportedCount: len(lectures), Filename: filename}, nil
}

func (s *lectureService) Search(_ context.Context, q *dto.LectureSearchQuery) ([]dto.LectureResponse, int64, error) {
	c := s.catalogs.Load()
	if c.Len() == 0 {
		return nil, 0, ErrCatalogNotLoaded
	}

	page, size := q.Page, q.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}

	matches := c.Match(q.Q)
	total := int64(len(matches))
	start := (page - 1) * size
	if start >= len(matches) {
		return []dto.LectureResponse{}, total, nil
	}
	end := min(start+size, len(matches))
	return dto.NewLectureResponses(matches[start:end]), total, nil
}

func (s *lectureService) Get(_ context.Context, id string) (*dto.LectureResponse, error) {
	l, ok := s.catalogs.Load().Get(id)
	if !ok {
		return nil, ErrLectureNotFound
	}
	resp := dto.NewLectureResponse(l)
	return &resp, nil
}
