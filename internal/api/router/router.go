package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/api/handler"
	"github.com/142spp/qi4u-in-pnu-team8/internal/api/middleware"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/redis"
)

// 目录导入属于重操作，单独限流
const (
	importRateLimit  = 5
	importRateWindow = 10 * time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流中间件降级放行
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	var limiter middleware.Limiter
	if rdb != nil {
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Session())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 课程目录模块
		lectures := v1.Group("/lectures")
		{
			lectures.GET("", h.Lecture.SearchLectures)
			lectures.GET("/:id", h.Lecture.GetLecture)
			lectures.POST("/import", middleware.RateLimit(limiter, importRateLimit, importRateWindow), h.Lecture.ImportCatalog)
		}

		// 选课模块（按 X-Session-ID 区分会话）
		selection := v1.Group("/selection")
		{
			selection.GET("", h.Selection.GetSelection)
			selection.DELETE("", h.Selection.Clear)
			selection.POST("/toggle", h.Selection.Toggle)
			selection.PUT("/target-credits", h.Selection.SetTargetCredits)
			selection.PUT("/alternative", h.Selection.ChooseAlternative)
			selection.GET("/grid", h.Grid.GetGrid)
			selection.GET("/export.xlsx", h.Export.ExportXLSX)
			selection.GET("/export.ics", h.Export.ExportICS)
		}

		// 时间字符串工具
		v1.POST("/timetable/check", h.Grid.CheckOverlap)

		// 优化任务模块（提交限流在 Service 层按会话执行）
		optimizations := v1.Group("/optimizations")
		{
			optimizations.POST("", h.Optimization.Submit)
			optimizations.GET("/:task_id", h.Optimization.GetTask)
			optimizations.DELETE("/:task_id", h.Optimization.CancelTask)
		}
	}

	return r
}
