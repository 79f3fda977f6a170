package handler

import "github.com/142spp/qi4u-in-pnu-team8/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Lecture      *LectureHandler
	Selection    *SelectionHandler
	Grid         *GridHandler
	Optimization *OptimizationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Lecture:      NewLectureHandler(svc.Lecture),
		Selection:    NewSelectionHandler(svc.Selection),
		Grid:         NewGridHandler(svc.Grid),
		Optimization: NewOptimizationHandler(svc.Optimization),
		Export:       NewExportHandler(svc.Export),
	}
}
