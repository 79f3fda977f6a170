package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/service"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/response"
)

// GridHandler 课表网格模块 HTTP 处理器
type GridHandler struct {
	gridSvc service.GridService
}

// NewGridHandler 创建 GridHandler
func NewGridHandler(gridSvc service.GridService) *GridHandler {
	return &GridHandler{gridSvc: gridSvc}
}

// GetGrid 获取课表网格
// GET /api/v1/selection/grid?view=selected|optimized
func (h *GridHandler) GetGrid(c *gin.Context) {
	var q dto.GridQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 31001, "无效的课表视图")
		return
	}

	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	grid, err := h.gridSvc.Grid(c.Request.Context(), sessionID, q.View)
	if err != nil {
		h.handleGridError(c, err)
		return
	}

	response.OK(c, grid)
}

// CheckOverlap 检测两个时间字符串是否冲突
// POST /api/v1/timetable/check
func (h *GridHandler) CheckOverlap(c *gin.Context) {
	var req dto.CheckOverlapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	response.OK(c, h.gridSvc.Check(&req))
}

func (h *GridHandler) handleGridError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGridInvalidView):
		response.BadRequest(c, 31001, "无效的课表视图")
	default:
		response.InternalError(c)
	}
}
