package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/service"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/response"
)

// OptimizationHandler 优化任务模块 HTTP 处理器
type OptimizationHandler struct {
	optimizationSvc service.OptimizationService
}

// NewOptimizationHandler 创建 OptimizationHandler
func NewOptimizationHandler(optimizationSvc service.OptimizationService) *OptimizationHandler {
	return &OptimizationHandler{optimizationSvc: optimizationSvc}
}

// Submit 提交优化任务（请求体可省略）
// POST /api/v1/optimizations
func (h *OptimizationHandler) Submit(c *gin.Context) {
	var req dto.OptimizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	task, err := h.optimizationSvc.Submit(c.Request.Context(), sessionID, &req)
	if err != nil {
		h.handleOptimizationError(c, err)
		return
	}

	response.Accepted(c, task)
}

// GetTask 查询优化任务状态
// GET /api/v1/optimizations/:task_id
func (h *OptimizationHandler) GetTask(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	task, err := h.optimizationSvc.Get(c.Request.Context(), sessionID, c.Param("task_id"))
	if err != nil {
		h.handleOptimizationError(c, err)
		return
	}

	response.OK(c, task)
}

// CancelTask 放弃轮询优化任务
// DELETE /api/v1/optimizations/:task_id
func (h *OptimizationHandler) CancelTask(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	task, err := h.optimizationSvc.Cancel(c.Request.Context(), sessionID, c.Param("task_id"))
	if err != nil {
		h.handleOptimizationError(c, err)
		return
	}

	response.OK(c, task)
}

func (h *OptimizationHandler) handleOptimizationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOptimizeInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 40001, "优化参数无效", err.Error())
	case errors.Is(err, service.ErrOptimizeRateLimited):
		response.TooManyRequests(c, 40002, "优化请求过于频繁，请稍后再试")
	case errors.Is(err, service.ErrSelectionEmpty):
		response.BadRequest(c, 40003, "尚未选择任何课程")
	case errors.Is(err, service.ErrOptimizerUnavailable):
		response.BadGateway(c, 40004, "远程优化服务不可用")
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 40005, "优化任务不存在")
	case errors.Is(err, service.ErrTaskAlreadyFinished):
		response.Conflict(c, 40006, "优化任务已结束，无法取消")
	default:
		response.InternalError(c)
	}
}
