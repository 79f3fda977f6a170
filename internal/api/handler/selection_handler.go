package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/planner"
	"github.com/142spp/qi4u-in-pnu-team8/internal/service"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/response"
)

// SelectionHandler 选课模块 HTTP 处理器
type SelectionHandler struct {
	selectionSvc service.SelectionService
}

// NewSelectionHandler 创建 SelectionHandler
func NewSelectionHandler(selectionSvc service.SelectionService) *SelectionHandler {
	return &SelectionHandler{selectionSvc: selectionSvc}
}

// GetSelection 获取当前会话的选课状态
// GET /api/v1/selection
func (h *SelectionHandler) GetSelection(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	sel, err := h.selectionSvc.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.handleSelectionError(c, err)
		return
	}

	response.OK(c, sel)
}

// Toggle 切换一门课程（经冲突检测）
// POST /api/v1/selection/toggle
func (h *SelectionHandler) Toggle(c *gin.Context) {
	var req dto.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	resp, err := h.selectionSvc.Toggle(c.Request.Context(), sessionID, req.LectureID)
	if err != nil {
		h.handleSelectionError(c, err)
		return
	}

	response.OK(c, resp)
}

// Clear 清空选课与优化结果
// DELETE /api/v1/selection
func (h *SelectionHandler) Clear(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	sel, err := h.selectionSvc.Clear(c.Request.Context(), sessionID)
	if err != nil {
		h.handleSelectionError(c, err)
		return
	}

	response.OK(c, sel)
}

// SetTargetCredits 设置目标学分
// PUT /api/v1/selection/target-credits
func (h *SelectionHandler) SetTargetCredits(c *gin.Context) {
	var req dto.TargetCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	sel, err := h.selectionSvc.SetTargetCredits(c.Request.Context(), sessionID, req.TargetCredits)
	if err != nil {
		h.handleSelectionError(c, err)
		return
	}

	response.OK(c, sel)
}

// ChooseAlternative 采用优化结果中的候选课表
// PUT /api/v1/selection/alternative
func (h *SelectionHandler) ChooseAlternative(c *gin.Context) {
	var req dto.ChooseAlternativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	sel, err := h.selectionSvc.ChooseAlternative(c.Request.Context(), sessionID, *req.Rank)
	if err != nil {
		h.handleSelectionError(c, err)
		return
	}

	response.OK(c, sel)
}

func (h *SelectionHandler) handleSelectionError(c *gin.Context, err error) {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		response.ErrorWithData(c, http.StatusConflict, 30001, "与已选课程时间冲突", dto.ConflictResponse{
			LectureID:            conflict.LectureID,
			ConflictingLectureID: conflict.ConflictingID,
		})
	case errors.Is(err, service.ErrLectureNotFound):
		response.NotFound(c, 30002, "课程不存在")
	case errors.Is(err, service.ErrSelectionBusy):
		response.Conflict(c, 30003, "选课状态正被并发修改，请稍后重试")
	case errors.Is(err, planner.ErrInvalidTargetCredits):
		response.BadRequest(c, 30004, "目标学分必须为正数")
	case errors.Is(err, planner.ErrNoResult):
		response.Conflict(c, 30005, "当前没有优化结果")
	case errors.Is(err, planner.ErrRankOutOfRange):
		response.BadRequest(c, 30006, "候选课表序号超出范围")
	default:
		response.InternalError(c)
	}
}
