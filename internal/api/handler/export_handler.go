package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/service"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportXLSX 导出课表网格为 Excel
// GET /api/v1/selection/export.xlsx?view=selected|optimized
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	var q dto.GridQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 51002, "无效的课表视图")
		return
	}
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportXLSX(c.Request.Context(), sessionID, q.View)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, xlsxContentType, buf.Bytes())
}

// ExportICS 导出课表为 iCalendar
// GET /api/v1/selection/export.ics?view=selected|optimized
func (h *ExportHandler) ExportICS(c *gin.Context) {
	var q dto.GridQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 51002, "无效的课表视图")
		return
	}
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	data, filename, err := h.exportSvc.ExportICS(c.Request.Context(), sessionID, q.View)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, icsContentType, data)
}

// writeAttachment 设置下载响应头并写入内容
func writeAttachment(c *gin.Context, filename, contentType string, data []byte) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportEmpty):
		response.NotFound(c, 51001, "当前视图没有可导出的课程")
	case errors.Is(err, service.ErrGridInvalidView):
		response.BadRequest(c, 51002, "无效的课表视图")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
