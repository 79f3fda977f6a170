package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/142spp/qi4u-in-pnu-team8/internal/catalog"
	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/service"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/response"
)

const defaultLecturePageSize = 50

// LectureHandler 课程目录模块 HTTP 处理器
type LectureHandler struct {
	lectureSvc service.LectureService
}

// NewLectureHandler 创建 LectureHandler
func NewLectureHandler(lectureSvc service.LectureService) *LectureHandler {
	return &LectureHandler{lectureSvc: lectureSvc}
}

// SearchLectures 搜索课程
// GET /api/v1/lectures?q=&page=&page_size=
func (h *LectureHandler) SearchLectures(c *gin.Context) {
	var q dto.LectureSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultLecturePageSize
	}

	list, total, err := h.lectureSvc.Search(c.Request.Context(), &q)
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.OKPage(c, list, total, q.Page, q.PageSize)
}

// GetLecture 获取课程详情
// GET /api/v1/lectures/:id
func (h *LectureHandler) GetLecture(c *gin.Context) {
	lecture, err := h.lectureSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.OK(c, lecture)
}

// ImportCatalog 导入课程目录（multipart 字段 file，.csv 或 .xlsx）
// POST /api/v1/lectures/import
func (h *LectureHandler) ImportCatalog(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 20000, "请上传课程目录文件")
		return
	}
	defer file.Close()

	resp, err := h.lectureSvc.Import(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.Created(c, resp)
}

func (h *LectureHandler) handleLectureError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCatalogNotLoaded):
		response.Error(c, http.StatusServiceUnavailable, 20001, "课程目录尚未加载")
	case errors.Is(err, service.ErrLectureNotFound):
		response.NotFound(c, 20002, "课程不存在")
	case errors.Is(err, catalog.ErrCatalogFormat):
		response.BadRequest(c, 20003, "仅支持 .csv 或 .xlsx 格式的课程目录")
	case errors.Is(err, catalog.ErrCatalogBadHeader):
		response.BadRequest(c, 20004, "课程目录表头缺少必要列")
	case errors.Is(err, catalog.ErrCatalogEmpty):
		response.BadRequest(c, 20005, "课程目录文件中没有有效课程")
	case errors.Is(err, catalog.ErrCatalogTooManyRows):
		response.BadRequest(c, 20006, "课程目录行数超过上限")
	default:
		response.InternalError(c)
	}
}
