package dto

import (
	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
	"github.com/142spp/qi4u-in-pnu-team8/internal/timetable"
)

// ── 课程目录 ──

// LectureSearchQuery 课程搜索参数
type LectureSearchQuery struct {
	Q        string `form:"q"         binding:"omitempty,max=100"`
	Page     int    `form:"page"      binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// LectureResponse 课程信息，附带解析后的时间区间
type LectureResponse struct {
	ID        string                   `json:"id"`
	Number    string                   `json:"number"`
	ClassNum  string                   `json:"class_num"`
	Name      string                   `json:"name"`
	Credit    float64                  `json:"credit"`
	TimeRoom  string                   `json:"time_room"`
	Professor string                   `json:"professor"`
	Category  string                   `json:"category"`
	Intervals []timetable.TimeInterval `json:"intervals"`
}

// NewLectureResponse 由模型构建响应
func NewLectureResponse(l model.Lecture) LectureResponse {
	return LectureResponse{
		ID:        l.ID,
		Number:    l.Number,
		ClassNum:  l.ClassNum,
		Name:      l.Name,
		Credit:    l.Credit,
		TimeRoom:  l.TimeRoom,
		Professor: l.Professor,
		Category:  l.Category,
		Intervals: timetable.Parse(l.TimeRoom),
	}
}

// NewLectureResponses 批量构建响应
func NewLectureResponses(lectures []model.Lecture) []LectureResponse {
	out := make([]LectureResponse, 0, len(lectures))
	for _, l := range lectures {
		out = append(out, NewLectureResponse(l))
	}
	return out
}

// ImportCatalogResponse 目录导入结果
type ImportCatalogResponse struct {
	ImportedCount int    `json:"imported_count"`
	Filename      string `json:"filename"`
}
