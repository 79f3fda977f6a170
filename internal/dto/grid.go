package dto

import "github.com/142spp/qi4u-in-pnu-team8/internal/timetable"

// ── 课表网格 ──

// 网格视图
const (
	ViewSelected  = "selected"
	ViewOptimized = "optimized"
)

// GridQuery 网格查询参数
type GridQuery struct {
	View string `form:"view" binding:"omitempty,oneof=selected optimized"`
}

// GridBlock 单个渲染块
type GridBlock struct {
	LectureIndex   int     `json:"lecture_index"`
	LectureID      string  `json:"lecture_id"`
	Name           string  `json:"name"`
	Professor      string  `json:"professor"`
	DayIndex       int     `json:"day_index"`
	Day            string  `json:"day"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	TopFraction    float64 `json:"top_fraction"`
	HeightFraction float64 `json:"height_fraction"`
	TopPx          float64 `json:"top_px"`
	HeightPx       float64 `json:"height_px"`
}

// GridGap 同一天相邻两门课之间的空档
type GridGap struct {
	Day         string `json:"day"`
	FromLecture string `json:"from_lecture_id"`
	ToLecture   string `json:"to_lecture_id"`
	Minutes     int    `json:"minutes"`
}

// GridResponse 网格响应
type GridResponse struct {
	View         string           `json:"view"`
	Window       timetable.Window `json:"window"`
	HourHeight   int              `json:"hour_height"`
	Days         []string         `json:"days"`
	Blocks       []GridBlock      `json:"blocks"`
	Gaps         []GridGap        `json:"gaps"`
	LectureIDs   []string         `json:"lecture_ids"`
	TotalCredits float64          `json:"total_credits"`
}

// CheckOverlapRequest 两个时间字符串的冲突检测请求
type CheckOverlapRequest struct {
	A string `json:"a" binding:"required,max=500"`
	B string `json:"b" binding:"required,max=500"`
}

// CheckOverlapResponse 冲突检测结果
type CheckOverlapResponse struct {
	Overlaps   bool                     `json:"overlaps"`
	GapMinutes int                      `json:"gap_minutes"`
	AIntervals []timetable.TimeInterval `json:"a_intervals"`
	BIntervals []timetable.TimeInterval `json:"b_intervals"`
}
