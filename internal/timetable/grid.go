package timetable

import "fmt"

// ── 网格投影 ──────────────────────────────────────────────────
//
// 将课程列表投影为周一至周五的网格几何：
//   - 列 = 星期下标，纵向偏移/高度 = 时间跨度占可视窗口的比例
//   - 开始时间早于窗口起点的区间整体丢弃（不裁剪显示）
//   - 超出窗口终点的区间不裁剪，允许溢出可视区域
//   - 输出顺序：课程顺序优先，其次为课程内的段顺序
//   - 同列重叠的块直接叠放，不做避让布局
// ─────────────────────────────────────────────────────────────

// DefaultWindow 默认可视窗口 08:00–20:00
var DefaultWindow = Window{StartHour: 8, EndHour: 20}

// DefaultHourHeight 默认每小时像素高度
const DefaultHourHeight = 60

// Window 可视时间窗口（整点）
type Window struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Validate 校验窗口范围
func (w Window) Validate() error {
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("无效的可视窗口 %d-%d", w.StartHour, w.EndHour)
	}
	return nil
}

// StartMinutes 窗口起点（分钟）
func (w Window) StartMinutes() int { return w.StartHour * 60 }

// TotalMinutes 窗口总分钟数
func (w Window) TotalMinutes() int { return (w.EndHour - w.StartHour) * 60 }

// Hours 窗口内的小时数
func (w Window) Hours() int { return w.EndHour - w.StartHour }

// RenderBlock 单个渲染块
type RenderBlock struct {
	LectureIndex   int     `json:"lecture_index"`
	DayIndex       int     `json:"day_index"`
	StartMinutes   int     `json:"start_minutes"`
	EndMinutes     int     `json:"end_minutes"`
	TopFraction    float64 `json:"top_fraction"`
	HeightFraction float64 `json:"height_fraction"`
}

// Pixels 按每小时像素高度换算绝对位置
func (b RenderBlock) Pixels(hourHeight float64, w Window) (top, height float64) {
	hours := float64(w.Hours())
	return b.TopFraction * hours * hourHeight, b.HeightFraction * hours * hourHeight
}

// Project 将课程时间字符串（按课程顺序）投影为渲染块
func Project(timeRooms []string, w Window) []RenderBlock {
	total := float64(w.TotalMinutes())
	origin := w.StartMinutes()

	blocks := make([]RenderBlock, 0, len(timeRooms))
	if total <= 0 {
		return blocks
	}
	for i, raw := range timeRooms {
		for _, tb := range ParseBlocks(raw) {
			if tb.StartMinutes < origin {
				continue
			}
			blocks = append(blocks, RenderBlock{
				LectureIndex:   i,
				DayIndex:       tb.DayIndex,
				StartMinutes:   tb.StartMinutes,
				EndMinutes:     tb.EndMinutes,
				TopFraction:    float64(tb.StartMinutes-origin) / total,
				HeightFraction: float64(tb.EndMinutes-tb.StartMinutes) / total,
			})
		}
	}
	return blocks
}
