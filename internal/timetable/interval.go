package timetable

import "fmt"

// ── 时间区间模型 ──────────────────────────────────────────────
//
// 职责：描述一次上课时间（星期 + 起止分钟），以及网格渲染使用的工作日视图。
//   - TimeInterval 保留星期原文（월…일），供冲突检测使用
//   - ParsedTimeBlock 使用星期下标（0=월 … 4=금），供网格投影使用
//   - 两者通过同一张星期表互相推导，不存在第二套解析逻辑
// ─────────────────────────────────────────────────────────────

// Day 星期标记（源数据使用韩文单字）
type Day string

const (
	Mon Day = "월"
	Tue Day = "화"
	Wed Day = "수"
	Thu Day = "목"
	Fri Day = "금"
	Sat Day = "토"
	Sun Day = "일"
)

// Days 星期顺序表，下标即 DayIndex
var Days = [...]Day{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// WeekdayCount 网格只渲染周一至周五
const WeekdayCount = 5

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

// Index 返回星期下标（0=월 … 6=일），未知标记返回 -1
func (d Day) Index() int {
	for i, v := range Days {
		if v == d {
			return i
		}
	}
	return -1
}

// Valid 是否为已知星期标记
func (d Day) Valid() bool { return d.Index() >= 0 }

// DayAt 按下标取星期标记，越界返回空串
func DayAt(index int) Day {
	if index < 0 || index >= len(Days) {
		return ""
	}
	return Days[index]
}

// TimeInterval 一次上课时间：星期 + 自零点起的起止分钟
type TimeInterval struct {
	Day   Day `json:"day"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Duration 区间时长（分钟）
func (t TimeInterval) Duration() int { return t.End - t.Start }

// ParsedTimeBlock 网格视图：星期下标 0..4
type ParsedTimeBlock struct {
	DayIndex     int `json:"day_index"`
	StartMinutes int `json:"start_minutes"`
	EndMinutes   int `json:"end_minutes"`
}

// Blocks 将区间转换为网格视图，仅保留下标小于 visibleDays 的星期。
// 顺序与输入一致。
func Blocks(intervals []TimeInterval, visibleDays int) []ParsedTimeBlock {
	blocks := make([]ParsedTimeBlock, 0, len(intervals))
	for _, iv := range intervals {
		idx := iv.Day.Index()
		if idx < 0 || idx >= visibleDays {
			continue
		}
		blocks = append(blocks, ParsedTimeBlock{
			DayIndex:     idx,
			StartMinutes: iv.Start,
			EndMinutes:   iv.End,
		})
	}
	return blocks
}

// FormatMinutes 将分钟数格式化为 HH:MM
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
