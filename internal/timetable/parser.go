package timetable

import (
	"regexp"
	"strconv"
	"strings"
)

// ── 时间字符串解析器 ──────────────────────────────────────────
//
// 输入示例：
//   "화 16:30(75) 507-102"              开始时间 + 时长（分钟）
//   "수 13:30-16:30 밀양M03-3350"        开始时间 - 结束时间
//   "금 09:00(50)(외부), 토 14:00-17:00"  多段以逗号分隔
//
// 规则：
//   - 每段必须以星期标记开头，未知星期或不匹配时间格式的段静默跳过
//   - 每段只取第一处时间表达式，其后的教室/地点文本忽略
//   - HH、MM 必须为两位数字，缺少前导零视为格式错误
//   - 开始时间须早于 24:00，结束时间不超过 24:00，时长不得跨过午夜，越界的段同样跳过
//   - 输出顺序与输入段顺序一致
// ─────────────────────────────────────────────────────────────

// segmentSeparator 段分隔符
const segmentSeparator = ","

// timeSpecPattern 星期标记之后的时间表达式：HH:MM-HH:MM 或 HH:MM(duration)
var timeSpecPattern = regexp.MustCompile(`^\s*(\d{2}):(\d{2})(?:-(\d{2}):(\d{2})|\((\d+)\))`)

// Parse 将原始时间字符串解析为区间序列。
// 无法识别的段不视为错误；全部无法识别时返回空切片（非 nil）。
func Parse(raw string) []TimeInterval {
	intervals := make([]TimeInterval, 0, 2)
	if strings.TrimSpace(raw) == "" {
		return intervals
	}
	for _, seg := range strings.Split(raw, segmentSeparator) {
		iv, ok := parseSegment(strings.TrimSpace(seg))
		if !ok {
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals
}

// ParseBlocks 解析并投影为工作日视图（周末段被过滤）
func ParseBlocks(raw string) []ParsedTimeBlock {
	return Blocks(Parse(raw), WeekdayCount)
}

// parseSegment 解析单个段：星期标记 + 时间表达式 + 可选尾部文本
func parseSegment(seg string) (TimeInterval, bool) {
	day, rest, ok := splitDay(seg)
	if !ok {
		return TimeInterval{}, false
	}

	m := timeSpecPattern.FindStringSubmatch(rest)
	if m == nil {
		return TimeInterval{}, false
	}

	start, ok := clock(m[1], m[2])
	if !ok || start >= MinutesPerDay {
		return TimeInterval{}, false
	}
	if m[3] != "" && m[4] != "" {
		end, ok := clock(m[3], m[4])
		if !ok {
			return TimeInterval{}, false
		}
		return TimeInterval{Day: day, Start: start, End: end}, true
	}

	// 超长数字溢出或跨过午夜的时长均视为无法识别
	duration, err := strconv.Atoi(m[5])
	if err != nil || duration > MinutesPerDay-start {
		return TimeInterval{}, false
	}
	return TimeInterval{Day: day, Start: start, End: start + duration}, true
}

// splitDay 拆出段首的星期标记
func splitDay(seg string) (Day, string, bool) {
	for _, d := range Days {
		if strings.HasPrefix(seg, string(d)) {
			return d, seg[len(d):], true
		}
	}
	return "", "", false
}

// clock 将两位时、分转换为分钟数（调用方保证均为两位数字）。
// 分钟须小于 60，结果不超过 24:00
func clock(hh, mm string) (int, bool) {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if m >= 60 || h*60+m > MinutesPerDay {
		return 0, false
	}
	return h*60 + m, true
}
