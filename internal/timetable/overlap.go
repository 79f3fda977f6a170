package timetable

import "math"

// Overlaps 判断两组区间在同一天内是否存在重叠。
// 使用严格不等式 max(start) < min(end)：首尾相接不算重叠，零长度区间永不重叠。
func Overlaps(a, b []TimeInterval) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Day != y.Day {
				continue
			}
			if max(x.Start, y.Start) < min(x.End, y.End) {
				return true
			}
		}
	}
	return false
}

// Gap 计算两组区间在同一天内的最小间隔（分钟）。
// 仅统计互不重叠的同日区间对；没有这样的区间对时返回 0。
func Gap(a, b []TimeInterval) int {
	best := math.MaxInt
	found := false
	for _, x := range a {
		for _, y := range b {
			if x.Day != y.Day {
				continue
			}
			var gap int
			switch {
			case x.End <= y.Start:
				gap = y.Start - x.End
			case y.End <= x.Start:
				gap = x.Start - y.End
			default:
				continue
			}
			found = true
			best = min(best, gap)
		}
	}
	if !found {
		return 0
	}
	return best
}
