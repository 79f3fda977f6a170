package timetable

// ── 选课守卫 ──────────────────────────────────────────────────
//
// 用户切换选课的唯一入口：
//   - 已选中 → 移除，永不阻止
//   - 未选中 → 按选中集合的插入顺序逐个做冲突检测，遇到第一个冲突即拒绝
//   - 无冲突 → 追加到集合末尾
// 守卫不修改入参切片，成功时返回新切片。
// ─────────────────────────────────────────────────────────────

// TimeRoomSource 按课程 ID 查询原始时间字符串
type TimeRoomSource interface {
	TimeRoom(id string) (string, bool)
}

// ToggleOutcome 切换结果类型
type ToggleOutcome int

const (
	// ToggleAdded 已加入选中集合
	ToggleAdded ToggleOutcome = iota + 1
	// ToggleRemoved 已从选中集合移除
	ToggleRemoved
	// ToggleRejected 与已选课程冲突，未做任何修改
	ToggleRejected
	// ToggleUnknown 目标课程不在目录中，未做任何修改
	ToggleUnknown
)

func (o ToggleOutcome) String() string {
	switch o {
	case ToggleAdded:
		return "added"
	case ToggleRemoved:
		return "removed"
	case ToggleRejected:
		return "rejected"
	case ToggleUnknown:
		return "unknown"
	}
	return "invalid"
}

// ToggleResult 切换结果
type ToggleResult struct {
	Outcome       ToggleOutcome
	Selection     []string // 成功时为新集合；失败时为原集合副本
	ConflictingID string   // 仅 ToggleRejected 时有值
}

// Accepted 集合是否发生了变化
func (r ToggleResult) Accepted() bool {
	return r.Outcome == ToggleAdded || r.Outcome == ToggleRemoved
}

// AttemptToggle 对选中集合执行一次带冲突检测的切换
func AttemptToggle(selection []string, source TimeRoomSource, targetID string) ToggleResult {
	for i, id := range selection {
		if id == targetID {
			next := make([]string, 0, len(selection)-1)
			next = append(next, selection[:i]...)
			next = append(next, selection[i+1:]...)
			return ToggleResult{Outcome: ToggleRemoved, Selection: next}
		}
	}

	unchanged := append([]string(nil), selection...)

	raw, ok := source.TimeRoom(targetID)
	if !ok {
		return ToggleResult{Outcome: ToggleUnknown, Selection: unchanged}
	}
	target := Parse(raw)

	for _, id := range selection {
		// 目录中已不存在的已选课程没有可比较的时间，视为无冲突
		other, ok := source.TimeRoom(id)
		if !ok {
			continue
		}
		if Overlaps(target, Parse(other)) {
			return ToggleResult{Outcome: ToggleRejected, Selection: unchanged, ConflictingID: id}
		}
	}

	next := make([]string, 0, len(selection)+1)
	next = append(next, selection...)
	next = append(next, targetID)
	return ToggleResult{Outcome: ToggleAdded, Selection: next}
}
