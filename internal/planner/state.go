// Package planner 实现单个会话的选课状态容器。
//
// State 持有课程目录引用、已选课程 ID（保持插入顺序）、目标学分、
// 最近一次优化结果及其对应的课表快照。所有修改只能通过本包导出的
// 转移操作完成；任何一次成功的手动切换都会同时清除过期的优化结果。
package planner

import (
	"errors"

	"gorm.io/datatypes"

	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
	"github.com/142spp/qi4u-in-pnu-team8/internal/timetable"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
)

var (
	ErrInvalidTargetCredits = errors.New("目标学分必须为正数")
	ErrNoResult             = errors.New("当前没有优化结果")
	ErrRankOutOfRange       = errors.New("候选课表序号超出范围")
	ErrResultMissing        = errors.New("成功状态缺少优化结果")
)

// Catalog 状态容器依赖的课程目录视图
type Catalog interface {
	timetable.TimeRoomSource
	Get(id string) (model.Lecture, bool)
}

// State 单会话选课状态，非并发安全；并发写入由调用方以版本号串行化
type State struct {
	catalog       Catalog
	selected      []string
	optimized     []model.Lecture
	result        *optimizer.Result
	targetCredits float64
}

// New 创建空状态
func New(catalog Catalog, targetCredits float64) *State {
	return &State{
		catalog:       catalog,
		selected:      []string{},
		optimized:     []model.Lecture{},
		targetCredits: targetCredits,
	}
}

// Restore 从持久化记录恢复状态
func Restore(catalog Catalog, sel *model.Selection) *State {
	s := New(catalog, sel.TargetCredits)
	s.selected = append(s.selected, sel.LectureIDs.Data()...)
	s.optimized = append(s.optimized, sel.OptimizedSchedule.Data()...)
	s.result = sel.Result.Data()
	return s
}

// WriteTo 将当前状态写回持久化记录（不修改 SessionID 与 Version）
func (s *State) WriteTo(sel *model.Selection) {
	sel.LectureIDs = datatypes.NewJSONType(s.Selected())
	sel.OptimizedSchedule = datatypes.NewJSONType(s.Optimized())
	sel.Result = datatypes.NewJSONType(s.result)
	sel.TargetCredits = s.targetCredits
}

// ── 转移操作 ──

// LoadCatalog 替换课程目录；已选 ID 保持不变
func (s *State) LoadCatalog(catalog Catalog) {
	s.catalog = catalog
}

// Toggle 经选课守卫切换一门课程。
// 集合发生变化时清除优化结果；被拒绝或目标未知时状态不变。
func (s *State) Toggle(lectureID string) timetable.ToggleResult {
	res := timetable.AttemptToggle(s.selected, s.catalog, lectureID)
	if res.Accepted() {
		s.selected = res.Selection
		s.invalidateResult()
	}
	return res
}

// Clear 清空选课与优化结果，返回是否有变化
func (s *State) Clear() bool {
	changed := len(s.selected) > 0 || len(s.optimized) > 0 || s.result != nil
	s.selected = []string{}
	s.invalidateResult()
	return changed
}

// SetOptimizedSchedule 以外部计算的课表整体替换选中集合，不经过守卫
func (s *State) SetOptimizedSchedule(lectures []model.Lecture) {
	ids := make([]string, 0, len(lectures))
	for _, l := range lectures {
		ids = append(ids, l.ID)
	}
	s.selected = ids
	s.optimized = append([]model.Lecture{}, lectures...)
}

// SetResult 记录优化结果并以最优课表替换选中集合
func (s *State) SetResult(r *optimizer.Result) {
	s.result = r
	s.SetOptimizedSchedule(s.resolve(r.Schedule))
}

// ChooseAlternative 以第 rank 个候选课表替换选中集合，优化结果保留
// rank 0 为最优课表；存在 top_schedules 时按其下标选择
func (s *State) ChooseAlternative(rank int) error {
	if s.result == nil {
		return ErrNoResult
	}
	if len(s.result.TopSchedules) == 0 {
		if rank != 0 {
			return ErrRankOutOfRange
		}
		s.SetOptimizedSchedule(s.resolve(s.result.Schedule))
		return nil
	}
	if rank < 0 || rank >= len(s.result.TopSchedules) {
		return ErrRankOutOfRange
	}
	s.SetOptimizedSchedule(s.resolve(s.result.TopSchedules[rank].Schedule))
	return nil
}

// SetTargetCredits 设置目标学分
func (s *State) SetTargetCredits(credits float64) error {
	if credits <= 0 {
		return ErrInvalidTargetCredits
	}
	s.targetCredits = credits
	return nil
}

// ApplyTaskStatus 应用远程任务的终态观测，返回状态是否被修改。
// SUCCESS 时应用结果；FAILURE 与非终态不修改状态。
func (s *State) ApplyTaskStatus(st optimizer.TaskStatus) (bool, error) {
	if st.Status != optimizer.StatusSuccess {
		return false, nil
	}
	if st.Result == nil {
		return false, ErrResultMissing
	}
	s.SetResult(st.Result)
	return true, nil
}

// ── 只读访问 ──

// Selected 已选课程 ID 副本（插入顺序）
func (s *State) Selected() []string {
	return append([]string{}, s.selected...)
}

// SelectedLectures 已选课程；目录中已不存在的 ID 被跳过
func (s *State) SelectedLectures() []model.Lecture {
	out := make([]model.Lecture, 0, len(s.selected))
	for _, id := range s.selected {
		if l, ok := s.catalog.Get(id); ok {
			out = append(out, l)
		}
	}
	return out
}

// Optimized 优化课表快照副本
func (s *State) Optimized() []model.Lecture {
	return append([]model.Lecture{}, s.optimized...)
}

// Result 最近一次优化结果，可能为 nil
func (s *State) Result() *optimizer.Result { return s.result }

// TargetCredits 目标学分
func (s *State) TargetCredits() float64 { return s.targetCredits }

// TotalCredits 已选课程学分合计
func (s *State) TotalCredits() float64 {
	var total float64
	for _, l := range s.SelectedLectures() {
		total += l.Credit
	}
	return total
}

// Empty 是否未选任何课程
func (s *State) Empty() bool { return len(s.selected) == 0 }

func (s *State) invalidateResult() {
	s.result = nil
	s.optimized = []model.Lecture{}
}

// resolve 优先使用目录中的课程记录，目录缺失时保留远端返回的字段
func (s *State) resolve(remote []optimizer.Lecture) []model.Lecture {
	out := make([]model.Lecture, 0, len(remote))
	for _, r := range remote {
		if l, ok := s.catalog.Get(r.ID); ok {
			out = append(out, l)
			continue
		}
		out = append(out, model.Lecture{
			ID:        r.ID,
			Number:    r.Number,
			ClassNum:  r.ClassNum,
			Name:      r.Name,
			Credit:    r.Credit,
			TimeRoom:  r.TimeRoom,
			Professor: r.Professor,
			Category:  r.Category,
		})
	}
	return out
}
