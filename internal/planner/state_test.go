package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
	"github.com/142spp/qi4u-in-pnu-team8/internal/timetable"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
)

type fakeCatalog map[string]model.Lecture

func (f fakeCatalog) Get(id string) (model.Lecture, bool) {
	l, ok := f[id]
	return l, ok
}

func (f fakeCatalog) TimeRoom(id string) (string, bool) {
	l, ok := f[id]
	return l.TimeRoom, ok
}

func newCatalog() fakeCatalog {
	return fakeCatalog{
		"A": {ID: "A", Name: "자료구조", Credit: 3, TimeRoom: "월 09:00(50) 301"},
		"B": {ID: "B", Name: "운영체제", Credit: 3, TimeRoom: "월 09:00-09:30"},
		"C": {ID: "C", Name: "선형대수", Credit: 2, TimeRoom: "화 13:00(75)"},
	}
}

func sampleResult() *optimizer.Result {
	return &optimizer.Result{
		Schedule:     []optimizer.Lecture{{ID: "A"}, {ID: "B"}},
		Energy:       -120,
		TotalCredits: 6,
		TopSchedules: []optimizer.RankedSchedule{
			{Schedule: []optimizer.Lecture{{ID: "A"}, {ID: "B"}}, Energy: -120},
			{Schedule: []optimizer.Lecture{{ID: "C"}, {ID: "X", Name: "외부", Credit: 1}}, Energy: -80},
		},
	}
}

func TestState_ToggleConflictLeavesStateUntouched(t *testing.T) {
	s := New(newCatalog(), 18)

	if res := s.Toggle("A"); res.Outcome != timetable.ToggleAdded {
		t.Fatalf("期望 added, 实际 %s", res.Outcome)
	}
	res := s.Toggle("B")
	if res.Outcome != timetable.ToggleRejected || res.ConflictingID != "A" {
		t.Fatalf("期望与 A 冲突, 实际 %s/%q", res.Outcome, res.ConflictingID)
	}
	if got := s.Selected(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("期望选中 [A], 实际 %v", got)
	}
}

func TestState_ResultLifecycleOnToggle(t *testing.T) {
	s := New(newCatalog(), 18)
	s.SetResult(sampleResult())

	// C 与最优课表无冲突，加入后旧结果失效
	s.Toggle("C")
	if s.Result() != nil {
		t.Fatal("成功切换后应清除优化结果")
	}

	s.SetResult(sampleResult())
	if res := s.Toggle("Z"); res.Outcome != timetable.ToggleUnknown {
		t.Fatalf("期望 unknown, 实际 %s", res.Outcome)
	}
	if s.Result() == nil {
		t.Error("未知课程不应清除优化结果")
	}
}

func TestState_ToggleTwiceRemovesAndClearsResult(t *testing.T) {
	s := New(newCatalog(), 18)
	s.Toggle("A")
	s.SetResult(&optimizer.Result{Schedule: []optimizer.Lecture{{ID: "A"}}})

	res := s.Toggle("A")
	if res.Outcome != timetable.ToggleRemoved {
		t.Fatalf("期望 removed, 实际 %s", res.Outcome)
	}
	if !s.Empty() {
		t.Errorf("期望空选择, 实际 %v", s.Selected())
	}
	if s.Result() != nil || len(s.Optimized()) != 0 {
		t.Error("移除后应清除优化结果与课表快照")
	}
}

func TestState_SetResultBypassesGuard(t *testing.T) {
	s := New(newCatalog(), 18)
	s.SetResult(sampleResult())

	if got := s.Selected(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("期望 [A B], 实际 %v", got)
	}
	opt := s.Optimized()
	if len(opt) != 2 || opt[0].Name != "자료구조" {
		t.Errorf("优化课表应使用目录记录, 实际 %+v", opt)
	}
	if s.TotalCredits() != 6 {
		t.Errorf("期望学分 6, 实际 %v", s.TotalCredits())
	}
}

func TestState_ChooseAlternative(t *testing.T) {
	s := New(newCatalog(), 18)
	if err := s.ChooseAlternative(0); !errors.Is(err, ErrNoResult) {
		t.Fatalf("期望 ErrNoResult, 实际 %v", err)
	}

	s.SetResult(sampleResult())
	if err := s.ChooseAlternative(1); err != nil {
		t.Fatalf("ChooseAlternative 失败: %v", err)
	}
	if got := s.Selected(); !reflect.DeepEqual(got, []string{"C", "X"}) {
		t.Errorf("期望 [C X], 实际 %v", got)
	}
	opt := s.Optimized()
	if opt[1].Name != "외부" {
		t.Errorf("目录缺失的课程应保留远端字段, 实际 %+v", opt[1])
	}
	if s.Result() == nil {
		t.Error("选择候选课表不应清除优化结果")
	}
	// 已选 X 不在目录中，学分只统计目录内课程
	if s.TotalCredits() != 2 {
		t.Errorf("期望学分 2, 实际 %v", s.TotalCredits())
	}
	if err := s.ChooseAlternative(2); !errors.Is(err, ErrRankOutOfRange) {
		t.Errorf("期望 ErrRankOutOfRange, 实际 %v", err)
	}
}

func TestState_Clear(t *testing.T) {
	s := New(newCatalog(), 18)
	if s.Clear() {
		t.Error("空状态清除不应报告变化")
	}
	s.Toggle("A")
	s.SetResult(sampleResult())
	if !s.Clear() {
		t.Error("非空状态清除应报告变化")
	}
	if !s.Empty() || s.Result() != nil || len(s.Optimized()) != 0 {
		t.Error("清除后应无选课、无优化结果")
	}
}

func TestState_SetTargetCredits(t *testing.T) {
	s := New(newCatalog(), 18)
	if err := s.SetTargetCredits(0); !errors.Is(err, ErrInvalidTargetCredits) {
		t.Errorf("期望 ErrInvalidTargetCredits, 实际 %v", err)
	}
	if err := s.SetTargetCredits(21); err != nil || s.TargetCredits() != 21 {
		t.Errorf("设置目标学分失败: %v / %v", err, s.TargetCredits())
	}
}

func TestState_ApplyTaskStatus(t *testing.T) {
	s := New(newCatalog(), 18)
	s.Toggle("C")

	changed, err := s.ApplyTaskStatus(optimizer.TaskStatus{Status: optimizer.StatusFailure, Error: "timeout"})
	if changed || err != nil {
		t.Fatalf("失败状态不应修改选课: %v %v", changed, err)
	}
	if got := s.Selected(); !reflect.DeepEqual(got, []string{"C"}) {
		t.Errorf("失败后选课应不变, 实际 %v", got)
	}

	if _, err := s.ApplyTaskStatus(optimizer.TaskStatus{Status: optimizer.StatusSuccess}); !errors.Is(err, ErrResultMissing) {
		t.Errorf("期望 ErrResultMissing, 实际 %v", err)
	}

	changed, err = s.ApplyTaskStatus(optimizer.TaskStatus{Status: optimizer.StatusSuccess, Result: sampleResult()})
	if !changed || err != nil {
		t.Fatalf("成功状态应修改选课: %v %v", changed, err)
	}
	if got := s.Selected(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("期望 [A B], 实际 %v", got)
	}
}

func TestState_RestoreWriteToRoundTrip(t *testing.T) {
	cat := newCatalog()
	s := New(cat, 18)
	s.Toggle("A")
	s.Toggle("C")
	_ = s.SetTargetCredits(15)

	sel := model.NewSelection("sess", 18)
	sel.Version = 4
	s.WriteTo(sel)
	if sel.Version != 4 || sel.SessionID != "sess" {
		t.Error("WriteTo 不应修改会话与版本")
	}

	r := Restore(cat, sel)
	if !reflect.DeepEqual(r.Selected(), []string{"A", "C"}) || r.TargetCredits() != 15 {
		t.Errorf("恢复后状态不一致: %v / %v", r.Selected(), r.TargetCredits())
	}
	if r.Result() != nil {
		t.Error("恢复后不应出现优化结果")
	}
}

func TestState_LoadCatalog(t *testing.T) {
	s := New(fakeCatalog{}, 18)
	if res := s.Toggle("A"); res.Outcome != timetable.ToggleUnknown {
		t.Fatalf("空目录期望 unknown, 实际 %s", res.Outcome)
	}
	s.LoadCatalog(newCatalog())
	if res := s.Toggle("A"); res.Outcome != timetable.ToggleAdded {
		t.Errorf("加载目录后期望 added, 实际 %s", res.Outcome)
	}
}
