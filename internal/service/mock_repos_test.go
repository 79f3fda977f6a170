package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/catalog"
	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
	"github.com/142spp/qi4u-in-pnu-team8/internal/repository"
	pkgerrors "github.com/142spp/qi4u-in-pnu-team8/pkg/errors"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
)

// ── 测试数据 ──
//
// A 与 B 在周一 10:00-10:15 重叠，B 与 D 在周一 11:00-11:15 重叠；C 与其他课程均不冲突

const (
	lecA = "CB1500-001"
	lecB = "CB1600-001"
	lecC = "CB1700-001"
	lecD = "GE0001-001"
)

func testLectures() []model.Lecture {
	return []model.Lecture{
		{ID: lecA, Number: "CB1500", ClassNum: "001", Name: "자료구조", Credit: 3, TimeRoom: "월 09:00(75) 6303, 수 09:00(75) 6303", Professor: "김교수"},
		{ID: lecB, Number: "CB1600", ClassNum: "001", Name: "운영체제", Credit: 3, TimeRoom: "월 10:00(75) 6202", Professor: "이교수"},
		{ID: lecC, Number: "CB1700", ClassNum: "001", Name: "컴파일러", Credit: 3, TimeRoom: "화 13:30(75) 6304", Professor: "박교수"},
		{ID: lecD, Number: "GE0001", ClassNum: "001", Name: "글쓰기", Credit: 2, TimeRoom: "월 11:00(50), 토 10:00-11:50", Professor: "최교수"},
	}
}

func testHolder() *catalog.Holder {
	h := catalog.NewHolder()
	h.Replace(catalog.New(testLectures()))
	return h
}

func testConfig() *config.Config {
	return &config.Config{
		Optimizer: config.OptimizerConfig{
			BaseURL:          "http://optimizer.test",
			PollInterval:     5 * time.Millisecond,
			SubmitRateLimit:  5,
			SubmitRateWindow: time.Minute,
			StatusCacheTTL:   time.Hour,
		},
		Grid:    config.GridConfig{StartHour: 8, EndHour: 20, HourHeight: 60},
		Planner: config.PlannerConfig{DefaultTargetCredits: 18, SemesterStart: "2025-03-05", ToggleRetries: 3},
	}
}

// ── Mock LectureRepository ──

type mockLectureRepo struct {
	lectures   []model.Lecture
	replaceErr error
}

func (m *mockLectureRepo) ReplaceAll(_ context.Context, lectures []model.Lecture) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.lectures = append([]model.Lecture(nil), lectures...)
	return nil
}

func (m *mockLectureRepo) List(_ context.Context) ([]model.Lecture, error) {
	return append([]model.Lecture(nil), m.lectures...), nil
}

func (m *mockLectureRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.lectures)), nil
}

// ── Mock SelectionRepository ──

// mockSelectionRepo 按版本号模拟乐观锁；conflicts > 0 时接下来的 Update 依次返回 ErrOptimisticLock
type mockSelectionRepo struct {
	mu         sync.Mutex
	selections map[string]model.Selection
	conflicts  int
	updates    int
}

func newMockSelectionRepo() *mockSelectionRepo {
	return &mockSelectionRepo{selections: make(map[string]model.Selection)}
}

func (m *mockSelectionRepo) Get(_ context.Context, sessionID string) (*model.Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sel, ok := m.selections[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sel, nil
}

func (m *mockSelectionRepo) Create(_ context.Context, sel *model.Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.selections[sel.SessionID]; ok {
		return fmt.Errorf("duplicate key %s", sel.SessionID)
	}
	if sel.Version == 0 {
		sel.Version = 1
	}
	m.selections[sel.SessionID] = *sel
	return nil
}

func (m *mockSelectionRepo) Update(_ context.Context, sel *model.Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		return pkgerrors.ErrOptimisticLock
	}
	cur, ok := m.selections[sel.SessionID]
	if !ok || cur.Version != sel.Version {
		return pkgerrors.ErrOptimisticLock
	}
	sel.Version++
	m.selections[sel.SessionID] = *sel
	m.updates++
	return nil
}

// bump 模拟其他请求的一次写入
func (m *mockSelectionRepo) bump(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sel := m.selections[sessionID]
	sel.Version++
	m.selections[sessionID] = sel
}

func newTestRepo() (*repository.Repository, *mockLectureRepo, *mockSelectionRepo) {
	lectures := &mockLectureRepo{}
	selections := newMockSelectionRepo()
	return &repository.Repository{Lecture: lectures, Selection: selections}, lectures, selections
}

// ── Fake OptimizerClient ──

type fakeOptimizer struct {
	mu        sync.Mutex
	submitErr error
	submitted []*optimizer.Request
	steps     []*optimizer.TaskStatus // Status 依次返回，耗尽后重复最后一项
	calls     int
	block     chan struct{} // 非 nil 时每次 Status 先等待
}

func (f *fakeOptimizer) Submit(_ context.Context, req *optimizer.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return fmt.Sprintf("task-%d", len(f.submitted)), nil
}

func (f *fakeOptimizer) Status(ctx context.Context, taskID string) (*optimizer.TaskStatus, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.steps) == 0 {
		return &optimizer.TaskStatus{TaskID: taskID, Status: optimizer.StatusPending}, nil
	}
	i := min(f.calls, len(f.steps)-1)
	f.calls++
	st := *f.steps[i]
	st.TaskID = taskID
	return &st, nil
}

// ── Fake RateLimiter / TaskStatusCache ──

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{items: make(map[string][]byte)} }

func (f *fakeCache) CacheTaskStatus(_ context.Context, taskID string, payload []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[taskID] = append([]byte(nil), payload...)
	return nil
}

func (f *fakeCache) GetTaskStatus(_ context.Context, taskID string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[taskID]
	return b, ok, nil
}

func nopLogger() *zap.Logger { return zap.NewNop() }
