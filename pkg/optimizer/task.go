package optimizer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ── 任务句柄 ──────────────────────────────────────────────────
//
// 远程任务在本地的显式状态机：
//   Submitted → Pending → Processing → Succeeded | Failed
//   任意非终态 → Cancelled（本地放弃轮询）
// 状态只前进不后退；进入终态后忽略后续观测。
// ─────────────────────────────────────────────────────────────

// State 本地任务状态
type State int

const (
	StateSubmitted State = iota
	StatePending
	StateProcessing
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "SUBMITTED"
	case StatePending:
		return "PENDING"
	case StateProcessing:
		return "PROCESSING"
	case StateSucceeded:
		return "SUCCESS"
	case StateFailed:
		return "FAILURE"
	case StateCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// Terminal 是否为终态
func (s State) Terminal() bool { return s >= StateSucceeded }

// StateOf 将远程状态映射为本地状态
func StateOf(s Status) State {
	switch s {
	case StatusPending:
		return StatePending
	case StatusProcessing:
		return StateProcessing
	case StatusSuccess:
		return StateSucceeded
	case StatusFailure:
		return StateFailed
	}
	return StateSubmitted
}

// StatusFetcher 查询远程任务状态
type StatusFetcher interface {
	Status(ctx context.Context, taskID string) (*TaskStatus, error)
}

// Task 任务句柄，可并发读取
type Task struct {
	ID string

	mu     sync.RWMutex
	state  State
	last   TaskStatus
	update time.Time
}

// NewTask 以 Submitted 状态创建句柄
func NewTask(id string) *Task {
	return &Task{
		ID:     id,
		state:  StateSubmitted,
		last:   TaskStatus{TaskID: id, Status: StatusPending},
		update: time.Now(),
	}
}

// Snapshot 返回当前状态与最后一次观测
func (t *Task) Snapshot() (State, TaskStatus) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state, t.last
}

// State 当前状态
func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// UpdatedAt 最后一次状态变化时间
func (t *Task) UpdatedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.update
}

// Observe 记录一次远程观测，返回状态是否发生变化。
// 终态之后以及比当前更早的状态均被忽略。
func (t *Task) Observe(st TaskStatus) bool {
	next := StateOf(st.Status)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() || next < t.state {
		return false
	}
	changed := next != t.state || st.Summary != t.last.Summary
	t.state = next
	st.TaskID = t.ID
	t.last = st
	if changed {
		t.update = time.Now()
	}
	return changed
}

// Cancel 放弃轮询；已处于终态时返回 false
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return false
	}
	t.state = StateCancelled
	t.update = time.Now()
	return true
}

// PollHooks 轮询回调，均可为空
type PollHooks struct {
	OnChange func(State, TaskStatus)
	OnError  func(error)
}

// Poll 按固定间隔轮询直至终态或 ctx 取消。
// 单次查询失败不终止轮询；远端报告任务不存在时视为失败终态。
// ctx 取消时任务转为 Cancelled 并返回 ctx.Err()。
func (t *Task) Poll(ctx context.Context, fetcher StatusFetcher, interval time.Duration, hooks PollHooks) (State, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if st := t.State(); st.Terminal() {
			return st, nil
		}

		status, err := fetcher.Status(ctx, t.ID)
		switch {
		case err == nil:
			if t.Observe(*status) && hooks.OnChange != nil {
				state, last := t.Snapshot()
				hooks.OnChange(state, last)
			}
		case errors.Is(err, ErrTaskNotFound):
			if t.Observe(TaskStatus{Status: StatusFailure, Error: err.Error()}) && hooks.OnChange != nil {
				state, last := t.Snapshot()
				hooks.OnChange(state, last)
			}
		case ctx.Err() == nil && hooks.OnError != nil:
			hooks.OnError(err)
		}

		if st := t.State(); st.Terminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			t.Cancel()
			return t.State(), ctx.Err()
		case <-ticker.C:
		}
	}
}
