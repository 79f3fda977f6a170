package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
)

// ── 优化模块业务错误 ──

var (
	ErrOptimizeInvalid      = errors.New("优化参数无效")
	ErrOptimizeRateLimited  = errors.New("优化请求过于频繁，请稍后再试")
	ErrOptimizerUnavailable = errors.New("远程优化服务不可用")
	ErrTaskNotFound         = errors.New("优化任务不存在")
	ErrTaskAlreadyFinished  = errors.New("优化任务已结束，无法取消")
)

const (
	entryRetention = time.Hour
	applyTimeout   = 10 * time.Second
	defaultPoll    = time.Second
)

// OptimizerClient 远程优化服务
type OptimizerClient interface {
	Submit(ctx context.Context, req *optimizer.Request) (string, error)
	optimizer.StatusFetcher
}

// RateLimiter 提交限流
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// TaskStatusCache 任务状态的跨进程缓存
type TaskStatusCache interface {
	CacheTaskStatus(ctx context.Context, taskID string, payload []byte, ttl time.Duration) error
	GetTaskStatus(ctx context.Context, taskID string) ([]byte, bool, error)
}

// ── OptimizationService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 提交前在本地校验：参数、空选课、限流；均不发起远程调用
//   - 每个任务一个后台 watcher，按 poll_interval 轮询直至终态或被取消
//   - 成功结果仅在选课版本与提交时一致时写回，否则标记为 stale 并保留在任务上
//   - 失败只记录在任务上，不修改选课
//   - 任务快照写入缓存，进程重启或 watcher 清理后仍可查询
// ─────────────────────────────────────────────────────────────

// OptimizationService 优化任务业务接口
type OptimizationService interface {
	Submit(ctx context.Context, sessionID string, req *dto.OptimizeRequest) (*dto.TaskResponse, error)
	Get(ctx context.Context, sessionID, taskID string) (*dto.TaskResponse, error)
	// Cancel 放弃轮询，远程任务不受影响
	Cancel(ctx context.Context, sessionID, taskID string) (*dto.TaskResponse, error)
	// Shutdown 停止全部 watcher 并等待退出
	Shutdown(ctx context.Context) error
}

type taskEntry struct {
	session     string
	lectureIDs  []string
	task        *optimizer.Task
	submittedAt time.Time
	cancel      context.CancelFunc

	mu      sync.Mutex
	applied bool
	stale   bool
}

// cachedTask 缓存载荷，附带会话 ID 用于归属校验
type cachedTask struct {
	Session string           `json:"session"`
	Task    dto.TaskResponse `json:"task"`
}

type optimizationService struct {
	cfg       *config.OptimizerConfig
	client    OptimizerClient
	selection SelectionService
	limiter   RateLimiter
	cache     TaskStatusCache
	validate  *validator.Validate
	logger    *zap.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu    sync.RWMutex
	tasks map[string]*taskEntry
}

// NewOptimizationService 创建 OptimizationService 实例
// limiter 与 cache 可为 nil；validate 为 nil 时使用 validator.New()
func NewOptimizationService(
	cfg *config.OptimizerConfig,
	client OptimizerClient,
	selection SelectionService,
	limiter RateLimiter,
	cache TaskStatusCache,
	validate *validator.Validate,
	logger *zap.Logger,
) OptimizationService {
	if validate == nil {
		validate = validator.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &optimizationService{
		cfg:        cfg,
		client:     client,
		selection:  selection,
		limiter:    limiter,
		cache:      cache,
		validate:   validate,
		logger:     logger,
		baseCtx:    ctx,
		cancelBase: cancel,
		tasks:      make(map[string]*taskEntry),
	}
}

// ════════════════════════════════════════════════════════════
// Submit
// ════════════════════════════════════════════════════════════

func (s *optimizationService) Submit(ctx context.Context, sessionID string, req *dto.OptimizeRequest) (*dto.TaskResponse, error) {
	// 1. 参数校验
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOptimizeInvalid, err)
	}

	// 2. 读取选课快照
	state, _, err := s.selection.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Empty() {
		return nil, ErrSelectionEmpty
	}
	// 3. 限流（空选课不计入窗口，Redis 出错时降级放行）
	if s.limiter != nil && s.cfg.SubmitRateLimit > 0 {
		allowed, err := s.limiter.CheckRateLimit(ctx, "rate_limit:optimize:"+sessionID, s.cfg.SubmitRateLimit, s.cfg.SubmitRateWindow)
		if err != nil {
			s.logger.Warn("限流检查失败，降级放行", zap.String("session_id", sessionID), zap.Error(err))
		} else if !allowed {
			return nil, ErrOptimizeRateLimited
		}
	}

	target := state.TargetCredits()
	if req.TargetCredits != nil {
		target = *req.TargetCredits
	}

	// 4. 远程提交
	taskID, err := s.client.Submit(ctx, &optimizer.Request{
		SelectedLectureIDs: state.Selected(),
		TargetCredits:      target,
		Weights:            req.Weights,
	})
	if err != nil {
		if errors.Is(err, optimizer.ErrEmptySelection) {
			return nil, ErrSelectionEmpty
		}
		s.logger.Error("提交优化任务失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrOptimizerUnavailable, err)
	}

	// 5. 登记并启动 watcher
	pollCtx, cancel := context.WithCancel(s.baseCtx)
	e := &taskEntry{
		session:     sessionID,
		lectureIDs:  state.Selected(),
		task:        optimizer.NewTask(taskID),
		submittedAt: time.Now(),
		cancel:      cancel,
	}

	s.mu.Lock()
	s.pruneLocked()
	s.tasks[taskID] = e
	s.mu.Unlock()

	s.persist(e)
	s.wg.Add(1)
	go s.watch(pollCtx, e)

	s.logger.Info("优化任务已登记",
		zap.String("session_id", sessionID),
		zap.String("task_id", taskID),
		zap.Int("lectures", len(e.lectureIDs)),
		zap.Float64("target_credits", target),
	)
	return toTaskResponse(e), nil
}

// watch 轮询至终态，成功时尝试写回选课
func (s *optimizationService) watch(ctx context.Context, e *taskEntry) {
	defer s.wg.Done()
	defer e.cancel()

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = defaultPoll
	}

	final, err := e.task.Poll(ctx, s.client, interval, optimizer.PollHooks{
		OnChange: func(st optimizer.State, _ optimizer.TaskStatus) {
			s.logger.Debug("优化任务状态变化", zap.String("task_id", e.task.ID), zap.String("state", st.String()))
			if !st.Terminal() {
				s.persist(e)
			}
		},
		OnError: func(err error) {
			s.logger.Warn("查询优化任务状态失败", zap.String("task_id", e.task.ID), zap.Error(err))
		},
	})
	if err != nil {
		s.logger.Info("优化任务已放弃轮询", zap.String("task_id", e.task.ID), zap.Error(err))
		s.persist(e)
		return
	}

	if final == optimizer.StateSucceeded {
		_, last := e.task.Snapshot()
		applyCtx, cancel := context.WithTimeout(context.Background(), applyTimeout)
		applied, err := s.selection.ApplyResult(applyCtx, e.session, e.lectureIDs, last)
		cancel()

		e.mu.Lock()
		e.applied = applied
		e.stale = !applied && err == nil
		e.mu.Unlock()

		if err != nil {
			s.logger.Error("写回优化结果失败", zap.String("task_id", e.task.ID), zap.Error(err))
		} else if !applied {
			s.logger.Info("选课已变化，优化结果未写回", zap.String("task_id", e.task.ID), zap.String("session_id", e.session))
		}
	}

	s.logger.Info("优化任务结束", zap.String("task_id", e.task.ID), zap.String("state", final.String()))
	s.persist(e)
}

// ════════════════════════════════════════════════════════════
// Get / Cancel
// ════════════════════════════════════════════════════════════

func (s *optimizationService) Get(ctx context.Context, sessionID, taskID string) (*dto.TaskResponse, error) {
	if e, ok := s.lookup(sessionID, taskID); ok {
		return toTaskResponse(e), nil
	}
	if s.cache == nil {
		return nil, ErrTaskNotFound
	}

	payload, ok, err := s.cache.GetTaskStatus(ctx, taskID)
	if err != nil {
		s.logger.Warn("读取任务缓存失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, ErrTaskNotFound
	}
	if !ok {
		return nil, ErrTaskNotFound
	}
	var cached cachedTask
	if err := json.Unmarshal(payload, &cached); err != nil || cached.Session != sessionID {
		return nil, ErrTaskNotFound
	}
	return &cached.Task, nil
}

func (s *optimizationService) Cancel(_ context.Context, sessionID, taskID string) (*dto.TaskResponse, error) {
	e, ok := s.lookup(sessionID, taskID)
	if !ok {
		return nil, ErrTaskNotFound
	}
	if !e.task.Cancel() {
		return nil, ErrTaskAlreadyFinished
	}
	e.cancel()
	s.persist(e)

	s.logger.Info("优化任务已取消", zap.String("task_id", taskID), zap.String("session_id", sessionID))
	return toTaskResponse(e), nil
}

func (s *optimizationService) Shutdown(ctx context.Context) error {
	s.cancelBase()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ── 辅助函数 ──

// lookup 按任务 ID 查找，会话不匹配时视为不存在
func (s *optimizationService) lookup(sessionID, taskID string) (*taskEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[taskID]
	if !ok || e.session != sessionID {
		return nil, false
	}
	return e, true
}

// pruneLocked 清理结束已久的任务；调用方持有写锁
func (s *optimizationService) pruneLocked() {
	cutoff := time.Now().Add(-entryRetention)
	for id, e := range s.tasks {
		if e.task.State().Terminal() && e.task.UpdatedAt().Before(cutoff) {
			delete(s.tasks, id)
		}
	}
}

// persist 写入任务快照缓存，失败只记录日志
func (s *optimizationService) persist(e *taskEntry) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(cachedTask{Session: e.session, Task: *toTaskResponse(e)})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()
	if err := s.cache.CacheTaskStatus(ctx, e.task.ID, payload, s.cfg.StatusCacheTTL); err != nil {
		s.logger.Warn("缓存任务状态失败", zap.String("task_id", e.task.ID), zap.Error(err))
	}
}

func toTaskResponse(e *taskEntry) *dto.TaskResponse {
	state, last := e.task.Snapshot()
	e.mu.Lock()
	applied, stale := e.applied, e.stale
	e.mu.Unlock()

	return &dto.TaskResponse{
		TaskID:      e.task.ID,
		State:       state.String(),
		Error:       last.Error,
		Summary:     last.Summary,
		Result:      last.Result,
		Applied:     applied,
		Stale:       stale,
		SubmittedAt: e.submittedAt,
		UpdatedAt:   e.task.UpdatedAt(),
	}
}
