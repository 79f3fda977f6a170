package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/catalog"
	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
	"github.com/142spp/qi4u-in-pnu-team8/internal/planner"
	"github.com/142spp/qi4u-in-pnu-team8/internal/repository"
	"github.com/142spp/qi4u-in-pnu-team8/internal/timetable"
	pkgerrors "github.com/142spp/qi4u-in-pnu-team8/pkg/errors"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
)

// ── 选课模块业务错误 ──

var (
	ErrSelectionConflict = errors.New("与已选课程时间冲突")
	ErrSelectionBusy     = errors.New("选课状态正被并发修改，请稍后重试")
	ErrSelectionEmpty    = errors.New("尚未选择任何课程")
)

// ConflictError 选课守卫拒绝时返回，errors.Is(err, ErrSelectionConflict) 为真
type ConflictError struct {
	LectureID     string
	ConflictingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("课程 %s 与已选课程 %s 时间冲突", e.LectureID, e.ConflictingID)
}

// Is 使 ConflictError 匹配 ErrSelectionConflict
func (e *ConflictError) Is(target error) bool { return target == ErrSelectionConflict }

const defaultToggleRetries = 3

// errUnchanged 转移未产生变化，跳过写入
var errUnchanged = errors.New("unchanged")

// ── SelectionService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 每个会话一条 selections 记录，首次访问时惰性创建
//   - 所有写操作均为 "读取 → planner.State 转移 → 按版本号写回"，
//     版本冲突时重新读取并重放转移，超过重试次数返回 ErrSelectionBusy。
//     守卫的冲突检测因此总是基于最新的已提交集合
//   - 优化结果写回（ApplyResult）只在已选课程集合与提交时一致时生效；
//     仅修改目标学分不影响写回，写入本身同样按版本号重试
// ─────────────────────────────────────────────────────────────

// SelectionService 选课业务接口
type SelectionService interface {
	Get(ctx context.Context, sessionID string) (*dto.SelectionResponse, error)
	Toggle(ctx context.Context, sessionID, lectureID string) (*dto.ToggleResponse, error)
	Clear(ctx context.Context, sessionID string) (*dto.SelectionResponse, error)
	SetTargetCredits(ctx context.Context, sessionID string, credits float64) (*dto.SelectionResponse, error)
	ChooseAlternative(ctx context.Context, sessionID string, rank int) (*dto.SelectionResponse, error)

	// State 读取会话状态及其版本号（只读，不创建记录）
	State(ctx context.Context, sessionID string) (*planner.State, int, error)
	// ApplyResult 当前已选课程仍与提交时的 submitted 一致时应用任务终态，返回是否已写入
	ApplyResult(ctx context.Context, sessionID string, submitted []string, st optimizer.TaskStatus) (bool, error)
}

type selectionService struct {
	cfg      *config.PlannerConfig
	repo     *repository.Repository
	catalogs *catalog.Holder
	logger   *zap.Logger
}

// NewSelectionService 创建 SelectionService 实例
func NewSelectionService(cfg *config.PlannerConfig, repo *repository.Repository, catalogs *catalog.Holder, logger *zap.Logger) SelectionService {
	return &selectionService{cfg: cfg, repo: repo, catalogs: catalogs, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 读取
// ════════════════════════════════════════════════════════════

func (s *selectionService) Get(ctx context.Context, sessionID string) (*dto.SelectionResponse, error) {
	state, version, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toSelectionResponse(sessionID, state, version), nil
}

func (s *selectionService) State(ctx context.Context, sessionID string) (*planner.State, int, error) {
	sel, err := s.repo.Selection.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return planner.New(s.catalogs.Load(), s.cfg.DefaultTargetCredits), 0, nil
		}
		s.logger.Error("查询选课状态失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, 0, err
	}
	return planner.Restore(s.catalogs.Load(), sel), sel.Version, nil
}

// ════════════════════════════════════════════════════════════
// 写入
// ════════════════════════════════════════════════════════════

func (s *selectionService) Toggle(ctx context.Context, sessionID, lectureID string) (*dto.ToggleResponse, error) {
	var outcome timetable.ToggleOutcome
	state, version, err := s.mutate(ctx, sessionID, func(st *planner.State) error {
		res := st.Toggle(lectureID)
		outcome = res.Outcome
		switch res.Outcome {
		case timetable.ToggleRejected:
			return &ConflictError{LectureID: lectureID, ConflictingID: res.ConflictingID}
		case timetable.ToggleUnknown:
			return ErrLectureNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("选课已切换",
		zap.String("session_id", sessionID),
		zap.String("lecture_id", lectureID),
		zap.String("outcome", outcome.String()),
	)
	return &dto.ToggleResponse{
		Outcome:   outcome.String(),
		Selection: toSelectionResponse(sessionID, state, version),
	}, nil
}

func (s *selectionService) Clear(ctx context.Context, sessionID string) (*dto.SelectionResponse, error) {
	state, version, err := s.mutate(ctx, sessionID, func(st *planner.State) error {
		if !st.Clear() {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toSelectionResponse(sessionID, state, version), nil
}

func (s *selectionService) SetTargetCredits(ctx context.Context, sessionID string, credits float64) (*dto.SelectionResponse, error) {
	state, version, err := s.mutate(ctx, sessionID, func(st *planner.State) error {
		if st.TargetCredits() == credits {
			return errUnchanged
		}
		return st.SetTargetCredits(credits)
	})
	if err != nil {
		return nil, err
	}
	return toSelectionResponse(sessionID, state, version), nil
}

func (s *selectionService) ChooseAlternative(ctx context.Context, sessionID string, rank int) (*dto.SelectionResponse, error) {
	state, version, err := s.mutate(ctx, sessionID, func(st *planner.State) error {
		return st.ChooseAlternative(rank)
	})
	if err != nil {
		return nil, err
	}
	return toSelectionResponse(sessionID, state, version), nil
}

func (s *selectionService) ApplyResult(ctx context.Context, sessionID string, submitted []string, st optimizer.TaskStatus) (bool, error) {
	retries := s.cfg.ToggleRetries
	if retries <= 0 {
		retries = defaultToggleRetries
	}

	for attempt := 0; attempt <= retries; attempt++ {
		sel, err := s.repo.Selection.Get(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		if !sameLectureSet(sel.LectureIDs.Data(), submitted) {
			return false, nil
		}

		state := planner.Restore(s.catalogs.Load(), sel)
		changed, err := state.ApplyTaskStatus(st)
		if err != nil || !changed {
			return false, err
		}
		state.WriteTo(sel)
		err = s.repo.Selection.Update(ctx, sel)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("写回优化结果失败", zap.String("session_id", sessionID), zap.Error(err))
			return false, err
		}
	}
	return false, ErrSelectionBusy
}

// sameLectureSet 两组课程 ID 作为集合是否相等
func sameLectureSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

// mutate 以乐观锁执行一次状态转移；fn 返回 errUnchanged 时不写入
func (s *selectionService) mutate(ctx context.Context, sessionID string, fn func(*planner.State) error) (*planner.State, int, error) {
	retries := s.cfg.ToggleRetries
	if retries <= 0 {
		retries = defaultToggleRetries
	}

	for attempt := 0; attempt <= retries; attempt++ {
		sel, err := s.loadOrCreate(ctx, sessionID)
		if err != nil {
			return nil, 0, err
		}

		state := planner.Restore(s.catalogs.Load(), sel)
		if err := fn(state); err != nil {
			if errors.Is(err, errUnchanged) {
				return state, sel.Version, nil
			}
			return nil, 0, err
		}

		state.WriteTo(sel)
		err = s.repo.Selection.Update(ctx, sel)
		if err == nil {
			return state, sel.Version, nil
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("保存选课状态失败", zap.String("session_id", sessionID), zap.Error(err))
			return nil, 0, err
		}
		s.logger.Debug("选课版本冲突，重试",
			zap.String("session_id", sessionID),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, 0, ErrSelectionBusy
}

func (s *selectionService) loadOrCreate(ctx context.Context, sessionID string) (*model.Selection, error) {
	sel, err := s.repo.Selection.Get(ctx, sessionID)
	if err == nil {
		return sel, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询选课状态失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	sel = model.NewSelection(sessionID, s.cfg.DefaultTargetCredits)
	if err := s.repo.Selection.Create(ctx, sel); err != nil {
		// 并发请求可能已创建同一会话
		if existing, getErr := s.repo.Selection.Get(ctx, sessionID); getErr == nil {
			return existing, nil
		}
		s.logger.Error("创建选课状态失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return sel, nil
}

func toSelectionResponse(sessionID string, st *planner.State, version int) *dto.SelectionResponse {
	return &dto.SelectionResponse{
		SessionID:     sessionID,
		LectureIDs:    st.Selected(),
		Lectures:      dto.NewLectureResponses(st.SelectedLectures()),
		TotalCredits:  st.TotalCredits(),
		TargetCredits: st.TargetCredits(),
		Optimized:     dto.NewLectureResponses(st.Optimized()),
		Result:        st.Result(),
		Version:       version,
	}
}
