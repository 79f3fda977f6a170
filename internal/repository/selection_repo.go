package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
	pkgerrors "github.com/142spp/qi4u-in-pnu-team8/pkg/errors"
)

// SelectionRepository 会话选课状态数据访问接口
type SelectionRepository interface {
	Get(ctx context.Context, sessionID string) (*model.Selection, error)
	Create(ctx context.Context, sel *model.Selection) error
	// Update 按版本号更新；版本不一致时返回 ErrOptimisticLock，成功后 sel.Version 自增
	Update(ctx context.Context, sel *model.Selection) error
}

type selectionRepo struct {
	db *gorm.DB
}

// NewSelectionRepo 创建 SelectionRepository 实例
func NewSelectionRepo(db *gorm.DB) SelectionRepository {
	return &selectionRepo{db: db}
}

func (r *selectionRepo) Get(ctx context.Context, sessionID string) (*model.Selection, error) {
	var sel model.Selection
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&sel).Error
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

func (r *selectionRepo) Create(ctx context.Context, sel *model.Selection) error {
	if sel.Version == 0 {
		sel.Version = 1
	}
	return r.db.WithContext(ctx).Create(sel).Error
}

func (r *selectionRepo) Update(ctx context.Context, sel *model.Selection) error {
	oldVersion := sel.Version
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Selection{}).
		Where("session_id = ? AND version = ?", sel.SessionID, oldVersion).
		Updates(map[string]interface{}{
			"lecture_ids":        sel.LectureIDs,
			"optimized_schedule": sel.OptimizedSchedule,
			"result":             sel.Result,
			"target_credits":     sel.TargetCredits,
			"version":            oldVersion + 1,
			"updated_at":         now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	sel.Version = oldVersion + 1
	sel.UpdatedAt = now
	return nil
}
