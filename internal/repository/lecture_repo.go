package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
)

const lectureBatchSize = 500

// LectureRepository 课程目录数据访问接口
type LectureRepository interface {
	// ReplaceAll 在单个事务中清空并重新写入整个目录
	ReplaceAll(ctx context.Context, lectures []model.Lecture) error
	List(ctx context.Context) ([]model.Lecture, error)
	Count(ctx context.Context) (int64, error)
}

type lectureRepo struct {
	db *gorm.DB
}

// NewLectureRepo 创建 LectureRepository 实例
func NewLectureRepo(db *gorm.DB) LectureRepository {
	return &lectureRepo{db: db}
}

func (r *lectureRepo) ReplaceAll(ctx context.Context, lectures []model.Lecture) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Lecture{}).Error; err != nil {
			return err
		}
		if len(lectures) == 0 {
			return nil
		}
		return tx.CreateInBatches(lectures, lectureBatchSize).Error
	})
}

func (r *lectureRepo) List(ctx context.Context) ([]model.Lecture, error) {
	var lectures []model.Lecture
	err := r.db.WithContext(ctx).
		Order("number ASC, class_num ASC").
		Find(&lectures).Error
	return lectures, err
}

func (r *lectureRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Lecture{}).Count(&n).Error
	return n, err
}
