package model

import (
	"gorm.io/datatypes"

	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
)

// Selection 会话选课状态，对应 selections
// LectureIDs 保持插入顺序；Version 用于乐观锁
type Selection struct {
	SessionID         string                                `gorm:"type:varchar(64);primaryKey"        json:"session_id"`
	LectureIDs        datatypes.JSONType[[]string]          `gorm:"not null"                           json:"lecture_ids"`
	OptimizedSchedule datatypes.JSONType[[]Lecture]         `gorm:"column:optimized_schedule;not null" json:"optimized_schedule"`
	Result            datatypes.JSONType[*optimizer.Result] `gorm:"not null"                           json:"result"`
	TargetCredits     float64                               `gorm:"type:numeric(5,1);not null"         json:"target_credits"`
	Version           int                                   `gorm:"not null;default:1"                 json:"version"`
	Timestamps
}

// TableName 指定表名
func (Selection) TableName() string { return "selections" }

// NewSelection 创建空选课状态
func NewSelection(sessionID string, targetCredits float64) *Selection {
	return &Selection{
		SessionID:         sessionID,
		LectureIDs:        datatypes.NewJSONType([]string{}),
		OptimizedSchedule: datatypes.NewJSONType([]Lecture{}),
		Result:            datatypes.NewJSONType[*optimizer.Result](nil),
		TargetCredits:     targetCredits,
		Version:           1,
	}
}
