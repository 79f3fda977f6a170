package dto

import "github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"

// ── 选课 ──

// ToggleRequest 切换选课请求
type ToggleRequest struct {
	LectureID string `json:"lecture_id" binding:"required,max=64"`
}

// TargetCreditsRequest 设置目标学分请求
type TargetCreditsRequest struct {
	TargetCredits float64 `json:"target_credits" binding:"required,gt=0,lte=30"`
}

// ChooseAlternativeRequest 选择候选课表请求（0 为最优课表）
type ChooseAlternativeRequest struct {
	Rank *int `json:"rank" binding:"required,min=0"`
}

// SelectionResponse 会话选课状态
type SelectionResponse struct {
	SessionID     string            `json:"session_id"`
	LectureIDs    []string          `json:"lecture_ids"`
	Lectures      []LectureResponse `json:"lectures"`
	TotalCredits  float64           `json:"total_credits"`
	TargetCredits float64           `json:"target_credits"`
	Optimized     []LectureResponse `json:"optimized_schedule"`
	Result        *optimizer.Result `json:"result,omitempty"`
	Version       int               `json:"version"`
}

// ToggleResponse 切换结果：added | removed
type ToggleResponse struct {
	Outcome   string             `json:"outcome"`
	Selection *SelectionResponse `json:"selection"`
}

// ConflictResponse 冲突详情（随 409 返回）
type ConflictResponse struct {
	LectureID            string `json:"lecture_id"`
	ConflictingLectureID string `json:"conflicting_lecture_id"`
}
