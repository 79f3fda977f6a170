package dto

import (
	"time"

	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
)

// ── 优化任务 ──

// OptimizeRequest 提交优化请求；权重字段平铺，原样透传给优化服务
type OptimizeRequest struct {
	TargetCredits *float64 `json:"target_credits" validate:"omitempty,gt=0,lte=30"`
	optimizer.Weights
}

// TaskResponse 优化任务状态
type TaskResponse struct {
	TaskID      string            `json:"task_id"`
	State       string            `json:"state"` // SUBMITTED | PENDING | PROCESSING | SUCCESS | FAILURE | CANCELLED
	Error       string            `json:"error,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Result      *optimizer.Result `json:"result,omitempty"`
	Applied     bool              `json:"applied"` // 结果已写入选课
	Stale       bool              `json:"stale"`   // 提交后选课已变化，结果未写入
	SubmittedAt time.Time         `json:"submitted_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
