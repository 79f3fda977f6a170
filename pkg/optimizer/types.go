package optimizer

// ── 远程优化服务的载荷定义 ──
//
// 提交：POST {base}/optimize  → {task_id, status}
// 轮询：GET  {base}/optimize/{task_id} → {status, result?, error?, summary?}

// Status 远程任务状态
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailure    Status = "FAILURE"
)

// Terminal 是否为终态
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Weights 优化器可调权重，原样透传，未设置的字段由远端使用默认值
type Weights struct {
	TargetCredit     *float64 `json:"w_target_credit,omitempty"`
	FirstClass       *float64 `json:"w_first_class,omitempty"`
	LunchOverlap     *float64 `json:"w_lunch_overlap,omitempty"`
	FreeDayReward    *float64 `json:"r_free_day,omitempty"`
	FreeDayBreak     *float64 `json:"p_free_day_break,omitempty"`
	HardOverlap      *float64 `json:"w_hard_overlap,omitempty"`
	ContiguousReward *float64 `json:"w_contiguous_reward,omitempty"`
	TensionBase      *float64 `json:"w_tension_base,omitempty"`
	Mandatory        *float64 `json:"w_mandatory,omitempty"`
	TimeCreditRatio  *float64 `json:"w_time_credit_ratio,omitempty"`
	MaxCandidates    *int     `json:"max_candidates,omitempty" validate:"omitempty,min=1"`
	TotalReads       *int     `json:"total_reads,omitempty"    validate:"omitempty,min=1"`
	BatchSize        *int     `json:"batch_size,omitempty"     validate:"omitempty,min=1"`
	PreferContiguous *bool    `json:"prefer_contiguous,omitempty"`
	PreferFreeDays   *bool    `json:"prefer_free_days,omitempty"`
}

// Request 提交载荷
type Request struct {
	SelectedLectureIDs []string `json:"selected_lecture_ids"`
	TargetCredits      float64  `json:"target_credits"`
	Weights
}

// Lecture 远端返回的课程条目（与目录字段一致，附带的 parsed_time 被忽略）
type Lecture struct {
	ID        string  `json:"id"`
	Number    string  `json:"number"`
	ClassNum  string  `json:"class_num"`
	Name      string  `json:"name"`
	Credit    float64 `json:"credit"`
	TimeRoom  string  `json:"time_room"`
	Professor string  `json:"professor"`
	Category  string  `json:"category"`
}

// RankedSchedule 候选课表
type RankedSchedule struct {
	Schedule     []Lecture          `json:"schedule"`
	Energy       float64            `json:"energy"`
	TotalCredits float64            `json:"total_credits,omitempty"`
	Breakdown    map[string]float64 `json:"breakdown"`
}

// Result 优化结果：最优课表 + 按能量升序的候选列表
type Result struct {
	Schedule     []Lecture          `json:"schedule"`
	Energy       float64            `json:"energy"`
	TotalCredits float64            `json:"total_credits"`
	Breakdown    map[string]float64 `json:"breakdown"`
	TopSchedules []RankedSchedule   `json:"top_schedules,omitempty"`
}

// LectureIDs 最优课表的课程 ID（保持顺序）
func (r *Result) LectureIDs() []string {
	ids := make([]string, 0, len(r.Schedule))
	for _, l := range r.Schedule {
		ids = append(ids, l.ID)
	}
	return ids
}

// TaskStatus 轮询响应
type TaskStatus struct {
	TaskID  string  `json:"task_id,omitempty"`
	Status  Status  `json:"status"`
	Result  *Result `json:"result,omitempty"`
	Error   string  `json:"error,omitempty"`
	Summary string  `json:"summary,omitempty"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
	Status Status `json:"status"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
