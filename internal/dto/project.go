package dto

// ── 课题模块 DTO ──

// SubmitProposalRequest 提交开题申请请求（学生）
type SubmitProposalRequest struct {
	Title         string  `json:"title"          binding:"required,min=4,max=200"`
	Description   string  `json:"description"    binding:"required"`
	FileReference *string `json:"file_reference" binding:"omitempty,max=500"`
	FileName      *string `json:"file_name"      binding:"omitempty,max=255"`
}

// DecideProposalRequest 开题审批请求（指导教师/管理员）
type DecideProposalRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Feedback string `json:"feedback" binding:"omitempty,max=2000"` // reject 时必填（Service 层校验）
}

// GradeRequest 结题评分请求
type GradeRequest struct {
	Grade    string `json:"grade"    binding:"omitempty,max=20"` // 非空校验在 Service 层（返回明确业务错误）
	Feedback string `json:"feedback" binding:"omitempty,max=2000"`
}

// OverrideStatusRequest 管理员强制修改状态请求（绕过状态机，审计记录）
type OverrideStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=proposal_submitted proposal_approved in_progress ready_for_review completed rejected"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
	Grade  string `json:"grade"  binding:"omitempty,max=20"` // 目标状态为 completed 且课题无评分时必填（Service 层校验）
}

// ProjectResponse 课题信息响应
type ProjectResponse struct {
	ID                 string     `json:"id"`
	StudentID          string     `json:"student_id"`
	SupervisorID       *string    `json:"supervisor_id,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Status             string     `json:"status"`
	Feedback           *string    `json:"feedback,omitempty"`
	Grade              *string    `json:"grade,omitempty"`
	ProgressPercentage int        `json:"progress_percentage"`
	CreatedAt          string     `json:"created_at"`
	CompletedAt        *string    `json:"completed_at,omitempty"`
	Student            *UserBrief `json:"student,omitempty"`
	Supervisor         *UserBrief `json:"supervisor,omitempty"`
}

// StatusChangeLogResponse 状态变更日志响应
type StatusChangeLogResponse struct {
	ID         string `json:"id"`
	ActorID    string `json:"actor_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason,omitempty"`
	IsOverride bool   `json:"is_override"`
	CreatedAt  string `json:"created_at"`
}

// ProgressResponse 进度响应（由提交台账实时推导）
type ProgressResponse struct {
	ProjectID          string `json:"project_id"`
	ApprovedCategories int    `json:"approved_categories"`
	TotalCategories    int    `json:"total_categories"`
	ProgressPercentage int    `json:"progress_percentage"`
}
