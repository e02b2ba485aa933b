package dto

// ── 提交模块 DTO ──

// CreateSubmissionRequest 提交文档请求（学生）
type CreateSubmissionRequest struct {
	SubmissionType string  `json:"submission_type" binding:"required,oneof=proposal chapter_1 chapter_2 chapter_3 chapter_4 chapter_5 final_thesis"`
	Title          string  `json:"title"           binding:"required,min=2,max=200"`
	Description    string  `json:"description"     binding:"omitempty,max=2000"`
	FileReference  *string `json:"file_reference"  binding:"omitempty,max=500"`
	FileName       *string `json:"file_name"       binding:"omitempty,max=255"`
}

// ReviewSubmissionRequest 审阅提交请求（指导教师/管理员）
// 三种结论均要求填写反馈：这是学生可见的审阅依据
type ReviewSubmissionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved needs_revision rejected"`
	Feedback string `json:"feedback" binding:"required,max=2000"`
}

// SubmissionResponse 提交记录响应
type SubmissionResponse struct {
	ID                 string  `json:"id"`
	ProjectID          string  `json:"project_id"`
	SubmissionType     string  `json:"submission_type"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	FileReference      *string `json:"file_reference,omitempty"`
	FileName           *string `json:"file_name,omitempty"`
	Status             string  `json:"status"`
	SupervisorFeedback *string `json:"supervisor_feedback,omitempty"`
	VersionNumber      int     `json:"version_number"`
	IsLatestVersion    bool    `json:"is_latest_version"`
	SubmittedAt        string  `json:"submitted_at"`
	ReviewedAt         *string `json:"reviewed_at,omitempty"`
}
