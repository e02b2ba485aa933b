package dto

// ── 指派模块 DTO ──

// AssignSupervisorRequest 指派指导教师请求（管理员）
type AssignSupervisorRequest struct {
	SupervisorID string `json:"supervisor_id" binding:"required,uuid"`
}

// BulkAssignRequest 批量指派请求（管理员）
type BulkAssignRequest struct {
	ProjectIDs   []string `json:"project_ids"   binding:"required,min=1,dive,uuid"`
	SupervisorID string   `json:"supervisor_id" binding:"required,uuid"`
}

// BulkAssignFailure 批量指派中单个课题的失败记录
type BulkAssignFailure struct {
	ProjectID string `json:"project_id"`
	Reason    string `json:"reason"`
}

// BulkAssignResponse 批量指派结果（逐个尝试，失败不中断）
type BulkAssignResponse struct {
	Assigned int                 `json:"assigned"`
	Failed   []BulkAssignFailure `json:"failed,omitempty"`
}

// WorkloadResponse 指导教师工作量（按查询实时统计，不落库）
type WorkloadResponse struct {
	SupervisorID string `json:"supervisor_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Total        int    `json:"total"`
	Active       int    `json:"active"`
	Completed    int    `json:"completed"`
}
