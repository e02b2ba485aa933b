package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"fyp-portal/backend/internal/dto"
	"fyp-portal/backend/internal/service"
	"fyp-portal/backend/pkg/response"
)

// AssignmentHandler 指导教师指派 HTTP 处理器（管理员）
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// Assign 指派/改派单个课题的指导教师
// PUT /api/v1/projects/:id/supervisor
func (h *AssignmentHandler) Assign(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		response.BadRequest(c, 10001, "课题ID不能为空")
		return
	}

	var req dto.AssignSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	project, err := h.assignmentSvc.Assign(c.Request.Context(), actor, projectID, req.SupervisorID)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, project)
}

// BulkAssign 批量指派（逐个尝试，失败不中断）
// POST /api/v1/assignments/bulk
func (h *AssignmentHandler) BulkAssign(c *gin.Context) {
	var req dto.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.BulkAssign(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// Workload 指导教师工作量统计
// GET /api/v1/assignments/workload
func (h *AssignmentHandler) Workload(c *gin.Context) {
	workloads, err := h.assignmentSvc.Workload(c.Request.Context())
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": workloads})
}

// handleAssignmentError 统一处理指派模块业务错误
func (h *AssignmentHandler) handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 20001, "课题不存在")
	case errors.Is(err, service.ErrSupervisorNotFound):
		response.NotFound(c, 50001, "指导教师不存在")
	case errors.Is(err, service.ErrSupervisorRole):
		response.BadRequest(c, 50002, "该用户不具备指导教师资格")
	default:
		response.InternalError(c)
	}
}
