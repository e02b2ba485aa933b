package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"fyp-portal/backend/internal/dto"
	"fyp-portal/backend/internal/service"
	pkgerrors "fyp-portal/backend/pkg/errors"
	"fyp-portal/backend/pkg/response"
)

// ProjectHandler 课题模块 HTTP 处理器
type ProjectHandler struct {
	projectSvc service.ProjectService
}

// NewProjectHandler 创建 ProjectHandler
func NewProjectHandler(projectSvc service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectSvc: projectSvc}
}

// SubmitProposal 提交开题申请
// POST /api/v1/projects
func (h *ProjectHandler) SubmitProposal(c *gin.Context) {
	var req dto.SubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.SubmitProposal(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}

	response.Created(c, project)
}

// ResubmitProposal 被驳回后重新提交开题申请
// POST /api/v1/projects/:id/resubmit
func (h *ProjectHandler) ResubmitProposal(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课题ID不能为空")
		return
	}

	var req dto.SubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.ResubmitProposal(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// DecideProposal 开题审批（通过/驳回）
// PUT /api/v1/projects/:id/decision
func (h *ProjectHandler) DecideProposal(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课题ID不能为空")
		return
	}

	var req dto.DecideProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.DecideProposal(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// MarkInProgress 开题通过后标记课题进入写作阶段
// PUT /api/v1/projects/:id/start
func (h *ProjectHandler) MarkInProgress(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课题ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.MarkInProgress(c.Request.Context(), actor, id)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// MarkReadyForReview 标记课题待终审
// PUT /api/v1/projects/:id/ready
func (h *ProjectHandler) MarkReadyForReview(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课题ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.MarkReadyForReview(c.Request.Context(), actor, id)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// GradeAndComplete 结题评分
// PUT /api/v1/projects/:id/grade
func (h *ProjectHandler) GradeAndComplete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课题ID不能为空")
		return
	}

	var req dto.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.GradeAndComplete(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// OverrideStatus 强制修改课题状态（绕过状态机，审计记录）
// PUT /api/v1/projects/:id/status/override
func (h *ProjectHandler) OverrideStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课题ID不能为空")
		return
	}

	var req dto.OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.OverrideStatus(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// GetProject 课题详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课题ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}

	response.OK(c, project)
}

// ListStatusHistory 课题状态变更历史
// GET /api/v1/projects/:id/status-history
func (h *ProjectHandler) ListStatusHistory(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课题ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	logs, err := h.projectSvc.ListStatusHistory(c.Request.Context(), actor, id)
	if err != nil {
		h.handleProjectError(c, err)
		return
	}

	response.OK(c, gin.H{"list": logs})
}

// ListMyProjects 当前学生的课题
// GET /api/v1/projects/my
func (h *ProjectHandler) ListMyProjects(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	projects, err := h.projectSvc.ListForStudent(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": projects})
}

// ListSupervisedProjects 当前指导教师负责的课题
// GET /api/v1/projects/supervised
func (h *ProjectHandler) ListSupervisedProjects(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	projects, err := h.projectSvc.ListForSupervisor(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": projects})
}

// ListUnassignedProjects 未指派指导教师的课题
// GET /api/v1/projects/unassigned
func (h *ProjectHandler) ListUnassignedProjects(c *gin.Context) {
	projects, err := h.projectSvc.ListUnassigned(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": projects})
}

// handleProjectError 统一处理课题模块业务错误
func (h *ProjectHandler) handleProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFound(c, 20001, "课题不存在")
	case errors.Is(err, service.ErrProposalExists):
		response.Conflict(c, 20002, "已存在未被驳回的课题，不能重复提交开题申请")
	case errors.Is(err, service.ErrProjectNotRejected):
		response.Conflict(c, 20003, "仅被驳回的课题可以重新提交开题申请")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 20004, "当前课题状态不允许该操作")
	case errors.Is(err, service.ErrFeedbackRequired):
		response.BadRequest(c, 20005, "驳回开题申请必须填写反馈意见")
	case errors.Is(err, service.ErrGradeRequired):
		response.BadRequest(c, 20006, "结题评分不能为空")
	case errors.Is(err, pkgerrors.ErrStatusConflict):
		response.Conflict(c, 20007, "课题状态已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
