package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fyp-portal/backend/internal/dto"
	"fyp-portal/backend/internal/model"
	"fyp-portal/backend/internal/repository"
)

// ── 课题模块业务错误 ──

var (
	ErrProjectNotFound    = errors.New("课题不存在")
	ErrProposalExists     = errors.New("已存在未被驳回的课题，不能重复提交开题申请")
	ErrProjectNotRejected = errors.New("仅被驳回的课题可以重新提交开题申请")
	ErrInvalidTransition  = errors.New("当前课题状态不允许该操作")
	ErrFeedbackRequired   = errors.New("驳回开题申请必须填写反馈意见")
	ErrGradeRequired      = errors.New("结题评分不能为空")
)

// 状态机起点：学生尚未建立课题
const statusNone = "none"

// ProjectService 课题生命周期业务接口
//
// 状态机（受控流转）：
//
//	none → proposal_submitted → proposal_approved → in_progress → ready_for_review → completed
//	        └→ rejected（驳回后可重新提交，回到 proposal_submitted）
//	gradeAndComplete 允许从 in_progress 直接结题
//
// 受控流转以外仅保留管理员强制改状态（OverrideStatus），全部写入审计日志
type ProjectService interface {
	SubmitProposal(ctx context.Context, actor Actor, req *dto.SubmitProposalRequest) (*dto.ProjectResponse, error)
	ResubmitProposal(ctx context.Context, actor Actor, projectID string, req *dto.SubmitProposalRequest) (*dto.ProjectResponse, error)
	DecideProposal(ctx context.Context, actor Actor, projectID string, req *dto.DecideProposalRequest) (*dto.ProjectResponse, error)
	MarkInProgress(ctx context.Context, actor Actor, projectID string) (*dto.ProjectResponse, error)
	MarkReadyForReview(ctx context.Context, actor Actor, projectID string) (*dto.ProjectResponse, error)
	GradeAndComplete(ctx context.Context, actor Actor, projectID string, req *dto.GradeRequest) (*dto.ProjectResponse, error)
	OverrideStatus(ctx context.Context, actor Actor, projectID string, req *dto.OverrideStatusRequest) (*dto.ProjectResponse, error)
	GetByID(ctx context.Context, actor Actor, projectID string) (*dto.ProjectResponse, error)
	ListStatusHistory(ctx context.Context, actor Actor, projectID string) ([]dto.StatusChangeLogResponse, error)
	ListForStudent(ctx context.Context, studentID string) ([]dto.ProjectResponse, error)
	ListForSupervisor(ctx context.Context, supervisorID string) ([]dto.ProjectResponse, error)
	ListUnassigned(ctx context.Context) ([]dto.ProjectResponse, error)
}

type projectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(repo *repository.Repository, logger *zap.Logger) ProjectService {
	return &projectService{repo: repo, logger: logger}
}

// ────────────────────── SubmitProposal ──────────────────────

func (s *projectService) SubmitProposal(ctx context.Context, actor Actor, req *dto.SubmitProposalRequest) (*dto.ProjectResponse, error) {
	if err := authorize(OpSubmitProposal, actor, nil); err != nil {
		return nil, err
	}

	existing, err := s.repo.Project.GetByStudent(ctx, actor.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学生课题失败", zap.String("student_id", actor.ID), zap.Error(err))
		return nil, err
	}
	if existing != nil {
		// 被驳回的课题走重新提交路径，复用原课题记录
		if existing.Status == model.StatusRejected {
			return s.resubmit(ctx, actor, existing, req)
		}
		return nil, ErrProposalExists
	}

	project := &model.Project{
		StudentID:   actor.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.StatusProposalSubmitted,
	}
	project.CreatedBy = &actor.ID
	project.UpdatedBy = &actor.ID

	// 事务：建课题 + 开题提交 v1 + 状态日志
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Project.Create(ctx, project); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建课题失败", zap.String("student_id", actor.ID), zap.Error(err))
		return nil, err
	}

	submission := newProposalSubmission(project, req, 1, actor.ID)
	if err := txRepo.Submission.Create(ctx, submission); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建开题提交失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}

	if err := txRepo.StatusChangeLog.Create(ctx, &model.StatusChangeLog{
		ProjectID:  project.ProjectID,
		ActorID:    actor.ID,
		FromStatus: statusNone,
		ToStatus:   model.StatusProposalSubmitted,
	}); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("写入状态日志失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return toProjectResponse(project), nil
}

// ────────────────────── ResubmitProposal ──────────────────────

func (s *projectService) ResubmitProposal(ctx context.Context, actor Actor, projectID string, req *dto.SubmitProposalRequest) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpResubmitProposal, actor, project); err != nil {
		return nil, err
	}

	return s.resubmit(ctx, actor, project, req)
}

// resubmit 驳回后重新提交：复用课题记录，开题提交版本 +1
func (s *projectService) resubmit(ctx context.Context, actor Actor, project *model.Project, req *dto.SubmitProposalRequest) (*dto.ProjectResponse, error) {
	if project.Status != model.StatusRejected {
		return nil, ErrProjectNotRejected
	}

	latest, err := s.repo.Submission.GetLatest(ctx, project.ProjectID, model.SubmissionProposal)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询最新开题提交失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}
	nextVersion := 1
	if latest != nil {
		nextVersion = latest.VersionNumber + 1
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	// CAS：仅当课题仍处于 rejected 时才允许流转，避免并发重复提交
	err = txRepo.Project.UpdateStatusCAS(ctx, project.ProjectID, model.StatusRejected, map[string]interface{}{
		"status":      model.StatusProposalSubmitted,
		"title":       req.Title,
		"description": req.Description,
		"feedback":    nil,
		"updated_by":  actor.ID,
	})
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}

	if latest != nil {
		if err := txRepo.Submission.ClearLatest(ctx, project.ProjectID, model.SubmissionProposal); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("清除旧版本标记失败", zap.String("project_id", project.ProjectID), zap.Error(err))
			return nil, err
		}
	}

	submission := newProposalSubmission(project, req, nextVersion, actor.ID)
	if err := txRepo.Submission.Create(ctx, submission); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建开题提交失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}

	if err := txRepo.StatusChangeLog.Create(ctx, &model.StatusChangeLog{
		ProjectID:  project.ProjectID,
		ActorID:    actor.ID,
		FromStatus: model.StatusRejected,
		ToStatus:   model.StatusProposalSubmitted,
	}); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("写入状态日志失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	project.Status = model.StatusProposalSubmitted
	project.Title = req.Title
	project.Description = req.Description
	project.Feedback = nil
	return toProjectResponse(project), nil
}

// ────────────────────── DecideProposal ──────────────────────

func (s *projectService) DecideProposal(ctx context.Context, actor Actor, projectID string, req *dto.DecideProposalRequest) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpDecideProposal, actor, project); err != nil {
		return nil, err
	}
	if project.Status != model.StatusProposalSubmitted {
		return nil, ErrInvalidTransition
	}

	feedback := strings.TrimSpace(req.Feedback)
	target := model.StatusProposalApproved
	if req.Decision == "reject" {
		if feedback == "" {
			return nil, ErrFeedbackRequired
		}
		target = model.StatusRejected
	}

	updates := map[string]interface{}{
		"status":     target,
		"updated_by": actor.ID,
	}
	if feedback != "" {
		updates["feedback"] = feedback
	}

	if err := s.transition(ctx, actor, project, model.StatusProposalSubmitted, target, updates, feedback); err != nil {
		return nil, err
	}

	project.Status = target
	if feedback != "" {
		project.Feedback = &feedback
	}
	return toProjectResponse(project), nil
}

// ────────────────────── MarkInProgress ──────────────────────

func (s *projectService) MarkInProgress(ctx context.Context, actor Actor, projectID string) (*dto.ProjectResponse, error) {
	return s.simpleTransition(ctx, actor, projectID, OpMarkInProgress, model.StatusProposalApproved, model.StatusInProgress)
}

// ────────────────────── MarkReadyForReview ──────────────────────

func (s *projectService) MarkReadyForReview(ctx context.Context, actor Actor, projectID string) (*dto.ProjectResponse, error) {
	return s.simpleTransition(ctx, actor, projectID, OpMarkReadyForReview, model.StatusInProgress, model.StatusReadyForReview)
}

// simpleTransition 单一前置状态的受控流转
func (s *projectService) simpleTransition(ctx context.Context, actor Actor, projectID string, op Operation, from, to string) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(op, actor, project); err != nil {
		return nil, err
	}
	// 终态课题不参与受控流转：rejected 走重新提交，completed 仅能强制改状态
	if project.IsTerminal() {
		return nil, ErrInvalidTransition
	}
	if project.Status != from {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_by": actor.ID,
	}
	if err := s.transition(ctx, actor, project, from, to, updates, ""); err != nil {
		return nil, err
	}

	project.Status = to
	return toProjectResponse(project), nil
}

// ────────────────────── GradeAndComplete ──────────────────────

func (s *projectService) GradeAndComplete(ctx context.Context, actor Actor, projectID string, req *dto.GradeRequest) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpGradeAndComplete, actor, project); err != nil {
		return nil, err
	}
	// 允许从 ready_for_review 或 in_progress 直接结题
	if project.Status != model.StatusReadyForReview && project.Status != model.StatusInProgress {
		return nil, ErrInvalidTransition
	}

	grade := strings.TrimSpace(req.Grade)
	if grade == "" {
		return nil, ErrGradeRequired
	}
	feedback := strings.TrimSpace(req.Feedback)

	now := time.Now()
	updates := map[string]interface{}{
		"status":       model.StatusCompleted,
		"grade":        grade,
		"completed_at": now,
		"updated_by":   actor.ID,
	}
	if feedback != "" {
		updates["feedback"] = feedback
	}

	if err := s.transition(ctx, actor, project, project.Status, model.StatusCompleted, updates, feedback); err != nil {
		return nil, err
	}

	project.Status = model.StatusCompleted
	project.Grade = &grade
	project.CompletedAt = &now
	if feedback != "" {
		project.Feedback = &feedback
	}
	return toProjectResponse(project), nil
}

// ────────────────────── OverrideStatus ──────────────────────

// OverrideStatus 管理员/指导教师强制修改课题状态
// 绕过状态机校验，仅用于人工纠错；必须落审计日志，普通业务流程不得调用
// 强制置为 completed 时须随请求给出评分（课题已有评分的除外）
func (s *projectService) OverrideStatus(ctx context.Context, actor Actor, projectID string, req *dto.OverrideStatusRequest) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpOverrideStatus, actor, project); err != nil {
		return nil, err
	}
	if !model.IsValidProjectStatus(req.Status) {
		return nil, ErrInvalidTransition
	}

	from := project.Status
	grade := strings.TrimSpace(req.Grade)
	updates := map[string]interface{}{
		"status":     req.Status,
		"updated_by": actor.ID,
	}
	// 机械维护不变量：completed_at 与 grade 当且仅当 status=completed 时非空
	now := time.Now()
	switch {
	case req.Status == model.StatusCompleted:
		if grade == "" && project.Grade == nil {
			return nil, ErrGradeRequired
		}
		if project.CompletedAt == nil {
			updates["completed_at"] = now
		}
		if grade != "" {
			updates["grade"] = grade
		}
	case from == model.StatusCompleted:
		updates["completed_at"] = nil
		updates["grade"] = nil
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	project.Status = req.Status
	if v, ok := updates["completed_at"]; ok {
		if v == nil {
			project.CompletedAt = nil
		} else {
			project.CompletedAt = &now
		}
	}
	if v, ok := updates["grade"]; ok {
		if v == nil {
			project.Grade = nil
		} else {
			project.Grade = &grade
		}
	}
	project.UpdatedBy = &actor.ID
	if err := txRepo.Project.Update(ctx, project); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("强制修改状态失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	if err := txRepo.StatusChangeLog.Create(ctx, &model.StatusChangeLog{
		ProjectID:  projectID,
		ActorID:    actor.ID,
		FromStatus: from,
		ToStatus:   req.Status,
		Reason:     req.Reason,
		IsOverride: true,
	}); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("写入状态日志失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Warn("课题状态被强制修改",
		zap.String("project_id", projectID),
		zap.String("actor_id", actor.ID),
		zap.String("from", from),
		zap.String("to", req.Status),
		zap.String("reason", req.Reason),
	)

	return toProjectResponse(project), nil
}

// ────────────────────── 读查询 ──────────────────────

func (s *projectService) GetByID(ctx context.Context, actor Actor, projectID string) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpViewProject, actor, project); err != nil {
		return nil, err
	}
	return toProjectResponse(project), nil
}

func (s *projectService) ListStatusHistory(ctx context.Context, actor Actor, projectID string) ([]dto.StatusChangeLogResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpViewProject, actor, project); err != nil {
		return nil, err
	}

	logs, err := s.repo.StatusChangeLog.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询状态日志失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.StatusChangeLogResponse, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		result = append(result, dto.StatusChangeLogResponse{
			ID:         l.LogID,
			ActorID:    l.ActorID,
			FromStatus: l.FromStatus,
			ToStatus:   l.ToStatus,
			Reason:     l.Reason,
			IsOverride: l.IsOverride,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}

func (s *projectService) ListForStudent(ctx context.Context, studentID string) ([]dto.ProjectResponse, error) {
	projects, err := s.repo.Project.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询学生课题失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	return toProjectResponses(projects), nil
}

func (s *projectService) ListForSupervisor(ctx context.Context, supervisorID string) ([]dto.ProjectResponse, error) {
	projects, err := s.repo.Project.ListBySupervisor(ctx, supervisorID)
	if err != nil {
		s.logger.Error("查询指导课题失败", zap.String("supervisor_id", supervisorID), zap.Error(err))
		return nil, err
	}
	return toProjectResponses(projects), nil
}

func (s *projectService) ListUnassigned(ctx context.Context) ([]dto.ProjectResponse, error) {
	projects, err := s.repo.Project.ListUnassigned(ctx)
	if err != nil {
		s.logger.Error("查询未指派课题失败", zap.Error(err))
		return nil, err
	}
	return toProjectResponses(projects), nil
}

// ── 内部辅助方法 ──

func (s *projectService) getProject(ctx context.Context, projectID string) (*model.Project, error) {
	project, err := s.repo.Project.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询课题失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return project, nil
}

// transition 受控流转：CAS 状态更新 + 状态日志，同一事务内完成
func (s *projectService) transition(ctx context.Context, actor Actor, project *model.Project, from, to string, updates map[string]interface{}, reason string) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Project.UpdateStatusCAS(ctx, project.ProjectID, from, updates); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if err := txRepo.StatusChangeLog.Create(ctx, &model.StatusChangeLog{
		ProjectID:  project.ProjectID,
		ActorID:    actor.ID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	}); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("写入状态日志失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// newProposalSubmission 构造开题提交记录
func newProposalSubmission(project *model.Project, req *dto.SubmitProposalRequest, version int, actorID string) *model.Submission {
	sub := &model.Submission{
		ProjectID:       project.ProjectID,
		SubmissionType:  model.SubmissionProposal,
		Title:           req.Title,
		Description:     req.Description,
		FileReference:   req.FileReference,
		FileName:        req.FileName,
		Status:          model.SubmissionStatusPending,
		VersionNumber:   version,
		IsLatestVersion: true,
		SubmittedAt:     time.Now(),
	}
	sub.CreatedBy = &actorID
	sub.UpdatedBy = &actorID
	return sub
}

// toProjectResponse 课题模型 → 响应 DTO
func toProjectResponse(p *model.Project) *dto.ProjectResponse {
	resp := &dto.ProjectResponse{
		ID:                 p.ProjectID,
		StudentID:          p.StudentID,
		SupervisorID:       p.SupervisorID,
		Title:              p.Title,
		Description:        p.Description,
		Status:             p.Status,
		Feedback:           p.Feedback,
		Grade:              p.Grade,
		ProgressPercentage: p.ProgressPercentage,
		CreatedAt:          p.CreatedAt.Format(time.RFC3339),
	}
	if p.CompletedAt != nil {
		v := p.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	if p.Student != nil {
		resp.Student = toUserBrief(p.Student)
	}
	if p.Supervisor != nil {
		resp.Supervisor = toUserBrief(p.Supervisor)
	}
	return resp
}

func toProjectResponses(projects []model.Project) []dto.ProjectResponse {
	result := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		result = append(result, *toProjectResponse(&projects[i]))
	}
	return result
}

func toUserBrief(u *model.User) *dto.UserBrief {
	return &dto.UserBrief{
		ID:        u.UserID,
		Name:      u.Name,
		StudentNo: u.StudentNo,
		Email:     u.Email,
	}
}
