package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fyp-portal/backend/internal/dto"
	"fyp-portal/backend/internal/model"
	"fyp-portal/backend/internal/repository"
)

// ── 指派模块业务错误 ──

var (
	ErrSupervisorNotFound = errors.New("指导教师不存在")
	ErrSupervisorRole     = errors.New("该用户不具备指导教师资格")
)

// AssignmentService 指导教师指派与工作量业务接口
type AssignmentService interface {
	Assign(ctx context.Context, actor Actor, projectID, supervisorID string) (*dto.ProjectResponse, error)
	BulkAssign(ctx context.Context, actor Actor, req *dto.BulkAssignRequest) (*dto.BulkAssignResponse, error)
	Workload(ctx context.Context) ([]dto.WorkloadResponse, error)
}

type assignmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo *repository.Repository, logger *zap.Logger) AssignmentService {
	return &assignmentService{repo: repo, logger: logger}
}

// ────────────────────── Assign ──────────────────────

// Assign 指派/改派指导教师；不限制课题当前状态（改派无需状态流转）
func (s *assignmentService) Assign(ctx context.Context, actor Actor, projectID, supervisorID string) (*dto.ProjectResponse, error) {
	if err := authorize(OpAssignSupervisor, actor, nil); err != nil {
		return nil, err
	}

	if err := s.checkSupervisor(ctx, supervisorID); err != nil {
		return nil, err
	}

	project, err := s.repo.Project.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询课题失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	project.SupervisorID = &supervisorID
	project.UpdatedBy = &actor.ID
	if err := s.repo.Project.Update(ctx, project); err != nil {
		s.logger.Error("指派指导教师失败",
			zap.String("project_id", projectID),
			zap.String("supervisor_id", supervisorID),
			zap.Error(err))
		return nil, err
	}

	return toProjectResponse(project), nil
}

// ────────────────────── BulkAssign ──────────────────────

// BulkAssign 批量指派：逐个课题独立尝试，单个失败不中断其余指派，
// 结果返回成功计数与逐项失败原因
func (s *assignmentService) BulkAssign(ctx context.Context, actor Actor, req *dto.BulkAssignRequest) (*dto.BulkAssignResponse, error) {
	if err := authorize(OpAssignSupervisor, actor, nil); err != nil {
		return nil, err
	}

	if err := s.checkSupervisor(ctx, req.SupervisorID); err != nil {
		return nil, err
	}

	result := &dto.BulkAssignResponse{}
	for _, projectID := range req.ProjectIDs {
		project, err := s.repo.Project.GetByID(ctx, projectID)
		if err != nil {
			reason := "查询课题失败"
			if errors.Is(err, gorm.ErrRecordNotFound) {
				reason = ErrProjectNotFound.Error()
			} else {
				s.logger.Error("批量指派：查询课题失败", zap.String("project_id", projectID), zap.Error(err))
			}
			result.Failed = append(result.Failed, dto.BulkAssignFailure{ProjectID: projectID, Reason: reason})
			continue
		}

		project.SupervisorID = &req.SupervisorID
		project.UpdatedBy = &actor.ID
		if err := s.repo.Project.Update(ctx, project); err != nil {
			s.logger.Error("批量指派：更新课题失败", zap.String("project_id", projectID), zap.Error(err))
			result.Failed = append(result.Failed, dto.BulkAssignFailure{ProjectID: projectID, Reason: "更新课题失败"})
			continue
		}

		result.Assigned++
	}

	s.logger.Info("批量指派完成",
		zap.String("supervisor_id", req.SupervisorID),
		zap.Int("assigned", result.Assigned),
		zap.Int("failed", len(result.Failed)),
	)

	return result, nil
}

// ────────────────────── Workload ──────────────────────

// Workload 统计每位指导教师的工作量（total / active / completed）
// active = 状态不在 {completed, rejected} 的课题数；每次查询实时计算，不落库
func (s *assignmentService) Workload(ctx context.Context) ([]dto.WorkloadResponse, error) {
	supervisors, err := s.repo.User.ListSupervisors(ctx)
	if err != nil {
		s.logger.Error("查询指导教师列表失败", zap.Error(err))
		return nil, err
	}

	rows, err := s.repo.Project.CountGroupedBySupervisor(ctx)
	if err != nil {
		s.logger.Error("统计课题分布失败", zap.Error(err))
		return nil, err
	}

	type tally struct{ total, active, completed int }
	bySupervisor := make(map[string]*tally, len(supervisors))
	for _, row := range rows {
		t := bySupervisor[row.SupervisorID]
		if t == nil {
			t = &tally{}
			bySupervisor[row.SupervisorID] = t
		}
		n := int(row.Count)
		t.total += n
		switch row.Status {
		case model.StatusCompleted:
			t.completed += n
		case model.StatusRejected:
			// 计入 total，不计入 active
		default:
			t.active += n
		}
	}

	result := make([]dto.WorkloadResponse, 0, len(supervisors))
	for i := range supervisors {
		u := &supervisors[i]
		w := dto.WorkloadResponse{
			SupervisorID: u.UserID,
			Name:         u.Name,
			Email:        u.Email,
		}
		if t, ok := bySupervisor[u.UserID]; ok {
			w.Total = t.total
			w.Active = t.active
			w.Completed = t.completed
		}
		result = append(result, w)
	}

	return result, nil
}

// ── 内部辅助方法 ──

// checkSupervisor 校验被指派用户存在且具备指导资格（staff / admin）
func (s *assignmentService) checkSupervisor(ctx context.Context, supervisorID string) error {
	supervisor, err := s.repo.User.GetByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSupervisorNotFound
		}
		s.logger.Error("查询指导教师失败", zap.String("supervisor_id", supervisorID), zap.Error(err))
		return err
	}
	if !supervisor.CanSupervise() {
		return ErrSupervisorRole
	}
	return nil
}
