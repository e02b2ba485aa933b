package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fyp-portal/backend/internal/dto"
	"fyp-portal/backend/internal/model"
	"fyp-portal/backend/internal/repository"
)

// ── 提交模块业务错误 ──

var (
	ErrSubmissionNotFound     = errors.New("提交记录不存在")
	ErrCategoryApproved       = errors.New("该栏目已通过审阅，不能重复提交")
	ErrSubmissionNotLatest    = errors.New("仅最新版本可以审阅")
	ErrReviewFeedbackRequired = errors.New("审阅结论必须填写反馈意见")
)

// SubmissionService 提交台账 / 审阅 / 进度业务接口
//
// 台账约束：
//   - 同一 (课题, 类别) 任一时刻恰有一条最新版本，版本号从 1 连续递增
//   - 历史版本只读；审阅只作用于最新版本
//   - 审阅不改变课题状态（章节通过不自动推进课题阶段）
//   - 进度始终可由台账从零重算；课题上的 progress_percentage 仅是缓存，
//     在审阅通过后与显式重算时刷新
type SubmissionService interface {
	Create(ctx context.Context, actor Actor, projectID string, req *dto.CreateSubmissionRequest) (*dto.SubmissionResponse, error)
	Review(ctx context.Context, actor Actor, submissionID string, req *dto.ReviewSubmissionRequest) (*dto.SubmissionResponse, error)
	GetByID(ctx context.Context, actor Actor, submissionID string) (*dto.SubmissionResponse, error)
	ListByProject(ctx context.Context, actor Actor, projectID string) ([]dto.SubmissionResponse, error)
	ListVersions(ctx context.Context, actor Actor, projectID, submissionType string) ([]dto.SubmissionResponse, error)
	ComputeProgress(ctx context.Context, actor Actor, projectID string) (*dto.ProgressResponse, error)
	RefreshProgress(ctx context.Context, actor Actor, projectID string) (*dto.ProgressResponse, error)
}

type submissionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubmissionService 创建 SubmissionService 实例
func NewSubmissionService(repo *repository.Repository, logger *zap.Logger) SubmissionService {
	return &submissionService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *submissionService) Create(ctx context.Context, actor Actor, projectID string, req *dto.CreateSubmissionRequest) (*dto.SubmissionResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpCreateSubmission, actor, project); err != nil {
		return nil, err
	}

	latest, err := s.repo.Submission.GetLatest(ctx, projectID, req.SubmissionType)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询最新提交失败",
			zap.String("project_id", projectID),
			zap.String("type", req.SubmissionType),
			zap.Error(err))
		return nil, err
	}

	nextVersion := 1
	if latest != nil {
		// 已通过的栏目不允许重复提交
		if latest.Status == model.SubmissionStatusApproved {
			return nil, ErrCategoryApproved
		}
		nextVersion = latest.VersionNumber + 1
	}

	submission := &model.Submission{
		ProjectID:       projectID,
		SubmissionType:  req.SubmissionType,
		Title:           req.Title,
		Description:     req.Description,
		FileReference:   req.FileReference,
		FileName:        req.FileName,
		Status:          model.SubmissionStatusPending,
		VersionNumber:   nextVersion,
		IsLatestVersion: true,
		SubmittedAt:     time.Now(),
	}
	submission.CreatedBy = &actor.ID
	submission.UpdatedBy = &actor.ID

	// 事务：旧版本降级 + 新版本写入，保证"恰一条最新版本"不变量
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	if latest != nil {
		if err := txRepo.Submission.ClearLatest(ctx, projectID, req.SubmissionType); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("清除旧版本标记失败", zap.String("project_id", projectID), zap.Error(err))
			return nil, err
		}
	}

	if err := txRepo.Submission.Create(ctx, submission); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建提交失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return toSubmissionResponse(submission), nil
}

// ────────────────────── Review ──────────────────────

func (s *submissionService) Review(ctx context.Context, actor Actor, submissionID string, req *dto.ReviewSubmissionRequest) (*dto.SubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	project, err := s.getProject(ctx, submission.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpReviewSubmission, actor, project); err != nil {
		return nil, err
	}
	if !submission.IsLatestVersion {
		return nil, ErrSubmissionNotLatest
	}

	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" {
		return nil, ErrReviewFeedbackRequired
	}

	now := time.Now()
	submission.Status = req.Decision
	submission.SupervisorFeedback = &feedback
	submission.ReviewedAt = &now
	submission.UpdatedBy = &actor.ID

	if err := s.repo.Submission.Update(ctx, submission); err != nil {
		s.logger.Error("保存审阅结论失败", zap.String("submission_id", submissionID), zap.Error(err))
		return nil, err
	}

	// 审阅通过后刷新课题上缓存的进度；台账仍是事实来源，刷新失败不影响审阅结果
	if req.Decision == model.SubmissionStatusApproved {
		if _, err := s.refreshProgress(ctx, submission.ProjectID); err != nil {
			s.logger.Error("刷新课题进度失败", zap.String("project_id", submission.ProjectID), zap.Error(err))
		}
	}

	return toSubmissionResponse(submission), nil
}

// ────────────────────── 读查询 ──────────────────────

func (s *submissionService) GetByID(ctx context.Context, actor Actor, submissionID string) (*dto.SubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	project, err := s.getProject(ctx, submission.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpViewProject, actor, project); err != nil {
		return nil, err
	}
	return toSubmissionResponse(submission), nil
}

func (s *submissionService) ListByProject(ctx context.Context, actor Actor, projectID string) ([]dto.SubmissionResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpViewProject, actor, project); err != nil {
		return nil, err
	}

	submissions, err := s.repo.Submission.ListLatestByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询课题提交失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return toSubmissionResponses(submissions), nil
}

func (s *submissionService) ListVersions(ctx context.Context, actor Actor, projectID, submissionType string) ([]dto.SubmissionResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpViewProject, actor, project); err != nil {
		return nil, err
	}

	submissions, err := s.repo.Submission.ListVersions(ctx, projectID, submissionType)
	if err != nil {
		s.logger.Error("查询历史版本失败",
			zap.String("project_id", projectID),
			zap.String("type", submissionType),
			zap.Error(err))
		return nil, err
	}
	return toSubmissionResponses(submissions), nil
}

// ────────────────────── ComputeProgress ──────────────────────

// ComputeProgress 由台账实时推导进度：已通过类别数 / 7，四舍五入取百分比
// 纯读操作，幂等，可随时从零重算；可见性与课题详情一致（本人/指导教师/管理员）
func (s *submissionService) ComputeProgress(ctx context.Context, actor Actor, projectID string) (*dto.ProgressResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpViewProject, actor, project); err != nil {
		return nil, err
	}
	return s.computeProgress(ctx, projectID)
}

// RefreshProgress 重算进度并回写课题上的缓存字段
// 仅该课题的指导教师或管理员可显式触发
func (s *submissionService) RefreshProgress(ctx context.Context, actor Actor, projectID string) (*dto.ProgressResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(OpRefreshProgress, actor, project); err != nil {
		return nil, err
	}
	return s.refreshProgress(ctx, projectID)
}

// computeProgress 不带鉴权的进度推导，由已鉴权的调用方使用
func (s *submissionService) computeProgress(ctx context.Context, projectID string) (*dto.ProgressResponse, error) {
	count, err := s.repo.Submission.CountApprovedCategories(ctx, projectID)
	if err != nil {
		s.logger.Error("统计已通过类别失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	total := len(model.SubmissionCategories)
	pct := int(math.Round(float64(count) / float64(total) * 100))
	if pct > 100 {
		pct = 100
	}

	return &dto.ProgressResponse{
		ProjectID:          projectID,
		ApprovedCategories: int(count),
		TotalCategories:    total,
		ProgressPercentage: pct,
	}, nil
}

// refreshProgress 不带鉴权的重算 + 缓存回写（审阅通过后的内部刷新走这里）
func (s *submissionService) refreshProgress(ctx context.Context, projectID string) (*dto.ProgressResponse, error) {
	progress, err := s.computeProgress(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Project.UpdateProgress(ctx, projectID, progress.ProgressPercentage); err != nil {
		s.logger.Error("回写进度缓存失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return progress, nil
}

// ── 内部辅助方法 ──

func (s *submissionService) getProject(ctx context.Context, projectID string) (*model.Project, error) {
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

func (s *submissionService) getSubmission(ctx context.Context, submissionID string) (*model.Submission, error) {
	submission, err := s.repo.Submission.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		s.logger.Error("查询提交记录失败", zap.String("submission_id", submissionID), zap.Error(err))
		return nil, err
	}
	return submission, nil
}

// toSubmissionResponse 提交模型 → 响应 DTO
func toSubmissionResponse(sub *model.Submission) *dto.SubmissionResponse {
	resp := &dto.SubmissionResponse{
		ID:                 sub.SubmissionID,
		ProjectID:          sub.ProjectID,
		SubmissionType:     sub.SubmissionType,
		Title:              sub.Title,
		Description:        sub.Description,
		FileReference:      sub.FileReference,
		FileName:           sub.FileName,
		Status:             sub.Status,
		SupervisorFeedback: sub.SupervisorFeedback,
		VersionNumber:      sub.VersionNumber,
		IsLatestVersion:    sub.IsLatestVersion,
		SubmittedAt:        sub.SubmittedAt.Format(time.RFC3339),
	}
	if sub.ReviewedAt != nil {
		v := sub.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &v
	}
	return resp
}

func toSubmissionResponses(submissions []model.Submission) []dto.SubmissionResponse {
	result := make([]dto.SubmissionResponse, 0, len(submissions))
	for i := range submissions {
		result = append(result, *toSubmissionResponse(&submissions[i]))
	}
	return result
}
