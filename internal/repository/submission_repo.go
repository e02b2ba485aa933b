package repository

import (
	"context"

	"gorm.io/gorm"

	"fyp-portal/backend/internal/model"
)

// SubmissionRepository 提交台账数据访问接口
// 台账只增不删：新版本写入时将旧版本标记为非最新
type SubmissionRepository interface {
	Create(ctx context.Context, submission *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	GetLatest(ctx context.Context, projectID, submissionType string) (*model.Submission, error)
	ClearLatest(ctx context.Context, projectID, submissionType string) error
	Update(ctx context.Context, submission *model.Submission) error
	ListLatestByProject(ctx context.Context, projectID string) ([]model.Submission, error)
	ListVersions(ctx context.Context, projectID, submissionType string) ([]model.Submission, error)
	CountApprovedCategories(ctx context.Context, projectID string) (int64, error)
}

type submissionRepo struct {
	db *gorm.DB
}

// NewSubmissionRepo 创建 SubmissionRepository 实例
func NewSubmissionRepo(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, submission *model.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	var submission model.Submission
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", id).
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetLatest 查询某课题某类别的当前最新版本
func (r *submissionRepo) GetLatest(ctx context.Context, projectID, submissionType string) (*model.Submission, error) {
	var submission model.Submission
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND submission_type = ? AND is_latest_version = ?", projectID, submissionType, true).
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// ClearLatest 将某课题某类别的现有最新版本标记为历史版本
// 必须在已有事务的 *gorm.DB 上调用（通过 Repository.WithTx 注入事务连接）
func (r *submissionRepo) ClearLatest(ctx context.Context, projectID, submissionType string) error {
	return r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("project_id = ? AND submission_type = ? AND is_latest_version = ?", projectID, submissionType, true).
		Update("is_latest_version", false).Error
}

func (r *submissionRepo) Update(ctx context.Context, submission *model.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

// ListLatestByProject 列出课题各类别的最新版本
func (r *submissionRepo) ListLatestByProject(ctx context.Context, projectID string) ([]model.Submission, error) {
	var submissions []model.Submission
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND is_latest_version = ?", projectID, true).
		Order("submission_type").
		Find(&submissions).Error
	return submissions, err
}

// ListVersions 列出某课题某类别的全部历史版本（新版本在前）
func (r *submissionRepo) ListVersions(ctx context.Context, projectID, submissionType string) ([]model.Submission, error) {
	var submissions []model.Submission
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND submission_type = ?", projectID, submissionType).
		Order("version_number DESC").
		Find(&submissions).Error
	return submissions, err
}

// CountApprovedCategories 统计最新版本已通过的类别数（进度推导的数据源）
func (r *submissionRepo) CountApprovedCategories(ctx context.Context, projectID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("project_id = ? AND is_latest_version = ? AND status = ?", projectID, true, model.SubmissionStatusApproved).
		Count(&count).Error
	return count, err
}
