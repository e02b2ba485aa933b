package repository

import (
	"context"

	"gorm.io/gorm"

	"fyp-portal/backend/internal/model"
	pkgerrors "fyp-portal/backend/pkg/errors"
)

// SupervisorStatusCount 按 (指导教师, 状态) 分组的课题计数行
type SupervisorStatusCount struct {
	SupervisorID string
	Status       string
	Count        int64
}

// ProjectRepository 课题数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	GetByStudent(ctx context.Context, studentID string) (*model.Project, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.Project, error)
	ListBySupervisor(ctx context.Context, supervisorID string) ([]model.Project, error)
	ListUnassigned(ctx context.Context) ([]model.Project, error)
	ListAll(ctx context.Context) ([]model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	UpdateStatusCAS(ctx context.Context, projectID, fromStatus string, updates map[string]interface{}) error
	UpdateProgress(ctx context.Context, projectID string, progress int) error
	CountGroupedBySupervisor(ctx context.Context) ([]SupervisorStatusCount, error)
}

type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Supervisor").
		Where("project_id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetByStudent 查询学生名下的课题（每个学生至多一个）
func (r *projectRepo) GetByStudent(ctx context.Context, studentID string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) ListByStudent(ctx context.Context, studentID string) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Preload("Supervisor").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) ListBySupervisor(ctx context.Context, supervisorID string) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("supervisor_id = ?", supervisorID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) ListUnassigned(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("supervisor_id IS NULL").
		Order("created_at").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) ListAll(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Supervisor").
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) Update(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// UpdateStatusCAS 带状态前置条件的更新（compare-and-swap）
// 仅当课题当前状态仍为 fromStatus 时应用 updates；
// 并发流转丢失竞争时返回 pkg/errors.ErrStatusConflict
func (r *projectRepo) UpdateStatusCAS(ctx context.Context, projectID, fromStatus string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("project_id = ? AND status = ?", projectID, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrStatusConflict
	}
	return nil
}

// UpdateProgress 刷新缓存的进度百分比（台账仍为唯一事实来源）
func (r *projectRepo) UpdateProgress(ctx context.Context, projectID string, progress int) error {
	return r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("project_id = ?", projectID).
		Update("progress_percentage", progress).Error
}

// CountGroupedBySupervisor 统计每位指导教师名下各状态的课题数
func (r *projectRepo) CountGroupedBySupervisor(ctx context.Context) ([]SupervisorStatusCount, error) {
	var rows []SupervisorStatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Select("supervisor_id, status, COUNT(*) AS count").
		Where("supervisor_id IS NOT NULL").
		Group("supervisor_id, status").
		Scan(&rows).Error
	return rows, err
}
