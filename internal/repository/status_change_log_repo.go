package repository

import (
	"context"

	"gorm.io/gorm"

	"fyp-portal/backend/internal/model"
)

// StatusChangeLogRepository 状态变更日志数据访问接口
type StatusChangeLogRepository interface {
	Create(ctx context.Context, log *model.StatusChangeLog) error
	ListByProject(ctx context.Context, projectID string) ([]model.StatusChangeLog, error)
}

type statusChangeLogRepo struct {
	db *gorm.DB
}

// NewStatusChangeLogRepo 创建 StatusChangeLogRepository 实例
func NewStatusChangeLogRepo(db *gorm.DB) StatusChangeLogRepository {
	return &statusChangeLogRepo{db: db}
}

func (r *statusChangeLogRepo) Create(ctx context.Context, log *model.StatusChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *statusChangeLogRepo) ListByProject(ctx context.Context, projectID string) ([]model.StatusChangeLog, error) {
	var logs []model.StatusChangeLog
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}
