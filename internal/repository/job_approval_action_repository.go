package repository

import (
	"context"

	"github.com/mautops/talent-gin/internal/model"
	"gorm.io/gorm"
)

// JobApprovalActionRepository 审批动作仓储接口
type JobApprovalActionRepository interface {
	Save(ctx context.Context, action *model.JobApprovalAction) error
	FindByJobID(ctx context.Context, jobID string) ([]*model.JobApprovalAction, error)
	FindSubmitterIDs(ctx context.Context, jobID string) ([]string, error)
	CountByJobID(ctx context.Context, jobID string) (int64, error)
}

type jobApprovalActionRepository struct {
	db *gorm.DB
}

// NewJobApprovalActionRepository 创建审批动作仓储
func NewJobApprovalActionRepository(db *gorm.DB) JobApprovalActionRepository {
	return &jobApprovalActionRepository{db: db}
}

// Save 追加审批动作
func (r *jobApprovalActionRepository) Save(ctx context.Context, action *model.JobApprovalAction) error {
	if err := action.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(action).Error
}

// FindByJobID 按时间正序返回审批动作
func (r *jobApprovalActionRepository) FindByJobID(ctx context.Context, jobID string) ([]*model.JobApprovalAction, error) {
	var actions []*model.JobApprovalAction
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&actions).Error
	return actions, err
}

// FindSubmitterIDs 返回曾提交过审批的去重用户
func (r *jobApprovalActionRepository) FindSubmitterIDs(ctx context.Context, jobID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.JobApprovalAction{}).
		Where("job_id = ? AND action = ?", jobID, model.ApprovalActionSubmit).
		Distinct().
		Order("action_by_user_id").
		Pluck("action_by_user_id", &ids).Error
	return ids, err
}

// CountByJobID 统计职位的审批动作数
func (r *jobApprovalActionRepository) CountByJobID(ctx context.Context, jobID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.JobApprovalAction{}).Where("job_id = ?", jobID).Count(&count).Error
	return count, err
}
