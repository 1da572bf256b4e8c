package repository

import (
	"context"

	"github.com/mautops/talent-gin/internal/model"
	"gorm.io/gorm"
)

// JobStatusHistoryRepository 状态流水仓储接口，只追加
type JobStatusHistoryRepository interface {
	Save(ctx context.Context, history *model.JobStatusHistory) error
	FindByJobID(ctx context.Context, jobID string) ([]*model.JobStatusHistory, error)
}

type jobStatusHistoryRepository struct {
	db *gorm.DB
}

// NewJobStatusHistoryRepository 创建状态流水仓储
func NewJobStatusHistoryRepository(db *gorm.DB) JobStatusHistoryRepository {
	return &jobStatusHistoryRepository{db: db}
}

// Save 追加状态流水
func (r *jobStatusHistoryRepository) Save(ctx context.Context, history *model.JobStatusHistory) error {
	if err := history.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(history).Error
}

// FindByJobID 按时间正序返回职位的状态流水
func (r *jobStatusHistoryRepository) FindByJobID(ctx context.Context, jobID string) ([]*model.JobStatusHistory, error) {
	var histories []*model.JobStatusHistory
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&histories).Error
	return histories, err
}
