package repository

import (
	"context"
	"time"

	"github.com/mautops/talent-gin/internal/model"
	"gorm.io/gorm"
)

// EventRepository 生命周期事件仓储接口
type EventRepository interface {
	Save(ctx context.Context, event *model.JobEvent) error
	FindByID(ctx context.Context, id string) (*model.JobEvent, error)
	FindByJobID(ctx context.Context, jobID string) ([]*model.JobEvent, error)
	FindPending(ctx context.Context, limit int) ([]*model.JobEvent, error)
	UpdateStatus(ctx context.Context, id, status string, retryCount int) error
}

// eventRepository 事件仓储实现
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建事件仓储
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Save 保存事件
func (r *eventRepository) Save(ctx context.Context, event *model.JobEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// FindByID 根据 ID 查找事件
func (r *eventRepository) FindByID(ctx context.Context, id string) (*model.JobEvent, error) {
	var event model.JobEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByJobID 根据职位 ID 查找事件
func (r *eventRepository) FindByJobID(ctx context.Context, jobID string) ([]*model.JobEvent, error) {
	var events []*model.JobEvent
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("created_at ASC").Find(&events).Error
	return events, err
}

// FindPending 查找待投递的事件
func (r *eventRepository) FindPending(ctx context.Context, limit int) ([]*model.JobEvent, error) {
	var events []*model.JobEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", model.EventStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// UpdateStatus 更新投递状态
func (r *eventRepository) UpdateStatus(ctx context.Context, id, status string, retryCount int) error {
	return r.db.WithContext(ctx).
		Model(&model.JobEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"retry_count": retryCount,
			"updated_at":  time.Now().UTC(),
		}).Error
}
