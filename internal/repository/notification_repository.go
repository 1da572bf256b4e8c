package repository

import (
	"context"
	"time"

	"github.com/mautops/talent-gin/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository 站内通知仓储接口
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []*model.AppNotification) error
	FindByIDForUser(ctx context.Context, id, userID string) (*model.AppNotification, error)
	FindByUser(ctx context.Context, userID string, limit int) ([]*model.AppNotification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	MarkEntityRead(ctx context.Context, userID, entityName, entityID string, readAt time.Time) (int64, error)
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateBatch 批量写入通知，空切片直接返回
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*model.AppNotification) error {
	if len(notifications) == 0 {
		return nil
	}
	for _, n := range notifications {
		if err := n.Validate(); err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

// FindByIDForUser 查找属于指定用户的通知
func (r *notificationRepository) FindByIDForUser(ctx context.Context, id, userID string) (*model.AppNotification, error) {
	var n model.AppNotification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// FindByUser 最新的通知在前
func (r *notificationRepository) FindByUser(ctx context.Context, userID string, limit int) ([]*model.AppNotification, error) {
	var list []*model.AppNotification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// CountUnread 统计未读数
func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AppNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead 只更新未读行，已读行保持原 ReadAt
func (r *notificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.AppNotification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt}).Error
}

// MarkEntityRead 将用户关于某实体的未读通知标记为已读
func (r *notificationRepository) MarkEntityRead(ctx context.Context, userID, entityName, entityID string, readAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AppNotification{}).
		Where("user_id = ? AND entity_name = ? AND entity_id = ? AND is_read = ?", userID, entityName, entityID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt})
	return result.RowsAffected, result.Error
}

// MarkAllRead 将用户全部未读通知标记为已读
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AppNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt})
	return result.RowsAffected, result.Error
}
