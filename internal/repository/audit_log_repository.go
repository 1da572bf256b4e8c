package repository

import (
	"context"

	"github.com/mautops/talent-gin/internal/model"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志仓储接口
type AuditLogRepository interface {
	Save(ctx context.Context, log *model.AuditLog) error
	FindByEntity(ctx context.Context, entityName, entityID string) ([]*model.AuditLog, error)
}

// auditLogRepository 审计日志仓储实现
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Save 追加审计日志
func (r *auditLogRepository) Save(ctx context.Context, log *model.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByEntity 根据实体查找审计日志
func (r *auditLogRepository) FindByEntity(ctx context.Context, entityName, entityID string) ([]*model.AuditLog, error) {
	var logs []*model.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity_name = ? AND entity_id = ?", entityName, entityID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
