package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/mautops/talent-gin/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLogService 审计记录器，绑定的 db 为事务时随事务一起提交
type AuditLogService interface {
	Record(ctx context.Context, actorID, action, entityName, entityID string, payload interface{}) error
	WithTx(tx *gorm.DB) AuditLogService
}

type auditLogService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(db *gorm.DB) AuditLogService {
	return &auditLogService{auditRepo: repository.NewAuditLogRepository(db)}
}

// WithTx 返回绑定到事务的记录器
func (s *auditLogService) WithTx(tx *gorm.DB) AuditLogService {
	return &auditLogService{auditRepo: repository.NewAuditLogRepository(tx)}
}

// Record 追加一条审计日志；actorID、entityID 为空表示匿名操作或无具体实体
func (s *auditLogService) Record(ctx context.Context, actorID, action, entityName, entityID string, payload interface{}) error {
	data := datatypes.JSON("{}")
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
		data = raw
	}

	entry := &model.AuditLog{
		ID:         uuid.New().String(),
		UserID:     optional(actorID),
		Action:     action,
		EntityName: entityName,
		EntityID:   optional(entityID),
		Payload:    data,
		RequestID:  logger.RequestID(ctx),
		IP:         GetClientIP(ctx),
		UserAgent:  GetUserAgent(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.auditRepo.Save(ctx, entry); err != nil {
		return fmt.Errorf("save audit log: %w", err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
