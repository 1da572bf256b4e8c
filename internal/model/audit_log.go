package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// AuditLog 审计日志，只追加
type AuditLog struct {
	ID         string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID     *string        `gorm:"type:varchar(64);index" json:"userId"` // 匿名操作为空
	Action     string         `gorm:"type:varchar(64);not null;index" json:"action"`
	EntityName string         `gorm:"type:varchar(64);not null" json:"entityName"`
	EntityID   *string        `gorm:"type:varchar(64);index" json:"entityId"`
	Payload    datatypes.JSON `gorm:"not null" json:"payload"`
	RequestID  string         `gorm:"type:varchar(64);index" json:"requestId,omitempty"`
	IP         string         `gorm:"type:varchar(45)" json:"ip,omitempty"` // IPv4 或 IPv6
	UserAgent  string         `gorm:"type:text" json:"userAgent,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"createdAtUtc"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Validate 验证审计日志模型
func (a *AuditLog) Validate() error {
	if a.ID == "" {
		return errors.New("audit log ID is required")
	}
	if a.Action == "" {
		return errors.New("action is required")
	}
	if a.EntityName == "" {
		return errors.New("entity name is required")
	}
	if len(a.Payload) == 0 {
		a.Payload = datatypes.JSON("{}")
	}
	return nil
}
