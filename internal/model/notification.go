package model

import (
	"errors"
	"time"
)

// 通知类型
const (
	NotificationJobCreated     = "JobCreated"
	NotificationJobApproval    = "JobApproval"
	NotificationApprovalResult = "ApprovalResult"
)

// EntityJob 通知和审计中职位实体的名称
const EntityJob = "Job"

// AppNotification 站内通知，每个接收人一行
type AppNotification struct {
	ID         string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID     string     `gorm:"type:varchar(64);not null;index:idx_app_notifications_user_read" json:"userId"`
	Type       string     `gorm:"type:varchar(64);not null" json:"type"`
	Title      string     `gorm:"type:varchar(200);not null" json:"title"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	EntityName *string    `gorm:"type:varchar(64)" json:"entityName"`
	EntityID   *string    `gorm:"type:varchar(64);index" json:"entityId"`
	IsRead     bool       `gorm:"not null;default:false;index:idx_app_notifications_user_read" json:"isRead"`
	ReadAt     *time.Time `json:"readAtUtc"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"createdAtUtc"`
}

// TableName 指定表名
func (AppNotification) TableName() string {
	return "app_notifications"
}

// Validate 验证通知
func (n *AppNotification) Validate() error {
	if n.ID == "" {
		return errors.New("notification ID is required")
	}
	if n.UserID == "" {
		return errors.New("recipient is required")
	}
	if n.Type == "" {
		return errors.New("notification type is required")
	}
	if n.Title == "" {
		return errors.New("notification title is required")
	}
	return nil
}
