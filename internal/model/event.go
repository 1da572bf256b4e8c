package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// 事件投递状态
const (
	EventStatusPending = "pending"
	EventStatusSuccess = "success"
	EventStatusFailed  = "failed"
)

// JobEvent 职位生命周期事件（发件箱），与状态变更同事务写入
type JobEvent struct {
	ID         string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	JobID      string         `gorm:"type:varchar(64);not null;index" json:"jobId"`
	Type       string         `gorm:"type:varchar(32);not null;index" json:"type"`
	Payload    datatypes.JSON `gorm:"not null" json:"payload"`
	Status     string         `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	RetryCount int            `gorm:"type:int;default:0" json:"retryCount"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updatedAt"`
}

// TableName 指定表名
func (JobEvent) TableName() string {
	return "job_events"
}

// Validate 验证事件模型
func (e *JobEvent) Validate() error {
	if e.ID == "" {
		return errors.New("event ID is required")
	}
	if e.JobID == "" {
		return errors.New("job ID is required")
	}
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if len(e.Payload) == 0 {
		return errors.New("event payload is required")
	}
	if e.Status == "" {
		e.Status = EventStatusPending
	}
	return nil
}
