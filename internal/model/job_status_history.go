package model

import (
	"errors"
	"time"
)

// JobStatusHistory 职位状态变更流水，只追加不修改
type JobStatusHistory struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	JobID           string    `gorm:"type:varchar(64);not null;index" json:"jobId"`
	FromStatus      JobStatus `gorm:"type:int;not null" json:"fromStatus"`
	ToStatus        JobStatus `gorm:"type:int;not null" json:"toStatus"`
	ChangedByUserID string    `gorm:"type:varchar(64);not null" json:"changedByUserId"`
	Reason          *string   `gorm:"type:text" json:"reason"`
	CreatedAt       time.Time `gorm:"not null;index" json:"createdAtUtc"`
}

// TableName 指定表名
func (JobStatusHistory) TableName() string {
	return "job_status_histories"
}

// Validate 验证状态流水
func (h *JobStatusHistory) Validate() error {
	if h.ID == "" {
		return errors.New("history ID is required")
	}
	if h.JobID == "" {
		return errors.New("job ID is required")
	}
	if !h.FromStatus.CanTransitionTo(h.ToStatus) {
		return errors.New("history does not describe a legal transition")
	}
	if h.ChangedByUserID == "" {
		return errors.New("operator is required")
	}
	return nil
}
