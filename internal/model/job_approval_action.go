package model

import (
	"errors"
	"time"
)

// 审批动作名称
const (
	ApprovalActionSubmit  = "SubmitForApproval"
	ApprovalActionApprove = "Approve"
	ApprovalActionReject  = "Reject"
)

// JobApprovalAction 审批动作流水
type JobApprovalAction struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	JobID          string    `gorm:"type:varchar(64);not null;index:idx_job_approval_actions_job_action" json:"jobId"`
	Action         string    `gorm:"type:varchar(32);not null;index:idx_job_approval_actions_job_action" json:"action"`
	ActionByUserID string    `gorm:"type:varchar(64);not null;index" json:"actionByUserId"`
	Reason         *string   `gorm:"type:text" json:"reason"`
	CreatedAt      time.Time `gorm:"not null;index" json:"createdAtUtc"`
}

// TableName 指定表名
func (JobApprovalAction) TableName() string {
	return "job_approval_actions"
}

// Validate 验证审批动作
func (a *JobApprovalAction) Validate() error {
	if a.ID == "" {
		return errors.New("approval action ID is required")
	}
	if a.JobID == "" {
		return errors.New("job ID is required")
	}
	switch a.Action {
	case ApprovalActionSubmit, ApprovalActionApprove, ApprovalActionReject:
	default:
		return errors.New("approval action is invalid")
	}
	if a.ActionByUserID == "" {
		return errors.New("operator is required")
	}
	return nil
}
