package service

import (
	"context"
	"fmt"

	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/mautops/talent-gin/internal/repository"
	"gorm.io/gorm"
)

const (
	approvalQueueLimit     = 10
	dashboardNotifications = 20
)

// DashboardService 首页概览
type DashboardService interface {
	Get(ctx context.Context) (*Dashboard, error)
}

// DashboardSummary 按状态统计的职位数
type DashboardSummary struct {
	TotalJobs        int64 `json:"totalJobs"`
	DraftJobs        int64 `json:"draftJobs"`
	PendingApprovals int64 `json:"pendingApprovals"`
	ActiveJobs       int64 `json:"activeJobs"`
	ClosedJobs       int64 `json:"closedJobs"`
}

// Dashboard 概览数据；ApprovalQueue 仅对审批人返回
type Dashboard struct {
	Summary       DashboardSummary         `json:"summary"`
	CanApprove    bool                     `json:"canApprove"`
	ApprovalQueue []*model.Job             `json:"approvalQueue"`
	Notifications []*model.AppNotification `json:"notifications"`
	UnreadCount   int64                    `json:"unreadCount"`
}

type dashboardService struct {
	db            *gorm.DB
	perms         auth.Checker
	notifications NotificationService
}

// NewDashboardService 创建概览服务
func NewDashboardService(db *gorm.DB, perms auth.Checker, notifications NotificationService) DashboardService {
	return &dashboardService{db: db, perms: perms, notifications: notifications}
}

// Get 汇总职位统计、待审批队列与当前用户的通知
func (s *dashboardService) Get(ctx context.Context) (*Dashboard, error) {
	userID := auth.UserID(ctx)
	jobRepo := repository.NewJobRepository(s.db)

	counts, err := jobRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	summary := DashboardSummary{
		DraftJobs:        counts[model.JobStatusDraft],
		PendingApprovals: counts[model.JobStatusPendingApproval],
		ActiveJobs:       counts[model.JobStatusActive],
		ClosedJobs:       counts[model.JobStatusClosed],
	}
	for _, n := range counts {
		summary.TotalJobs += n
	}

	canApprove, err := s.perms.HasPermission(ctx, userID, auth.JobsApprove)
	if err != nil {
		return nil, err
	}
	queue := []*model.Job{}
	if canApprove {
		if queue, err = jobRepo.FindPendingApproval(ctx, approvalQueueLimit); err != nil {
			return nil, fmt.Errorf("load approval queue: %w", err)
		}
	}

	notifications, err := s.notifications.ListForUser(ctx, userID, dashboardNotifications)
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}

	return &Dashboard{
		Summary:       summary,
		CanApprove:    canApprove,
		ApprovalQueue: queue,
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}
