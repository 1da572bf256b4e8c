package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/metrics"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/mautops/talent-gin/internal/repository"
	"gorm.io/gorm"
)

// NotificationSink 事务提交后的通知外发（WebSocket、消息总线等），失败不影响已提交的数据
type NotificationSink interface {
	Deliver(ctx context.Context, notifications []*model.AppNotification) error
}

// NotificationService 通知扇出与已读标记
type NotificationService interface {
	WithTx(tx *gorm.DB) NotificationService
	NotifyApprovers(ctx context.Context, job *model.Job, notificationType string) ([]*model.AppNotification, error)
	NotifySubmitters(ctx context.Context, job *model.Job, approved bool, reason *string) ([]*model.AppNotification, error)
	MarkJobRead(ctx context.Context, userID, jobID string) (int64, error)
	Deliver(ctx context.Context, notifications []*model.AppNotification)

	ListForUser(ctx context.Context, userID string, limit int) ([]*model.AppNotification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) (*model.AppNotification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	db    *gorm.DB
	repo  repository.NotificationRepository
	sinks []NotificationSink
	now   func() time.Time
}

// NewNotificationService 创建通知服务
func NewNotificationService(db *gorm.DB, sinks ...NotificationSink) NotificationService {
	return &notificationService{
		db:    db,
		repo:  repository.NewNotificationRepository(db),
		sinks: sinks,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithTx 返回绑定到事务的服务，外发通道保持不变
func (s *notificationService) WithTx(tx *gorm.DB) NotificationService {
	return &notificationService{
		db:    tx,
		repo:  repository.NewNotificationRepository(tx),
		sinks: s.sinks,
		now:   s.now,
	}
}

// NotifyApprovers 向所有持有 Jobs.Approve 的用户发送通知；无接收人时不写入也不报错
func (s *notificationService) NotifyApprovers(ctx context.Context, job *model.Job, notificationType string) ([]*model.AppNotification, error) {
	var title, message string
	switch notificationType {
	case model.NotificationJobCreated:
		title = "New job draft created"
		message = fmt.Sprintf("%s (%s) has been created as draft.", job.Title, job.JobCode)
	case model.NotificationJobApproval:
		title = "New job requires approval"
		message = fmt.Sprintf("%s (%s) is waiting for approval.", job.Title, job.JobCode)
	default:
		return nil, fmt.Errorf("unsupported approver notification type %q", notificationType)
	}

	recipients, err := auth.UsersWithPermission(ctx, s.db, auth.JobsApprove)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, recipients, notificationType, title, message, job.ID)
}

// NotifySubmitters 向该职位全部提交人发送审批结果
func (s *notificationService) NotifySubmitters(ctx context.Context, job *model.Job, approved bool, reason *string) ([]*model.AppNotification, error) {
	recipients, err := repository.NewJobApprovalActionRepository(s.db).FindSubmitterIDs(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("load submitters: %w", err)
	}

	title, outcome := "Job Rejected", "rejected"
	if approved {
		title, outcome = "Job Approved", "approved"
	}
	message := fmt.Sprintf("%s (%s) has been %s.", job.Title, job.JobCode, outcome)
	if reason != nil && strings.TrimSpace(*reason) != "" {
		message += " Reason: " + strings.TrimSpace(*reason)
	}
	return s.create(ctx, recipients, model.NotificationApprovalResult, title, message, job.ID)
}

func (s *notificationService) create(ctx context.Context, recipients []string, notificationType, title, message, jobID string) ([]*model.AppNotification, error) {
	if len(recipients) == 0 {
		return nil, nil
	}

	now := s.now()
	entityName := model.EntityJob
	notifications := make([]*model.AppNotification, 0, len(recipients))
	for _, userID := range recipients {
		entityID := jobID
		notifications = append(notifications, &model.AppNotification{
			ID:         uuid.New().String(),
			UserID:     userID,
			Type:       notificationType,
			Title:      title,
			Message:    message,
			EntityName: &entityName,
			EntityID:   &entityID,
			CreatedAt:  now,
		})
	}
	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return nil, fmt.Errorf("create notifications: %w", err)
	}
	return notifications, nil
}

// MarkJobRead 将用户关于该职位的未读通知标记为已读
func (s *notificationService) MarkJobRead(ctx context.Context, userID, jobID string) (int64, error) {
	n, err := s.repo.MarkEntityRead(ctx, userID, model.EntityJob, jobID, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark job notifications read: %w", err)
	}
	return n, nil
}

// Deliver 提交后外发，逐个通道尝试，失败仅记录日志
func (s *notificationService) Deliver(ctx context.Context, notifications []*model.AppNotification) {
	if len(notifications) == 0 {
		return
	}
	for _, n := range notifications {
		metrics.RecordNotificationsCreated(n.Type, 1)
	}
	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, notifications); err != nil {
			logger.FromContext(ctx).WithError(err).
				WithField("count", len(notifications)).
				Warn("notification delivery failed")
		}
	}
}

// ListForUser 最新通知在前
func (s *notificationService) ListForUser(ctx context.Context, userID string, limit int) ([]*model.AppNotification, error) {
	return s.repo.FindByUser(ctx, userID, limit)
}

// CountUnread 统计未读数
func (s *notificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead 标记单条通知已读；已读的通知保持原 ReadAt
func (s *notificationService) MarkRead(ctx context.Context, userID, id string) (*model.AppNotification, error) {
	n, err := s.repo.FindByIDForUser(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load notification: %w", err)
	}
	if n.IsRead {
		return n, nil
	}

	readAt := s.now()
	if err := s.repo.MarkRead(ctx, n.ID, readAt); err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n.IsRead = true
	n.ReadAt = &readAt
	return n, nil
}

// MarkAllRead 标记用户全部通知已读，返回更新行数
func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}
