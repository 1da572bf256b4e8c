package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/metrics"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/mautops/talent-gin/internal/repository"
	"github.com/mautops/talent-gin/internal/utils"
	"gorm.io/gorm"
)

// 审计动作名称
const (
	AuditJobCreated   = "JobCreated"
	AuditJobUpdated   = "JobUpdated"
	AuditJobDeleted   = "JobDeleted"
	AuditJobSubmitted = "JobSubmittedForApproval"
	AuditJobApproved  = "JobApproved"
	AuditJobRejected  = "JobRejected"
	AuditJobClosed    = "JobClosed"
)

// 生命周期事件类型（Webhook）
const (
	EventJobCreated   = "job.created"
	EventJobSubmitted = "job.submitted"
	EventJobApproved  = "job.approved"
	EventJobRejected  = "job.rejected"
	EventJobClosed    = "job.closed"
)

// EventPublisher 提交后投递生命周期事件
type EventPublisher interface {
	Enqueue(eventIDs ...string)
}

// JobService 职位服务：CRUD 与状态机迁移
type JobService interface {
	Create(ctx context.Context, req *CreateJobRequest) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, filter *ListJobsFilter) ([]*model.Job, int64, error)
	Update(ctx context.Context, id string, req *UpdateJobRequest) (*model.Job, error)
	Delete(ctx context.Context, id string) error
	GetHistory(ctx context.Context, id string) (*JobHistory, error)

	SubmitForApproval(ctx context.Context, id string) (*model.Job, error)
	Approve(ctx context.Context, id string, reason *string) (*model.Job, error)
	Reject(ctx context.Context, id string, reason *string) (*model.Job, error)
	Close(ctx context.Context, id string) (*model.Job, error)
}

// JobRequest 创建/更新职位的公共字段
type JobRequest struct {
	Title               string                `json:"title" binding:"required" example:"Senior Backend Engineer"`
	Department          string                `json:"department" binding:"required" example:"Engineering"`
	SkillsCSV           string                `json:"skillsCsv" example:"go,postgres,kubernetes"`
	SalaryRangeMin      *float64              `json:"salaryRangeMin,omitempty" example:"80000"`
	SalaryRangeMax      *float64              `json:"salaryRangeMax,omitempty" example:"120000"`
	IsSalaryNegotiable  bool                  `json:"isSalaryNegotiable"`                 // 面议时忽略薪资范围
	LocationType        model.LocationType    `json:"locationType" binding:"required"`    // 1 远程 2 现场 3 混合
	LocationText        string                `json:"locationText" example:"Dhaka"`
	EmploymentType      model.EmploymentType  `json:"employmentType" binding:"required"`  // 1 全职 2 兼职 3 合同 4 实习
	ExperienceLevel     model.ExperienceLevel `json:"experienceLevel" binding:"required"` // 1 初级 2 中级 3 高级 4 主管
	JobCode             string                `json:"jobCode" binding:"required" example:"ENG-001"`
	VacancyCount        int                   `json:"vacancyCount" example:"2"`
	DescriptionHTML     string                `json:"descriptionHtml"`
	RequirementsHTML    string                `json:"requirementsHtml"`
	DescriptionJSON     string                `json:"descriptionJson"`
	RequirementsJSON    string                `json:"requirementsJson"`
	ApplicationDeadline *time.Time            `json:"applicationDeadlineUtc,omitempty"`
	Stages              []JobStageRequest     `json:"stages,omitempty"`
}

// JobStageRequest 阶段配置
type JobStageRequest struct {
	StageName  string `json:"stageName" binding:"required" example:"Phone Screen"`
	StageOrder int    `json:"stageOrder" example:"1"`
	IsActive   *bool  `json:"isActive,omitempty"` // 缺省为启用
}

// CreateJobRequest 创建职位请求
type CreateJobRequest struct {
	JobRequest
}

// UpdateJobRequest 更新职位请求
type UpdateJobRequest struct {
	JobRequest
	Version int `json:"version,omitempty" example:"3"` // 非零时要求与当前版本一致
}

// ListJobsFilter 职位列表过滤器
type ListJobsFilter struct {
	Status     *model.JobStatus
	Department *string
	Keyword    *string
	Page       int
	PageSize   int
	SortBy     string
	Order      string
}

// JobHistory 状态流水与审批动作
type JobHistory struct {
	JobID           string                     `json:"jobId"`
	StatusHistory   []*model.JobStatusHistory  `json:"statusHistory"`
	ApprovalActions []*model.JobApprovalAction `json:"approvalActions"`
}

// transition 一次状态迁移的定义
type transition struct {
	permission  auth.Code
	allowed     func(model.JobStatus) bool
	stateMsg    string
	to          model.JobStatus
	action      string // 审批动作，为空时不写入
	auditAction string
	eventType   string
}

var (
	submitTransition = transition{
		permission:  auth.JobsSubmitForApproval,
		allowed:     func(s model.JobStatus) bool { return s == model.JobStatusDraft },
		stateMsg:    MsgOnlyDraftCanBeSubmitted,
		to:          model.JobStatusPendingApproval,
		action:      model.ApprovalActionSubmit,
		auditAction: AuditJobSubmitted,
		eventType:   EventJobSubmitted,
	}
	approveTransition = transition{
		permission:  auth.JobsApprove,
		allowed:     func(s model.JobStatus) bool { return s == model.JobStatusPendingApproval },
		stateMsg:    MsgOnlyPendingCanBeApproved,
		to:          model.JobStatusActive,
		action:      model.ApprovalActionApprove,
		auditAction: AuditJobApproved,
		eventType:   EventJobApproved,
	}
	rejectTransition = transition{
		permission:  auth.JobsReject,
		allowed:     func(s model.JobStatus) bool { return s == model.JobStatusPendingApproval },
		stateMsg:    MsgOnlyPendingCanBeRejected,
		to:          model.JobStatusDraft,
		action:      model.ApprovalActionReject,
		auditAction: AuditJobRejected,
		eventType:   EventJobRejected,
	}
	closeTransition = transition{
		permission:  auth.JobsClose,
		allowed:     func(s model.JobStatus) bool { return s != model.JobStatusClosed },
		stateMsg:    MsgJobAlreadyClosed,
		to:          model.JobStatusClosed,
		auditAction: AuditJobClosed,
		eventType:   EventJobClosed,
	}
)

// jobService 职位服务实现
type jobService struct {
	db            *gorm.DB
	perms         auth.Checker
	audit         AuditLogService
	notifications NotificationService
	events        EventPublisher
	now           func() time.Time
}

// NewJobService 创建职位服务；events 可以为 nil
func NewJobService(db *gorm.DB, perms auth.Checker, audit AuditLogService, notifications NotificationService, events EventPublisher) JobService {
	return &jobService{
		db:            db,
		perms:         perms,
		audit:         audit,
		notifications: notifications,
		events:        events,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// authorize 权限检查先于任何实体读取
func (s *jobService) authorize(ctx context.Context, code auth.Code) (string, error) {
	userID := auth.UserID(ctx)
	allowed, err := s.perms.HasPermission(ctx, userID, code)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", ErrForbidden
	}
	return userID, nil
}

// Create 创建草稿职位，并通知所有审批人
func (s *jobService) Create(ctx context.Context, req *CreateJobRequest) (*model.Job, error) {
	userID, err := s.authorize(ctx, auth.JobsCreate)
	if err != nil {
		return nil, err
	}

	now := s.now()
	job := &model.Job{
		ID:        uuid.New().String(),
		Status:    model.JobStatusDraft,
		Version:   1,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyJobRequest(job, &req.JobRequest); err != nil {
		return nil, err
	}
	job.Stages = buildStages(job.ID, req.Stages)

	var notifications []*model.AppNotification
	var eventID string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		jobRepo := repository.NewJobRepository(tx)
		exists, err := jobRepo.ExistsByCode(ctx, job.JobCode, "")
		if err != nil {
			return fmt.Errorf("check job code: %w", err)
		}
		if exists {
			return ErrDuplicateJobCode
		}
		if err := jobRepo.Create(ctx, job); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateJobCode
			}
			return fmt.Errorf("create job: %w", err)
		}
		if err := s.audit.WithTx(tx).Record(ctx, userID, AuditJobCreated, model.EntityJob, job.ID, jobSnapshot(job)); err != nil {
			return err
		}
		if eventID, err = s.saveEvent(ctx, tx, job, EventJobCreated, userID, nil); err != nil {
			return err
		}
		notifications, err = s.notifications.WithTx(tx).NotifyApprovers(ctx, job, model.NotificationJobCreated)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, notifications, eventID)
	metrics.RecordJobCreated()
	logger.FromContext(ctx).WithField("job_id", job.ID).Info("job created")
	return job, nil
}

// Get 获取职位（含阶段配置）
func (s *jobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := repository.NewJobRepository(s.db).FindByIDWithStages(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	return job, nil
}

// List 分页列出职位
func (s *jobService) List(ctx context.Context, filter *ListJobsFilter) ([]*model.Job, int64, error) {
	repoFilter := &repository.JobFilter{}
	if filter != nil {
		repoFilter.Status = filter.Status
		repoFilter.Department = filter.Department
		repoFilter.Keyword = filter.Keyword
		repoFilter.Page = filter.Page
		repoFilter.PageSize = filter.PageSize
		if filter.SortBy != "" {
			column, err := utils.ResolveSortColumn(filter.SortBy, utils.JobSortColumns)
			if err != nil {
				return nil, 0, invalidField("sortBy", err)
			}
			repoFilter.SortColumn = column
			repoFilter.SortOrder = utils.SanitizeSortOrder(filter.Order)
		}
	}
	if repoFilter.PageSize > 100 {
		repoFilter.PageSize = 100
	}

	jobs, total, err := repository.NewJobRepository(s.db).FindByFilter(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, total, nil
}

// Update 更新职位字段与阶段配置，按版本号乐观并发控制
func (s *jobService) Update(ctx context.Context, id string, req *UpdateJobRequest) (*model.Job, error) {
	userID, err := s.authorize(ctx, auth.JobsEdit)
	if err != nil {
		return nil, err
	}

	var job *model.Job
	err = s.db.Transaction(func(tx *gorm.DB) error {
		jobRepo := repository.NewJobRepository(tx)
		job, err = jobRepo.FindByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		if req.Version != 0 && req.Version != job.Version {
			return ErrConflict
		}

		expected := job.Version
		if err := applyJobRequest(job, &req.JobRequest); err != nil {
			return err
		}
		exists, err := jobRepo.ExistsByCode(ctx, job.JobCode, job.ID)
		if err != nil {
			return fmt.Errorf("check job code: %w", err)
		}
		if exists {
			return ErrDuplicateJobCode
		}

		job.UpdatedAt = s.now()
		if err := jobRepo.UpdateFields(ctx, job, expected); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return ErrConflict
			}
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateJobCode
			}
			return fmt.Errorf("update job: %w", err)
		}
		if req.Stages != nil {
			job.Stages = buildStages(job.ID, req.Stages)
			if err := jobRepo.ReplaceStages(ctx, job.ID, job.Stages); err != nil {
				return fmt.Errorf("replace stages: %w", err)
			}
		}
		return s.audit.WithTx(tx).Record(ctx, userID, AuditJobUpdated, model.EntityJob, job.ID, jobSnapshot(job))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, job.ID)
}

// Delete 仅允许删除从未提交过审批的草稿
func (s *jobService) Delete(ctx context.Context, id string) error {
	userID, err := s.authorize(ctx, auth.JobsEdit)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		jobRepo := repository.NewJobRepository(tx)
		job, err := jobRepo.FindByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		if job.Status != model.JobStatusDraft {
			return invalidState(MsgOnlyUnsubmittedDraftDeletable)
		}
		actions, err := repository.NewJobApprovalActionRepository(tx).CountByJobID(ctx, id)
		if err != nil {
			return fmt.Errorf("count approval actions: %w", err)
		}
		if actions > 0 {
			return invalidState(MsgOnlyUnsubmittedDraftDeletable)
		}
		if err := jobRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		return s.audit.WithTx(tx).Record(ctx, userID, AuditJobDeleted, model.EntityJob, id, jobSnapshot(job))
	})
}

// GetHistory 获取职位的状态流水与审批动作
func (s *jobService) GetHistory(ctx context.Context, id string) (*JobHistory, error) {
	if _, err := repository.NewJobRepository(s.db).FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	histories, err := repository.NewJobStatusHistoryRepository(s.db).FindByJobID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	actions, err := repository.NewJobApprovalActionRepository(s.db).FindByJobID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load approval actions: %w", err)
	}
	return &JobHistory{JobID: id, StatusHistory: histories, ApprovalActions: actions}, nil
}

// SubmitForApproval Draft -> PendingApproval，通知所有审批人
func (s *jobService) SubmitForApproval(ctx context.Context, id string) (*model.Job, error) {
	return s.transition(ctx, id, submitTransition, nil,
		func(ctx context.Context, notifier NotificationService, job *model.Job, _ string, _ *string) ([]*model.AppNotification, error) {
			return notifier.NotifyApprovers(ctx, job, model.NotificationJobApproval)
		})
}

// Approve PendingApproval -> Active，清空驳回原因并通知提交人
func (s *jobService) Approve(ctx context.Context, id string, reason *string) (*model.Job, error) {
	return s.transition(ctx, id, approveTransition, reason, s.outcomeEffects(true))
}

// Reject PendingApproval -> Draft，记录驳回原因并通知提交人
func (s *jobService) Reject(ctx context.Context, id string, reason *string) (*model.Job, error) {
	return s.transition(ctx, id, rejectTransition, reason, s.outcomeEffects(false))
}

// Close 任意未关闭状态 -> Closed
func (s *jobService) Close(ctx context.Context, id string) (*model.Job, error) {
	return s.transition(ctx, id, closeTransition, nil, nil)
}

// sideEffects 迁移在事务内的附加写入，返回需要外发的通知
type sideEffects func(ctx context.Context, notifier NotificationService, job *model.Job, actorID string, reason *string) ([]*model.AppNotification, error)

// outcomeEffects 审批结果：标记审批人自己的相关通知已读，再通知提交人
func (s *jobService) outcomeEffects(approved bool) sideEffects {
	return func(ctx context.Context, notifier NotificationService, job *model.Job, actorID string, reason *string) ([]*model.AppNotification, error) {
		if _, err := notifier.MarkJobRead(ctx, actorID, job.ID); err != nil {
			return nil, err
		}
		return notifier.NotifySubmitters(ctx, job, approved, reason)
	}
}

// transition 权限 -> 存在性 -> 前置状态 -> 条件更新，全部写入在同一事务中提交
func (s *jobService) transition(ctx context.Context, id string, t transition, reason *string, effects sideEffects) (*model.Job, error) {
	userID, err := s.authorize(ctx, t.permission)
	if err != nil {
		return nil, err
	}
	reason, err = utils.NormalizeReason(reason)
	if err != nil {
		return nil, invalidField("reason", err)
	}

	var job *model.Job
	var from model.JobStatus
	var notifications []*model.AppNotification
	var eventID string

	err = s.db.Transaction(func(tx *gorm.DB) error {
		jobRepo := repository.NewJobRepository(tx)
		job, err = jobRepo.FindByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		if !t.allowed(job.Status) {
			return invalidState(t.stateMsg)
		}

		from = job.Status
		expected := job.Version
		now := s.now()
		job.Status = t.to
		job.UpdatedAt = now
		switch t.to {
		case model.JobStatusActive:
			job.RejectionReason = nil
		case model.JobStatusDraft:
			job.RejectionReason = reason
		}
		if err := jobRepo.UpdateStatus(ctx, job, expected); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return ErrConflict
			}
			return fmt.Errorf("update job status: %w", err)
		}

		history := &model.JobStatusHistory{
			ID:              uuid.New().String(),
			JobID:           job.ID,
			FromStatus:      from,
			ToStatus:        t.to,
			ChangedByUserID: userID,
			Reason:          reason,
			CreatedAt:       now,
		}
		if err := repository.NewJobStatusHistoryRepository(tx).Save(ctx, history); err != nil {
			return fmt.Errorf("save status history: %w", err)
		}

		if t.action != "" {
			action := &model.JobApprovalAction{
				ID:             uuid.New().String(),
				JobID:          job.ID,
				Action:         t.action,
				ActionByUserID: userID,
				Reason:         reason,
				CreatedAt:      now,
			}
			if err := repository.NewJobApprovalActionRepository(tx).Save(ctx, action); err != nil {
				return fmt.Errorf("save approval action: %w", err)
			}
		}

		payload := map[string]interface{}{
			"jobId":      job.ID,
			"jobCode":    job.JobCode,
			"fromStatus": from,
			"toStatus":   t.to,
			"reason":     reason,
		}
		if err := s.audit.WithTx(tx).Record(ctx, userID, t.auditAction, model.EntityJob, job.ID, payload); err != nil {
			return err
		}
		if eventID, err = s.saveEvent(ctx, tx, job, t.eventType, userID, reason); err != nil {
			return err
		}

		if effects != nil {
			notifications, err = effects(ctx, s.notifications.WithTx(tx), job, userID, reason)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			metrics.RecordTransitionConflict(t.to.String())
		}
		return nil, err
	}

	s.afterCommit(ctx, notifications, eventID)
	metrics.RecordTransition(from.String(), t.to.String())
	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"job_id": job.ID,
		"from":   from.String(),
		"to":     t.to.String(),
	}).Info("job status changed")
	return job, nil
}

// saveEvent 在事务内写入发件箱事件
func (s *jobService) saveEvent(ctx context.Context, tx *gorm.DB, job *model.Job, eventType, actorID string, reason *string) (string, error) {
	if s.events == nil {
		return "", nil
	}
	data, err := json.Marshal(map[string]interface{}{
		"type":     eventType,
		"jobId":    job.ID,
		"jobCode":  job.JobCode,
		"title":    job.Title,
		"status":   job.Status.String(),
		"actorId":  actorID,
		"reason":   reason,
		"occurred": job.UpdatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	now := s.now()
	event := &model.JobEvent{
		ID:        uuid.New().String(),
		JobID:     job.ID,
		Type:      eventType,
		Payload:   data,
		Status:    model.EventStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repository.NewEventRepository(tx).Save(ctx, event); err != nil {
		return "", fmt.Errorf("save event: %w", err)
	}
	return event.ID, nil
}

// afterCommit 外发通知与事件，不影响已提交的事务
func (s *jobService) afterCommit(ctx context.Context, notifications []*model.AppNotification, eventID string) {
	s.notifications.Deliver(ctx, notifications)
	if s.events != nil && eventID != "" {
		s.events.Enqueue(eventID)
	}
}

// applyJobRequest 校验并写入可编辑字段
func applyJobRequest(job *model.Job, req *JobRequest) error {
	if err := utils.ValidateJobTitle(req.Title); err != nil {
		return invalidField("title", err)
	}
	if err := utils.ValidateDepartment(req.Department); err != nil {
		return invalidField("department", err)
	}
	if err := utils.ValidateJobCode(req.JobCode); err != nil {
		return invalidField("jobCode", err)
	}

	job.Title = req.Title
	job.Department = req.Department
	job.SkillsCSV = req.SkillsCSV
	job.SalaryRangeMin = req.SalaryRangeMin
	job.SalaryRangeMax = req.SalaryRangeMax
	job.IsSalaryNegotiable = req.IsSalaryNegotiable
	job.LocationType = req.LocationType
	job.LocationText = req.LocationText
	job.EmploymentType = req.EmploymentType
	job.ExperienceLevel = req.ExperienceLevel
	job.JobCode = req.JobCode
	job.VacancyCount = req.VacancyCount
	if job.VacancyCount == 0 {
		job.VacancyCount = 1
	}
	job.DescriptionHTML = req.DescriptionHTML
	job.RequirementsHTML = req.RequirementsHTML
	job.DescriptionJSON = req.DescriptionJSON
	job.RequirementsJSON = req.RequirementsJSON
	job.ApplicationDeadline = req.ApplicationDeadline
	job.NormalizeSalary()

	if err := job.Validate(); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	for i, stage := range req.Stages {
		if stage.StageName == "" {
			return invalidField(fmt.Sprintf("stages[%d].stageName", i), errors.New("stage name is required"))
		}
	}
	return nil
}

func buildStages(jobID string, stages []JobStageRequest) []model.JobStageConfig {
	out := make([]model.JobStageConfig, 0, len(stages))
	for i, stage := range stages {
		order := stage.StageOrder
		if order == 0 {
			order = i + 1
		}
		active := true
		if stage.IsActive != nil {
			active = *stage.IsActive
		}
		out = append(out, model.JobStageConfig{
			ID:         uuid.New().String(),
			JobID:      jobID,
			StageName:  stage.StageName,
			StageOrder: order,
			IsActive:   active,
		})
	}
	return out
}

func jobSnapshot(job *model.Job) map[string]interface{} {
	return map[string]interface{}{
		"title":      job.Title,
		"department": job.Department,
		"jobCode":    job.JobCode,
		"status":     job.Status,
		"version":    job.Version,
	}
}
