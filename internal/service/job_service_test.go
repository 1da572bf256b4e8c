package service_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/mautops/talent-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestJobService_Create 测试创建草稿并通知审批人
func TestJobService_Create(t *testing.T) {
	env := newTestEnv(t)

	job := env.createJob(t, "ENG-001")

	assert.Equal(t, model.JobStatusDraft, job.Status)
	assert.Equal(t, 1, job.Version)
	assert.Equal(t, hrUser, job.CreatedBy)
	require.Len(t, job.Stages, 2)
	assert.Equal(t, 1, job.Stages[0].StageOrder)
	assert.Equal(t, 2, job.Stages[1].StageOrder)

	notifications := env.notificationsFor(t, job.ID, model.NotificationJobCreated)
	require.Len(t, notifications, 2)
	assert.Equal(t, approverOne, notifications[0].UserID)
	assert.Equal(t, approverTwo, notifications[1].UserID)
	assert.Equal(t, "New job draft created", notifications[0].Title)
	assert.Equal(t, "Backend Engineer (ENG-001) has been created as draft.", notifications[0].Message)
	assert.Equal(t, model.EntityJob, *notifications[0].EntityName)
	assert.False(t, notifications[0].IsRead)

	assert.Equal(t, 2, env.sink.count())
	assert.Equal(t, int64(1), env.countRows(t, "audit_logs", job.ID))
	assert.Len(t, env.events.ids, 1)
}

func TestJobService_Create_Forbidden(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.jobs.Create(asUser(outsiderUser), newJobRequest("ENG-001"))
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.jobs.Create(asUser(""), newJobRequest("ENG-001"))
	assert.ErrorIs(t, err, service.ErrForbidden)

	var n int64
	require.NoError(t, env.db.Model(&model.Job{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestJobService_Create_DuplicateCode(t *testing.T) {
	env := newTestEnv(t)
	env.createJob(t, "ENG-001")

	_, err := env.jobs.Create(asUser(hrUser), newJobRequest("ENG-001"))
	assert.ErrorIs(t, err, service.ErrDuplicateJobCode)
}

func TestJobService_Create_Validation(t *testing.T) {
	env := newTestEnv(t)

	req := newJobRequest("ENG-001")
	req.Title = ""
	_, err := env.jobs.Create(asUser(hrUser), req)
	assert.ErrorIs(t, err, service.ErrValidation)

	req = newJobRequest("ENG-002")
	min, max := 200.0, 100.0
	req.SalaryRangeMin, req.SalaryRangeMax = &min, &max
	_, err = env.jobs.Create(asUser(hrUser), req)
	assert.ErrorIs(t, err, service.ErrValidation)

	// 面议时忽略薪资范围
	req.IsSalaryNegotiable = true
	job, err := env.jobs.Create(asUser(hrUser), req)
	require.NoError(t, err)
	assert.Nil(t, job.SalaryRangeMin)
	assert.Nil(t, job.SalaryRangeMax)
}

// TestJobService_Submit_Forbidden 无提交权限时返回 Forbidden，状态不变
func TestJobService_Submit_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "ENG-001")

	_, err := env.jobs.SubmitForApproval(asUser(outsiderUser), job.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.Equal(t, model.JobStatusDraft, env.reload(t, job.ID).Status)
	assert.Zero(t, env.countRows(t, "job_status_histories", job.ID))
}

// TestJobService_PermissionBeforeExistence 权限检查先于实体查找
func TestJobService_PermissionBeforeExistence(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.jobs.Approve(asUser(outsiderUser), "missing", nil)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = env.jobs.Reject(asUser(hrUser), "missing", nil)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = env.jobs.Close(asUser(approverOne), "missing")
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.jobs.Approve(asUser(approverOne), "missing", nil)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = env.jobs.SubmitForApproval(asUser(hrUser), "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// TestJobService_Submit 提交后写入流水、审批动作并通知每个审批人
func TestJobService_Submit(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "ENG-001")

	job, err := env.jobs.SubmitForApproval(asUser(hrUser), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPendingApproval, job.Status)
	assert.Equal(t, model.JobStatusPendingApproval, env.reload(t, job.ID).Status)

	history := env.historyFor(t, job.ID)
	require.Len(t, history, 1)
	assert.Equal(t, model.JobStatusDraft, history[0].FromStatus)
	assert.Equal(t, model.JobStatusPendingApproval, history[0].ToStatus)
	assert.Equal(t, hrUser, history[0].ChangedByUserID)

	var actions []model.JobApprovalAction
	require.NoError(t, env.db.Where("job_id = ?", job.ID).Find(&actions).Error)
	require.Len(t, actions, 1)
	assert.Equal(t, model.ApprovalActionSubmit, actions[0].Action)
	assert.Equal(t, hrUser, actions[0].ActionByUserID)

	notifications := env.notificationsFor(t, job.ID, model.NotificationJobApproval)
	require.Len(t, notifications, 2)
	assert.Equal(t, approverOne, notifications[0].UserID)
	assert.Equal(t, approverTwo, notifications[1].UserID)
	assert.Equal(t, "New job requires approval", notifications[0].Title)
	assert.Equal(t, "Backend Engineer (ENG-001) is waiting for approval.", notifications[0].Message)
	assert.Equal(t, job.ID, *notifications[0].EntityID)

	_, err = env.jobs.SubmitForApproval(asUser(hrUser), job.ID)
	var stateErr *service.StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, service.MsgOnlyDraftCanBeSubmitted, stateErr.Message)
}

// TestJobService_Submit_NoApprovers 无审批人时不写通知也不报错
func TestJobService_Submit_NoApprovers(t *testing.T) {
	db := setupTestDB(t)
	grant(t, db, hrUser, auth.JobsCreate, auth.JobsSubmitForApproval)
	env := &testEnv{db: db}
	perms := auth.NewOracle(db)
	notifications := service.NewNotificationService(db)
	env.jobs = service.NewJobService(db, perms, service.NewAuditLogService(db), notifications, nil)

	job := env.createJob(t, "ENG-001")
	_, err := env.jobs.SubmitForApproval(asUser(hrUser), job.ID)
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&model.AppNotification{}).Count(&n).Error)
	assert.Zero(t, n)
	// 未配置事件发布器时不写发件箱
	require.NoError(t, db.Model(&model.JobEvent{}).Count(&n).Error)
	assert.Zero(t, n)
}

// TestJobService_Approve 审批通过后清空驳回原因并通知提交人
func TestJobService_Approve(t *testing.T) {
	env := newTestEnv(t)
	job := env.pendingJob(t, "ENG-001")

	job, err := env.jobs.Approve(asUser(approverOne), job.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusActive, job.Status)
	assert.Nil(t, job.RejectionReason)

	results := env.notificationsFor(t, job.ID, model.NotificationApprovalResult)
	require.Len(t, results, 1)
	assert.Equal(t, hrUser, results[0].UserID)
	assert.Equal(t, "Job Approved", results[0].Title)
	assert.Contains(t, results[0].Message, "approved")
	assert.Equal(t, "Backend Engineer (ENG-001) has been approved.", results[0].Message)

	// 审批人自己的待审批通知被标记已读
	for _, n := range env.notificationsFor(t, job.ID, model.NotificationJobApproval) {
		if n.UserID == approverOne {
			assert.True(t, n.IsRead)
			assert.NotNil(t, n.ReadAt)
		} else {
			assert.False(t, n.IsRead)
		}
	}
}

// TestJobService_Reject 驳回原因写入职位和流水，并嵌入提交人通知
func TestJobService_Reject(t *testing.T) {
	env := newTestEnv(t)
	job := env.pendingJob(t, "ENG-001")

	job, err := env.jobs.Reject(asUser(approverOne), job.ID, strPtr("Budget frozen"))
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDraft, job.Status)
	require.NotNil(t, job.RejectionReason)
	assert.Equal(t, "Budget frozen", *job.RejectionReason)

	stored := env.reload(t, job.ID)
	require.NotNil(t, stored.RejectionReason)
	assert.Equal(t, "Budget frozen", *stored.RejectionReason)

	results := env.notificationsFor(t, job.ID, model.NotificationApprovalResult)
	require.Len(t, results, 1)
	assert.Equal(t, "Job Rejected", results[0].Title)
	assert.Equal(t, "Backend Engineer (ENG-001) has been rejected. Reason: Budget frozen", results[0].Message)
}

// TestJobService_RejectionReasonRoundtrip 驳回原因写入流水，再次审批通过后清空
func TestJobService_RejectionReasonRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	job := env.pendingJob(t, "ENG-001")

	_, err := env.jobs.Reject(asUser(approverOne), job.ID, strPtr("  Missing budget  "))
	require.NoError(t, err)
	assert.Equal(t, "Missing budget", *env.reload(t, job.ID).RejectionReason)

	history := env.historyFor(t, job.ID)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].Reason)
	assert.Equal(t, "Missing budget", *history[1].Reason)

	_, err = env.jobs.SubmitForApproval(asUser(hrUser), job.ID)
	require.NoError(t, err)
	_, err = env.jobs.Approve(asUser(approverTwo), job.ID, strPtr("Budget found"))
	require.NoError(t, err)

	stored := env.reload(t, job.ID)
	assert.Equal(t, model.JobStatusActive, stored.Status)
	assert.Nil(t, stored.RejectionReason)

	// 同一提交人提交两次只收到一条结果通知
	results := env.notificationsFor(t, job.ID, model.NotificationApprovalResult)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Message+results[1].Message, "Reason: Budget found")
}

// TestJobService_PreconditionLeavesStateUnchanged 前置状态不满足时不产生任何写入
func TestJobService_PreconditionLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	job := env.pendingJob(t, "ENG-001")
	_, err := env.jobs.Approve(asUser(approverOne), job.ID, nil)
	require.NoError(t, err)

	before := env.reload(t, job.ID)
	histories := env.countRows(t, "job_status_histories", job.ID)
	actions := env.countRows(t, "job_approval_actions", job.ID)
	audits := env.countRows(t, "audit_logs", job.ID)
	notifications := env.countRows(t, "app_notifications", job.ID)

	_, err = env.jobs.Approve(asUser(approverOne), job.ID, nil)
	var stateErr *service.StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "Only PendingApproval can be approved.", stateErr.Message)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = env.jobs.Reject(asUser(approverOne), job.ID, strPtr("late"))
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "Only PendingApproval can be rejected.", stateErr.Message)

	after := env.reload(t, job.ID)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, histories, env.countRows(t, "job_status_histories", job.ID))
	assert.Equal(t, actions, env.countRows(t, "job_approval_actions", job.ID))
	assert.Equal(t, audits, env.countRows(t, "audit_logs", job.ID))
	assert.Equal(t, notifications, env.countRows(t, "app_notifications", job.ID))
}

// TestJobService_Approve_NoSubmitter 没有提交记录时结果通知为空操作
func TestJobService_Approve_NoSubmitter(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "ENG-001")
	require.NoError(t, env.db.Model(&model.Job{}).Where("id = ?", job.ID).
		Update("status", model.JobStatusPendingApproval).Error)

	_, err := env.jobs.Approve(asUser(approverOne), job.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, env.notificationsFor(t, job.ID, model.NotificationApprovalResult))
}

func TestJobService_Close(t *testing.T) {
	env := newTestEnv(t)

	draft := env.createJob(t, "ENG-001")
	closed, err := env.jobs.Close(asUser(hrUser), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusClosed, closed.Status)

	_, err = env.jobs.Close(asUser(hrUser), draft.ID)
	var stateErr *service.StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, service.MsgJobAlreadyClosed, stateErr.Message)

	active := env.pendingJob(t, "ENG-002")
	_, err = env.jobs.Approve(asUser(approverOne), active.ID, nil)
	require.NoError(t, err)
	_, err = env.jobs.Close(asUser(hrUser), active.ID)
	require.NoError(t, err)

	// Closed 之后不允许任何迁移
	_, err = env.jobs.SubmitForApproval(asUser(hrUser), active.ID)
	assert.ErrorIs(t, err, service.ErrInvalidState)
	_, err = env.jobs.Approve(asUser(approverOne), active.ID, nil)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	var audit model.AuditLog
	require.NoError(t, env.db.Where("entity_id = ? AND action = ?", active.ID, service.AuditJobClosed).First(&audit).Error)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(audit.Payload, &payload))
	assert.EqualValues(t, model.JobStatusActive, payload["fromStatus"])
	assert.EqualValues(t, model.JobStatusClosed, payload["toStatus"])
}

// TestJobService_HistoryIsLegalWalk 流水按时间排序构成从 Draft 出发的合法路径
func TestJobService_HistoryIsLegalWalk(t *testing.T) {
	env := newTestEnv(t)
	job := env.pendingJob(t, "ENG-001")
	_, err := env.jobs.Reject(asUser(approverOne), job.ID, strPtr("again"))
	require.NoError(t, err)
	_, err = env.jobs.SubmitForApproval(asUser(hrUser), job.ID)
	require.NoError(t, err)
	_, err = env.jobs.Approve(asUser(approverTwo), job.ID, nil)
	require.NoError(t, err)
	_, err = env.jobs.Close(asUser(hrUser), job.ID)
	require.NoError(t, err)

	history := env.historyFor(t, job.ID)
	require.Len(t, history, 5)
	current := model.JobStatusDraft
	for _, h := range history {
		assert.Equal(t, current, h.FromStatus)
		assert.True(t, h.FromStatus.CanTransitionTo(h.ToStatus), "%s -> %s", h.FromStatus, h.ToStatus)
		current = h.ToStatus
	}
	assert.Equal(t, model.JobStatusClosed, current)
	assert.Equal(t, model.JobStatusClosed, env.reload(t, job.ID).Status)

	got, err := env.jobs.GetHistory(asUser(hrUser), job.ID)
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 5)
	assert.Len(t, got.ApprovalActions, 4)

	_, err = env.jobs.GetHistory(asUser(hrUser), "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// TestJobService_ConcurrentApprove 并发审批只有一个成功，只产生一组结果通知
func TestJobService_ConcurrentApprove(t *testing.T) {
	env := newTestEnv(t)
	job := env.pendingJob(t, "ENG-001")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{approverOne, approverTwo} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = env.jobs.Approve(asUser(user), job.ID, nil)
		}(i, user)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, service.ErrInvalidState) || errors.Is(err, service.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, model.JobStatusActive, env.reload(t, job.ID).Status)
	assert.Len(t, env.notificationsFor(t, job.ID, model.NotificationApprovalResult), 1)
	assert.Equal(t, int64(2), env.countRows(t, "job_status_histories", job.ID))
}

// TestJobService_StaleVersionRollsBack 状态更新前版本号被并发修改时返回冲突，事务内写入全部回滚
func TestJobService_StaleVersionRollsBack(t *testing.T) {
	env := newTestEnv(t)
	job := env.pendingJob(t, "ENG-001")
	eventsBefore := len(env.events.ids)

	// 在同一事务内抢先递增版本号，模拟另一个写入者
	bumped := false
	require.NoError(t, env.db.Callback().Update().Before("gorm:update").Register("test:bump_version", func(tx *gorm.DB) {
		values, ok := tx.Statement.Dest.(map[string]interface{})
		if !ok || bumped {
			return
		}
		if _, ok := values["status"]; !ok {
			return
		}
		bumped = true
		err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE jobs SET version = version + 1 WHERE id = ?", job.ID).Error
		if err != nil {
			tx.AddError(err)
		}
	}))

	_, err := env.jobs.Approve(asUser(approverOne), job.ID, strPtr("ok"))
	require.ErrorIs(t, err, service.ErrConflict)
	assert.True(t, bumped)

	reloaded := env.reload(t, job.ID)
	assert.Equal(t, model.JobStatusPendingApproval, reloaded.Status)
	assert.Equal(t, job.Version, reloaded.Version)
	assert.Equal(t, int64(1), env.countRows(t, "job_status_histories", job.ID))
	assert.Equal(t, int64(1), env.countRows(t, "job_approval_actions", job.ID))
	assert.Equal(t, int64(2), env.countRows(t, "audit_logs", job.ID))
	assert.Empty(t, env.notificationsFor(t, job.ID, model.NotificationApprovalResult))
	assert.Len(t, env.events.ids, eventsBefore)
}

// TestJobService_AuditTrail 每个变更操作写入一条审计
func TestJobService_AuditTrail(t *testing.T) {
	env := newTestEnv(t)
	job := env.pendingJob(t, "ENG-001")
	_, err := env.jobs.Approve(asUser(approverOne), job.ID, strPtr("ok"))
	require.NoError(t, err)

	var logs []model.AuditLog
	require.NoError(t, env.db.Where("entity_id = ?", job.ID).Order("created_at ASC").Find(&logs).Error)
	require.Len(t, logs, 3)
	assert.Equal(t, service.AuditJobCreated, logs[0].Action)
	assert.Equal(t, service.AuditJobSubmitted, logs[1].Action)
	assert.Equal(t, service.AuditJobApproved, logs[2].Action)
	assert.Equal(t, approverOne, *logs[2].UserID)
	assert.Equal(t, model.EntityJob, logs[2].EntityName)

	var events []model.JobEvent
	require.NoError(t, env.db.Where("job_id = ?", job.ID).Order("created_at ASC").Find(&events).Error)
	require.Len(t, events, 3)
	assert.Equal(t, service.EventJobApproved, events[2].Type)
	assert.Equal(t, model.EventStatusPending, events[2].Status)
	assert.Equal(t, []string{events[0].ID, events[1].ID, events[2].ID}, env.events.ids)
}

func TestJobService_Update(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "ENG-001")

	req := &service.UpdateJobRequest{JobRequest: newJobRequest("ENG-001").JobRequest, Version: job.Version}
	req.Title = "Staff Engineer"
	req.Stages = []service.JobStageRequest{{StageName: "Onsite", StageOrder: 3}}
	updated, err := env.jobs.Update(asUser(hrUser), job.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Staff Engineer", updated.Title)
	assert.Equal(t, 2, updated.Version)
	require.Len(t, updated.Stages, 1)
	assert.Equal(t, "Onsite", updated.Stages[0].StageName)

	// 旧版本号被拒绝
	_, err = env.jobs.Update(asUser(hrUser), job.ID, req)
	assert.ErrorIs(t, err, service.ErrConflict)

	env.createJob(t, "ENG-002")
	req.Version = 0
	req.JobCode = "ENG-002"
	_, err = env.jobs.Update(asUser(hrUser), job.ID, req)
	assert.ErrorIs(t, err, service.ErrDuplicateJobCode)

	_, err = env.jobs.Update(asUser(approverOne), job.ID, req)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = env.jobs.Update(asUser(hrUser), "missing", req)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// TestJobService_Delete 仅未提交过的草稿可删除
func TestJobService_Delete(t *testing.T) {
	env := newTestEnv(t)

	draft := env.createJob(t, "ENG-001")
	require.NoError(t, env.jobs.Delete(asUser(hrUser), draft.ID))
	_, err := env.jobs.Get(asUser(hrUser), draft.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	var stages int64
	require.NoError(t, env.db.Model(&model.JobStageConfig{}).Where("job_id = ?", draft.ID).Count(&stages).Error)
	assert.Zero(t, stages)

	rejected := env.pendingJob(t, "ENG-002")
	_, err = env.jobs.Reject(asUser(approverOne), rejected.ID, nil)
	require.NoError(t, err)
	err = env.jobs.Delete(asUser(hrUser), rejected.ID)
	var stateErr *service.StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, service.MsgOnlyUnsubmittedDraftDeletable, stateErr.Message)

	assert.ErrorIs(t, env.jobs.Delete(asUser(hrUser), "missing"), service.ErrNotFound)
	assert.ErrorIs(t, env.jobs.Delete(asUser(outsiderUser), rejected.ID), service.ErrForbidden)
}

func TestJobService_List(t *testing.T) {
	env := newTestEnv(t)
	env.createJob(t, "ENG-001")
	env.pendingJob(t, "ENG-002")
	env.pendingJob(t, "ENG-003")

	pending := model.JobStatusPendingApproval
	jobs, total, err := env.jobs.List(asUser(hrUser), &service.ListJobsFilter{Status: &pending, Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, jobs, 1)

	jobs, total, err = env.jobs.List(asUser(hrUser), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, jobs, 3)

	_, _, err = env.jobs.List(asUser(hrUser), &service.ListJobsFilter{SortBy: "password; DROP TABLE jobs"})
	assert.ErrorIs(t, err, service.ErrValidation)
}
