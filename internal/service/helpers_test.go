package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/database"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/mautops/talent-gin/internal/service"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	hrUser       = "hr-user"
	approverOne  = "approver-1"
	approverTwo  = "approver-2"
	outsiderUser = "outsider"
)

// setupTestDB 每个测试使用独立的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

// grant 为用户创建专属角色并授予权限码
func grant(t *testing.T, db *gorm.DB, userID string, codes ...auth.Code) {
	user := model.User{ID: userID, Email: userID + "@demo.local", FullName: userID, PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Where(model.User{ID: userID}).FirstOrCreate(&user).Error)

	role := model.Role{ID: uuid.New().String(), Name: "role-" + userID}
	require.NoError(t, db.Create(&role).Error)
	require.NoError(t, db.Create(&model.UserRole{UserID: userID, RoleID: role.ID}).Error)

	for _, code := range codes {
		perm := model.Permission{}
		require.NoError(t, db.Where(model.Permission{Code: string(code)}).
			Attrs(model.Permission{ID: uuid.New().String()}).
			FirstOrCreate(&perm).Error)
		require.NoError(t, db.Create(&model.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error)
	}
}

// seedUsers HR 可创建/编辑/提交/关闭，两个审批人，一个无权限用户
func seedUsers(t *testing.T, db *gorm.DB) {
	grant(t, db, hrUser, auth.JobsCreate, auth.JobsEdit, auth.JobsSubmitForApproval, auth.JobsClose)
	grant(t, db, approverOne, auth.JobsApprove, auth.JobsReject)
	grant(t, db, approverTwo, auth.JobsApprove, auth.JobsReject)
	grant(t, db, outsiderUser)
}

func asUser(userID string) context.Context {
	return auth.WithUserID(auth.WithRequestCache(context.Background()), userID)
}

// recordingSink 记录提交后外发的通知
type recordingSink struct {
	mu            sync.Mutex
	notifications []*model.AppNotification
}

func (s *recordingSink) Deliver(_ context.Context, notifications []*model.AppNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, notifications...)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

// recordingPublisher 记录入队的事件 ID
type recordingPublisher struct {
	mu  sync.Mutex
	ids []string
}

func (p *recordingPublisher) Enqueue(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, ids...)
}

type testEnv struct {
	db            *gorm.DB
	jobs          service.JobService
	notifications service.NotificationService
	dashboard     service.DashboardService
	sink          *recordingSink
	events        *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	seedUsers(t, db)

	sink := &recordingSink{}
	events := &recordingPublisher{}
	perms := auth.NewCachedChecker(auth.NewOracle(db))
	notifications := service.NewNotificationService(db, sink)
	return &testEnv{
		db:            db,
		jobs:          service.NewJobService(db, perms, service.NewAuditLogService(db), notifications, events),
		notifications: notifications,
		dashboard:     service.NewDashboardService(db, perms, notifications),
		sink:          sink,
		events:        events,
	}
}

func newJobRequest(code string) *service.CreateJobRequest {
	return &service.CreateJobRequest{JobRequest: service.JobRequest{
		Title:           "Backend Engineer",
		Department:      "Engineering",
		LocationType:    model.LocationHybrid,
		EmploymentType:  model.EmploymentFullTime,
		ExperienceLevel: model.ExperienceSenior,
		JobCode:         code,
		VacancyCount:    2,
		Stages: []service.JobStageRequest{
			{StageName: "Screening"},
			{StageName: "Technical"},
		},
	}}
}

func (e *testEnv) createJob(t *testing.T, code string) *model.Job {
	job, err := e.jobs.Create(asUser(hrUser), newJobRequest(code))
	require.NoError(t, err)
	return job
}

func (e *testEnv) pendingJob(t *testing.T, code string) *model.Job {
	job := e.createJob(t, code)
	job, err := e.jobs.SubmitForApproval(asUser(hrUser), job.ID)
	require.NoError(t, err)
	return job
}

func (e *testEnv) reload(t *testing.T, id string) *model.Job {
	var job model.Job
	require.NoError(t, e.db.First(&job, "id = ?", id).Error)
	return &job
}

func (e *testEnv) notificationsFor(t *testing.T, jobID, notificationType string) []model.AppNotification {
	var rows []model.AppNotification
	require.NoError(t, e.db.Where("entity_id = ? AND type = ?", jobID, notificationType).Order("user_id").Find(&rows).Error)
	return rows
}

func (e *testEnv) historyFor(t *testing.T, jobID string) []model.JobStatusHistory {
	var rows []model.JobStatusHistory
	require.NoError(t, e.db.Where("job_id = ?", jobID).Order("created_at ASC, rowid ASC").Find(&rows).Error)
	return rows
}

func (e *testEnv) countRows(t *testing.T, table, jobID string) int64 {
	var n int64
	column := "job_id"
	if table == "audit_logs" || table == "app_notifications" {
		column = "entity_id"
	}
	require.NoError(t, e.db.Table(table).Where(column+" = ?", jobID).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }
