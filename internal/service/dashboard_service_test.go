package service_test

import (
	"testing"

	"github.com/mautops/talent-gin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Get(t *testing.T) {
	env := newTestEnv(t)
	env.createJob(t, "ENG-001")
	pending := env.pendingJob(t, "ENG-002")
	active := env.pendingJob(t, "ENG-003")
	_, err := env.jobs.Approve(asUser(approverOne), active.ID, nil)
	require.NoError(t, err)
	closed := env.createJob(t, "ENG-004")
	_, err = env.jobs.Close(asUser(hrUser), closed.ID)
	require.NoError(t, err)

	t.Run("approver sees queue", func(t *testing.T) {
		d, err := env.dashboard.Get(asUser(approverTwo))
		require.NoError(t, err)

		assert.Equal(t, int64(4), d.Summary.TotalJobs)
		assert.Equal(t, int64(1), d.Summary.DraftJobs)
		assert.Equal(t, int64(1), d.Summary.PendingApprovals)
		assert.Equal(t, int64(1), d.Summary.ActiveJobs)
		assert.Equal(t, int64(1), d.Summary.ClosedJobs)

		assert.True(t, d.CanApprove)
		require.Len(t, d.ApprovalQueue, 1)
		assert.Equal(t, pending.ID, d.ApprovalQueue[0].ID)

		// 4 条创建通知 + 2 条待审批通知
		assert.Equal(t, int64(6), d.UnreadCount)
		assert.Len(t, d.Notifications, 6)
	})

	t.Run("approver read marks reduce unread", func(t *testing.T) {
		d, err := env.dashboard.Get(asUser(approverOne))
		require.NoError(t, err)
		// 审批 ENG-003 时该职位的通知已标记已读
		assert.Equal(t, int64(4), d.UnreadCount)
	})

	t.Run("non approver gets empty queue", func(t *testing.T) {
		d, err := env.dashboard.Get(asUser(hrUser))
		require.NoError(t, err)
		assert.False(t, d.CanApprove)
		assert.NotNil(t, d.ApprovalQueue)
		assert.Empty(t, d.ApprovalQueue)

		// 提交人收到一条审批结果
		require.Len(t, d.Notifications, 1)
		assert.Equal(t, model.NotificationApprovalResult, d.Notifications[0].Type)
		assert.Equal(t, int64(1), d.UnreadCount)
	})
}
