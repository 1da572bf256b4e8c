package auth_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/database"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

// assign 创建角色并授予权限码，再把角色分配给用户
func assign(t *testing.T, db *gorm.DB, userID, roleName string, codes ...auth.Code) {
	user := model.User{ID: userID, Email: userID + "@demo.local", FullName: userID, PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Where(model.User{ID: userID}).FirstOrCreate(&user).Error)

	role := model.Role{ID: uuid.New().String(), Name: roleName}
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

func TestOracle_HasPermission(t *testing.T) {
	db := setupTestDB(t)
	assign(t, db, "u1", "HR", auth.JobsCreate, auth.JobsEdit)
	assign(t, db, "u1", "Approver", auth.JobsApprove)
	assign(t, db, "u2", "Viewer", auth.CandidatesView)

	oracle := auth.NewOracle(db)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		code   auth.Code
		want   bool
	}{
		{"first role", "u1", auth.JobsCreate, true},
		{"second role", "u1", auth.JobsApprove, true},
		{"not granted", "u1", auth.JobsClose, false},
		{"other user", "u2", auth.JobsApprove, false},
		{"unknown user", "nobody", auth.JobsCreate, false},
		{"anonymous", auth.Anonymous, auth.JobsCreate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oracle.HasPermission(ctx, tt.userID, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOracle_Codes(t *testing.T) {
	db := setupTestDB(t)
	assign(t, db, "u1", "HR", auth.JobsCreate, auth.JobsEdit)
	assign(t, db, "u1", "Editor", auth.JobsEdit)

	codes, err := auth.NewOracle(db).Codes(context.Background(), "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []auth.Code{auth.JobsCreate, auth.JobsEdit}, codes)

	codes, err = auth.NewOracle(db).Codes(context.Background(), auth.Anonymous)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestUsersWithPermission(t *testing.T) {
	db := setupTestDB(t)
	assign(t, db, "a1", "Approver", auth.JobsApprove)
	assign(t, db, "a1", "Lead", auth.JobsApprove, auth.JobsReject)
	assign(t, db, "a2", "Approver2", auth.JobsApprove)
	assign(t, db, "hr", "HR", auth.JobsCreate)

	ids, err := auth.UsersWithPermission(context.Background(), db, auth.JobsApprove)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "a2"}, ids)

	ids, err = auth.UsersWithPermission(context.Background(), db, auth.JobsClose)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestParseCode(t *testing.T) {
	code, err := auth.ParseCode("Jobs.Approve")
	require.NoError(t, err)
	assert.Equal(t, auth.JobsApprove, code)

	_, err = auth.ParseCode("jobs.approve")
	assert.Error(t, err)
	assert.Len(t, auth.AllCodes(), 21)
}

// countingChecker 统计底层调用次数
type countingChecker struct {
	calls   int
	allowed bool
	err     error
}

func (c *countingChecker) HasPermission(context.Context, string, auth.Code) (bool, error) {
	c.calls++
	return c.allowed, c.err
}

func TestCachedChecker(t *testing.T) {
	t.Run("memoizes within request", func(t *testing.T) {
		next := &countingChecker{allowed: true}
		checker := auth.NewCachedChecker(next)
		ctx := auth.WithRequestCache(context.Background())

		for i := 0; i < 3; i++ {
			ok, err := checker.HasPermission(ctx, "u1", auth.JobsApprove)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		assert.Equal(t, 1, next.calls)

		_, _ = checker.HasPermission(ctx, "u1", auth.JobsReject)
		_, _ = checker.HasPermission(ctx, "u2", auth.JobsApprove)
		assert.Equal(t, 3, next.calls)
	})

	t.Run("new request starts empty", func(t *testing.T) {
		next := &countingChecker{}
		checker := auth.NewCachedChecker(next)

		_, _ = checker.HasPermission(auth.WithRequestCache(context.Background()), "u1", auth.JobsApprove)
		_, _ = checker.HasPermission(auth.WithRequestCache(context.Background()), "u1", auth.JobsApprove)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("no cache passes through", func(t *testing.T) {
		next := &countingChecker{}
		checker := auth.NewCachedChecker(next)
		_, _ = checker.HasPermission(context.Background(), "u1", auth.JobsApprove)
		_, _ = checker.HasPermission(context.Background(), "u1", auth.JobsApprove)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		next := &countingChecker{err: errors.New("db down")}
		checker := auth.NewCachedChecker(next)
		ctx := auth.WithRequestCache(context.Background())

		_, err := checker.HasPermission(ctx, "u1", auth.JobsApprove)
		assert.Error(t, err)
		next.err, next.allowed = nil, true
		ok, err := checker.HasPermission(ctx, "u1", auth.JobsApprove)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, next.calls)
	})
}
