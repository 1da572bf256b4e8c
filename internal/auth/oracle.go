package auth

import (
	"context"
	"fmt"

	"github.com/mautops/talent-gin/internal/repository"
	"gorm.io/gorm"
)

// Checker 权限判定
type Checker interface {
	HasPermission(ctx context.Context, userID string, code Code) (bool, error)
}

// Oracle 基于角色成员关系的权限判定，每次调用都查询数据库
type Oracle struct {
	repo repository.PermissionRepository
}

// NewOracle 创建权限判定器
func NewOracle(db *gorm.DB) *Oracle {
	return &Oracle{repo: repository.NewPermissionRepository(db)}
}

// HasPermission 未认证用户直接返回 false；缺少授权返回 (false, nil)，error 仅表示查询失败
func (o *Oracle) HasPermission(ctx context.Context, userID string, code Code) (bool, error) {
	if userID == Anonymous {
		return false, nil
	}
	ok, err := o.repo.UserHasPermission(ctx, userID, string(code))
	if err != nil {
		return false, fmt.Errorf("check permission %s: %w", code, err)
	}
	return ok, nil
}

// Codes 用户经由全部角色获得的去重权限码；未知码被忽略
func (o *Oracle) Codes(ctx context.Context, userID string) ([]Code, error) {
	if userID == Anonymous {
		return nil, nil
	}
	raw, err := o.repo.FindCodesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	codes := make([]Code, 0, len(raw))
	for _, s := range raw {
		if c, err := ParseCode(s); err == nil {
			codes = append(codes, c)
		}
	}
	return codes, nil
}

// UsersWithPermission 持有权限码的去重用户；传入事务内的 db 时在同一事务中查询
func UsersWithPermission(ctx context.Context, db *gorm.DB, code Code) ([]string, error) {
	ids, err := repository.NewPermissionRepository(db).FindUserIDsByPermission(ctx, string(code))
	if err != nil {
		return nil, fmt.Errorf("load users with %s: %w", code, err)
	}
	return ids, nil
}
