package repository

import (
	"context"

	"gorm.io/gorm"
)

// PermissionRepository 权限图查询：User -> UserRole -> Role -> RolePermission -> Permission
type PermissionRepository interface {
	UserHasPermission(ctx context.Context, userID, code string) (bool, error)
	FindCodesByUser(ctx context.Context, userID string) ([]string, error)
	FindUserIDsByPermission(ctx context.Context, code string) ([]string, error)
}

type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository 创建权限仓储
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) grants(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("user_roles AS ur").
		Joins("JOIN role_permissions AS rp ON rp.role_id = ur.role_id").
		Joins("JOIN permissions AS p ON p.id = rp.permission_id")
}

// UserHasPermission 判断用户是否经由任一角色持有权限码
func (r *permissionRepository) UserHasPermission(ctx context.Context, userID, code string) (bool, error) {
	var count int64
	err := r.grants(ctx).
		Where("ur.user_id = ? AND p.code = ?", userID, code).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindCodesByUser 用户的去重权限码集合
func (r *permissionRepository) FindCodesByUser(ctx context.Context, userID string) ([]string, error) {
	var codes []string
	err := r.grants(ctx).
		Where("ur.user_id = ?", userID).
		Distinct().
		Order("p.code").
		Pluck("p.code", &codes).Error
	return codes, err
}

// FindUserIDsByPermission 持有权限码的去重用户集合
func (r *permissionRepository) FindUserIDsByPermission(ctx context.Context, code string) ([]string, error) {
	var ids []string
	err := r.grants(ctx).
		Where("p.code = ?", code).
		Distinct().
		Order("ur.user_id").
		Pluck("ur.user_id", &ids).Error
	return ids, err
}
