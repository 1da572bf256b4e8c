package model

import "time"

// User 系统用户
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email        string    `gorm:"type:varchar(200);not null;uniqueIndex" json:"email"`
	FullName     string    `gorm:"type:varchar(200)" json:"fullName"`
	PasswordHash string    `gorm:"type:varchar(200);not null" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `json:"createdAtUtc"`
}

func (User) TableName() string { return "users" }

// Role 角色
type Role struct {
	ID   string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
}

func (Role) TableName() string { return "roles" }

// Permission 权限码，Code 为存储形式
type Permission struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Code        string `gorm:"type:varchar(100);not null;uniqueIndex" json:"code"`
	Description string `gorm:"type:varchar(200)" json:"description"`
}

func (Permission) TableName() string { return "permissions" }

type RolePermission struct {
	RoleID       string `gorm:"primaryKey;type:varchar(64)"`
	PermissionID string `gorm:"primaryKey;type:varchar(64);index"`
}

func (RolePermission) TableName() string { return "role_permissions" }

type UserRole struct {
	UserID string `gorm:"primaryKey;type:varchar(64)"`
	RoleID string `gorm:"primaryKey;type:varchar(64);index"`
}

func (UserRole) TableName() string { return "user_roles" }

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&User{}, &Role{}, &Permission{}, &RolePermission{}, &UserRole{},
		&Job{}, &JobStageConfig{}, &JobStatusHistory{}, &JobApprovalAction{},
		&AppNotification{}, &AuditLog{}, &JobEvent{},
	}
}
