package database

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/mautops/talent-gin/internal/utils"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed seed/roles.yaml
var rolesManifest []byte

// AdminRole 拥有全部权限的内置角色
const AdminRole = "Admin"

// RoleManifest 角色与权限码映射
type RoleManifest struct {
	Roles []RoleSpec `yaml:"roles"`
}

// RoleSpec 单个角色定义
type RoleSpec struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

// SeedOptions 初始化选项
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// SeedResult 初始化结果
type SeedResult struct {
	AdminUserID string
	Roles       int
	Permissions int
}

// LoadRoleManifest 解析内置角色清单，未知权限码视为错误
func LoadRoleManifest() (*RoleManifest, error) {
	return ParseRoleManifest(rolesManifest)
}

// ParseRoleManifest 解析角色清单
func ParseRoleManifest(data []byte) (*RoleManifest, error) {
	var manifest RoleManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse role manifest: %w", err)
	}
	for _, role := range manifest.Roles {
		if role.Name == "" {
			return nil, errors.New("role name is required")
		}
		for _, code := range role.Permissions {
			if code == "*" {
				continue
			}
			if _, err := auth.ParseCode(code); err != nil {
				return nil, fmt.Errorf("role %s: %w", role.Name, err)
			}
		}
	}
	return &manifest, nil
}

// Seed 写入权限码、角色、角色权限及管理员账户，可重复执行
func Seed(db *gorm.DB, opts SeedOptions) (*SeedResult, error) {
	manifest, err := LoadRoleManifest()
	if err != nil {
		return nil, err
	}

	result := &SeedResult{}
	err = db.Transaction(func(tx *gorm.DB) error {
		permIDs := make(map[string]string)
		for _, code := range auth.AllCodes() {
			var perm model.Permission
			err := tx.Where(model.Permission{Code: string(code)}).
				Attrs(model.Permission{ID: uuid.New().String(), Description: string(code)}).
				FirstOrCreate(&perm).Error
			if err != nil {
				return fmt.Errorf("seed permission %s: %w", code, err)
			}
			permIDs[perm.Code] = perm.ID
		}
		result.Permissions = len(permIDs)

		roleIDs := make(map[string]string)
		for _, spec := range manifest.Roles {
			var role model.Role
			err := tx.Where(model.Role{Name: spec.Name}).
				Attrs(model.Role{ID: uuid.New().String()}).
				FirstOrCreate(&role).Error
			if err != nil {
				return fmt.Errorf("seed role %s: %w", spec.Name, err)
			}
			roleIDs[role.Name] = role.ID

			codes := spec.Permissions
			if len(codes) == 1 && codes[0] == "*" {
				codes = make([]string, 0, len(auth.AllCodes()))
				for _, c := range auth.AllCodes() {
					codes = append(codes, string(c))
				}
			}
			links := make([]model.RolePermission, 0, len(codes))
			for _, code := range codes {
				links = append(links, model.RolePermission{RoleID: role.ID, PermissionID: permIDs[code]})
			}
			if len(links) > 0 {
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
					return fmt.Errorf("seed role permissions %s: %w", spec.Name, err)
				}
			}
		}
		result.Roles = len(roleIDs)

		if opts.AdminEmail == "" {
			return nil
		}
		var admin model.User
		err := tx.Where("email = ?", opts.AdminEmail).First(&admin).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hash, err := utils.HashPassword(opts.AdminPassword)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			admin = model.User{
				ID:           uuid.New().String(),
				Email:        opts.AdminEmail,
				FullName:     "System Admin",
				PasswordHash: hash,
				IsActive:     true,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return fmt.Errorf("seed admin user: %w", err)
			}
		} else if err != nil {
			return err
		}
		result.AdminUserID = admin.ID

		link := model.UserRole{UserID: admin.ID, RoleID: roleIDs[AdminRole]}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
