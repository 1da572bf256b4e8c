package cmd

import (
	"fmt"

	"github.com/mautops/talent-gin/internal/database"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// seedCmd 初始化权限、角色和管理员账号
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed permissions, roles and the admin user",
	Long: `Seed the permission catalog, the built-in roles and the admin user.
Running the command again is safe: existing rows are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer closeDB(db)

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		result, err := database.Seed(db, database.SeedOptions{
			AdminEmail:    cfg.Seed.AdminEmail,
			AdminPassword: cfg.Seed.AdminPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}

		log.WithFields(logrus.Fields{
			"admin_user_id": result.AdminUserID,
			"roles":         result.Roles,
			"permissions":   result.Permissions,
		}).Info("Seed completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
