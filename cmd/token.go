package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/config"
	"github.com/spf13/cobra"
)

// tokenCmd 签发开发用令牌，生产环境禁用
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a development bearer token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if config.IsProduction(cfg) {
			return errors.New("token issuing is disabled in production")
		}

		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		validator := auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
		token, err := validator.IssueToken(args[0], email, ttl)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("email", "", "Email claim")
	tokenCmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
}
