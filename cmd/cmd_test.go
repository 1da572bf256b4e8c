package cmd_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mautops/talent-gin/cmd"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := cmd.GetRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"server", "migrate", "seed", "token"})
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("TALENT_ENV", "development")

	root := cmd.GetRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "hr-user", "--email", "hr@demo.local"})
	require.NoError(t, root.Execute())

	cfg := config.Default()
	claims, err := auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience).
		ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "hr-user", claims.Subject)
	assert.Equal(t, "hr@demo.local", claims.Email)
}
