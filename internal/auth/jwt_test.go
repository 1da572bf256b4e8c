package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenValidator(t *testing.T) {
	v := auth.NewTokenValidator("secret", "talent-gin", "talent-gin")

	token, err := v.IssueToken("u1", "u1@demo.local", time.Minute)
	require.NoError(t, err)
	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "u1@demo.local", claims.Email)

	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewTokenValidator("other", "talent-gin", "talent-gin")
		_, err := other.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := auth.NewTokenValidator("secret", "talent-gin", "someone-else")
		_, err := other.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := v.IssueToken("u1", "", -time.Minute)
		require.NoError(t, err)
		_, err = v.ValidateToken(expired)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		empty, err := v.IssueToken("", "", time.Minute)
		require.NoError(t, err)
		_, err = v.ValidateToken(empty)
		assert.Error(t, err)
	})

	t.Run("rejects none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.ValidateToken(raw)
		assert.Error(t, err)
	})
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", auth.BearerToken("Bearer abc"))
	assert.Equal(t, "abc", auth.BearerToken("bearer abc"))
	assert.Empty(t, auth.BearerToken("Basic abc"))
	assert.Empty(t, auth.BearerToken(""))
}

// staticChecker 固定返回结果
type staticChecker struct {
	allowed bool
	err     error
}

func (s staticChecker) HasPermission(context.Context, string, auth.Code) (bool, error) {
	return s.allowed, s.err
}

func newAuthRouter(v *auth.TokenValidator, checker auth.Checker) *gin.Engine {
	r := gin.New()
	r.GET("/secure", auth.AuthMiddleware(v), auth.RequirePermission(checker, auth.JobsApprove), func(c *gin.Context) {
		c.String(http.StatusOK, auth.UserID(c.Request.Context()))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	v := auth.NewTokenValidator("secret", "talent-gin", "talent-gin")
	token, err := v.IssueToken("u1", "", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		checker auth.Checker
		status  int
	}{
		{"missing header", "", staticChecker{allowed: true}, http.StatusUnauthorized},
		{"invalid token", "Bearer nope", staticChecker{allowed: true}, http.StatusUnauthorized},
		{"forbidden", "Bearer " + token, staticChecker{}, http.StatusForbidden},
		{"checker error", "Bearer " + token, staticChecker{err: assert.AnError}, http.StatusInternalServerError},
		{"allowed", "Bearer " + token, staticChecker{allowed: true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAuthRouter(v, tt.checker).ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u1", w.Body.String())
			}
		})
	}
}
