package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/talent-gin/internal/logger"
)

// Claims Bearer 令牌声明，sub 为用户 ID
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenValidator HS256 令牌校验器
type TokenValidator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenValidator 创建令牌校验器；issuer、audience 为空时不校验
func NewTokenValidator(secret, issuer, audience string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret), issuer: issuer, audience: audience}
}

// ValidateToken 校验签名、有效期、issuer 与 audience
func (v *TokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}

// IssueToken 签发令牌，用于开发环境和测试
func (v *TokenValidator) IssueToken(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken 从 Authorization 头提取令牌
func BearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// AuthMiddleware JWT 认证中间件，将用户写入 gin 上下文与请求上下文
func AuthMiddleware(validator *TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
			})
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("email", claims.Email)
		ctx := WithUserID(c.Request.Context(), claims.Subject)
		ctx = logger.WithUserID(ctx, claims.Subject)
		ctx = WithRequestCache(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequirePermission 路由级权限检查中间件
func RequirePermission(checker Checker, code Code) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := checker.HasPermission(c.Request.Context(), UserID(c.Request.Context()), code)
		if err != nil {
			logger.FromContext(c.Request.Context()).WithError(err).Error("permission check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    500,
				"message": "permission check failed",
			})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "forbidden",
			})
			return
		}
		c.Next()
	}
}
