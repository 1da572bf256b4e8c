package auth

import "context"

type ctxKey int

const (
	userIDKey ctxKey = iota
	requestCacheKey
)

// Anonymous 未认证用户的标识
const Anonymous = ""

// WithUserID 将当前用户写入上下文
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID 读取当前用户，未认证时返回 Anonymous
func UserID(ctx context.Context) string {
	if ctx == nil {
		return Anonymous
	}
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
