package auth

import (
	"context"
	"sync"
)

// RequestCache 单个请求内的权限判定缓存，随请求上下文结束而失效
type RequestCache struct {
	mu      sync.Mutex
	entries map[string]bool
}

// WithRequestCache 为请求上下文挂载新的缓存
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestCacheKey, &RequestCache{entries: make(map[string]bool)})
}

func requestCache(ctx context.Context) *RequestCache {
	if ctx == nil {
		return nil
	}
	cache, _ := ctx.Value(requestCacheKey).(*RequestCache)
	return cache
}

// CachedChecker 在请求缓存存在时复用同一请求内的判定结果
type CachedChecker struct {
	next Checker
}

// NewCachedChecker 包装权限判定器
func NewCachedChecker(next Checker) *CachedChecker {
	return &CachedChecker{next: next}
}

// HasPermission 查询失败的结果不缓存
func (c *CachedChecker) HasPermission(ctx context.Context, userID string, code Code) (bool, error) {
	cache := requestCache(ctx)
	if cache == nil {
		return c.next.HasPermission(ctx, userID, code)
	}

	key := userID + "|" + string(code)
	cache.mu.Lock()
	allowed, found := cache.entries[key]
	cache.mu.Unlock()
	if found {
		return allowed, nil
	}

	allowed, err := c.next.HasPermission(ctx, userID, code)
	if err != nil {
		return false, err
	}

	cache.mu.Lock()
	cache.entries[key] = allowed
	cache.mu.Unlock()
	return allowed, nil
}
