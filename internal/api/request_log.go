package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/metrics"
	"github.com/sirupsen/logrus"
)

// RequestLogMiddleware 请求日志中间件
func RequestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		// 使用路由模板作为标签，避免指标基数随 ID 增长
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.RecordAPIRequest(method, path, status, latency.Seconds())

		entry := logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":  method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": latency.String(),
			"ip":      c.ClientIP(),
		})

		if status >= 500 {
			entry.Error("API request")
		} else if status >= 400 {
			entry.Warn("API request")
		} else {
			entry.Info("API request")
		}
	}
}
