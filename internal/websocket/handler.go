package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/logger"
)

// NewUpgrader 按允许的来源创建 Upgrader，包含 "*" 时不校验 Origin
func NewUpgrader(allowedOrigins []string) gorillaWS.Upgrader {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}
	return gorillaWS.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowAll || origin == "" || allowed[origin]
		},
	}
}

// WebSocketHandler 通知推送入口
// 浏览器无法设置 Authorization 头，token 通过 query 参数传递
func WebSocketHandler(hub *Hub, validator *auth.TokenValidator, allowedOrigins []string) gin.HandlerFunc {
	upgrader := NewUpgrader(allowedOrigins)
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = auth.BearerToken(c.GetHeader("Authorization"))
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "missing token"})
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid token"})
			return
		}

		// Upgrade 失败时已写入响应
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Get().WithError(err).Debug("WebSocket upgrade failed")
			return
		}

		client := NewClient(uuid.New().String(), claims.Subject, hub, conn)

		select {
		case hub.Register <- client:
		case <-hub.Done():
			conn.Close()
			return
		}

		go client.ReadPump()
		go client.WritePump()
	}
}
