package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 浏览器只回 pong，不接受业务消息
	maxMessageSize = 4 * 1024

	// 单个连接待推送通知上限，超出视为慢连接
	sendBuffer = 64

	// 一帧最多合并的通知数
	maxBatch = 20
)

// Client 一个用户的一条推送连接
type Client struct {
	ID     string
	UserID string
	Hub    *Hub
	Conn   *websocket.Conn

	// Send 待推送的通知，由 Hub 关闭
	Send chan *model.AppNotification
}

// NewClient 创建推送连接
func NewClient(id string, userID string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan *model.AppNotification, sendBuffer),
	}
}

// BuildFrame 将一批通知组装为一帧；同一 ID 只保留第一条
// 单条时为 notification 消息，多条时为 notifications 消息
func BuildFrame(batch []*model.AppNotification) Message {
	seen := make(map[string]bool, len(batch))
	unique := make([]*model.AppNotification, 0, len(batch))
	for _, n := range batch {
		if n == nil || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		unique = append(unique, n)
	}
	if len(unique) == 1 {
		return Message{Type: MessageTypeNotification, Data: unique[0]}
	}
	return Message{Type: MessageTypeNotificationBatch, Data: unique}
}

// ReadPump 只处理 pong 与关闭，收到的数据帧被丢弃
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Get().WithError(err).WithField("user_id", c.UserID).Warn("WebSocket read error")
			}
			return
		}
	}
}

// WritePump 推送通知并定期 ping，已排队的通知合并为一帧 JSON
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case n, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(BuildFrame(c.drain(n))); err != nil {
				logger.Get().WithError(err).WithField("user_id", c.UserID).Debug("WebSocket write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drain 取出已排队的通知，不阻塞
func (c *Client) drain(first *model.AppNotification) []*model.AppNotification {
	batch := []*model.AppNotification{first}
	for len(batch) < maxBatch {
		select {
		case n, ok := <-c.Send:
			if !ok {
				return batch
			}
			batch = append(batch, n)
		default:
			return batch
		}
	}
	return batch
}
