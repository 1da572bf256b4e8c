package websocket

import (
	"context"
	"sync"

	"github.com/mautops/talent-gin/internal/model"
)

// Message 推送给浏览器的消息
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	// MessageTypeNotification 单条通知
	MessageTypeNotification = "notification"
	// MessageTypeNotificationBatch 合并推送的多条通知
	MessageTypeNotificationBatch = "notifications"
)

// Hub 管理所有 WebSocket 连接，按用户推送通知
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	done chan struct{}
	once sync.Once

	// 互斥锁，保护 clients map
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run 运行 Hub，直到 Stop 被调用
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.remove(client)

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop 停止 Hub 并关闭所有客户端
func (h *Hub) Stop() {
	h.once.Do(func() {
		close(h.done)
	})
}

// Done Hub 停止后关闭
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// BroadcastToUser 向用户的所有连接排队一条通知，返回排队成功的连接数
func (h *Hub) BroadcastToUser(userID string, n *model.AppNotification) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- n:
			sent++
		default:
			// 发送缓冲已满，断开慢客户端
			close(client.Send)
			delete(h.clients, client)
		}
	}
	return sent
}

// Deliver 将已提交的通知推送给在线的接收人，离线用户直接跳过
func (h *Hub) Deliver(_ context.Context, notifications []*model.AppNotification) error {
	for _, n := range notifications {
		if n == nil || n.UserID == "" {
			continue
		}
		h.BroadcastToUser(n.UserID, n)
	}
	return nil
}

// HasClient 检查客户端是否存在
func (h *Hub) HasClient(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.ID == clientID {
			return true
		}
	}
	return false
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
