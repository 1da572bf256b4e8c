package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/nats-io/nats.go"
)

// NotificationPublisher 将站内通知发布到 NATS，供外部通知服务消费
//
// Subject: <prefix>.<notification_type>，同一职位同一类型的通知合并为一条消息
type NotificationPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NotificationEvent 发布到 NATS 的消息体
type NotificationEvent struct {
	EventType    string    `json:"event_type"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Recipients   []string  `json:"recipients"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConnectNATS 连接 NATS，url 为空时返回 nil
func ConnectNATS(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := nats.Connect(url,
		nats.Name("talent-gin"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Get().WithError(err).Warn("NATS disconnected")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NewNotificationPublisher 创建发布器，conn 为 nil 时发布为空操作
func NewNotificationPublisher(conn *nats.Conn, prefix string) *NotificationPublisher {
	if prefix == "" {
		prefix = "notifications.jobs"
	}
	return &NotificationPublisher{conn: conn, prefix: prefix}
}

// Deliver 实现通知外发
func (p *NotificationPublisher) Deliver(ctx context.Context, notifications []*model.AppNotification) error {
	if p == nil || p.conn == nil || len(notifications) == 0 {
		return nil
	}

	events := GroupNotifications(notifications)
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal notification event: %w", err)
		}
		subject := p.Subject(event.EventType)
		if err := p.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", subject, err)
		}
		logger.FromContext(ctx).
			WithField("subject", subject).
			WithField("recipients", len(event.Recipients)).
			Debug("Notification event published")
	}
	return nil
}

// Subject 返回通知类型对应的 subject
func (p *NotificationPublisher) Subject(notificationType string) string {
	return p.prefix + "." + notificationType
}

// Close 关闭连接
func (p *NotificationPublisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

// GroupNotifications 按类型和实体合并接收人
func GroupNotifications(notifications []*model.AppNotification) []*NotificationEvent {
	var events []*NotificationEvent
	index := make(map[string]*NotificationEvent)
	for _, n := range notifications {
		var resourceType, resourceID string
		if n.EntityName != nil {
			resourceType = *n.EntityName
		}
		if n.EntityID != nil {
			resourceID = *n.EntityID
		}
		key := n.Type + "|" + resourceType + "|" + resourceID + "|" + n.Message
		event, ok := index[key]
		if !ok {
			event = &NotificationEvent{
				EventType:    n.Type,
				Title:        n.Title,
				Message:      n.Message,
				ResourceType: resourceType,
				ResourceID:   resourceID,
				CreatedAt:    n.CreatedAt,
			}
			index[key] = event
			events = append(events, event)
		}
		event.Recipients = append(event.Recipients, n.UserID)
	}
	return events
}
