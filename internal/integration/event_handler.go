package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mautops/talent-gin/internal/config"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/metrics"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/mautops/talent-gin/internal/repository"
	"gorm.io/gorm"
)

const (
	queueSize      = 1000
	recoverBatch   = 500
	defaultBackoff = time.Second
)

// WebhookDispatcher 将发件箱中的职位事件推送到配置的 Webhook
type WebhookDispatcher struct {
	eventRepo  repository.EventRepository
	client     *resty.Client
	urls       []string
	maxRetries int
	backoff    time.Duration
	workers    int

	queue chan string
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewWebhookDispatcher 创建 Webhook 分发器
func NewWebhookDispatcher(db *gorm.DB, cfg config.WebhookConfig) *WebhookDispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	maxRetries := cfg.RetryCount
	if maxRetries <= 0 {
		maxRetries = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &WebhookDispatcher{
		eventRepo:  repository.NewEventRepository(db),
		client:     client,
		urls:       cfg.URLs,
		maxRetries: maxRetries,
		backoff:    defaultBackoff,
		workers:    workers,
		queue:      make(chan string, queueSize),
		stop:       make(chan struct{}),
	}
}

// SetBackoff 设置重试间隔的初始值
func (d *WebhookDispatcher) SetBackoff(backoff time.Duration) {
	d.backoff = backoff
}

// Start 启动 worker 并重新入队未投递的事件
func (d *WebhookDispatcher) Start(ctx context.Context) error {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d.RecoverPending(ctx)
}

// RecoverPending 将进程重启前遗留的 pending 事件重新入队
func (d *WebhookDispatcher) RecoverPending(ctx context.Context) error {
	events, err := d.eventRepo.FindPending(ctx, recoverBatch)
	if err != nil {
		return fmt.Errorf("failed to load pending events: %w", err)
	}
	ids := make([]string, 0, len(events))
	for _, evt := range events {
		ids = append(ids, evt.ID)
	}
	d.Enqueue(ids...)
	if len(ids) > 0 {
		logger.Get().WithField("count", len(ids)).Info("Requeued pending job events")
	}
	return nil
}

// Enqueue 事件入队，队列满时丢弃并保留 pending 状态等待下次恢复
func (d *WebhookDispatcher) Enqueue(eventIDs ...string) {
	for _, id := range eventIDs {
		select {
		case d.queue <- id:
		default:
			logger.Get().WithField("event_id", id).Warn("Event queue full, leaving event pending")
		}
	}
}

// Stop 停止 worker 并等待当前投递结束
func (d *WebhookDispatcher) Stop() {
	d.once.Do(func() {
		close(d.stop)
	})
	d.wg.Wait()
}

func (d *WebhookDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case id := <-d.queue:
			if err := d.Deliver(context.Background(), id); err != nil {
				logger.Get().WithError(err).WithField("event_id", id).Warn("Webhook delivery failed")
			}
		case <-d.stop:
			return
		}
	}
}

// Deliver 投递单个事件，失败时按指数退避重试
func (d *WebhookDispatcher) Deliver(ctx context.Context, eventID string) error {
	evt, err := d.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if evt.Status != model.EventStatusPending {
		return nil
	}

	// 未配置 Webhook 视为已投递
	if len(d.urls) == 0 {
		return d.eventRepo.UpdateStatus(ctx, evt.ID, model.EventStatusSuccess, evt.RetryCount)
	}

	backoff := d.backoff
	var lastErr error
	for i := 0; i < d.maxRetries; i++ {
		lastErr = d.sendAll(ctx, evt)
		if lastErr == nil {
			metrics.RecordWebhookDelivery("success")
			return d.eventRepo.UpdateStatus(ctx, evt.ID, model.EventStatusSuccess, evt.RetryCount)
		}

		evt.RetryCount++
		if err := d.eventRepo.UpdateStatus(ctx, evt.ID, model.EventStatusPending, evt.RetryCount); err != nil {
			return err
		}

		if i < d.maxRetries-1 {
			metrics.RecordWebhookDelivery("retry")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			case <-d.stop:
				// 保留 pending，重启后恢复
				return errors.New("dispatcher stopped")
			}
			backoff *= 2
		}
	}

	metrics.RecordWebhookDelivery("failed")
	if err := d.eventRepo.UpdateStatus(ctx, evt.ID, model.EventStatusFailed, evt.RetryCount); err != nil {
		return err
	}
	return lastErr
}

// sendAll 推送到所有 Webhook，任何一个失败即视为失败
func (d *WebhookDispatcher) sendAll(ctx context.Context, evt *model.JobEvent) error {
	var errs []error
	for _, url := range d.urls {
		resp, err := d.client.R().
			SetContext(ctx).
			SetHeader("X-Talent-Event", evt.Type).
			SetHeader("X-Talent-Event-ID", evt.ID).
			SetBody([]byte(evt.Payload)).
			Post(url)
		if err != nil {
			errs = append(errs, fmt.Errorf("webhook %s: %w", url, err))
			continue
		}
		if resp.IsError() {
			errs = append(errs, fmt.Errorf("webhook %s returned status code: %d", url, resp.StatusCode()))
		}
	}
	return errors.Join(errs...)
}
