package container

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/config"
	"github.com/mautops/talent-gin/internal/database"
	"github.com/mautops/talent-gin/internal/integration"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/metrics"
	"github.com/mautops/talent-gin/internal/preview"
	"github.com/mautops/talent-gin/internal/service"
	"github.com/mautops/talent-gin/internal/websocket"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理数据库、服务、后台 worker 等应用依赖
type Container struct {
	db            *gorm.DB
	validator     *auth.TokenValidator
	permissions   auth.Checker
	hub           *websocket.Hub
	publisher     *integration.NotificationPublisher
	dispatcher    *integration.WebhookDispatcher
	collector     *metrics.Collector
	converter     *preview.Converter
	auditLogs     service.AuditLogService
	notifications service.NotificationService
	jobs          service.JobService
	dashboard     service.DashboardService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化数据库（带重试机制）
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. NATS 可选，未配置时通知只推送到 WebSocket
	conn, err := integration.ConnectNATS(cfg.Notifications.NATSURL)
	if err != nil {
		logger.Get().WithError(err).Warn("NATS unavailable, notifications will not be published")
	}

	return build(cfg, db, integration.NewNotificationPublisher(conn, cfg.Notifications.SubjectPrefix)), nil
}

// NewContainerWithDB 使用已有连接创建容器（测试使用）
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	return build(cfg, db, integration.NewNotificationPublisher(nil, cfg.Notifications.SubjectPrefix))
}

func build(cfg *config.Config, db *gorm.DB, publisher *integration.NotificationPublisher) *Container {
	permissions := auth.NewCachedChecker(auth.NewOracle(db))
	hub := websocket.NewHub()
	dispatcher := integration.NewWebhookDispatcher(db, cfg.Webhooks)

	auditLogs := service.NewAuditLogService(db)
	notifications := service.NewNotificationService(db, hub, publisher)
	jobs := service.NewJobService(db, permissions, auditLogs, notifications, dispatcher)
	dashboard := service.NewDashboardService(db, permissions, notifications)

	return &Container{
		db:            db,
		validator:     auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience),
		permissions:   permissions,
		hub:           hub,
		publisher:     publisher,
		dispatcher:    dispatcher,
		collector:     metrics.NewCollector(db, 30*time.Second),
		converter:     preview.NewConverter(cfg.Preview),
		auditLogs:     auditLogs,
		notifications: notifications,
		jobs:          jobs,
		dashboard:     dashboard,
	}
}

// Start 启动后台组件
func (c *Container) Start(ctx context.Context) error {
	go c.hub.Run()
	c.collector.Start()
	if err := c.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start webhook dispatcher: %w", err)
	}
	return nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// TokenValidator 获取令牌校验器
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.validator
}

// Permissions 获取权限检查器
func (c *Container) Permissions() auth.Checker {
	return c.permissions
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Converter 获取简历转换器
func (c *Container) Converter() *preview.Converter {
	return c.converter
}

// JobService 获取职位服务
func (c *Container) JobService() service.JobService {
	return c.jobs
}

// DashboardService 获取概览服务
func (c *Container) DashboardService() service.DashboardService {
	return c.dashboard
}

// NotificationService 获取通知服务
func (c *Container) NotificationService() service.NotificationService {
	return c.notifications
}

// AuditLogService 获取审计服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogs
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	c.dispatcher.Stop()
	c.collector.Stop()
	c.hub.Stop()
	c.publisher.Close()

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
