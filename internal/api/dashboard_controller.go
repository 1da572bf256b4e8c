package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/service"
)

// DashboardController 概览与通知
type DashboardController struct {
	dashboardService    service.DashboardService
	notificationService service.NotificationService
}

// NewDashboardController 创建概览控制器
func NewDashboardController(dashboardService service.DashboardService, notificationService service.NotificationService) *DashboardController {
	return &DashboardController{
		dashboardService:    dashboardService,
		notificationService: notificationService,
	}
}

// Get 概览
func (c *DashboardController) Get(ctx *gin.Context) {
	dashboard, err := c.dashboardService.Get(ctx.Request.Context())
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, dashboard)
}

// MarkRead 标记单条通知已读，仅接收人可操作
func (c *DashboardController) MarkRead(ctx *gin.Context) {
	userID := auth.UserID(ctx.Request.Context())
	notification, err := c.notificationService.MarkRead(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, notification)
}

// MarkAllRead 标记当前用户全部通知已读
func (c *DashboardController) MarkAllRead(ctx *gin.Context) {
	userID := auth.UserID(ctx.Request.Context())
	updated, err := c.notificationService.MarkAllRead(ctx.Request.Context(), userID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, gin.H{"updated": updated})
}
