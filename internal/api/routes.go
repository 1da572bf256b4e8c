package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/talent-gin/internal/auth"
	"github.com/mautops/talent-gin/internal/config"
	"github.com/mautops/talent-gin/internal/metrics"
	"github.com/mautops/talent-gin/internal/service"
	"github.com/mautops/talent-gin/internal/websocket"
	"gorm.io/gorm"
)

// Dependencies 路由所需的服务
type Dependencies struct {
	DB            *gorm.DB
	Validator     *auth.TokenValidator
	Permissions   auth.Checker
	Jobs          service.JobService
	Dashboard     service.DashboardService
	Notifications service.NotificationService
	Converter     Converter
	Hub           *websocket.Hub
}

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware(cfg.Tracing.ServiceName))
	}
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(VersionMiddleware())
	router.Use(RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	healthController := NewHealthController(deps.DB)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// WebSocket 通知推送，token 通过 query 参数认证
	if deps.Hub != nil {
		router.GET("/api/v1/ws/notifications", websocket.WebSocketHandler(deps.Hub, deps.Validator, cfg.CORS.AllowedOrigins))
	}

	v1 := router.Group("/api/v1")
	v1.GET("/version", VersionHandler)

	secured := v1.Group("")
	secured.Use(auth.AuthMiddleware(deps.Validator))
	{
		jobController := NewJobController(deps.Jobs)
		jobs := secured.Group("/jobs")
		{
			jobs.GET("", jobController.List)
			jobs.POST("", jobController.Create)
			jobs.GET("/:id", jobController.Get)
			jobs.PUT("/:id", jobController.Update)
			jobs.DELETE("/:id", jobController.Delete)
			jobs.GET("/:id/history", jobController.History)
			jobs.POST("/:id/submit-for-approval", jobController.SubmitForApproval)
			jobs.POST("/:id/approve", jobController.Approve)
			jobs.POST("/:id/reject", jobController.Reject)
			jobs.POST("/:id/close", jobController.Close)
		}

		dashboardController := NewDashboardController(deps.Dashboard, deps.Notifications)
		dashboard := secured.Group("/dashboard")
		{
			dashboard.GET("", dashboardController.Get)
			dashboard.POST("/notifications/read-all", dashboardController.MarkAllRead)
			dashboard.POST("/notifications/:id/read", dashboardController.MarkRead)
		}

		if deps.Converter != nil {
			previewController := NewPreviewController(deps.Converter)
			secured.POST("/resumes/preview",
				auth.RequirePermission(deps.Permissions, auth.CandidatesView),
				previewController.Preview)
		}
	}

	// 未匹配的路由返回 JSON 格式的 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
	})

	return router
}
