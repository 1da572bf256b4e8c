package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const namespace = "talent"

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	jobsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_created_total",
			Help:      "Total number of jobs created",
		},
	)

	// 状态迁移数
	jobTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_transitions_total",
			Help:      "Total number of applied job status transitions",
		},
		[]string{"from", "to"},
	)

	// 并发冲突导致的迁移失败
	jobTransitionConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_transition_conflicts_total",
			Help:      "Total number of job transitions rejected because of a stale version",
		},
		[]string{"to"},
	)

	notificationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Total number of notifications created",
		},
		[]string{"type"},
	)

	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Total number of webhook delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	previewConversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preview_conversions_total",
			Help:      "Total number of resume preview conversions by outcome",
		},
		[]string{"outcome"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_active",
			Help:      "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_idle",
			Help:      "Number of idle database connections",
		},
	)

	// 职位状态分布
	jobsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_by_status",
			Help:      "Number of jobs by status",
		},
		[]string{"status"},
	)
)

var once sync.Once

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		jobsCreatedTotal,
		jobTransitionsTotal,
		jobTransitionConflictsTotal,
		notificationsCreatedTotal,
		webhookDeliveriesTotal,
		previewConversionsTotal,
		databaseConnectionsActive,
		databaseConnectionsIdle,
		jobsByStatus,
	)

	once.Do(func() {
		// 默认 registry 已包含时忽略错误
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	apiRequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordJobCreated 记录职位创建
func RecordJobCreated() {
	jobsCreatedTotal.Inc()
}

// RecordTransition 记录一次已提交的状态迁移
func RecordTransition(from, to string) {
	jobTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordTransitionConflict 记录并发冲突
func RecordTransitionConflict(to string) {
	jobTransitionConflictsTotal.WithLabelValues(to).Inc()
}

// RecordNotificationsCreated 记录外发的通知数
func RecordNotificationsCreated(notificationType string, n int) {
	notificationsCreatedTotal.WithLabelValues(notificationType).Add(float64(n))
}

// RecordWebhookDelivery outcome: success, retry, failed
func RecordWebhookDelivery(outcome string) {
	webhookDeliveriesTotal.WithLabelValues(outcome).Inc()
}

// RecordPreviewConversion outcome: success, failed, timeout
func RecordPreviewConversion(outcome string) {
	previewConversionsTotal.WithLabelValues(outcome).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.InUse))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	return nil
}

// UpdateJobsByStatus 更新职位状态分布指标
func UpdateJobsByStatus(status string, count float64) {
	jobsByStatus.WithLabelValues(status).Set(count)
}
