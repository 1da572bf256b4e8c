package metrics

import (
	"context"
	"time"

	"github.com/mautops/talent-gin/internal/model"
	"gorm.io/gorm"
)

// Collector 定期采集数据库侧指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	return &Collector{db: db, interval: interval, done: make(chan struct{})}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx)
}

// Stop 停止指标收集器并等待退出
func (c *Collector) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *Collector) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	c.CollectOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce(ctx)
		}
	}
}

// CollectOnce 采集连接池与职位状态分布
func (c *Collector) CollectOnce(ctx context.Context) {
	_ = UpdateDatabaseConnections(c.db)

	var rows []struct {
		Status model.JobStatus
		Count  int64
	}
	err := c.db.WithContext(ctx).
		Model(&model.Job{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return
	}

	// 未出现的状态置零
	counts := map[model.JobStatus]int64{
		model.JobStatusDraft:           0,
		model.JobStatusPendingApproval: 0,
		model.JobStatusActive:          0,
		model.JobStatusClosed:          0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	for status, n := range counts {
		UpdateJobsByStatus(status.String(), float64(n))
	}
}
