package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mautops/talent-gin/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "talent-gin"

var (
	defaultLogger *logrus.Logger
	mu            sync.RWMutex
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	userIDKey    ctxKey = "user_id"
)

// New 根据配置创建日志记录器
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	log := logrus.New()

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FullTimestamp:   true,
		})
	}

	log.SetLevel(ParseLevel(cfg.Level))

	var writers []io.Writer
	if cfg.Output == "stdout" || cfg.Output == "both" || cfg.Output == "" {
		writers = append(writers, os.Stdout)
	}
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))

	log.AddHook(&defaultFieldsHook{fields: logrus.Fields{"service": serviceName}})
	return log, nil
}

// ParseLevel 解析日志级别，无法识别时使用 info
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// defaultFieldsHook 为每条日志添加固定字段
type defaultFieldsHook struct {
	fields logrus.Fields
}

func (h *defaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *defaultFieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}

// Get 获取进程级日志记录器
func Get() *logrus.Logger {
	mu.RLock()
	log := defaultLogger
	mu.RUnlock()
	if log != nil {
		return log
	}

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = logrus.New()
		defaultLogger.SetFormatter(&logrus.JSONFormatter{})
		defaultLogger.AddHook(&defaultFieldsHook{fields: logrus.Fields{"service": serviceName}})
	}
	return defaultLogger
}

// Set 替换进程级日志记录器
func Set(log *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = log
}

// SetLevel 运行时调整日志级别（配置热更新）
func SetLevel(level string) {
	Get().SetLevel(ParseLevel(level))
}

// WithRequestID 将请求 ID 写入上下文
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID 读取请求 ID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithUserID 将当前用户写入上下文，仅用于日志字段
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// FromContext 返回带有 request_id、user_id 字段的日志条目
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(Get())
	if ctx == nil {
		return entry
	}
	if id := RequestID(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		entry = entry.WithField("user_id", id)
	}
	return entry
}
