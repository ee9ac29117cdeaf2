package db

import (
	"context"
	"errors"
	"time"

	"netmodifier/internal/logger"

	glog "gorm.io/gorm/logger"
)

// SlowThreshold 慢查询阈值
const SlowThreshold = time.Second

// Logger 把 GORM 日志转发到项目统一日志
type Logger struct {
	internalLogger logger.Logger
	LogLevel       glog.LogLevel
}

// NewLogger 创建 GORM 日志适配器
func NewLogger(l logger.Logger) *Logger {
	if l == nil {
		l = logger.NewNop()
	}
	return &Logger{
		internalLogger: l.With("component", "gorm"),
		LogLevel:       glog.Info,
	}
}

// LogMode 实现 logger.Interface 接口
func (l *Logger) LogMode(level glog.LogLevel) glog.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *Logger) Info(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= glog.Info {
		l.internalLogger.Info(msg, "data", data)
	}
}

func (l *Logger) Warn(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= glog.Warn {
		l.internalLogger.Warn(msg, "data", data)
	}
}

func (l *Logger) Error(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= glog.Error {
		l.internalLogger.Error(msg, "data", data)
	}
}

// Trace 记录 SQL 执行详情
func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= glog.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []any{
		"sql", sql,
		"rows", rows,
		"timeMs", float64(elapsed.Nanoseconds()) / 1e6,
	}

	switch {
	case err != nil && l.LogLevel >= glog.Error && !errors.Is(err, glog.ErrRecordNotFound):
		l.internalLogger.Err(err, "SQL执行错误", fields...)
	case elapsed > SlowThreshold && l.LogLevel >= glog.Warn:
		l.internalLogger.Warn("慢SQL查询", append(fields, "threshold", SlowThreshold.String())...)
	case l.LogLevel == glog.Info:
		l.internalLogger.Debug("SQL执行", fields...)
	}
}
