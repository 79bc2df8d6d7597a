// Package logger 构造 repostat 使用的结构化日志器。
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Config 是日志器配置。
type Config struct {
	Level  slog.Level
	Format string // "text" 或 "json"
}

// DefaultConfig 返回默认配置：info 级别、文本格式。
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "text",
	}
}

// ParseLevel 解析 debug|info|warn|error，大小写不敏感。
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level: %s", level)
	}
}

// New 创建写入 writer 的日志器。
// 调用方通常传入 stderr，让 stdout 只承载统计结果。
func New(cfg Config, writer io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return slog.New(handler)
}
