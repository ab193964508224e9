// Package log 提供 Lure 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，提供简洁的日志 API。
// 直接使用，无需抽象接口。
//
// 支持通过环境变量配置日志级别：
//   - LURE_LOG_LEVEL: 设置日志级别，支持按子系统配置
//     格式: 子系统=级别,子系统=级别,默认级别
//     示例: gateway=debug,relay=warn,info
//   - LURE_LOG_FORMAT: 日志格式 (text 或 json)
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// 默认 logger
var defaultLogger = slog.Default()

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// SetDefault 设置默认 logger
func SetDefault(l *slog.Logger) {
	defaultLogger = l
	slog.SetDefault(l)
}

// Default 返回默认 logger
func Default() *slog.Logger {
	return slog.Default()
}

// New 创建新的 logger
func New(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewJSON 创建 JSON 格式的 logger
func NewJSON(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetOutput 设置日志输出目标
//
// 重新创建默认 logger，将输出重定向到指定的 Writer。
// 常用于将日志输出到文件。
func SetOutput(w io.Writer) {
	SetOutputWithLevel(w, slog.LevelInfo)
}

// SetOutputWithLevel 同时设置日志输出目标和级别
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	defaultLogger = slog.New(slog.NewTextHandler(w, opts))
	slog.SetDefault(defaultLogger)
}

// SetLevel 设置日志级别
//
// 重新创建默认 logger，使用指定的日志级别。
func SetLevel(level slog.Level) {
	SetOutputWithLevel(os.Stderr, level)
}

// ============================================================================
//                              环境变量配置
// ============================================================================

// envConfig 从环境变量解析出的日志配置
type envConfig struct {
	defaultLevel    slog.Level
	subsystemLevels map[string]slog.Level
	json            bool
}

var (
	envCache *envConfig
	envOnce  sync.Once
)

// configFromEnv 解析 LURE_LOG_LEVEL / LURE_LOG_FORMAT
func configFromEnv() *envConfig {
	envOnce.Do(func() {
		envCache = parseEnv()
	})
	return envCache
}

func parseEnv() *envConfig {
	cfg := &envConfig{
		defaultLevel:    slog.LevelInfo,
		subsystemLevels: make(map[string]slog.Level),
	}

	if v := os.Getenv("LURE_LOG_FORMAT"); strings.EqualFold(v, "json") {
		cfg.json = true
	}

	raw := os.Getenv("LURE_LOG_LEVEL")
	if raw == "" {
		return cfg
	}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, level, ok := strings.Cut(part, "="); ok {
			cfg.subsystemLevels[strings.TrimSpace(name)] = parseLevel(level, slog.LevelInfo)
		} else {
			cfg.defaultLevel = parseLevel(part, slog.LevelInfo)
		}
	}

	return cfg
}

// parseLevel 解析级别字符串，无法识别时返回 fallback
func parseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// InitFromEnv 按环境变量初始化默认 logger
//
// 通常由 cmd 入口在最早阶段调用一次。
func InitFromEnv(w io.Writer) {
	cfg := configFromEnv()
	opts := &slog.HandlerOptions{Level: cfg.defaultLevel}
	if cfg.json {
		SetDefault(slog.New(slog.NewJSONHandler(w, opts)))
		return
	}
	SetDefault(slog.New(slog.NewTextHandler(w, opts)))
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// Logger 获取组件专属 logger
//
// 返回的 LazyLogger 每次调用时从 slog.Default() 获取最新的 handler，
// 支持运行时动态切换日志输出目标。
//
// 使用方式：
//
//	var logger = log.Logger("gateway")
//	logger.Info("已启动", "addr", addr)
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler，
// 并按子系统级别过滤（LURE_LOG_LEVEL 中配置的子系统覆盖默认级别）。
type LazyLogger struct {
	component string
}

// enabled 判断该组件在指定级别下是否输出
func (l *LazyLogger) enabled(level slog.Level) bool {
	cfg := configFromEnv()
	if min, ok := cfg.subsystemLevels[l.component]; ok {
		return level >= min
	}
	return true // 交由 handler 的默认级别过滤
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	if !l.enabled(slog.LevelDebug) {
		return
	}
	slog.Default().With("component", l.component).Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	if !l.enabled(slog.LevelInfo) {
		return
	}
	slog.Default().With("component", l.component).Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	if !l.enabled(slog.LevelWarn) {
		return
	}
	slog.Default().With("component", l.component).Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	if !l.enabled(slog.LevelError) {
		return
	}
	slog.Default().With("component", l.component).Error(msg, args...)
}

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	if !l.enabled(slog.LevelDebug) {
		return
	}
	slog.Default().With("component", l.component).DebugContext(ctx, msg, args...)
}

// InfoContext 带 context 的 Info 日志
func (l *LazyLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	if !l.enabled(slog.LevelInfo) {
		return
	}
	slog.Default().With("component", l.component).InfoContext(ctx, msg, args...)
}
