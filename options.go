package lure

import (
	"log/slog"
	"time"
)

// options 代理可选项集合
type options struct {
	logger           *slog.Logger
	handshakeTimeout time.Duration
}

// defaultOptions 返回默认可选项
func defaultOptions() options {
	return options{}
}

// Option 代理可选项
type Option func(*options)

// WithLogger 使用自定义 slog logger 作为全局默认
//
// 不设置时沿用环境变量（LURE_LOG_LEVEL / LURE_LOG_FORMAT）
// 初始化出的默认 logger。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHandshakeTimeout 覆盖配置中的握手超时
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}
