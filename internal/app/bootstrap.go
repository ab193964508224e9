// Package app 提供 Lure 应用编排层
//
// app 包负责：
// - fx 模块组装
// - 依赖注入协调
// - 生命周期管理
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/sammwyy/Lure/config"
	"github.com/sammwyy/Lure/internal/core/gateway"
	"github.com/sammwyy/Lure/internal/core/metrics"
	"github.com/sammwyy/Lure/internal/core/router"
	"github.com/sammwyy/Lure/internal/core/status"
)

// startTimeout fx 启动与停止的兜底超时
const startTimeout = 15 * time.Second

// Bootstrap 应用引导程序
//
// Bootstrap 负责：
// - 验证配置
// - 组装 fx 模块
// - 管理应用生命周期
type Bootstrap struct {
	config *config.Config
	fxApp  *fx.App

	runtime Runtime
}

// NewBootstrap 创建引导程序
func NewBootstrap(cfg *config.Config) *Bootstrap {
	return &Bootstrap{config: cfg}
}

// Build 组装 fx 应用（不启动）
func (b *Bootstrap) Build() (*Runtime, error) {
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	b.fxApp = fx.New(
		// 配置注入
		fx.Supply(b.config),

		// 模块（按依赖序）
		metrics.Module(),
		status.Module(),
		router.Module(),
		gateway.Module(),

		fx.StartTimeout(startTimeout),
		fx.StopTimeout(startTimeout),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),

		// 取出组装结果供 Facade 使用
		fx.Populate(
			&b.runtime.Gateway,
			&b.runtime.Router,
			&b.runtime.Checker,
			&b.runtime.Metrics,
		),
	)
	if err := b.fxApp.Err(); err != nil {
		return nil, err
	}

	b.runtime.stop = b.fxApp.Stop
	return &b.runtime, nil
}

// Start 启动 fx 应用（触发各模块 OnStart）
func (b *Bootstrap) Start(ctx context.Context) error {
	if b.fxApp == nil {
		return fmt.Errorf("bootstrap not built")
	}
	return b.fxApp.Start(ctx)
}
