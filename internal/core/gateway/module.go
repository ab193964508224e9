package gateway

import (
	"context"

	"go.uber.org/fx"

	"github.com/sammwyy/Lure/config"
	"github.com/sammwyy/Lure/internal/core/metrics"
	"github.com/sammwyy/Lure/internal/core/router"
	"github.com/sammwyy/Lure/internal/core/status"
)

// moduleInput 模块输入依赖
type moduleInput struct {
	fx.In

	Config  *config.Config
	Router  *router.Router
	Status  *status.Builder
	Metrics *metrics.Counters
}

// Module 返回 Fx 模块
//
// 提供监听器并把监听的启停挂在 Fx 生命周期上。
func Module() fx.Option {
	return fx.Module("gateway",
		fx.Provide(provideGateway),
		fx.Invoke(registerLifecycle),
	)
}

// provideGateway 提供监听器实例
func provideGateway(in moduleInput) *Gateway {
	return New(Options{
		Listener:    in.Config.Listener,
		Router:      in.Router,
		Status:      in.Status,
		Metrics:     in.Metrics,
		DialTimeout: in.Config.Proxy.DialTimeout.Duration(),
	})
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In

	LC      fx.Lifecycle
	Gateway *Gateway
}

// registerLifecycle 注册监听器生命周期
func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// 接入循环独立于启动上下文运行，随 Close 结束
			return in.Gateway.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			return in.Gateway.Close(ctx)
		},
	})
}
