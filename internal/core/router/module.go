package router

import (
	"context"

	"go.uber.org/fx"

	"github.com/sammwyy/Lure/config"
	"github.com/sammwyy/Lure/internal/core/balancer"
)

// moduleInput 模块输入依赖
type moduleInput struct {
	fx.In

	Config *config.Config
}

// moduleOutput 模块输出服务
type moduleOutput struct {
	fx.Out

	Router  *Router
	Checker *balancer.Checker
}

// Module 返回 Fx 模块
//
// 提供路由器与后端健康探测器；探测器的生命周期挂在 Fx 上。
func Module() fx.Option {
	return fx.Module("router",
		fx.Provide(provideRouter),
		fx.Invoke(registerLifecycle),
	)
}

// provideRouter 从配置构建路由器与健康探测器
func provideRouter(in moduleInput) (moduleOutput, error) {
	table, err := BuildTable(in.Config)
	if err != nil {
		return moduleOutput{}, err
	}

	checker := balancer.NewChecker(
		balancer.WithInterval(in.Config.Health.Interval.Duration()),
		balancer.WithTimeout(in.Config.Health.Timeout.Duration()),
	)
	checker.SetPools(table.Pools())

	return moduleOutput{
		Router:  New(table),
		Checker: checker,
	}, nil
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In

	LC      fx.Lifecycle
	Checker *balancer.Checker
}

// registerLifecycle 注册健康探测器生命周期
func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// 探测循环独立于启动上下文运行，随 OnStop 结束
			in.Checker.Start(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			in.Checker.Stop()
			return nil
		},
	})
}
