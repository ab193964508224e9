package status

import (
	"go.uber.org/fx"

	"github.com/sammwyy/Lure/config"
	"github.com/sammwyy/Lure/internal/core/metrics"
)

// moduleInput 模块输入依赖
type moduleInput struct {
	fx.In

	Config  *config.Config
	Metrics *metrics.Counters
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("status",
		fx.Provide(provideBuilder),
	)
}

// provideBuilder 提供状态构建器
func provideBuilder(in moduleInput) *Builder {
	return NewBuilder(
		in.Config.Proxy.MOTD,
		in.Config.Proxy.MaxPlayers,
		in.Config.Proxy.Favicon,
		in.Metrics,
	)
}
