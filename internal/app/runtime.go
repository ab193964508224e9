package app

import (
	"context"

	"github.com/sammwyy/Lure/internal/core/balancer"
	"github.com/sammwyy/Lure/internal/core/gateway"
	"github.com/sammwyy/Lure/internal/core/metrics"
	"github.com/sammwyy/Lure/internal/core/router"
)

// Runtime 表示一个已通过 fx 组装完成的 Lure 运行时
//
// 公开 Facade（lure.Proxy）组合 Runtime 暴露用户体验 API。
type Runtime struct {
	Gateway *gateway.Gateway
	Router  *router.Router
	Checker *balancer.Checker
	Metrics *metrics.Counters

	stop func(ctx context.Context) error
}

// Stop 停止运行时（触发 fx 生命周期 OnStop）
func (r *Runtime) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	return r.stop(ctx)
}
