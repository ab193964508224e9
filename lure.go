package lure

import (
	"context"
	"net"
	"sync"

	"github.com/sammwyy/Lure/config"
	"github.com/sammwyy/Lure/internal/app"
	"github.com/sammwyy/Lure/internal/core/router"
	"github.com/sammwyy/Lure/pkg/lib/log"
)

var logger = log.Logger("lure")

// Proxy 一个代理实例
//
// 典型生命周期：New → Start → (Reload)* → Close。
// 所有方法并发安全。
type Proxy struct {
	mu      sync.Mutex
	cfg     *config.Config
	opts    options
	runtime *app.Runtime
	started bool
	closed  bool
}

// New 创建代理实例（未启动）
//
// 配置会先经过 ValidateAndFix：可修复的问题自动修复，
// 无法修复的问题返回错误。
func New(cfg *config.Config, opts ...Option) (*Proxy, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		log.SetDefault(o.logger)
	}

	cfg, err := cfg.ValidateAndFix()
	if err != nil {
		return nil, err
	}
	if o.handshakeTimeout > 0 {
		cfg.Listener.HandshakeTimeout = config.Duration(o.handshakeTimeout)
	}

	return &Proxy{cfg: cfg, opts: o}, nil
}

// Start 启动代理：组装运行时、绑定端口、开始接入
func (p *Proxy) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.started {
		return ErrAlreadyStarted
	}

	bootstrap := app.NewBootstrap(p.cfg)
	runtime, err := bootstrap.Build()
	if err != nil {
		return err
	}
	if err := bootstrap.Start(ctx); err != nil {
		return err
	}

	p.runtime = runtime
	p.started = true
	logger.Info("代理已启动", "addr", runtime.Gateway.Addr())
	return nil
}

// Addr 返回实际监听地址（启动前为 nil）
func (p *Proxy) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}
	return p.runtime.Gateway.Addr()
}

// Reload 以新配置整体换入路由表
//
// 只有路由相关配置（hosts）参与重载；监听地址等需要重启生效。
// 换表是原子的：并发连接要么命中完整的旧表、要么命中完整的新表。
func (p *Proxy) Reload(cfg *config.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return ErrNotStarted
	}

	cfg, err := cfg.ValidateAndFix()
	if err != nil {
		return err
	}
	table, err := router.BuildTable(cfg)
	if err != nil {
		return err
	}

	p.runtime.Router.Swap(table)
	p.runtime.Checker.SetPools(table.Pools())
	p.cfg.Hosts = cfg.Hosts
	logger.Info("配置已重载")
	return nil
}

// Stats 某一时刻的代理计数器读数
type Stats struct {
	Accepted       int64 // 累计接入连接数
	Active         int64 // 当前活跃会话数
	Statuses       int64 // 状态会话数
	Logins         int64 // 登录会话数
	ProtocolErrors int64 // 协议错误数
	RoutingErrors  int64 // 路由失败数
	C2SFrames      int64 // 客户端 → 后端转发帧数
	S2CFrames      int64 // 后端 → 客户端转发帧数
	C2SBytes       int64 // 客户端 → 后端转发字节数
	S2CBytes       int64 // 后端 → 客户端转发字节数
}

// Stats 返回当前计数器读数（未启动时为零值）
func (p *Proxy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return Stats{}
	}
	s := p.runtime.Metrics.Snapshot()
	return Stats{
		Accepted:       s.Accepted,
		Active:         s.Active,
		Statuses:       s.Statuses,
		Logins:         s.Logins,
		ProtocolErrors: s.ProtocolErrors,
		RoutingErrors:  s.RoutingErrors,
		C2SFrames:      s.C2SFrames,
		S2CFrames:      s.S2CFrames,
		C2SBytes:       s.C2SBytes,
		S2CBytes:       s.S2CBytes,
	}
}

// Close 停止接入、等待在途会话并释放资源
//
// 幂等：重复调用返回 nil。
func (p *Proxy) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if !p.started {
		return nil
	}
	p.started = false

	err := p.runtime.Stop(ctx)
	logger.Info("代理已关闭")
	return err
}
