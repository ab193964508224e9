package balancer

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// 健康探测默认参数
const (
	DefaultProbeInterval = 10 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
)

// Prober 对单个地址执行一次存活探测，便于测试注入
type Prober func(ctx context.Context, addr string, timeout time.Duration) error

// tcpProbe 默认探测：建立一次 TCP 连接后立即关闭
func tcpProbe(ctx context.Context, addr string, timeout time.Duration) error {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Checker 周期性探测被标死的后端，探测成功则恢复其存活标志
//
// 存活后端不做主动探测：其失效由连接路径上的真实失败观测得出。
type Checker struct {
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	probe    Prober

	mu    sync.Mutex
	pools []*Pool

	cancel context.CancelFunc
	done   chan struct{}
}

// CheckerOption Checker 可选项
type CheckerOption func(*Checker)

// WithClock 注入时钟（测试用）
func WithClock(c clock.Clock) CheckerOption {
	return func(ch *Checker) { ch.clock = c }
}

// WithProbe 注入探测函数（测试用）
func WithProbe(p Prober) CheckerOption {
	return func(ch *Checker) { ch.probe = p }
}

// WithInterval 设置探测周期
func WithInterval(d time.Duration) CheckerOption {
	return func(ch *Checker) {
		if d > 0 {
			ch.interval = d
		}
	}
}

// WithTimeout 设置单次探测超时
func WithTimeout(d time.Duration) CheckerOption {
	return func(ch *Checker) {
		if d > 0 {
			ch.timeout = d
		}
	}
}

// NewChecker 创建健康探测器
func NewChecker(opts ...CheckerOption) *Checker {
	ch := &Checker{
		clock:    clock.New(),
		interval: DefaultProbeInterval,
		timeout:  DefaultProbeTimeout,
		probe:    tcpProbe,
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// SetPools 替换受检池集合（配置重载时整体换入）
func (c *Checker) SetPools(pools []*Pool) {
	c.mu.Lock()
	c.pools = pools
	c.mu.Unlock()
}

// Start 启动探测循环
func (c *Checker) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := c.clock.Ticker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep(ctx)
			}
		}
	}()
}

// Stop 停止探测循环并等待退出
func (c *Checker) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// sweep 对所有池中被标死的条目各探测一次
func (c *Checker) sweep(ctx context.Context) {
	c.mu.Lock()
	pools := c.pools
	c.mu.Unlock()

	for _, pool := range pools {
		for _, backend := range pool.Backends() {
			if backend.Alive() {
				continue
			}
			if err := c.probe(ctx, backend.Addr, c.timeout); err != nil {
				logger.Debug("后端探测仍然失败",
					"pool", pool.Name(),
					"addr", backend.Addr,
					"err", err)
				continue
			}
			backend.MarkAlive()
		}
	}
}
