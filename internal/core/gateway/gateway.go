// Package gateway 实现监听器与连接接入
//
// 每个代理实例绑定一个 TCP 端口；并发连接数由加权信号量约束
// （超出上限时 Accept 前先行等待，而不是接入后再拒绝）。每个
// 接入连接派生一个轻量会话协程，连接之间互不阻塞。
package gateway

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"

	"github.com/sammwyy/Lure/config"
	"github.com/sammwyy/Lure/internal/core/balancer"
	"github.com/sammwyy/Lure/internal/core/metrics"
	"github.com/sammwyy/Lure/internal/core/router"
	"github.com/sammwyy/Lure/internal/core/session"
	"github.com/sammwyy/Lure/internal/core/status"
	"github.com/sammwyy/Lure/pkg/lib/log"
)

var logger = log.Logger("gateway")

// Gateway 代理监听器
type Gateway struct {
	bind             string
	handshakeTimeout time.Duration

	router  *router.Router
	status  *status.Builder
	metrics *metrics.Counters
	dialer  balancer.Dialer

	ln     net.Listener
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	closed atomic.Bool
	cancel context.CancelFunc
}

// Options Gateway 依赖项
type Options struct {
	Listener config.Listener
	Router   *router.Router
	Status   *status.Builder
	Metrics  *metrics.Counters

	// Dialer 后端拨号器，nil 时使用带 DialTimeout 的 net.Dialer
	Dialer      balancer.Dialer
	DialTimeout time.Duration
}

// New 创建 Gateway（未开始监听）
func New(opts Options) *Gateway {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &net.Dialer{Timeout: opts.DialTimeout}
	}
	return &Gateway{
		bind:             opts.Listener.Bind,
		handshakeTimeout: opts.Listener.HandshakeTimeout.Duration(),
		router:           opts.Router,
		status:           opts.Status,
		metrics:          opts.Metrics,
		dialer:           dialer,
		sem:              semaphore.NewWeighted(int64(opts.Listener.MaxConnections)),
	}
}

// Start 绑定端口并启动接入循环
func (g *Gateway) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", g.bind)
	if err != nil {
		return err
	}
	g.ln = ln

	ctx, g.cancel = context.WithCancel(ctx)
	g.wg.Add(1)
	go g.acceptLoop(ctx)

	logger.Info("监听已启动", "addr", ln.Addr())
	return nil
}

// Addr 返回实际监听地址（端口可能是 0）
func (g *Gateway) Addr() net.Addr {
	if g.ln == nil {
		return nil
	}
	return g.ln.Addr()
}

// acceptLoop 信号量限流的接入循环
func (g *Gateway) acceptLoop(ctx context.Context) {
	defer g.wg.Done()

	for {
		// 先取许可再 Accept，超出连接上限时停止接入
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return
		}

		conn, err := g.ln.Accept()
		if err != nil {
			g.sem.Release(1)
			if g.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("接受连接失败", "err", err)
			continue
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
			_ = tcp.SetKeepAlive(true)
		}

		if g.metrics != nil {
			g.metrics.ConnOpened()
		}
		logger.Debug("接受连接", "remote", conn.RemoteAddr())

		g.wg.Add(1)
		go g.serve(ctx, conn)
	}
}

// serve 运行一个会话到结束并归还许可
func (g *Gateway) serve(ctx context.Context, conn net.Conn) {
	defer func() {
		g.sem.Release(1)
		if g.metrics != nil {
			g.metrics.ConnClosed()
		}
		g.wg.Done()
	}()

	sess := session.New(conn, session.Options{
		Router:           g.router,
		Status:           g.status,
		Metrics:          g.metrics,
		Dialer:           g.dialer,
		HandshakeTimeout: g.handshakeTimeout,
	})

	if err := sess.Serve(ctx); err != nil {
		logger.Debug("会话结束",
			"remote", conn.RemoteAddr(),
			"phase", sess.Phase(),
			"err", err)
		return
	}
	logger.Debug("会话结束", "remote", conn.RemoteAddr(), "phase", sess.Phase())
}

// Close 停止接入并等待在途会话结束
//
// ctx 到期后不再等待（在途会话的套接字会随接入上下文取消而关闭）。
func (g *Gateway) Close(ctx context.Context) error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if g.ln != nil {
		if cerr := g.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
	}
	if g.cancel != nil {
		g.cancel()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}

	logger.Info("监听已停止", "addr", g.bind)
	return err
}
