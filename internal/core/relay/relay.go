// Package relay 实现登录完成后的双向帧转发
//
// 两个方向（客户端 → 后端、后端 → 客户端）各自运行一个独立的
// 拷贝循环：经解码器读出一帧，立即经对侧编码器写出，帧边界
// 原样保留，绝不合并或拆分。单方向内帧严格按到达顺序转发，
// 两个方向之间没有顺序关系。
//
// 任一方向结束（干净 EOF 或错误）即关闭两个套接字，另一方向
// 的阻塞读随之解除；中继不会在一条腿失效后试图维持另一条腿。
package relay

import (
	"context"
	"errors"
	"io"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/sammwyy/Lure/internal/core/metrics"
	"github.com/sammwyy/Lure/internal/core/protocol"
)

// Observer 观察一帧服务端 → 客户端的转发
//
// 在该帧已写出到客户端之后调用。状态机用它处理登录完成与
// 压缩阈值控制包（两个方向的编解码器阈值对称更新）。
type Observer func(p *protocol.Packet)

// Relay 一个会话的双向泵
type Relay struct {
	// ClientConn / BackendConn 两端套接字，泵结束时全部关闭
	ClientConn  net.Conn
	BackendConn net.Conn

	// 四个编解码器：每条腿一对
	ClientDec  *protocol.Decoder
	ClientEnc  *protocol.Encoder
	BackendDec *protocol.Decoder
	BackendEnc *protocol.Encoder

	// OnClientbound 服务端 → 客户端方向的观察点，可为 nil
	OnClientbound Observer

	// Metrics 流量计数，可为 nil
	Metrics *metrics.Counters
}

// Run 运行双向泵直到任一方向结束
//
// 两个方向的泵在 errgroup 中并发运行；任一泵返回（或 ctx 取消）
// 时关闭两端套接字，使另一泵的阻塞读解除。两端均干净结束时
// 返回 nil。
func (r *Relay) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// ctx 结束（任一泵退出、上层取消）即关闭两端
	stop := context.AfterFunc(ctx, func() {
		_ = r.ClientConn.Close()
		_ = r.BackendConn.Close()
	})
	defer stop()

	g.Go(func() error {
		return r.pump(r.ClientDec, r.BackendEnc, r.countServerbound, nil)
	})
	g.Go(func() error {
		return r.pump(r.BackendDec, r.ClientEnc, r.countClientbound, r.OnClientbound)
	})

	err := g.Wait()
	_ = r.ClientConn.Close()
	_ = r.BackendConn.Close()

	if isCleanEnd(err) {
		return nil
	}
	return err
}

// pump 单方向拷贝循环：读一帧、写一帧，严格 FIFO
func (r *Relay) pump(dec *protocol.Decoder, enc *protocol.Encoder, count func(int), observe Observer) error {
	for {
		p, err := dec.ReadPacket()
		if err != nil {
			return err
		}
		if err := enc.WritePacket(p); err != nil {
			return err
		}
		if count != nil {
			count(len(p.Data))
		}
		if observe != nil {
			observe(p)
		}
	}
}

func (r *Relay) countServerbound(n int) {
	if r.Metrics != nil {
		r.Metrics.RelayServerbound(n)
	}
}

func (r *Relay) countClientbound(n int) {
	if r.Metrics != nil {
		r.Metrics.RelayClientbound(n)
	}
}

// isCleanEnd 判断泵的退出原因是否为正常的会话结束
//
// 对端 EOF、本端因对侧结束被关闭（net.ErrClosed）都视为干净结束；
// 协议错误与其它 IO 错误原样上抛。
func isCleanEnd(err error) bool {
	return err == nil ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed)
}
