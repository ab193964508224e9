// Package session 实现单个客户端会话的监督与协议状态机
//
// 每个接入连接由一个 Session 独占拥有：读出握手帧、分类到状态或
// 登录流程、完成路由决策、建立后端连接，最终把两端交给中继泵。
// 会话之间相互独立，单个失序客户端的协议错误只关闭它自己的连接，
// 绝不影响监听器或其他会话。
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/sammwyy/Lure/internal/core/balancer"
	"github.com/sammwyy/Lure/internal/core/metrics"
	"github.com/sammwyy/Lure/internal/core/protocol"
	"github.com/sammwyy/Lure/internal/core/relay"
	"github.com/sammwyy/Lure/internal/core/router"
	"github.com/sammwyy/Lure/internal/core/status"
	"github.com/sammwyy/Lure/pkg/lib/log"
)

var logger = log.Logger("session")

// Options 会话依赖项
type Options struct {
	// Router 虚拟主机路由器
	Router *router.Router

	// Status 状态响应构建器
	Status *status.Builder

	// Metrics 生命周期事件计数，可为 nil
	Metrics *metrics.Counters

	// Dialer 后端拨号器
	Dialer balancer.Dialer

	// HandshakeTimeout 等待握手与状态交换帧的超时
	HandshakeTimeout time.Duration
}

// Session 一个客户端会话
//
// 由监听器创建后独占拥有，Serve 返回时两端套接字保证已关闭。
type Session struct {
	id     string
	client net.Conn
	opts   Options

	dec *protocol.Decoder
	enc *protocol.Encoder

	// 后端侧，路由完成前为空
	backend net.Conn
	bdec    *protocol.Decoder
	benc    *protocol.Encoder

	phase atomic.Int32

	handshake    *protocol.Handshake
	handshakePkt *protocol.Packet
	virtualHost  string
	backendAddr  string
}

// New 创建会话
func New(client net.Conn, opts Options) *Session {
	return &Session{
		id:     uuid.NewString()[:8],
		client: client,
		opts:   opts,
		dec:    protocol.NewDecoder(client),
		enc:    protocol.NewEncoder(client),
	}
}

// Phase 返回当前阶段
func (s *Session) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Session) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

// Serve 驱动会话直到结束
//
// 返回时两端套接字均已关闭（状态会话从不打开后端套接字）。
func (s *Session) Serve(ctx context.Context) (err error) {
	defer func() {
		err = multierr.Append(err, s.close())
	}()

	// 握手帧必须在限定时间内到达
	if t := s.opts.HandshakeTimeout; t > 0 {
		_ = s.client.SetReadDeadline(time.Now().Add(t))
	}

	pkt, err := s.dec.ReadPacket()
	if err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}
	s.handshakePkt = pkt.Clone()

	h, err := protocol.ParseHandshake(s.handshakePkt)
	if err != nil {
		s.countProtocolError()
		return fmt.Errorf("parse handshake: %w", err)
	}
	s.handshake = h
	s.virtualHost = virtualHostKey(h.ServerAddress)

	logger.Debug("收到握手",
		"session", s.id,
		"remote", s.client.RemoteAddr(),
		"host", s.virtualHost,
		"protocol", h.ProtocolVersion,
		"next", h.NextState)

	switch h.NextState {
	case protocol.NextStateStatus:
		return s.serveStatus()
	default:
		return s.serveLogin(ctx)
	}
}

// ============================================================================
//                              状态流程
// ============================================================================

// serveStatus 回答状态查询后关闭，不建立任何后端连接
func (s *Session) serveStatus() error {
	s.setPhase(PhaseStatus)
	if s.opts.Metrics != nil {
		s.opts.Metrics.StatusServed()
	}

	req, err := s.dec.ReadPacket()
	if err != nil {
		return fmt.Errorf("read status request: %w", err)
	}
	if req.ID != protocol.IDStatusRequest {
		s.countProtocolError()
		return fmt.Errorf("%w: packet id 0x%02x in status phase", protocol.ErrUnexpectedPacket, req.ID)
	}

	payload, err := s.opts.Status.Build(s.handshake.ProtocolVersion)
	if err != nil {
		return err
	}
	if err := s.enc.WritePacket(protocol.StatusResponsePacket(payload)); err != nil {
		return fmt.Errorf("write status response: %w", err)
	}

	// ping/pong 回显；客户端拿到状态后直接断开也是正常的
	ping, err := s.dec.ReadPacket()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read ping: %w", err)
	}
	if ping.ID != protocol.IDPing {
		s.countProtocolError()
		return fmt.Errorf("%w: packet id 0x%02x instead of ping", protocol.ErrUnexpectedPacket, ping.ID)
	}
	if err := s.enc.WritePacket(protocol.PongPacket(ping)); err != nil {
		return fmt.Errorf("write pong: %w", err)
	}
	return nil
}

// ============================================================================
//                              登录流程
// ============================================================================

// serveLogin 路由、连接后端、透传登录序列，随后进入中继
//
// 路由与后端连接严格发生在握手解析之后、消费更多客户端包之前：
// 虚拟主机从第一个包就已知，而登录包必须原样到达后端。
func (s *Session) serveLogin(ctx context.Context) error {
	s.setPhase(PhaseLogin)
	if s.opts.Metrics != nil {
		s.opts.Metrics.LoginStarted()
	}

	route, err := s.opts.Router.Resolve(s.virtualHost)
	if err != nil {
		s.countRoutingError()
		s.disconnect("No host found for " + s.virtualHost)
		return err
	}

	conn, backend, err := route.Pool.Connect(ctx, s.opts.Dialer)
	if err != nil {
		s.countRoutingError()
		s.disconnect("Cannot connect to server for " + s.virtualHost)
		return err
	}
	s.backend = conn
	s.backendAddr = backend.Addr
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	s.bdec = protocol.NewDecoder(conn)
	s.benc = protocol.NewEncoder(conn)

	// 原样重放客户端的握手帧，后端自行完成它的登录序列
	if err := s.benc.WritePacket(s.handshakePkt); err != nil {
		return fmt.Errorf("replay handshake: %w", err)
	}

	logger.Info("会话已路由",
		"session", s.id,
		"remote", s.client.RemoteAddr(),
		"host", s.virtualHost,
		"backend", s.backendAddr,
		"strategy", route.Pool.Strategy())

	// 登录与中继共用同一对泵；阶段切换只改变观察行为
	_ = s.client.SetReadDeadline(time.Time{})

	r := &relay.Relay{
		ClientConn:    s.client,
		BackendConn:   s.backend,
		ClientDec:     s.dec,
		ClientEnc:     s.enc,
		BackendDec:    s.bdec,
		BackendEnc:    s.benc,
		OnClientbound: s.observeClientbound,
		Metrics:       s.opts.Metrics,
	}
	return r.Run(ctx)
}

// observeClientbound 观察服务端 → 客户端的帧（已写出之后）
//
// 登录阶段：压缩阈值控制包对称更新两条腿的编解码器阈值；
// 登录成功包把会话切入中继阶段。中继阶段保留同一个阈值控制
// 观察点（协议扩展点），但要求正文恰好是一个 VarInt 才生效，
// 避免误读同号的游戏包。
func (s *Session) observeClientbound(p *protocol.Packet) {
	switch s.Phase() {
	case PhaseLogin:
		switch p.ID {
		case protocol.IDSetCompression:
			s.applyThreshold(p)
		case protocol.IDLoginSuccess:
			s.setPhase(PhaseRelaying)
			logger.Debug("登录完成，进入中继",
				"session", s.id,
				"backend", s.backendAddr)
		}
	case PhaseRelaying:
		if p.ID == protocol.IDSetCompression {
			s.applyThreshold(p)
		}
	}
}

// applyThreshold 对称应用压缩阈值：四个编解码器一起更新
func (s *Session) applyThreshold(p *protocol.Packet) {
	threshold, err := protocol.ParseSetCompression(p)
	if err != nil {
		return
	}
	r := protocol.NewFieldReader(p)
	if _, _ = r.VarInt(); r.Remaining() != 0 {
		// 正文不是单个 VarInt：不是阈值控制包，原样放行即可
		return
	}

	s.dec.SetThreshold(threshold)
	s.enc.SetThreshold(threshold)
	s.bdec.SetThreshold(threshold)
	s.benc.SetThreshold(threshold)

	logger.Debug("压缩阈值已协商",
		"session", s.id,
		"threshold", threshold)
}

// disconnect 登录阶段向客户端送出带原因的断开包（尽力而为）
func (s *Session) disconnect(reason string) {
	if Phase(s.phase.Load()) != PhaseLogin {
		return
	}
	if err := s.enc.WritePacket(protocol.DisconnectPacket(reason)); err != nil {
		logger.Debug("发送断开包失败", "session", s.id, "err", err)
	}
}

// close 关闭两端套接字并进入 Closed 阶段
//
// 状态会话从未打开过后端套接字，这里只关客户端一侧。
func (s *Session) close() error {
	s.setPhase(PhaseClosed)

	var err error
	if cerr := s.client.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = multierr.Append(err, cerr)
	}
	if s.backend != nil {
		if berr := s.backend.Close(); berr != nil && !errors.Is(berr, net.ErrClosed) {
			err = multierr.Append(err, berr)
		}
	}
	return err
}

func (s *Session) countProtocolError() {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ProtocolError()
	}
}

func (s *Session) countRoutingError() {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RoutingError()
	}
}

// virtualHostKey 从握手的 server_address 提取虚拟主机键
//
// 模组客户端会在主机名后追加 \x00 分隔的标记（如 FML），
// DNS 解析也可能留下结尾的点，这些都不参与路由匹配。
func virtualHostKey(addr string) string {
	if i := strings.IndexByte(addr, 0); i >= 0 {
		addr = addr[:i]
	}
	return strings.TrimSuffix(addr, ".")
}
