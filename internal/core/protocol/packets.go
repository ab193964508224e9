package protocol

import (
	"encoding/json"
	"fmt"
)

// 握手 next_state 取值
const (
	NextStateStatus int32 = 1
	NextStateLogin  int32 = 2
)

// 各阶段包类型
const (
	// 握手阶段（客户端 → 服务端）
	IDHandshake int32 = 0x00

	// 状态阶段
	IDStatusRequest  int32 = 0x00 // 客户端 → 服务端
	IDStatusResponse int32 = 0x00 // 服务端 → 客户端
	IDPing           int32 = 0x01 // 客户端 → 服务端
	IDPong           int32 = 0x01 // 服务端 → 客户端

	// 登录阶段（服务端 → 客户端）
	IDLoginDisconnect int32 = 0x00
	IDLoginSuccess    int32 = 0x02
	IDSetCompression  int32 = 0x03
)

// maxHostnameLen 握手中 server_address 的字符上限
const maxHostnameLen = 255

// ============================================================================
//                              握手
// ============================================================================

// Handshake 会话的第一个包
//
// server_address 即虚拟主机键，在任何后端套接字存在之前就已知，
// 路由决策因此严格发生在握手解析与后端连接之间。
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

// ParseHandshake 解析握手包
//
// next_state 不是 1（状态）或 2（登录）时返回 ErrInvalidNextState。
func ParseHandshake(p *Packet) (*Handshake, error) {
	if p.ID != IDHandshake {
		return nil, fmt.Errorf("%w: packet id 0x%02x in handshake phase", ErrUnexpectedPacket, p.ID)
	}

	r := NewFieldReader(p)
	h := &Handshake{}
	var err error
	if h.ProtocolVersion, err = r.VarInt(); err != nil {
		return nil, fmt.Errorf("protocol version: %w", err)
	}
	if h.ServerAddress, err = r.String(maxHostnameLen); err != nil {
		return nil, fmt.Errorf("server address: %w", err)
	}
	if h.ServerPort, err = r.Uint16(); err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	if h.NextState, err = r.VarInt(); err != nil {
		return nil, fmt.Errorf("next state: %w", err)
	}
	if h.NextState != NextStateStatus && h.NextState != NextStateLogin {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNextState, h.NextState)
	}
	return h, nil
}

// Packet 将握手编码为帧载荷
func (h *Handshake) Packet() *Packet {
	w := &FieldWriter{}
	return w.VarInt(h.ProtocolVersion).
		String(h.ServerAddress).
		Uint16(h.ServerPort).
		VarInt(h.NextState).
		Packet(IDHandshake)
}

// ============================================================================
//                              状态 / 登录
// ============================================================================

// StatusResponsePacket 构造状态响应包，json 为状态载荷
func StatusResponsePacket(json string) *Packet {
	w := &FieldWriter{}
	return w.String(json).Packet(IDStatusResponse)
}

// PongPacket 构造 pong 包，原样回显 ping 的正文
func PongPacket(ping *Packet) *Packet {
	return NewPacket(IDPong, ping.Body())
}

// DisconnectPacket 构造登录阶段的断开包，reason 为纯文本原因
func DisconnectPacket(reason string) *Packet {
	text, _ := json.Marshal(struct {
		Text  string `json:"text"`
		Color string `json:"color"`
	}{Text: reason, Color: "red"})

	w := &FieldWriter{}
	return w.String(string(text)).Packet(IDLoginDisconnect)
}

// ParseSetCompression 解析压缩阈值控制包，返回阈值
func ParseSetCompression(p *Packet) (int32, error) {
	if p.ID != IDSetCompression {
		return 0, fmt.Errorf("%w: packet id 0x%02x is not set-compression", ErrUnexpectedPacket, p.ID)
	}
	r := NewFieldReader(p)
	t, err := r.VarInt()
	if err != nil {
		return 0, fmt.Errorf("compression threshold: %w", err)
	}
	return t, nil
}

// SetCompressionPacket 构造压缩阈值控制包
func SetCompressionPacket(threshold int32) *Packet {
	w := &FieldWriter{}
	return w.VarInt(threshold).Packet(IDSetCompression)
}

