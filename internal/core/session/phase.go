package session

// Phase 连接所处的协议阶段
//
// 状态机：Handshaking → {Status, Login} → Relaying；任何阶段出错或
// 正常断开都进入 Closed。枚举有意保持封闭：未来的阶段（如对接
// 身份服务的认证、插件通道解释）应作为带显式迁移边的新状态加入，
// 而不是在现有状态上叠加标志位。
type Phase int32

const (
	// PhaseHandshaking 初始阶段，等待握手帧
	PhaseHandshaking Phase = iota
	// PhaseStatus 状态查询（MOTD），不会建立后端连接
	PhaseStatus
	// PhaseLogin 登录流程，路由并透传到后端
	PhaseLogin
	// PhaseRelaying 登录完成，双向透明转发
	PhaseRelaying
	// PhaseClosed 会话已结束
	PhaseClosed
)

// String 返回阶段名
func (p Phase) String() string {
	switch p {
	case PhaseHandshaking:
		return "handshaking"
	case PhaseStatus:
		return "status"
	case PhaseLogin:
		return "login"
	case PhaseRelaying:
		return "relaying"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}
