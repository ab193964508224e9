// Package metrics 实现代理的进程内计数器
//
// 中继与监听器把生命周期事件与流量写入这里；所有计数器使用原子
// 操作，热路径上没有锁。核心正确性不依赖任何全局会话表，这些
// 计数只服务于可观测性。
package metrics

import "sync/atomic"

// Counters 进程级计数器集合
type Counters struct {
	// 会话生命周期
	accepted atomic.Int64 // 累计接入的连接数
	active   atomic.Int64 // 当前活跃会话数
	statuses atomic.Int64 // 状态（MOTD）会话数
	logins   atomic.Int64 // 进入登录流程的会话数

	// 失败
	protocolErrors atomic.Int64 // 协议错误导致的关闭
	routingErrors  atomic.Int64 // 路由失败导致的关闭

	// 中继流量（帧与未压缩字节，按方向）
	c2sFrames atomic.Int64
	s2cFrames atomic.Int64
	c2sBytes  atomic.Int64
	s2cBytes  atomic.Int64
}

// New 创建计数器集合
func New() *Counters {
	return &Counters{}
}

// ConnOpened 记录一个接入连接
func (c *Counters) ConnOpened() {
	c.accepted.Add(1)
	c.active.Add(1)
}

// ConnClosed 记录一个连接结束
func (c *Counters) ConnClosed() {
	c.active.Add(-1)
}

// StatusServed 记录一次状态会话
func (c *Counters) StatusServed() {
	c.statuses.Add(1)
}

// LoginStarted 记录一次登录流程
func (c *Counters) LoginStarted() {
	c.logins.Add(1)
}

// ProtocolError 记录一次协议错误
func (c *Counters) ProtocolError() {
	c.protocolErrors.Add(1)
}

// RoutingError 记录一次路由失败
func (c *Counters) RoutingError() {
	c.routingErrors.Add(1)
}

// RelayClientbound 记录一帧服务端 → 客户端的转发
func (c *Counters) RelayClientbound(bytes int) {
	c.s2cFrames.Add(1)
	c.s2cBytes.Add(int64(bytes))
}

// RelayServerbound 记录一帧客户端 → 服务端的转发
func (c *Counters) RelayServerbound(bytes int) {
	c.c2sFrames.Add(1)
	c.c2sBytes.Add(int64(bytes))
}

// ActiveSessions 返回当前活跃会话数（状态响应中的在线人数来源）
func (c *Counters) ActiveSessions() int64 {
	return c.active.Load()
}

// ============================================================================
//                              快照
// ============================================================================

// Snapshot 某一时刻的计数器读数
type Snapshot struct {
	Accepted       int64
	Active         int64
	Statuses       int64
	Logins         int64
	ProtocolErrors int64
	RoutingErrors  int64
	C2SFrames      int64
	S2CFrames      int64
	C2SBytes       int64
	S2CBytes       int64
}

// Snapshot 读取当前所有计数器
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Accepted:       c.accepted.Load(),
		Active:         c.active.Load(),
		Statuses:       c.statuses.Load(),
		Logins:         c.logins.Load(),
		ProtocolErrors: c.protocolErrors.Load(),
		RoutingErrors:  c.routingErrors.Load(),
		C2SFrames:      c.c2sFrames.Load(),
		S2CFrames:      c.s2cFrames.Load(),
		C2SBytes:       c.c2sBytes.Load(),
		S2CBytes:       c.s2cBytes.Load(),
	}
}
