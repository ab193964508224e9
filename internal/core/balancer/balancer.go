// Package balancer 实现后端池与多服务器负载均衡
//
// 每个虚拟主机对应一个后端池（Pool），每次登录连接从池中挑选一个
// 存活的后端。存活标志是池内唯一被多个连接任务并发修改的状态，
// 使用原子布尔存储，容忍良性竞争：一个连接把后端标死、另一个连接
// 随后重试成功，是可接受的结果。
package balancer

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync/atomic"

	"github.com/sammwyy/Lure/pkg/lib/log"
)

var logger = log.Logger("balancer")

// ============================================================================
//                              策略
// ============================================================================

// Strategy 均衡策略
type Strategy int8

const (
	// RoundRobin 轮询：推进池内游标，对存活条目数取模，跳过死条目
	RoundRobin Strategy = iota
	// Random 随机：在存活条目中均匀采样
	Random
	// Failover 故障转移：始终取优先级顺序中第一个存活条目
	Failover
)

// String 返回策略名
func (s Strategy) String() string {
	switch s {
	case RoundRobin:
		return "round_robin"
	case Random:
		return "random"
	case Failover:
		return "failover"
	default:
		return fmt.Sprintf("strategy(%d)", int8(s))
	}
}

// ParseStrategy 解析策略名（大小写不敏感）
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "round_robin", "roundrobin", "rr":
		return RoundRobin, nil
	case "random":
		return Random, nil
	case "failover":
		return Failover, nil
	default:
		return RoundRobin, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// ============================================================================
//                              后端条目
// ============================================================================

// Backend 一个候选后端服务器
type Backend struct {
	// Addr 网络地址（host:port）
	Addr string

	// alive 存活标志；连接失败路径写，挑选路径读
	alive atomic.Bool
}

// NewBackend 创建后端条目，初始为存活
func NewBackend(addr string) *Backend {
	b := &Backend{Addr: addr}
	b.alive.Store(true)
	return b
}

// Alive 返回存活标志
func (b *Backend) Alive() bool {
	return b.alive.Load()
}

// MarkDead 标记为不可用
func (b *Backend) MarkDead() {
	if b.alive.CompareAndSwap(true, false) {
		logger.Warn("后端标记为不可用", "addr", b.Addr)
	}
}

// MarkAlive 标记为可用
func (b *Backend) MarkAlive() {
	if b.alive.CompareAndSwap(false, true) {
		logger.Info("后端恢复可用", "addr", b.Addr)
	}
}

// ============================================================================
//                              后端池
// ============================================================================

// Dialer 抽象后端拨号，便于测试注入
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Pool 一个虚拟主机的后端池
//
// 条目列表在构建后不可变；可变状态只有条目的存活标志与轮询游标。
type Pool struct {
	name     string
	strategy Strategy
	backends []*Backend
	cursor   atomic.Uint32
}

// NewPool 创建后端池
func NewPool(name string, strategy Strategy, addrs []string) (*Pool, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("pool %q: %w", name, ErrEmptyPool)
	}
	backends := make([]*Backend, 0, len(addrs))
	for _, addr := range addrs {
		backends = append(backends, NewBackend(addr))
	}
	return &Pool{
		name:     name,
		strategy: strategy,
		backends: backends,
	}, nil
}

// Name 返回池名（虚拟主机键）
func (p *Pool) Name() string {
	return p.name
}

// Strategy 返回均衡策略
func (p *Pool) Strategy() Strategy {
	return p.strategy
}

// Backends 返回条目列表（构建后只读）
func (p *Pool) Backends() []*Backend {
	return p.backends
}

// live 返回按优先级顺序排列的存活条目
func (p *Pool) live() []*Backend {
	out := make([]*Backend, 0, len(p.backends))
	for _, b := range p.backends {
		if b.Alive() {
			out = append(out, b)
		}
	}
	return out
}

// Pick 按策略挑选一个存活后端
//
// 池内所有条目都不可用时返回 ErrNoLiveBackend。
func (p *Pool) Pick() (*Backend, error) {
	live := p.live()
	if len(live) == 0 {
		return nil, fmt.Errorf("pool %q: %w", p.name, ErrNoLiveBackend)
	}

	switch p.strategy {
	case Failover:
		return live[0], nil
	case Random:
		return live[rand.Intn(len(live))], nil
	default: // RoundRobin
		idx := p.cursor.Add(1) - 1
		return live[int(idx)%len(live)], nil
	}
}

// Connect 挑选后端并建立连接
//
// 对选中后端连接失败时将其标死，按同一策略再取一个候选重试一次；
// 重试耗尽后返回 ErrBackendUnreachable。
func (p *Pool) Connect(ctx context.Context, d Dialer) (net.Conn, *Backend, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		backend, err := p.Pick()
		if err != nil {
			if lastErr != nil {
				return nil, nil, fmt.Errorf("pool %q: %w: %v", p.name, ErrBackendUnreachable, lastErr)
			}
			return nil, nil, err
		}

		conn, err := d.DialContext(ctx, "tcp", backend.Addr)
		if err == nil {
			return conn, backend, nil
		}

		lastErr = err
		backend.MarkDead()
		logger.Warn("连接后端失败",
			"pool", p.name,
			"addr", backend.Addr,
			"attempt", attempt+1,
			"err", err)
	}
	return nil, nil, fmt.Errorf("pool %q: %w: %v", p.name, ErrBackendUnreachable, lastErr)
}
