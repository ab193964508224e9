// Package router 实现虚拟主机到后端池的路由
//
// 客户端在握手中请求的主机名（虚拟主机键）映射到一个后端池。
// 路由表在稳态下只读；重载时构建一张全新表后整体原子换入，
// 任何并发的 Resolve 要么命中完整的旧表、要么命中完整的新表。
package router

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sammwyy/Lure/config"
	"github.com/sammwyy/Lure/internal/core/balancer"
	"github.com/sammwyy/Lure/pkg/lib/log"
)

var logger = log.Logger("router")

// Wildcard 通配路由键
const Wildcard = "*"

// ============================================================================
//                              路由表
// ============================================================================

// Route 一条已解析的路由：虚拟主机键与其后端池
type Route struct {
	// Host 规则的主机名（通配条目为 "*"）
	Host string

	// Pool 该主机的后端池
	Pool *balancer.Pool
}

// Table 一整张不可变路由表
type Table struct {
	exact    map[string]*Route
	wildcard *Route
}

// BuildTable 从配置构建路由表
//
// 主机名按小写规范化存储，查询同样小写化，匹配大小写不敏感。
func BuildTable(cfg *config.Config) (*Table, error) {
	t := &Table{exact: make(map[string]*Route, len(cfg.Hosts))}

	for name, host := range cfg.Hosts {
		strategy, err := balancer.ParseStrategy(host.Strategy)
		if err != nil {
			return nil, fmt.Errorf("host %q: %w", name, err)
		}
		pool, err := balancer.NewPool(name, strategy, host.Backends)
		if err != nil {
			return nil, err
		}

		route := &Route{Host: name, Pool: pool}
		if name == Wildcard {
			t.wildcard = route
			continue
		}
		t.exact[strings.ToLower(name)] = route
	}

	return t, nil
}

// Pools 返回表中所有后端池（健康探测器使用）
func (t *Table) Pools() []*balancer.Pool {
	pools := make([]*balancer.Pool, 0, len(t.exact)+1)
	for _, r := range t.exact {
		pools = append(pools, r.Pool)
	}
	if t.wildcard != nil {
		pools = append(pools, t.wildcard.Pool)
	}
	return pools
}

// ============================================================================
//                              路由器
// ============================================================================

// Router 进程级路由状态
//
// 表指针为唯一可变状态，Swap 整体换入新表。
type Router struct {
	table atomic.Pointer[Table]
}

// New 创建路由器并装入初始表
func New(t *Table) *Router {
	r := &Router{}
	r.table.Store(t)
	return r
}

// Resolve 将握手中的主机名解析为路由
//
// 先做精确匹配，未命中时回退到通配条目；两者皆无时返回
// ErrNoSuchHost，调用方必须直接关闭客户端连接，绝不回退到
// 任意后端。主机名匹配大小写不敏感，端口与 FML 等附加后缀
// 在查询前由调用方剥离。
func (r *Router) Resolve(hostname string) (*Route, error) {
	t := r.table.Load()

	key := strings.ToLower(strings.TrimSuffix(hostname, "."))
	if route, ok := t.exact[key]; ok {
		return route, nil
	}
	if t.wildcard != nil {
		return t.wildcard, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchHost, hostname)
}

// Swap 原子换入整张新表，返回旧表
func (r *Router) Swap(t *Table) *Table {
	old := r.table.Swap(t)
	logger.Info("路由表已换入", "hosts", len(t.exact), "wildcard", t.wildcard != nil)
	return old
}

// Table 返回当前表
func (r *Router) Table() *Table {
	return r.table.Load()
}
