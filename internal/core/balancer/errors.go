package balancer

import "errors"

// 负载均衡错误定义
var (
	// ErrNoLiveBackend 池中所有后端均被标记为不可用
	ErrNoLiveBackend = errors.New("no live backend in pool")

	// ErrBackendUnreachable 连接后端失败且一次重试也已耗尽
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrEmptyPool 池中没有任何后端条目
	ErrEmptyPool = errors.New("backend pool is empty")

	// ErrUnknownStrategy 无法识别的均衡策略名
	ErrUnknownStrategy = errors.New("unknown balancing strategy")
)
