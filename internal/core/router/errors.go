package router

import "errors"

// 路由错误定义
var (
	// ErrNoSuchHost 主机名既无精确匹配也无通配条目
	ErrNoSuchHost = errors.New("no such virtual host")
)
