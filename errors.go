package lure

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 代理未启动
	ErrNotStarted = errors.New("proxy not started")

	// ErrAlreadyStarted 代理已启动
	ErrAlreadyStarted = errors.New("proxy already started")

	// ErrClosed 代理已关闭
	ErrClosed = errors.New("proxy closed")
)
