// Package lib 包含基础设施工具库
//
// 本目录包含与代理业务无关的通用工具库：
//
//   - log: 日志封装（基于 log/slog，支持按组件过滤级别）
//
// 业务代码位于 internal/：协议编解码、路由、均衡、会话与监听
// 都不属于本目录。
//
// # 使用示例
//
//	import "github.com/sammwyy/Lure/pkg/lib/log"
//
//	var logger = log.Logger("gateway")
package lib
