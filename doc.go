// Package lure 提供面向游戏网络协议的七层反向代理与负载均衡器
//
// Lure 终结客户端连接，解析协议握手以确定请求的虚拟主机，
// 从对应后端池中挑选并连接一台后端服务器，随后在客户端与后端
// 之间透明中继带帧、可选压缩的协议报文，直到会话结束。
//
// # 核心概念
//
//   - Proxy: 代理实例，用户交互的主入口
//   - 虚拟主机: 客户端握手中请求的主机名，用于选择后端池
//   - 后端池: 一个虚拟主机的候选服务器集合与均衡策略
//   - 中继: 登录完成后的双向帧转发阶段
//
// # 快速开始
//
//	import (
//	    "github.com/sammwyy/Lure"
//	    "github.com/sammwyy/Lure/config"
//	)
//
//	cfg := config.Default()
//	proxy, err := lure.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := proxy.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer proxy.Close(context.Background())
//
// # 连接的一生
//
//	监听器接受套接字
//	  → 会话读出首帧并解析握手
//	  → 状态（MOTD 应答后关闭，绝不连接后端）
//	  或 登录（路由虚拟主机 → 均衡挑选后端 → 重放握手 → 透传登录）
//	  → 中继（双向帧转发，任一侧结束即整体拆除）
//
// 单个连接的协议错误只关闭该连接，进程与其他会话不受影响。
package lure
