// Package config 提供统一的配置管理
//
// 配置在进程启动时从 JSON 文件读入一次，运行期间只读；
// 重载（SIGHUP 或 Proxy.Reload）时以整表原子换入的方式生效，
// 读取方要么看到完整的旧表、要么看到完整的新表，绝不会观察到
// 半更新状态。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ============================================================================
//                              监听配置
// ============================================================================

// Listener 监听器配置
type Listener struct {
	// Bind 监听地址（host:port）
	Bind string `json:"bind"`

	// MaxConnections 并发连接上限（信号量容量）
	MaxConnections int `json:"max_connections"`

	// HandshakeTimeout 等待首个握手帧的超时
	HandshakeTimeout Duration `json:"handshake_timeout"`
}

// ============================================================================
//                              代理配置
// ============================================================================

// Proxy 代理自身的对外表现
type Proxy struct {
	// MOTD 状态响应中的描述文本
	MOTD string `json:"motd"`

	// MaxPlayers 状态响应中显示的最大玩家数
	MaxPlayers int `json:"max_players"`

	// Favicon 状态图标（64x64 PNG）路径，留空则不带图标
	Favicon string `json:"favicon"`

	// DialTimeout 连接后端的超时
	DialTimeout Duration `json:"dial_timeout"`
}

// ============================================================================
//                              路由配置
// ============================================================================

// Host 一条虚拟主机路由规则
//
// 键 "*" 为通配条目：精确匹配失败时的兜底。
type Host struct {
	// Backends 候选后端地址，按优先级排列
	Backends []string `json:"backends"`

	// Strategy 均衡策略：round_robin / random / failover
	Strategy string `json:"strategy"`

	// CompressionThreshold 预留的压缩阈值（-1 表示不启用）。
	// 当前登录流程透传后端自身协商的阈值，该字段为代理侧
	// 终结登录（认证扩展点）保留。
	CompressionThreshold int `json:"compression_threshold"`
}

// ============================================================================
//                              健康探测配置
// ============================================================================

// Health 后端健康探测配置
type Health struct {
	// Interval 探测周期
	Interval Duration `json:"interval"`

	// Timeout 单次探测超时
	Timeout Duration `json:"timeout"`
}

// ============================================================================
//                              顶层配置
// ============================================================================

// Config Lure 顶层配置
type Config struct {
	Listener Listener        `json:"listener"`
	Proxy    Proxy           `json:"proxy"`
	Hosts    map[string]Host `json:"hosts"`
	Health   Health          `json:"health"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Listener: Listener{
			Bind:             "127.0.0.1:25577",
			MaxConnections:   8196,
			HandshakeTimeout: Duration(5 * time.Second),
		},
		Proxy: Proxy{
			MOTD:        "Another Lure proxy",
			MaxPlayers:  4000,
			DialTimeout: Duration(5 * time.Second),
		},
		Hosts: map[string]Host{
			"*": {
				Backends:             []string{"127.0.0.1:25565"},
				Strategy:             "round_robin",
				CompressionThreshold: -1,
			},
		},
		Health: Health{
			Interval: Duration(10 * time.Second),
			Timeout:  Duration(3 * time.Second),
		},
	}
}

// Load 从 JSON 文件读取配置
//
// 未设置的字段保持默认值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save 将配置写回 JSON 文件
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
