package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Listener.Bind == "" {
		return errors.New("listener.bind is required")
	}
	if _, _, err := net.SplitHostPort(c.Listener.Bind); err != nil {
		return fmt.Errorf("listener.bind %q: %w", c.Listener.Bind, err)
	}
	if c.Listener.MaxConnections <= 0 {
		return fmt.Errorf("listener.max_connections must be positive, got %d", c.Listener.MaxConnections)
	}

	if len(c.Hosts) == 0 {
		return errors.New("at least one host route is required")
	}
	for name, host := range c.Hosts {
		if len(host.Backends) == 0 {
			return fmt.Errorf("host %q: backends must not be empty", name)
		}
		for _, addr := range host.Backends {
			if _, _, err := net.SplitHostPort(addr); err != nil {
				return fmt.Errorf("host %q: backend %q: %w", name, addr, err)
			}
		}
		if host.CompressionThreshold < -1 {
			return fmt.Errorf("host %q: compression_threshold must be >= -1, got %d", name, host.CompressionThreshold)
		}
		if name != "*" && strings.Contains(name, "*") {
			return fmt.Errorf("host %q: only the bare %q wildcard is supported", name, "*")
		}
	}

	return nil
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 非正的超时 / 探测周期 -> 使用默认值
//   - 缺失的均衡策略 -> round_robin
func (c *Config) ValidateAndFix() (*Config, error) {
	if c == nil {
		return Default(), nil
	}

	def := Default()
	if c.Listener.HandshakeTimeout <= 0 {
		c.Listener.HandshakeTimeout = def.Listener.HandshakeTimeout
	}
	if c.Proxy.DialTimeout <= 0 {
		c.Proxy.DialTimeout = def.Proxy.DialTimeout
	}
	if c.Health.Interval <= 0 {
		c.Health.Interval = def.Health.Interval
	}
	if c.Health.Timeout <= 0 || c.Health.Timeout.Duration() >= c.Health.Interval.Duration() {
		c.Health.Timeout = Duration(min(
			time.Duration(def.Health.Timeout),
			time.Duration(c.Health.Interval)/2,
		))
	}
	for name, host := range c.Hosts {
		if host.Strategy == "" {
			host.Strategy = "round_robin"
			c.Hosts[name] = host
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}
	return c, nil
}
