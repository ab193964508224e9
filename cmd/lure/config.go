package main

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/sammwyy/Lure/config"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// loadConfig 读取 JSON 配置文件
//
// 文件不存在时写出一份默认配置再返回默认值（首次运行体验），
// 其它读取错误原样返回。
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg = config.Default()
	if werr := cfg.Save(path); werr != nil {
		logger.Warn("写出默认配置失败", "path", path, "err", werr)
	} else {
		logger.Info("已写出默认配置", "path", path)
	}
	return cfg, nil
}

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
// 支持的环境变量（均使用 LURE_ 前缀）：
//   - LURE_BIND: 监听地址
//   - LURE_MAX_CONNECTIONS: 并发连接上限
//   - LURE_MOTD: 状态响应 MOTD
//   - LURE_FAVICON: 状态图标路径
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("LURE_BIND"); v != "" {
		cfg.Listener.Bind = v
	}
	if v := os.Getenv("LURE_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Listener.MaxConnections = n
		}
	}
	if v := os.Getenv("LURE_MOTD"); v != "" {
		cfg.Proxy.MOTD = v
	}
	if v := os.Getenv("LURE_FAVICON"); v != "" {
		cfg.Proxy.Favicon = v
	}
}

// applyFlagOverrides 应用命令行参数覆盖（优先级最高）
func applyFlagOverrides(cfg *config.Config) {
	if *bind != "" {
		cfg.Listener.Bind = *bind
	}
	if *motd != "" {
		cfg.Proxy.MOTD = *motd
	}
}
