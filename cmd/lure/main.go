// Package main 提供 lure 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sammwyy/Lure"
	"github.com/sammwyy/Lure/config"
	"github.com/sammwyy/Lure/pkg/lib/log"
)

var logger = log.Logger("lure/cmd")

// 版本信息（构建时注入）
var (
	version = "dev"
	commit  = "unknown"
)

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
//
//	命令行参数：运行时覆盖 / 快速测试（「这次运行」想怎么跑）
//	JSON 配置文件：持久化配置 / 长期运行（「这个实例」的固定配置）
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile  = flag.String("config", "lure.json", "配置文件路径（不存在时写出默认配置）")
	bind        = flag.String("bind", "", "监听地址（覆盖配置文件）")
	motd        = flag.String("motd", "", "状态响应 MOTD（覆盖配置文件）")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

// shutdownTimeout 优雅退出时等待在途会话的时限
const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("lure %s (%s)\n", version, commit)
		return nil
	}

	// 日志必须在所有模块初始化之前就绪
	log.InitFromEnv(os.Stderr)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	applyEnvOverrides(cfg)
	applyFlagOverrides(cfg)

	proxy, err := lure.New(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := proxy.Start(ctx); err != nil {
		return err
	}
	logger.Info("lure 已就绪",
		"version", version,
		"addr", proxy.Addr(),
		"hosts", len(cfg.Hosts))

	// SIGHUP 重载路由表；SIGINT/SIGTERM 优雅退出
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			if err := reload(proxy); err != nil {
				logger.Error("重载失败，保留当前路由表", "err", err)
			}
			continue
		}

		logger.Info("收到退出信号", "signal", sig)
		stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return proxy.Close(stopCtx)
	}
	return nil
}

// reload 重新读取配置文件并整表换入路由
func reload(proxy *lure.Proxy) error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	applyEnvOverrides(cfg)
	applyFlagOverrides(cfg)
	if err := proxy.Reload(cfg); err != nil {
		return err
	}
	logger.Info("路由表已重载", "hosts", len(cfg.Hosts))
	return nil
}
