package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
//                              配置测试
// ============================================================================

// TestDefault 测试默认配置自身有效
func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:25577", cfg.Listener.Bind)
	assert.Positive(t, cfg.Listener.MaxConnections)
	assert.Contains(t, cfg.Hosts, "*")
	t.Log("✅ 默认配置测试通过")
}

// TestLoadSave_RoundTrip 测试配置落盘与回读
func TestLoadSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lure.json")
	want := Default()
	want.Proxy.MOTD = "round trip"
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	t.Log("✅ 配置读写往返测试通过")
}

// TestLoad_PartialFile 测试部分字段的配置文件可解析
func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lure.json")
	raw := `{
		"listener": {"bind": "0.0.0.0:25565", "max_connections": 64, "handshake_timeout": "3s"},
		"hosts": {
			"play.example.com": {"backends": ["10.0.0.1:25565", "10.0.0.2:25565"], "strategy": "failover"}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:25565", cfg.Listener.Bind)
	assert.Equal(t, 3*time.Second, cfg.Listener.HandshakeTimeout.Duration())
	assert.Equal(t, "failover", cfg.Hosts["play.example.com"].Strategy)
	assert.Len(t, cfg.Hosts["play.example.com"].Backends, 2)
	t.Log("✅ 部分配置解析测试通过")
}

// TestLoad_BadJSON 测试非法 JSON 报错
func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lure.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
	t.Log("✅ 非法 JSON 测试通过")
}

// TestValidate_Failures 测试各类非法配置被拒绝
func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"空监听地址", func(c *Config) { c.Listener.Bind = "" }},
		{"无端口的监听地址", func(c *Config) { c.Listener.Bind = "127.0.0.1" }},
		{"非正连接上限", func(c *Config) { c.Listener.MaxConnections = 0 }},
		{"无任何主机", func(c *Config) { c.Hosts = nil }},
		{"主机无后端", func(c *Config) { c.Hosts["x"] = Host{} }},
		{"后端地址无端口", func(c *Config) { c.Hosts["x"] = Host{Backends: []string{"10.0.0.1"}} }},
		{"压缩阈值越界", func(c *Config) {
			c.Hosts["x"] = Host{Backends: []string{"a:1"}, CompressionThreshold: -2}
		}},
		{"部分通配主机名", func(c *Config) { c.Hosts["*.example.com"] = Host{Backends: []string{"a:1"}} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	t.Log("✅ 非法配置测试通过")
}

// TestValidateAndFix 测试可修复项被自动补全
func TestValidateAndFix(t *testing.T) {
	cfg := Default()
	cfg.Listener.HandshakeTimeout = 0
	cfg.Health.Interval = 0
	cfg.Hosts["noStrategy"] = Host{Backends: []string{"a:1"}}

	fixed, err := cfg.ValidateAndFix()
	require.NoError(t, err)
	assert.Positive(t, fixed.Listener.HandshakeTimeout.Duration())
	assert.Positive(t, fixed.Health.Interval.Duration())
	assert.Less(t, fixed.Health.Timeout.Duration(), fixed.Health.Interval.Duration())
	assert.Equal(t, "round_robin", fixed.Hosts["noStrategy"].Strategy)
	t.Log("✅ 自动修复测试通过")
}

// TestValidateAndFix_Nil 测试 nil 配置回退到默认值
func TestValidateAndFix_Nil(t *testing.T) {
	var cfg *Config
	fixed, err := cfg.ValidateAndFix()
	require.NoError(t, err)
	assert.Equal(t, Default(), fixed)
	t.Log("✅ nil 配置回退测试通过")
}

// TestDuration_JSON 测试时长字段的字符串与数字两种写法
func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1h30m"`), &d))
	assert.Equal(t, 90*time.Minute, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`5000000000`), &d))
	assert.Equal(t, 5*time.Second, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`"eternity"`), &d))

	out, err := json.Marshal(Duration(30 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"30s"`, string(out))
	t.Log("✅ 时长序列化测试通过")
}
