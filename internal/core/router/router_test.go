package router

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammwyy/Lure/config"
)

// ============================================================================
//                              路由测试
// ============================================================================

func buildRouter(t *testing.T, hosts map[string]config.Host) *Router {
	t.Helper()
	table, err := BuildTable(&config.Config{Hosts: hosts})
	require.NoError(t, err)
	return New(table)
}

// TestRouter_ExactMatch 测试精确匹配优先于通配条目
func TestRouter_ExactMatch(t *testing.T) {
	r := buildRouter(t, map[string]config.Host{
		"play.example.com": {Backends: []string{"10.0.0.1:25565"}},
		"*":                {Backends: []string{"10.0.0.9:25565"}},
	})

	route, err := r.Resolve("play.example.com")
	require.NoError(t, err)
	assert.Equal(t, "play.example.com", route.Host)
	t.Log("✅ 精确匹配测试通过")
}

// TestRouter_CaseInsensitive 测试主机名匹配大小写不敏感
func TestRouter_CaseInsensitive(t *testing.T) {
	r := buildRouter(t, map[string]config.Host{
		"play.example.com": {Backends: []string{"10.0.0.1:25565"}},
	})

	for _, name := range []string{"PLAY.EXAMPLE.COM", "Play.Example.Com", "play.example.com."} {
		route, err := r.Resolve(name)
		require.NoError(t, err, "hostname=%q", name)
		assert.Equal(t, "play.example.com", route.Host)
	}
	t.Log("✅ 大小写不敏感测试通过")
}

// TestRouter_WildcardFallback 测试未命中主机回退到通配条目
func TestRouter_WildcardFallback(t *testing.T) {
	r := buildRouter(t, map[string]config.Host{
		"lobby.example.com": {Backends: []string{"10.0.0.1:25565"}},
		"*":                 {Backends: []string{"10.0.0.9:25565"}},
	})

	route, err := r.Resolve("unknown.example.com")
	require.NoError(t, err)
	assert.Equal(t, Wildcard, route.Host)
	t.Log("✅ 通配回退测试通过")
}

// TestRouter_NoSuchHost 测试无通配条目时未知主机被拒绝
func TestRouter_NoSuchHost(t *testing.T) {
	r := buildRouter(t, map[string]config.Host{
		"lobby.example.com": {Backends: []string{"10.0.0.1:25565"}},
	})

	_, err := r.Resolve("unknown.example.com")
	assert.ErrorIs(t, err, ErrNoSuchHost)
	t.Log("✅ 未知主机拒绝测试通过")
}

// TestBuildTable_BadStrategy 测试非法策略名使建表失败
func TestBuildTable_BadStrategy(t *testing.T) {
	_, err := BuildTable(&config.Config{Hosts: map[string]config.Host{
		"x": {Backends: []string{"a:1"}, Strategy: "bogus"},
	}})
	assert.Error(t, err)
	t.Log("✅ 非法策略建表测试通过")
}

// TestBuildTable_EmptyBackends 测试无后端的主机使建表失败
func TestBuildTable_EmptyBackends(t *testing.T) {
	_, err := BuildTable(&config.Config{Hosts: map[string]config.Host{
		"x": {},
	}})
	assert.Error(t, err)
	t.Log("✅ 空后端建表测试通过")
}

// TestRouter_SwapAtomic 测试换表期间并发 Resolve 总能命中完整的一张表
func TestRouter_SwapAtomic(t *testing.T) {
	oldTable, err := BuildTable(&config.Config{Hosts: map[string]config.Host{
		"*": {Backends: []string{"old:1"}},
	}})
	require.NoError(t, err)
	newTable, err := BuildTable(&config.Config{Hosts: map[string]config.Host{
		"*": {Backends: []string{"new:1"}},
	}})
	require.NoError(t, err)

	r := New(oldTable)
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				route, err := r.Resolve("anything")
				assert.NoError(t, err)
				addr := route.Pool.Backends()[0].Addr
				assert.Contains(t, []string{"old:1", "new:1"}, addr)
			}
		}()
	}

	for i := 0; i < 100; i++ {
		r.Swap(newTable)
		r.Swap(oldTable)
	}
	close(done)
	wg.Wait()
	t.Log("✅ 原子换表测试通过")
}
