package balancer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
//                              健康探测测试
// ============================================================================

// TestChecker_RevivesDeadBackend 测试探测成功后死条目恢复存活
func TestChecker_RevivesDeadBackend(t *testing.T) {
	pool, err := NewPool("lobby", RoundRobin, []string{"a:1", "b:1"})
	require.NoError(t, err)
	pool.Backends()[0].MarkDead()

	mock := clock.NewMock()
	var probed atomic.Int32
	checker := NewChecker(
		WithClock(mock),
		WithInterval(10*time.Second),
		WithProbe(func(ctx context.Context, addr string, timeout time.Duration) error {
			probed.Add(1)
			assert.Equal(t, "a:1", addr)
			return nil
		}),
	)
	checker.SetPools([]*Pool{pool})
	checker.Start(context.Background())
	defer checker.Stop()

	// 让探测协程先建好 ticker 再推进模拟时钟
	time.Sleep(10 * time.Millisecond)
	mock.Add(10 * time.Second)

	require.Eventually(t, func() bool {
		return pool.Backends()[0].Alive()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), probed.Load())
	t.Log("✅ 死条目恢复测试通过")
}

// TestChecker_SkipsAliveBackends 测试存活条目不做主动探测
func TestChecker_SkipsAliveBackends(t *testing.T) {
	pool, err := NewPool("lobby", RoundRobin, []string{"a:1", "b:1"})
	require.NoError(t, err)

	mock := clock.NewMock()
	var probed atomic.Int32
	checker := NewChecker(
		WithClock(mock),
		WithInterval(time.Second),
		WithProbe(func(ctx context.Context, addr string, timeout time.Duration) error {
			probed.Add(1)
			return nil
		}),
	)
	checker.SetPools([]*Pool{pool})
	checker.Start(context.Background())

	time.Sleep(10 * time.Millisecond)
	mock.Add(3 * time.Second)
	time.Sleep(10 * time.Millisecond)
	checker.Stop()

	assert.Zero(t, probed.Load())
	t.Log("✅ 跳过存活条目测试通过")
}

// TestChecker_KeepsDeadOnFailure 测试探测仍失败时条目保持死状态
func TestChecker_KeepsDeadOnFailure(t *testing.T) {
	pool, err := NewPool("lobby", RoundRobin, []string{"a:1"})
	require.NoError(t, err)
	pool.Backends()[0].MarkDead()

	mock := clock.NewMock()
	var probed atomic.Int32
	checker := NewChecker(
		WithClock(mock),
		WithInterval(time.Second),
		WithProbe(func(ctx context.Context, addr string, timeout time.Duration) error {
			probed.Add(1)
			return errors.New("connection refused")
		}),
	)
	checker.SetPools([]*Pool{pool})
	checker.Start(context.Background())

	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Second)

	require.Eventually(t, func() bool {
		return probed.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
	checker.Stop()

	assert.False(t, pool.Backends()[0].Alive())
	t.Log("✅ 探测失败保持死状态测试通过")
}

// TestChecker_StopIdempotent 测试未启动与重复停止都安全
func TestChecker_StopIdempotent(t *testing.T) {
	checker := NewChecker()
	checker.Stop()

	checker.Start(context.Background())
	checker.Stop()
	t.Log("✅ 停止幂等测试通过")
}
