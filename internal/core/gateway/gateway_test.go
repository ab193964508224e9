package gateway

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammwyy/Lure/config"
	"github.com/sammwyy/Lure/internal/core/metrics"
	"github.com/sammwyy/Lure/internal/core/protocol"
	"github.com/sammwyy/Lure/internal/core/router"
	"github.com/sammwyy/Lure/internal/core/status"
)

// ============================================================================
//                              测试辅助
// ============================================================================

func startGateway(t *testing.T, listener config.Listener, counters *metrics.Counters) *Gateway {
	t.Helper()
	table, err := router.BuildTable(&config.Config{Hosts: map[string]config.Host{
		"*": {Backends: []string{"127.0.0.1:1"}},
	}})
	require.NoError(t, err)

	g := New(Options{
		Listener: listener,
		Router:   router.New(table),
		Status:   status.NewBuilder("gateway test", 10, "", counters),
		Metrics:  counters,
	})
	require.NoError(t, g.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = g.Close(ctx)
	})
	return g
}

// queryStatus 通过一条真实 TCP 连接完成一次状态查询
func queryStatus(t *testing.T, addr string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	enc := protocol.NewEncoder(conn)
	dec := protocol.NewDecoder(conn)

	h := &protocol.Handshake{
		ProtocolVersion: 765,
		ServerAddress:   "whatever.example.com",
		ServerPort:      25565,
		NextState:       protocol.NextStateStatus,
	}
	require.NoError(t, enc.WritePacket(h.Packet()))
	require.NoError(t, enc.WritePacket(protocol.NewPacket(protocol.IDStatusRequest, nil)))

	resp, err := dec.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, protocol.IDStatusResponse, resp.ID)
	r := protocol.NewFieldReader(resp)
	payload, err := r.String(protocol.MaxStringLen)
	require.NoError(t, err)
	return payload
}

// ============================================================================
//                              监听器测试
// ============================================================================

// TestGateway_ServesStatus 测试端到端的状态查询
func TestGateway_ServesStatus(t *testing.T) {
	counters := metrics.New()
	g := startGateway(t, config.Listener{
		Bind:             "127.0.0.1:0",
		MaxConnections:   16,
		HandshakeTimeout: config.Duration(2 * time.Second),
	}, counters)

	payload := queryStatus(t, g.Addr().String())
	assert.Contains(t, payload, "gateway test")

	snap := counters.Snapshot()
	assert.Equal(t, int64(1), snap.Accepted)
	assert.Equal(t, int64(1), snap.Statuses)
	t.Log("✅ 端到端状态查询测试通过")
}

// TestGateway_ConnectionCap 测试连接上限：许可释放后新连接才被服务
func TestGateway_ConnectionCap(t *testing.T) {
	counters := metrics.New()
	g := startGateway(t, config.Listener{
		Bind:           "127.0.0.1:0",
		MaxConnections: 1,
		// 短超时使占着许可的空闲连接尽快被清退
		HandshakeTimeout: config.Duration(100 * time.Millisecond),
	}, counters)

	// 第一条连接占住唯一许可，不发任何数据
	idle, err := net.Dial("tcp", g.Addr().String())
	require.NoError(t, err)
	defer idle.Close()

	// 第二条连接要等第一条超时清退后才被接入，但仍应在限期内完成
	start := time.Now()
	payload := queryStatus(t, g.Addr().String())
	assert.Contains(t, payload, "gateway test")
	assert.Less(t, time.Since(start), 3*time.Second)
	t.Log("✅ 连接上限测试通过")
}

// TestGateway_SessionIsolation 测试失序会话不影响后续会话
func TestGateway_SessionIsolation(t *testing.T) {
	counters := metrics.New()
	g := startGateway(t, config.Listener{
		Bind:             "127.0.0.1:0",
		MaxConnections:   16,
		HandshakeTimeout: config.Duration(2 * time.Second),
	}, counters)

	// 一条发垃圾字节的连接
	bad, err := net.Dial("tcp", g.Addr().String())
	require.NoError(t, err)
	// 5 个续接字节构成非法 VarInt 帧长
	_, err = bad.Write([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	require.NoError(t, err)
	_ = bad.Close()

	// 正常会话不受影响
	payload := queryStatus(t, g.Addr().String())
	assert.Contains(t, payload, "gateway test")
	t.Log("✅ 会话隔离测试通过")
}

// TestGateway_CloseStopsAccepting 测试关闭后停止接入
func TestGateway_CloseStopsAccepting(t *testing.T) {
	g := startGateway(t, config.Listener{
		Bind:             "127.0.0.1:0",
		MaxConnections:   16,
		HandshakeTimeout: config.Duration(time.Second),
	}, nil)
	addr := g.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, g.Close(ctx))

	// 再次关闭幂等
	assert.NoError(t, g.Close(ctx))

	// 新连接被拒绝（或立即断开）
	conn, err := net.Dial("tcp", addr)
	if err == nil {
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		buf := make([]byte, 1)
		_, err = conn.Read(buf)
		assert.Error(t, err)
		_ = conn.Close()
	}
	t.Log("✅ 关闭停止接入测试通过")
}
