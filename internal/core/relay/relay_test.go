package relay

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammwyy/Lure/internal/core/metrics"
	"github.com/sammwyy/Lure/internal/core/protocol"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// harness 一对管道两端的中继与测试侧编解码器
type harness struct {
	relay      *Relay
	clientEnc  *protocol.Encoder // 测试侧：扮演客户端写入
	clientDec  *protocol.Decoder // 测试侧：扮演客户端读出
	backendEnc *protocol.Encoder // 测试侧：扮演后端写入
	backendDec *protocol.Decoder // 测试侧：扮演后端读出
	clientEnd  net.Conn
	backendEnd net.Conn
	done       chan error
}

func newHarness(t *testing.T, observer Observer, counters *metrics.Counters) *harness {
	t.Helper()
	clientProxy, clientEnd := net.Pipe()
	backendProxy, backendEnd := net.Pipe()

	h := &harness{
		relay: &Relay{
			ClientConn:    clientProxy,
			BackendConn:   backendProxy,
			ClientDec:     protocol.NewDecoder(clientProxy),
			ClientEnc:     protocol.NewEncoder(clientProxy),
			BackendDec:    protocol.NewDecoder(backendProxy),
			BackendEnc:    protocol.NewEncoder(backendProxy),
			OnClientbound: observer,
			Metrics:       counters,
		},
		clientEnc:  protocol.NewEncoder(clientEnd),
		clientDec:  protocol.NewDecoder(clientEnd),
		backendEnc: protocol.NewEncoder(backendEnd),
		backendDec: protocol.NewDecoder(backendEnd),
		clientEnd:  clientEnd,
		backendEnd: backendEnd,
		done:       make(chan error, 1),
	}
	go func() { h.done <- h.relay.Run(context.Background()) }()
	return h
}

// wait 等待中继退出并返回其错误
func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("中继未在限期内退出")
		return nil
	}
}

// ============================================================================
//                              中继测试
// ============================================================================

// TestRelay_Bidirectional 测试两个方向的帧被逐字节原样转发
func TestRelay_Bidirectional(t *testing.T) {
	h := newHarness(t, nil, nil)

	// 客户端 → 后端
	c2s := protocol.NewPacket(0x10, bytes.Repeat([]byte{0x42}, 100))
	require.NoError(t, h.clientEnc.WritePacket(c2s))
	got, err := h.backendDec.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, c2s.ID, got.ID)
	assert.Equal(t, c2s.Data, got.Data)

	// 后端 → 客户端
	s2c := protocol.NewPacket(0x26, []byte("chunk data"))
	require.NoError(t, h.backendEnc.WritePacket(s2c))
	got, err = h.clientDec.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, s2c.ID, got.ID)
	assert.Equal(t, s2c.Data, got.Data)

	// 后端断开：中继干净退出
	require.NoError(t, h.backendEnd.Close())
	assert.NoError(t, h.wait(t))
	t.Log("✅ 双向转发测试通过")
}

// TestRelay_OrderPreserved 测试单方向内帧严格按到达顺序转发
func TestRelay_OrderPreserved(t *testing.T) {
	h := newHarness(t, nil, nil)

	const n = 20
	go func() {
		for i := 0; i < n; i++ {
			_ = h.clientEnc.WritePacket(protocol.NewPacket(int32(i), []byte{byte(i)}))
		}
	}()
	for i := 0; i < n; i++ {
		got, err := h.backendDec.ReadPacket()
		require.NoError(t, err)
		assert.Equal(t, int32(i), got.ID)
	}

	require.NoError(t, h.clientEnd.Close())
	assert.NoError(t, h.wait(t))
	t.Log("✅ 帧顺序测试通过")
}

// TestRelay_PeerCloseTearsDownBoth 测试一侧结束后另一侧读也随之解除
func TestRelay_PeerCloseTearsDownBoth(t *testing.T) {
	h := newHarness(t, nil, nil)

	require.NoError(t, h.backendEnd.Close())
	assert.NoError(t, h.wait(t))

	// 客户端侧的阻塞读必须已被解除
	_, err := h.clientDec.ReadPacket()
	assert.Error(t, err)
	t.Log("✅ 双端联动关闭测试通过")
}

// TestRelay_ObserverAfterWrite 测试观察点在帧写出到客户端之后触发
func TestRelay_ObserverAfterWrite(t *testing.T) {
	observed := make(chan *protocol.Packet, 1)
	h := newHarness(t, func(p *protocol.Packet) {
		observed <- p.Clone()
	}, nil)

	pkt := protocol.SetCompressionPacket(128)
	require.NoError(t, h.backendEnc.WritePacket(pkt))

	// 观察点触发前该帧必然已可在客户端侧读到
	got, err := h.clientDec.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, pkt.Data, got.Data)

	select {
	case p := <-observed:
		assert.Equal(t, pkt.ID, p.ID)
	case <-time.After(time.Second):
		t.Fatal("观察点未触发")
	}

	require.NoError(t, h.backendEnd.Close())
	assert.NoError(t, h.wait(t))
	t.Log("✅ 观察点时序测试通过")
}

// TestRelay_CountsTraffic 测试两个方向的流量计数
func TestRelay_CountsTraffic(t *testing.T) {
	counters := metrics.New()
	h := newHarness(t, nil, counters)

	c2s := protocol.NewPacket(0x01, []byte("serverbound"))
	require.NoError(t, h.clientEnc.WritePacket(c2s))
	_, err := h.backendDec.ReadPacket()
	require.NoError(t, err)

	s2c := protocol.NewPacket(0x02, []byte("clientbound!"))
	require.NoError(t, h.backendEnc.WritePacket(s2c))
	_, err = h.clientDec.ReadPacket()
	require.NoError(t, err)

	require.NoError(t, h.backendEnd.Close())
	assert.NoError(t, h.wait(t))

	snap := counters.Snapshot()
	assert.Equal(t, int64(1), snap.C2SFrames)
	assert.Equal(t, int64(len(c2s.Data)), snap.C2SBytes)
	assert.Equal(t, int64(1), snap.S2CFrames)
	assert.Equal(t, int64(len(s2c.Data)), snap.S2CBytes)
	t.Log("✅ 流量计数测试通过")
}
