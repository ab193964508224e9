package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/klauspost/compress/zlib"
)

// compressionLevel 阈值压缩使用的 zlib 级别
const compressionLevel = 4

// readBufSize 解码器读缓冲大小
const readBufSize = 4096

// ============================================================================
//                              Decoder
// ============================================================================

// Decoder 从字节流中解码协议帧
//
// 压缩阈值为 -1 时按未压缩格式读取；阈值 >= 0 后按压缩格式
// <varint 包长><varint 原始长><载荷> 读取，原始长为 0 表示载荷未压缩。
type Decoder struct {
	r         *bufio.Reader
	threshold atomic.Int32

	zr      io.ReadCloser // 复用的 zlib 读取器
	frame   []byte
	inflate []byte
	pkt     Packet
}

// NewDecoder 创建解码器
func NewDecoder(r io.Reader) *Decoder {
	d := &Decoder{r: bufio.NewReaderSize(r, readBufSize)}
	d.threshold.Store(-1)
	return d
}

// SetThreshold 设置压缩阈值（原子写，允许另一方向的协程调用）
func (d *Decoder) SetThreshold(t int32) {
	d.threshold.Store(t)
}

// Threshold 返回当前压缩阈值
func (d *Decoder) Threshold() int32 {
	return d.threshold.Load()
}

// ReadPacket 阻塞读取一个完整帧
//
// 流在帧边界干净结束时返回 io.EOF，帧中途断流返回 io.ErrUnexpectedEOF。
// 声明长度为 0 的空帧是合法的（返回 ID 为 -1 的空 Packet），不视为流结束。
//
// 返回的 Packet 载荷复用内部缓冲，仅在下一次 ReadPacket 之前有效；
// 需要跨帧保留时调用 Packet.Clone。
func (d *Decoder) ReadPacket() (*Packet, error) {
	length, err := ReadVarInt(d.r)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("frame length %d: %w", length, ErrNegativeLength)
	}
	if length > MaxPacketSize {
		return nil, fmt.Errorf("frame length %d: %w", length, ErrFrameTooLarge)
	}

	if length == 0 {
		d.pkt = Packet{ID: -1}
		return &d.pkt, nil
	}

	d.frame = grow(d.frame, int(length))
	if _, err := io.ReadFull(d.r, d.frame); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	payload := d.frame
	if d.threshold.Load() >= 0 {
		payload, err = d.unwrapCompressed(d.frame)
		if err != nil {
			return nil, err
		}
	}

	id := int32(-1)
	if len(payload) > 0 {
		id, _, err = DecodeVarInt(payload)
		if err != nil {
			return nil, fmt.Errorf("packet id: %w", err)
		}
	}

	d.pkt = Packet{ID: id, Data: payload}
	return &d.pkt, nil
}

// unwrapCompressed 解析压缩格式帧体，返回未压缩载荷
func (d *Decoder) unwrapCompressed(frame []byte) ([]byte, error) {
	dataLen, n, err := DecodeVarInt(frame)
	if err != nil {
		return nil, fmt.Errorf("data length: %w", err)
	}
	if dataLen < 0 {
		return nil, fmt.Errorf("data length %d: %w", dataLen, ErrNegativeLength)
	}
	if dataLen > MaxPacketSize {
		return nil, fmt.Errorf("data length %d: %w", dataLen, ErrFrameTooLarge)
	}

	// 原始长为 0：低于阈值的载荷按原样存放
	if dataLen == 0 {
		return frame[n:], nil
	}

	src := bytes.NewReader(frame[n:])
	if d.zr == nil {
		d.zr, err = zlib.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
	} else if err := d.zr.(zlib.Resetter).Reset(src, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}

	d.inflate = grow(d.inflate, int(dataLen))
	if _, err := io.ReadFull(d.zr, d.inflate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	return d.inflate, nil
}

// ============================================================================
//                              Encoder
// ============================================================================

// Encoder 将协议帧编码到字节流
//
// 整帧先在内部缓冲组装完成后一次性写出，写中途失败不会向流中
// 留下半个帧，后续读取方不会因此失去帧边界同步。
type Encoder struct {
	w         io.Writer
	threshold atomic.Int32

	zw      *zlib.Writer
	frame   []byte
	scratch []byte
}

// NewEncoder 创建编码器
func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	e.threshold.Store(-1)
	return e
}

// SetThreshold 设置压缩阈值（原子写，允许另一方向的协程调用）
func (e *Encoder) SetThreshold(t int32) {
	e.threshold.Store(t)
}

// Threshold 返回当前压缩阈值
func (e *Encoder) Threshold() int32 {
	return e.threshold.Load()
}

// WritePacket 编码并写出一个帧
func (e *Encoder) WritePacket(p *Packet) error {
	data := p.Data
	if len(data) > MaxPacketSize {
		return fmt.Errorf("payload length %d: %w", len(data), ErrFrameTooLarge)
	}

	e.frame = e.frame[:0]
	t := e.threshold.Load()
	switch {
	case t < 0:
		e.frame = AppendVarInt(e.frame, int32(len(data)))
		e.frame = append(e.frame, data...)

	case len(data) > int(t):
		if err := e.deflate(data); err != nil {
			return err
		}
		dataLen := int32(len(data))
		total := VarIntLen(dataLen) + len(e.scratch)
		if total > MaxPacketSize {
			return fmt.Errorf("compressed length %d: %w", total, ErrFrameTooLarge)
		}
		e.frame = AppendVarInt(e.frame, int32(total))
		e.frame = AppendVarInt(e.frame, dataLen)
		e.frame = append(e.frame, e.scratch...)

	default:
		// 低于阈值：原始长写 0，载荷原样存放
		e.frame = AppendVarInt(e.frame, int32(1+len(data)))
		e.frame = append(e.frame, 0)
		e.frame = append(e.frame, data...)
	}

	if _, err := e.w.Write(e.frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// deflate 将 data 压缩进 e.scratch
func (e *Encoder) deflate(data []byte) error {
	e.scratch = e.scratch[:0]
	sink := appendWriter{buf: &e.scratch}
	if e.zw == nil {
		zw, err := zlib.NewWriterLevel(sink, compressionLevel)
		if err != nil {
			return fmt.Errorf("zlib init: %w", err)
		}
		e.zw = zw
	} else {
		e.zw.Reset(sink)
	}
	if _, err := e.zw.Write(data); err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}
	if err := e.zw.Close(); err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}
	return nil
}

// appendWriter 把写入追加到外部切片
type appendWriter struct {
	buf *[]byte
}

func (w appendWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

// grow 将 buf 调整为恰好 n 字节长
func grow(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
