package protocol

import (
	"encoding/binary"
	"unicode/utf8"
)

// MaxPacketSize 单帧未压缩载荷的协议上限（2 MiB）
const MaxPacketSize = 2097152

// MaxStringLen 协议字符串的默认字符上限
const MaxStringLen = 32767

// Packet 一个协议帧
//
// Data 为完整的未压缩载荷，起始于包类型 VarInt；
// ID 为预先解析出的包类型，空帧（长度为 0，协议允许）时为 -1。
// Packet 是瞬态对象：由 Decoder 构造，被状态机消费或被中继原样转发，
// 不做持久化。
type Packet struct {
	ID   int32
	Data []byte
}

// NewPacket 用包类型与正文构造一个帧载荷
func NewPacket(id int32, body []byte) *Packet {
	data := AppendVarInt(make([]byte, 0, VarIntLen(id)+len(body)), id)
	return &Packet{
		ID:   id,
		Data: append(data, body...),
	}
}

// Clone 返回载荷独立的副本
//
// Decoder 返回的 Packet 复用内部缓冲，需要跨帧保留时必须 Clone。
func (p *Packet) Clone() *Packet {
	return &Packet{
		ID:   p.ID,
		Data: append([]byte(nil), p.Data...),
	}
}

// Body 返回包类型之后的正文部分
func (p *Packet) Body() []byte {
	if len(p.Data) == 0 {
		return nil
	}
	_, n, err := DecodeVarInt(p.Data)
	if err != nil {
		return nil
	}
	return p.Data[n:]
}

// ============================================================================
//                              字段读取
// ============================================================================

// FieldReader 按协议字段顺序解析载荷正文
type FieldReader struct {
	buf []byte
	off int
}

// NewFieldReader 创建从 p 正文起始的字段读取器
func NewFieldReader(p *Packet) *FieldReader {
	return &FieldReader{buf: p.Body()}
}

// VarInt 读取一个 VarInt 字段
func (r *FieldReader) VarInt() (int32, error) {
	v, n, err := DecodeVarInt(r.buf[r.off:])
	if err != nil {
		return 0, err
	}
	r.off += n
	return v, nil
}

// String 读取一个长度前缀字符串，max 为字符数上限
func (r *FieldReader) String(max int) (string, error) {
	n, err := r.VarInt()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrNegativeLength
	}
	// UTF-8 最多 4 字节一个字符，先用字节数粗筛
	if int(n) > max*4 {
		return "", ErrStringTooLong
	}
	if r.off+int(n) > len(r.buf) {
		return "", ErrTruncatedPacket
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	if utf8.RuneCountInString(s) > max {
		return "", ErrStringTooLong
	}
	return s, nil
}

// Uint16 读取一个大端 16 位无符号整数
func (r *FieldReader) Uint16() (uint16, error) {
	if r.off+2 > len(r.buf) {
		return 0, ErrTruncatedPacket
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// Int64 读取一个大端 64 位整数
func (r *FieldReader) Int64() (int64, error) {
	if r.off+8 > len(r.buf) {
		return 0, ErrTruncatedPacket
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.off:]))
	r.off += 8
	return v, nil
}

// Remaining 返回尚未消费的字节数
func (r *FieldReader) Remaining() int {
	return len(r.buf) - r.off
}

// ============================================================================
//                              字段写入
// ============================================================================

// FieldWriter 按协议字段顺序组装载荷正文
type FieldWriter struct {
	buf []byte
}

// VarInt 追加一个 VarInt 字段
func (w *FieldWriter) VarInt(v int32) *FieldWriter {
	w.buf = AppendVarInt(w.buf, v)
	return w
}

// String 追加一个长度前缀字符串
func (w *FieldWriter) String(s string) *FieldWriter {
	w.buf = AppendVarInt(w.buf, int32(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Uint16 追加一个大端 16 位无符号整数
func (w *FieldWriter) Uint16(v uint16) *FieldWriter {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return w
}

// Int64 追加一个大端 64 位整数
func (w *FieldWriter) Int64(v int64) *FieldWriter {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
	return w
}

// Packet 以指定包类型收束为一个帧载荷
func (w *FieldWriter) Packet(id int32) *Packet {
	return NewPacket(id, w.buf)
}
