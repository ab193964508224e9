package protocol

import "io"

// MaxVarIntLen VarInt 最大编码长度（32 位整数上限）
const MaxVarIntLen = 5

// ReadVarInt 从字节流读取一个 VarInt
//
// 每个字节贡献低 7 位，最高位为续接位。
// 第 5 个字节之后仍有续接位时返回 ErrMalformedVarInt。
func ReadVarInt(r io.ByteReader) (int32, error) {
	var v uint32
	for i := 0; i < MaxVarIntLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int32(v), nil
		}
	}
	return 0, ErrMalformedVarInt
}

// DecodeVarInt 从字节切片解码一个 VarInt，返回值与消耗的字节数
func DecodeVarInt(buf []byte) (int32, int, error) {
	var v uint32
	for i := 0; i < MaxVarIntLen; i++ {
		if i >= len(buf) {
			return 0, 0, ErrTruncatedPacket
		}
		b := buf[i]
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int32(v), i + 1, nil
		}
	}
	return 0, 0, ErrMalformedVarInt
}

// AppendVarInt 将 VarInt 编码追加到 buf
func AppendVarInt(buf []byte, v int32) []byte {
	u := uint32(v)
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if u == 0 {
			return buf
		}
	}
}

// VarIntLen 返回 v 编码后的字节数
func VarIntLen(v int32) int {
	u := uint32(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}
