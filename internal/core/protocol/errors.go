package protocol

import "errors"

// 协议错误定义
//
// 协议错误只影响单个连接，绝不影响进程或其他会话。
var (
	// ErrMalformedVarInt VarInt 超过 5 字节仍有续接位
	ErrMalformedVarInt = errors.New("malformed varint")

	// ErrFrameTooLarge 帧长度超出协议上限
	ErrFrameTooLarge = errors.New("frame exceeds maximum length")

	// ErrNegativeLength 帧或字符串长度为负
	ErrNegativeLength = errors.New("negative length")

	// ErrDecompressionFailed 压缩载荷损坏，无法解压
	ErrDecompressionFailed = errors.New("decompression failed")

	// ErrStringTooLong 字符串超出声明上限
	ErrStringTooLong = errors.New("string exceeds maximum length")

	// ErrTruncatedPacket 载荷在字段中途结束
	ErrTruncatedPacket = errors.New("truncated packet")

	// ErrInvalidNextState 握手 next_state 不是 1（状态）或 2（登录）
	ErrInvalidNextState = errors.New("invalid handshake next state")

	// ErrUnexpectedPacket 当前阶段收到预期之外的数据包
	ErrUnexpectedPacket = errors.New("unexpected packet")
)
