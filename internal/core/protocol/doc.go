// Package protocol 实现游戏网络协议的报文编解码层
//
// 协议层负责：
// - VarInt 变长整数编解码（每字节 7 位数据，最高位为续接位，最长 5 字节）
// - 长度前缀帧的读写（<varint 长度><载荷>）
// - 阈值压缩（协商后 <varint 包长><varint 原始长><载荷>，原始长为 0 表示未压缩）
// - 握手 / 状态 / 登录阶段所需的具名数据包
//
// 线程模型：Decoder 与 Encoder 各自只被一个方向的泵协程使用；
// 压缩阈值通过原子变量存储，允许对端方向的协程跨协程更新。
package protocol
