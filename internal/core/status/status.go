// Package status 构建状态（MOTD）响应载荷
//
// 状态会话不连接任何后端：代理自己回答版本、MOTD、玩家数与图标。
// 协议版本原样回显客户端握手中的版本号，任何客户端因此都把代理
// 视为兼容版本。
package status

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// VersionName 状态响应中显示的软件名
const VersionName = "Lure"

// sampleID 玩家样本条目的固定 ID（对 "lure" 取名字空间 UUID）
var sampleID = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("lure"))

// PlayerCounts 在线人数提供方（由指标计数器实现）
type PlayerCounts interface {
	ActiveSessions() int64
}

// Builder 组装状态 JSON
//
// 不可变字段在构建时确定；在线人数与协议版本按请求时点取值。
type Builder struct {
	motd       string
	maxPlayers int
	favicon    string // data URI，可为空
	counts     PlayerCounts
}

// NewBuilder 创建状态构建器
//
// faviconPath 为空或加载失败时状态响应不携带图标（降级，不报错）。
func NewBuilder(motd string, maxPlayers int, faviconPath string, counts PlayerCounts) *Builder {
	b := &Builder{
		motd:       motd,
		maxPlayers: maxPlayers,
		counts:     counts,
	}
	if faviconPath != "" {
		favicon, err := LoadFavicon(faviconPath)
		if err != nil {
			logger.Warn("状态图标不可用", "path", faviconPath, "err", err)
		} else {
			b.favicon = favicon
		}
	}
	return b
}

// 状态 JSON 的结构，与协议约定的形状一致
type statusPayload struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int32  `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int           `json:"max"`
		Online int64         `json:"online"`
		Sample []playerEntry `json:"sample"`
	} `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	Favicon string `json:"favicon,omitempty"`
}

type playerEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Build 生成状态 JSON
//
// protocolVersion 为客户端握手中声明的协议版本，原样回显。
func (b *Builder) Build(protocolVersion int32) (string, error) {
	var p statusPayload
	p.Version.Name = VersionName
	p.Version.Protocol = protocolVersion
	p.Players.Max = b.maxPlayers
	if b.counts != nil {
		p.Players.Online = b.counts.ActiveSessions()
	}
	p.Players.Sample = []playerEntry{{Name: "lure", ID: sampleID.String()}}
	p.Description.Text = b.motd
	p.Favicon = b.favicon

	data, err := json.Marshal(&p)
	if err != nil {
		return "", fmt.Errorf("encode status payload: %w", err)
	}
	return string(data), nil
}
