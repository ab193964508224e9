package status

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"os"

	"github.com/sammwyy/Lure/pkg/lib/log"
)

var logger = log.Logger("status")

// faviconSize 协议要求的图标边长（像素）
const faviconSize = 64

// LoadFavicon 读取 PNG 图标并编码为状态响应所需的 data URI
//
// 图标必须是 64x64 的 PNG，否则返回错误（调用方降级为无图标）。
func LoadFavicon(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的图标路径是预期行为
	if err != nil {
		return "", fmt.Errorf("read favicon: %w", err)
	}

	meta, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode favicon: %w", err)
	}
	if meta.Width != faviconSize || meta.Height != faviconSize {
		return "", fmt.Errorf("favicon must be %dx%d, got %dx%d",
			faviconSize, faviconSize, meta.Width, meta.Height)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
