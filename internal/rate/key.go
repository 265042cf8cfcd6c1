package rate

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// KeyOf 构造限流分组键：携带 API key 时按 sha256(key) 分组，否则按客户端地址。
// 键中不保留明文 key。
func KeyOf(apiKey, clientIP string) LimitKey {
	if k := strings.TrimSpace(apiKey); k != "" {
		sum := sha256.Sum256([]byte(k))
		return LimitKey(fmt.Sprintf("key:%x", sum[:8]))
	}
	return LimitKey("ip:" + clientIP)
}
