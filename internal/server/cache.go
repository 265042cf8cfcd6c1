package server

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// 结果缓存：词典不可变且名称不复用，条目永不过期。
// 键为 (dict, flags, text) 的 xxhash；命中时再比对原值以排除碰撞。
type resultCache struct {
	c *lru.Cache[uint64, cacheEntry]
}

type cacheEntry struct {
	dict   string
	flags  byte
	text   string
	tokens []string
}

// newResultCache: size<=0 返回 nil（关闭缓存）。
func newResultCache(size int) *resultCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[uint64, cacheEntry](size)
	if err != nil {
		return nil
	}
	return &resultCache{c: c}
}

func flagsOf(safe, parallel bool) byte {
	var f byte
	if safe {
		f |= 1
	}
	if parallel {
		f |= 2
	}
	return f
}

func cacheKey(dict string, flags byte, text string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(dict)
	_, _ = h.Write([]byte{0, flags})
	_, _ = h.WriteString(text)
	return h.Sum64()
}

func (rc *resultCache) get(dict string, flags byte, text string) ([]string, bool) {
	if rc == nil {
		return nil, false
	}
	e, ok := rc.c.Get(cacheKey(dict, flags, text))
	if !ok || e.dict != dict || e.flags != flags || e.text != text {
		return nil, false
	}
	return e.tokens, true
}

func (rc *resultCache) add(dict string, flags byte, text string, tokens []string) {
	if rc == nil {
		return
	}
	rc.c.Add(cacheKey(dict, flags, text), cacheEntry{dict: dict, flags: flags, text: text, tokens: tokens})
}

func (rc *resultCache) len() int {
	if rc == nil {
		return 0
	}
	return rc.c.Len()
}
