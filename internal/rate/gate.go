// Package rate 提供按调用方分组的令牌桶闸门（请求数/分钟 + 字符数/分钟）。
package rate

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// LimitKey: 限流分组键（见 KeyOf）。
type LimitKey string

// Limits: 每分组的限额。0 表示该维度不启用。
type Limits struct {
	RPM            int `json:"rpm"`               // requests per minute
	RunesPerMin    int `json:"runes_per_min"`     // 待分词文本的字符数（rune）每分钟
	MaxRunesPerReq int `json:"max_runes_per_req"` // 单次请求字符上限，0 表示不限制
}

// Enabled 报告是否至少有一个维度生效。
func (l Limits) Enabled() bool { return l.RPM > 0 || l.RunesPerMin > 0 || l.MaxRunesPerReq > 0 }

// Ask: 一次放行申请。
type Ask struct {
	Key      LimitKey
	Requests int // 必须 >=1
	Runes    int // >=0
}

// DefaultMaxKeys 为同时跟踪的分组上限；超出后淘汰最久未用的分组（其额度随之重置）。
const DefaultMaxKeys = 10000

// Gate: 限流闸门（并发安全）。所有分组共享同一份 Limits。
type Gate struct {
	clk func() time.Time
	lim Limits
	m   *lru.Cache[LimitKey, *entry]
	mu  sync.Mutex // 保护 get 的查-建原子性
}

type entry struct {
	mu  sync.Mutex
	req bucket // RPM 维度
	run bucket // 字符维度
}

type bucket struct {
	cap   int
	level float64
	rate  float64
	last  time.Time
}

// NewGate: 构造闸门；clk 为空则使用 time.Now，maxKeys<=0 使用 DefaultMaxKeys。
func NewGate(lim Limits, maxKeys int, clk func() time.Time) *Gate {
	if clk == nil {
		clk = time.Now
	}
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	m, _ := lru.New[LimitKey, *entry](maxKeys)
	return &Gate{clk: clk, lim: lim, m: m}
}

func newEntry(lim Limits, now time.Time) *entry {
	return &entry{req: newBucket(lim.RPM, now), run: newBucket(lim.RunesPerMin, now)}
}

func newBucket(capacity int, now time.Time) bucket {
	if capacity <= 0 {
		return bucket{}
	}
	return bucket{cap: capacity, level: float64(capacity), rate: float64(capacity) / 60.0, last: now}
}

func (b *bucket) enabled() bool { return b.cap > 0 }

func (b *bucket) refill(now time.Time) {
	if !b.enabled() || !now.After(b.last) {
		// 时钟回拨视为无时间流逝
		return
	}
	b.level += now.Sub(b.last).Seconds() * b.rate
	if b.level > float64(b.cap) {
		b.level = float64(b.cap)
	}
	b.last = now
}

// canTake: 超过桶容量的申请按"桶满即可"放行，避免永久阻塞。
func (b *bucket) canTake(n int) bool {
	if !b.enabled() || n <= 0 {
		return true
	}
	need := float64(n)
	if need > float64(b.cap) {
		need = float64(b.cap)
	}
	return b.level >= need
}

func (b *bucket) take(n int) {
	if !b.enabled() || n <= 0 {
		return
	}
	b.level -= float64(n)
	if b.level < 0 {
		b.level = 0
	}
}

// waitFor 返回达到可消费 n 还需等待的时长。
func (b *bucket) waitFor(n int) time.Duration {
	if !b.enabled() || n <= 0 {
		return 0
	}
	need := float64(n)
	if need > float64(b.cap) {
		need = float64(b.cap)
	}
	deficit := need - b.level
	if deficit <= 0 {
		return 0
	}
	return time.Duration(deficit / b.rate * float64(time.Second))
}

func (g *Gate) get(key LimitKey) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.m.Get(key); ok {
		return e
	}
	e := newEntry(g.lim, g.clk())
	g.m.Add(key, e)
	return e
}

func (g *Gate) check(a Ask) error {
	if a.Requests <= 0 || a.Runes < 0 {
		return contract.ErrInvalidInput
	}
	if g.lim.MaxRunesPerReq > 0 && a.Runes > g.lim.MaxRunesPerReq {
		return contract.ErrInvalidInput
	}
	return nil
}

// reserve 尝试扣减；失败时返回需等待的时长。
func (g *Gate) reserve(e *entry, a Ask) (bool, time.Duration) {
	now := g.clk()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.req.refill(now)
	e.run.refill(now)
	if e.req.canTake(a.Requests) && e.run.canTake(a.Runes) {
		e.req.take(a.Requests)
		e.run.take(a.Runes)
		return true, 0
	}
	return false, max(e.req.waitFor(a.Requests), e.run.waitFor(a.Runes))
}

// Try: 非阻塞尝试；额度不足返回 false；违反单请求上限或参数非法返回 ErrInvalidInput。
func (g *Gate) Try(a Ask) (bool, error) {
	if g == nil {
		return true, nil
	}
	if err := g.check(a); err != nil {
		return false, err
	}
	ok, _ := g.reserve(g.get(a.Key), a)
	return ok, nil
}

// Wait: 阻塞直到额度可用或 ctx 结束；违反单请求上限时快速失败。
func (g *Gate) Wait(ctx context.Context, a Ask) error {
	if g == nil {
		return nil
	}
	if err := g.check(a); err != nil {
		return err
	}
	e := g.get(a.Key)
	// 睡眠粒度：下限避免忙等，上限以便及时重新检查时钟
	const (
		minSleep = 10 * time.Millisecond
		maxSleep = 200 * time.Millisecond
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, d := g.reserve(e, a)
		if ok {
			return nil
		}
		if err := sleepCtx(ctx, min(d+minSleep, maxSleep)); err != nil {
			return err
		}
	}
}

// Keys 返回当前跟踪的分组数（诊断用）。
func (g *Gate) Keys() int {
	if g == nil {
		return 0
	}
	return g.m.Len()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
