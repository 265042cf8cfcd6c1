// Package safe 实现"安全模式"歧义限制器：以固定窗口寻找低歧义切点，
// 将长文本划分为长度有上界的 Span，从而限定单次建图规模与最坏延迟。
//
// 对剩余文本长度 >= ScanEnd 的部分，反复在窗口 [ScanBegin, ScanEnd) 内选切点：
//  1. 窗口内最后一个空白字符之后；
//  2. 否则，窗口内最后一个泰文/非泰文书写系统切换处；
//  3. 否则，对窗口局部求解，切在最长词元（同长取最后者）之前。
//
// 切点随后回退到最近的字位簇（grapheme cluster）边界，但不低于 ScanBegin+1。
package safe

import (
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// Options 为窗口参数；0 使用默认值（120 ± 20）。
type Options struct {
	ScanPoint int `json:"scan_point"`
	ScanLeft  int `json:"scan_left"`
	ScanRight int `json:"scan_right"`
}

const (
	defaultScanPoint = 120
	defaultScanLeft  = 20
	defaultScanRight = 20
)

// Limiter 实现安全模式划分。
type Limiter struct {
	begin int
	end   int
}

// New 创建 safe 限制器。非法窗口（begin<1 或 end<=begin）回落到默认值。
func New(opts *Options) *Limiter {
	p, l, r := defaultScanPoint, defaultScanLeft, defaultScanRight
	if opts != nil {
		if opts.ScanPoint > 0 {
			p = opts.ScanPoint
		}
		if opts.ScanLeft > 0 {
			l = opts.ScanLeft
		}
		if opts.ScanRight > 0 {
			r = opts.ScanRight
		}
	}
	b, e := p-l, p+r
	if b < 1 || e <= b {
		b = defaultScanPoint - defaultScanLeft
		e = defaultScanPoint + defaultScanRight
	}
	return &Limiter{begin: b, end: e}
}

// Window 返回窗口 [begin, end)。
func (l *Limiter) Window() (begin, end int) { return l.begin, l.end }

// Partition 见包说明。solve 为 nil 时第 3 步退化为切在 ScanBegin。
func (l *Limiter) Partition(text []rune, solve contract.SolveFunc) []contract.Span {
	n := len(text)
	if n == 0 {
		return nil
	}
	var spans []contract.Span
	from := 0
	for n-from >= l.end {
		cut := l.cut(text[from:], solve)
		spans = append(spans, contract.Span{From: from, To: from + cut})
		from += cut
	}
	if from < n {
		spans = append(spans, contract.Span{From: from, To: n})
	}
	return spans
}

// cut 在 rest（长度 >= end）上选切点，返回值位于 (begin, end] 或等于 begin。
func (l *Limiter) cut(rest []rune, solve contract.SolveFunc) int {
	win := rest[l.begin:l.end]
	c := -1
	for i := len(win) - 1; i >= 0; i-- {
		if unicode.IsSpace(win[i]) {
			c = l.begin + i + 1
			break
		}
	}
	if c < 0 {
		for i := len(win) - 1; i > 0; i-- {
			if isThai(win[i-1]) != isThai(win[i]) {
				c = l.begin + i
				break
			}
		}
	}
	if c < 0 {
		c = l.begin
		if solve != nil {
			prev, maxLen, at := 0, 0, 0
			for _, b := range solve(win) {
				if b-prev >= maxLen {
					maxLen, at = b-prev, prev
				}
				prev = b
			}
			c = l.begin + at
		}
	}
	return l.snap(rest, c)
}

// snap 将 c 回退到 rest[:end] 上最近的字位簇边界（不低于 begin+1）。
// c 已是边界、或回退越界时原样返回。
func (l *Limiter) snap(rest []rune, c int) int {
	if c <= l.begin || c >= len(rest) {
		return c
	}
	g := uniseg.NewGraphemes(string(rest[:l.end]))
	pos, last := 0, -1
	for g.Next() {
		if pos == c {
			return c
		}
		if pos > c {
			break
		}
		if pos > l.begin {
			last = pos
		}
		pos += len(g.Runes())
	}
	if pos == c {
		return c
	}
	if last > l.begin {
		return last
	}
	return c
}

// isThai: 泰文区块 U+0E00–U+0E7F。
func isThai(r rune) bool { return r >= 0x0E00 && r <= 0x0E7F }

var _ contract.Limiter = (*Limiter)(nil)
