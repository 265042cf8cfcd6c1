// Package space 在空白段结束处切分文本，仅用于并行预切分。
//
// 当词典中不存在含空白的词条时，任何候选边都不会跨越"空白→非空白"的位置，
// 全局最优路径必经这些位置，因此按此切分后逐段求解与整段求解结果一致。
// 调用方负责在词典含空白词条时改用 whole。
package space

import (
	"unicode"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// Options 为 space 限制器的可选配置。
type Options struct {
	// MinSpan: 每个 Span 的最小 rune 数（末段除外）；<=0 使用默认 256。
	MinSpan int `json:"min_span"`
}

const defaultMinSpan = 256

// Limiter 实现空白切分。
type Limiter struct {
	minSpan int
}

// New 创建 space 限制器。
func New(opts *Options) *Limiter {
	m := defaultMinSpan
	if opts != nil && opts.MinSpan > 0 {
		m = opts.MinSpan
	}
	return &Limiter{minSpan: m}
}

// Partition 在长度达到 MinSpan 后的第一个"空白→非空白"位置切分。
func (l *Limiter) Partition(text []rune, _ contract.SolveFunc) []contract.Span {
	n := len(text)
	if n == 0 {
		return nil
	}
	var spans []contract.Span
	from := 0
	for p := 1; p < n; p++ {
		if p-from < l.minSpan {
			continue
		}
		if unicode.IsSpace(text[p-1]) && !unicode.IsSpace(text[p]) {
			spans = append(spans, contract.Span{From: from, To: p})
			from = p
		}
	}
	return append(spans, contract.Span{From: from, To: n})
}

var _ contract.Limiter = (*Limiter)(nil)
