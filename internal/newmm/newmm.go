package newmm

import "github.com/PyThaiNLP/nlpo3/pkg/dict"

// Segmenter 绑定词典与建图策略，对单个 Span 求解。
// 只读共享；可被多个 worker 并发调用。
type Segmenter struct {
	dict *dict.Dictionary
	opt  Options
}

// New 创建 Segmenter。
func New(d *dict.Dictionary, opt Options) *Segmenter {
	return &Segmenter{dict: d, opt: opt}
}

// Solve 对 text 建图并求最优边界；签名满足 contract.SolveFunc。
func (s *Segmenter) Solve(text []rune) []int {
	return Solve(Build(text, s.dict, s.opt))
}

// Tokens 按边界将 text 切为词元。
func Tokens(text []rune, bounds []int) []string {
	out := make([]string, 0, len(bounds))
	prev := 0
	for _, b := range bounds {
		out = append(out, string(text[prev:b]))
		prev = b
	}
	return out
}

// Segment 对整段 text 分词（不做 Span 划分）。
func (s *Segmenter) Segment(text []rune) []string {
	return Tokens(text, s.Solve(text))
}
