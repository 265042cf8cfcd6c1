// Package tcc 计算泰文字符簇（Thai Character Cluster）边界。
// 字符簇是不可再分的书写单位（辅音及其附着的元音、声调符号），
// 词边界必然落在簇边界上。规则集来自 Theeramunkong et al. 2000。
package tcc

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// 规则记号：
//
//	c 辅音 [ก-ฮ]
//	t 可选声调符号
//	d 下置元音 ุ ู
//	k 可选的不发音尾（辅音 + 可选辅音 + 可选元音 + ์）
var rules = []string{
	"เc็ck",
	"เcctาะk",
	"เccีtยะk",
	"เcc็ck",
	"เcิc์ck",
	"เcิtck",
	"เcีtยะ?k",
	"เcืtอะ?k",
	"เctา?ะ?k",
	"cัtวะk",
	"c[ัื]tc[ุิะ]?k",
	"c[ิุู]์k",
	"c[ะ-ู]tk",
	"cรรc์",
	"c็",
	"ct[ะาำ]?k",
	"ck",
	"แc็c",
	"แcc์",
	"แctะ",
	"แcc็c",
	"แccc์",
	"โctะ",
	"[เ-ไ]ct",
	"ก็",
	"อึ",
	"หึ",
	"(เccีtย)[เ-ไก-ฮ]k",
	"(เc[ิีุู]tย)[เ-ไก-ฮ]k",
}

// 后看规则：簇以 ย 结尾且后接辅音/前置元音；匹配时只取分组部分。
var lookaheadRules = []string{
	"(เccีtย)[เ-ไก-ฮ]",
	"(เc[ิีุู]tย)[เ-ไก-ฮ]",
}

func expand(p string) string {
	p = strings.ReplaceAll(p, "k", "(?:cc?[dิ]?[์])?")
	p = strings.ReplaceAll(p, "c", "[ก-ฮ]")
	p = strings.ReplaceAll(p, "t", "[่-๋]?")
	p = strings.ReplaceAll(p, "d", "ุู")
	return p
}

func compile(ps []string) *regexp.Regexp {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = expand(p)
	}
	return regexp.MustCompile("^(?:" + strings.Join(parts, "|") + ")")
}

var (
	clusterRe   = compile(rules)
	lookaheadRe = compile(lookaheadRules)
)

// next 返回 s 开头第一个簇的字节长度（s 非空时至少为一个 rune）。
func next(s string) int {
	m := clusterRe.FindStringIndex(s)
	if m == nil || m[1] == 0 {
		_, n := utf8.DecodeRuneInString(s)
		return n
	}
	matched := s[:m[1]]
	if sub := lookaheadRe.FindStringSubmatchIndex(matched); sub != nil {
		// 两个分组择一命中
		for g := 1; g*2+1 < len(sub); g++ {
			if end := sub[g*2+1]; end > 0 {
				return end
			}
		}
	}
	return m[1]
}

// Boundaries 返回 s 中每个簇的结束位置（rune 偏移，升序，末元素为 rune 总数）。
// 非泰文字符各自成簇。
func Boundaries(s string) []int {
	out := make([]int, 0, len(s)/6+1)
	pos := 0
	for len(s) > 0 {
		n := next(s)
		pos += utf8.RuneCountInString(s[:n])
		out = append(out, pos)
		s = s[n:]
	}
	return out
}

// Segment 将 s 切分为字符簇序列；拼接还原 s。
func Segment(s string) []string {
	out := make([]string, 0, len(s)/6+1)
	for len(s) > 0 {
		n := next(s)
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}
