// Package newmm 实现基于词典图的最大匹配分词（newmm）。
//
// 图的节点为 rune 偏移 0..n；边 (i,j) 表示 text[i:j] 为词典词或回退单元。
// 每个非末节点至少有一条回退边，因此 0→n 必然可达。
// 代价为字典序二元组（词元数, 回退边数），打包进 int64：
// 高 32 位计词元数，低 32 位计回退惩罚。
package newmm

import (
	"regexp"
	"unicode/utf8"

	"github.com/PyThaiNLP/nlpo3/internal/tcc"
	"github.com/PyThaiNLP/nlpo3/pkg/dict"
)

const (
	tokenUnit = int64(1) << 32
	// CostWord 为词典边（及非泰文连续段边）的代价。
	CostWord = tokenUnit
	// CostFallback 为回退边的代价：同样计一个词元，外加固定惩罚 1。
	CostFallback = tokenUnit + 1
)

// Options 控制建图的可选策略；零值即基础图。
type Options struct {
	// ClusterAware: 词典边须止于字符簇边界，回退单元为一个字符簇而非单个 rune。
	ClusterAware bool
	// GroupRuns: 非泰文可读连续段（拉丁字母、数字组、泰文数字组、空格/制表、换行）
	// 整体作为一条词典级别的边。
	GroupRuns bool
}

// Edge 为一条出边。
type Edge struct {
	To       int32
	Fallback bool
}

// Cost 返回边代价。
func (e Edge) Cost() int64 {
	if e.Fallback {
		return CostFallback
	}
	return CostWord
}

// Graph 为候选切分 DAG，邻接以 CSR 形式存放：
// 节点 i 的出边为 edges[start[i]:start[i+1]]，保持插入顺序（词典边由长到短，回退边最后）。
type Graph struct {
	n     int
	start []int32
	edges []Edge
}

// Nodes 返回节点数（len(text)+1）。
func (g *Graph) Nodes() int { return g.n + 1 }

// Out 返回节点 i 的出边（只读）。
func (g *Graph) Out(i int) []Edge { return g.edges[g.start[i]:g.start[i+1]] }

// EdgeCount 返回总边数。
func (g *Graph) EdgeCount() int { return len(g.edges) }

var runRe = regexp.MustCompile(`^(?:[-a-zA-Z]+|[0-9]+(?:[,.][0-9]+)*|[๐-๙]+(?:[,.][๐-๙]+)*|[ \t]+|\r?\n)`)

// Build 在 text 上构建候选图。d 为 nil 时等价于空词典。
func Build(text []rune, d *dict.Dictionary, opt Options) *Graph {
	n := len(text)
	g := &Graph{n: n, start: make([]int32, n+1)}
	if n == 0 {
		return g
	}
	s := string(text)
	b := []byte(s)
	bpos := make([]int, n+1)
	for i, off := 0, 0; i < n; i++ {
		bpos[i] = off
		off += runeLen(text[i])
		bpos[i+1] = off
	}

	// 簇边界：ends[j] 表示 j 为簇结束位置；fb[i] 为 i 起的回退终点
	var ends []bool
	fb := make([]int32, n)
	if opt.ClusterAware {
		ends = make([]bool, n+1)
		prev := 0
		for _, e := range tcc.Boundaries(s) {
			ends[e] = true
			for i := prev; i < e; i++ {
				fb[i] = int32(e)
			}
			prev = e
		}
	} else {
		for i := range fb {
			fb[i] = int32(i + 1)
		}
	}

	g.edges = make([]Edge, 0, n*2)
	var lens []int
	runEnd := 0
	for i := 0; i < n; i++ {
		g.start[i] = int32(len(g.edges))
		lens = lens[:0]
		if d != nil {
			lens = d.Prefixes(b[bpos[i]:], lens)
		}
		run := 0
		if opt.GroupRuns && i >= runEnd {
			if m := runRe.FindStringIndex(s[bpos[i]:]); m != nil && m[1] > 0 {
				run = utf8.RuneCountInString(s[bpos[i] : bpos[i]+m[1]])
				runEnd = i + run
			}
		}
		hasFallbackTarget := false
		emit := func(l int) {
			j := int32(i + l)
			if j == fb[i] {
				hasFallbackTarget = true
			}
			g.edges = append(g.edges, Edge{To: j})
		}
		// 由长到短插入；run 与同长词典边合并
		runDone := run == 0
		for k := len(lens) - 1; k >= 0; k-- {
			l := lens[k]
			if ends != nil && !ends[i+l] {
				continue
			}
			if !runDone && run >= l {
				if run > l {
					emit(run)
				}
				runDone = true
			}
			emit(l)
		}
		if !runDone {
			emit(run)
		}
		if !hasFallbackTarget {
			g.edges = append(g.edges, Edge{To: fb[i], Fallback: true})
		}
	}
	g.start[n] = int32(len(g.edges))
	return g
}

// runeLen 与 string([]rune) 的编码一致：非法码点按 U+FFFD 计。
func runeLen(r rune) int {
	if n := utf8.RuneLen(r); n > 0 {
		return n
	}
	return utf8.RuneLen(utf8.RuneError)
}
