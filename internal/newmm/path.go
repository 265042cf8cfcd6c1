package newmm

import "math"

// Solve 求 0→n 的最小代价路径，返回切分边界（升序，不含 0，末元素为 n）。
//
// 图只含前向边，故自 n 向 0 单趟逆序扫描即可（线性于边数）。
// 代价高位即词元数，同代价必同跳数；平局取插入顺序靠前者（严格小于才替换），
// 逆序扫描使平局在最早的分叉点处按"最长优先"裁决。
func Solve(g *Graph) []int {
	n := g.n
	if n == 0 {
		return nil
	}
	best := make([]int64, n+1)
	next := make([]int32, n+1)
	for i := n - 1; i >= 0; i-- {
		best[i] = math.MaxInt64
		for _, e := range g.Out(i) {
			if c := e.Cost() + best[e.To]; c < best[i] {
				best[i], next[i] = c, e.To
			}
		}
	}
	out := make([]int, 0, best[0]/tokenUnit)
	for i := 0; i < n; i = int(next[i]) {
		out = append(out, int(next[i]))
	}
	return out
}

// Cost 返回最优路径的代价拆分：词元数与回退边数。
func Cost(g *Graph, bounds []int) (tokens, fallbacks int) {
	prev := 0
	for _, b := range bounds {
		for _, e := range g.Out(prev) {
			if int(e.To) == b {
				if e.Fallback {
					fallbacks++
				}
				break
			}
		}
		tokens++
		prev = b
	}
	return tokens, fallbacks
}
