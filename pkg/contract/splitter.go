package contract

import (
	"context"
	"io"
)

// Splitter: 将单文件字节流拆分为有序 Record 序列，并分配 Index（0..n-1）。
// 约束：
// 1) 不跨文件合并；
// 2) Index 严格递增且稳定；
// 3) 不改变行内文本；
// 4) 无内部并发、幂等。
type Splitter interface {
	Split(ctx context.Context, fileID FileID, r io.Reader) ([]Record, error)
}

// SolveFunc 对一段 rune 序列求最优切分，返回切分边界（升序，不含 0，末元素为 len(text)）。
type SolveFunc func(text []rune) []int

// Limiter: 歧义限制器。将文本划分为可独立求解的 Span 序列。
// 约束：
// 1) 输出 Span 互不相交、按序覆盖 [0, len(text))；
// 2) 空文本返回空序列；
// 3) 对同一输入输出确定；
// 4) 可借助 solve 对局部窗口求解以寻找保底切点，但不得修改 text。
type Limiter interface {
	Partition(text []rune, solve SolveFunc) []Span
}
