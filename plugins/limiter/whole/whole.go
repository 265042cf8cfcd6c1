package whole

import "github.com/PyThaiNLP/nlpo3/pkg/contract"

// Options: 无配置项。
type Options struct{}

// Limiter 不做划分：整段文本为一个 Span。
type Limiter struct{}

// New 创建 whole 限制器。
func New(*Options) *Limiter { return &Limiter{} }

// Partition 返回 [0,len(text)) 单个 Span；空文本返回 nil。
func (Limiter) Partition(text []rune, _ contract.SolveFunc) []contract.Span {
	if len(text) == 0 {
		return nil
	}
	return []contract.Span{{From: 0, To: len(text)}}
}

var _ contract.Limiter = Limiter{}
