package contract

import "context"

// WordSource: 词表来源（一行一词或内存列表）。
// Read 依序回调每个词；yield 返回错误时立即中止并上抛。
// 实现需自行完成去空白、跳过空行等最小归一；无法读取时返回包装了
// ErrSourceUnreadable 的错误。
type WordSource interface {
	Read(ctx context.Context, yield func(word string) error) error
}

// Segmenter: 面向调用方的分词入口（批量流水线与 HTTP 服务共用）。
type Segmenter interface {
	Segment(ctx context.Context, text, dict string, safe, parallel bool) ([]string, error)
}
