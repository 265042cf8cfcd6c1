package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Index: 单文件内稳定递增的索引（0..n-1）。
type Index int64

// Meta: 可选的轻量元信息；核心流程不读取其键值。
type Meta map[string]string

// Record: 原子输入片段（不可跨文件），批量分词时对应输入的一行。
// 约束：
// - FileID 一致；
// - Index 自 0 严格递增；
// - Text 为原始行文本（已去除行尾 \n / \r\n），不做任何清洗。
type Record struct {
	Index  Index
	FileID FileID
	Text   string
	Meta   Meta // 可为 nil
}

// LineResult: 单条 Record 的分词结果。
// Tokens 依序拼接必须还原 Record.Text。
type LineResult struct {
	FileID FileID
	Index  Index
	Tokens []string
}

// Span: 文本上的半开区间 [From, To)，单位为 rune 偏移。
// 一次切分产生的 Span 序列互不相交、按序覆盖全文。
type Span struct {
	From int
	To   int
}

// Len 返回区间长度（rune 数）。
func (s Span) Len() int { return s.To - s.From }
