package delimited

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// DefaultDelimiter 为词间默认分隔符。
const DefaultDelimiter = "|"

// Options 为分隔符装配器的配置。
type Options struct {
	// Delimiter: 词间分隔符；nil 时为 "|"，显式空串表示直接拼接。
	Delimiter *string `json:"delimiter,omitempty"`
}

type assembler struct {
	delim string
}

// New 从原样 JSON Options 创建装配器。
func New(raw json.RawMessage) (contract.Assembler, error) {
	var opts Options
	if len(raw) > 0 {
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return nil, err
		}
	}
	return NewWith(opts.Delimiter), nil
}

// NewWith 以给定分隔符创建装配器；nil 使用默认值。
func NewWith(delim *string) contract.Assembler {
	d := DefaultDelimiter
	if delim != nil {
		d = *delim
	}
	return &assembler{delim: d}
}

// Assemble 每行输出 tokens 以分隔符连接，行尾追加 "\n"。
// FileID 混入、Index 逆序或重复即返回 ErrSeqInvalid。
func (a *assembler) Assemble(ctx context.Context, fileID contract.FileID, lines []contract.LineResult) (io.Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(lines) == 0 {
		return strings.NewReader(""), nil
	}
	prev := contract.Index(-1)
	size := 0
	for _, l := range lines {
		if l.FileID != fileID || l.Index <= prev {
			return nil, contract.ErrSeqInvalid
		}
		prev = l.Index
		for _, t := range l.Tokens {
			size += len(t) + len(a.delim)
		}
		size++
	}
	var sb strings.Builder
	sb.Grow(size)
	for _, l := range lines {
		for i, t := range l.Tokens {
			if i > 0 {
				sb.WriteString(a.delim)
			}
			sb.WriteString(t)
		}
		sb.WriteByte('\n')
	}
	return strings.NewReader(sb.String()), nil
}

var _ contract.Assembler = (*assembler)(nil)
