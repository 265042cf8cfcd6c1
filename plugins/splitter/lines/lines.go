package lines

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// Options 为按行拆分器的可选配置（最小必要）。
type Options struct {
	// MaxLineBytes: 单行最大字节数。0 表示不限制。
	MaxLineBytes int `json:"max_line_bytes"`
	// AllowExts: 允许处理的文件扩展名（大小写不敏感，包含点，如 [".txt"]）。
	// 为空表示不限制。
	AllowExts []string `json:"allow_exts"`
}

// Splitter 将文本文件按行拆为 Record；每行一条，空行保留。
type Splitter struct {
	maxBytes int
	allow    map[string]struct{}
}

// New 创建按行拆分器。
func New(opts *Options) *Splitter {
	s := &Splitter{}
	if opts == nil {
		return s
	}
	if opts.MaxLineBytes > 0 {
		s.maxBytes = opts.MaxLineBytes
	}
	for _, e := range opts.AllowExts {
		if e == "" {
			continue
		}
		if s.allow == nil {
			s.allow = make(map[string]struct{}, len(opts.AllowExts))
		}
		s.allow[strings.ToLower(e)] = struct{}{}
	}
	return s
}

// Split 逐行读取（CRLF 归一为 LF），Index 自 0 递增。
// 末尾换行不产生额外空行；不做 UTF-8 校验（非法行由分词器按空结果处理）。
func (s *Splitter) Split(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Record, error) {
	if s.allow != nil {
		ext := strings.ToLower(path.Ext(string(fileID)))
		if _, ok := s.allow[ext]; !ok {
			return nil, nil
		}
	}
	br := bufio.NewReader(r)
	var recs []contract.Record
	var idx contract.Index
	for {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		line, eof, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		if s.maxBytes > 0 && len(line) > s.maxBytes {
			return nil, fmt.Errorf("%w: line %d too large: %d > %d", contract.ErrInvalidInput, idx+1, len(line), s.maxBytes)
		}
		recs = append(recs, contract.Record{Index: idx, FileID: fileID, Text: line})
		idx++
	}
	return recs, nil
}

// readTrimmedLine 读取一行并去除结尾换行符；仅在无任何剩余字节时报告 EOF。
func readTrimmedLine(br *bufio.Reader) (line string, eof bool, err error) {
	s, err := br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, err
		}
		if s == "" {
			return "", true, nil
		}
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, false, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var _ contract.Splitter = (*Splitter)(nil)
