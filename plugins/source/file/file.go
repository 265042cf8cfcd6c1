package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// Options 为文件词表来源的配置。
type Options struct {
	// Path: 词表文件路径（一行一词，UTF-8，可带 BOM）。
	Path string `json:"path"`
	// MaxLineBytes: 单行最大字节数；<=0 使用默认 1MiB。
	MaxLineBytes int `json:"max_line_bytes"`
}

// Source 从文本文件读取词表。
type Source struct {
	path    string
	maxLine int
}

// New 创建文件来源；路径为空返回 ErrInvalidInput。
func New(opts *Options) (*Source, error) {
	if opts == nil || strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("%w: word list path is empty", contract.ErrInvalidInput)
	}
	ml := 1 << 20
	if opts.MaxLineBytes > 0 {
		ml = opts.MaxLineBytes
	}
	return &Source{path: opts.Path, maxLine: ml}, nil
}

// Path 返回词表文件路径。
func (s *Source) Path() string { return s.path }

// Read 逐行读取：去首尾空白、跳过空行、去除首行 BOM；CRLF 按 LF 处理。
// 打开/读取失败或含非法 UTF-8 时返回包装了 ErrSourceUnreadable 的错误。
func (s *Source) Read(ctx context.Context, yield func(word string) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", contract.ErrSourceUnreadable, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, min(64*1024, s.maxLine)), s.maxLine)
	line := 0
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		raw := sc.Bytes()
		if line == 1 {
			raw = trimBOM(raw)
		}
		if !utf8.Valid(raw) {
			return fmt.Errorf("%w: %s:%d: invalid UTF-8", contract.ErrSourceUnreadable, s.path, line)
		}
		w := strings.TrimSpace(string(raw))
		if w == "" {
			continue
		}
		if err := yield(w); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("%w: %s:%d: line exceeds %d bytes", contract.ErrSourceUnreadable, s.path, line+1, s.maxLine)
		}
		return fmt.Errorf("%w: %w", contract.ErrSourceUnreadable, err)
	}
	return nil
}

func trimBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

var _ contract.WordSource = (*Source)(nil)
