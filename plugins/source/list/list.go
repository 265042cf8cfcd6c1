package list

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// Options 为内存词表来源的配置。
type Options struct {
	Words []string `json:"words"`
}

// Source 为内存词表。持有副本，调用方后续修改不影响已建来源。
type Source struct {
	words []string
}

// New 创建内存来源。
func New(opts *Options) *Source {
	var ws []string
	if opts != nil {
		ws = append(ws, opts.Words...)
	}
	return &Source{words: ws}
}

// Read 依序回调去空白后的非空词。
func (s *Source) Read(ctx context.Context, yield func(word string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, raw := range s.words {
		if !utf8.ValidString(raw) {
			return fmt.Errorf("%w: word %d: invalid UTF-8", contract.ErrSourceUnreadable, i)
		}
		w := strings.TrimSpace(raw)
		if w == "" {
			continue
		}
		if err := yield(w); err != nil {
			return err
		}
	}
	return nil
}

var _ contract.WordSource = (*Source)(nil)
