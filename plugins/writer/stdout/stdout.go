package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// Options 为标准输出 Writer 的配置。
type Options struct {
	// Headers: 在每个工件前输出 "==> id <==" 标题行（多文件输入时便于区分）。
	Headers bool `json:"headers"`
}

// Stdout 将结果顺序写到同一输出流；多次 Write 之间互斥，不交错。
type Stdout struct {
	mu      sync.Mutex
	out     io.Writer
	headers bool
}

// New 创建写往 os.Stdout 的 Writer。
func New(opts *Options) *Stdout { return NewTo(os.Stdout, opts) }

// NewTo 创建写往 w 的 Writer。
func NewTo(w io.Writer, opts *Options) *Stdout {
	s := &Stdout{out: w}
	if opts != nil {
		s.headers = opts.Headers
	}
	return s
}

// Write 透传 r 的全部字节。
func (s *Stdout) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headers {
		if _, err := fmt.Fprintf(s.out, "==> %s <==\n", id); err != nil {
			return err
		}
	}
	_, err := io.Copy(s.out, r)
	return err
}

var _ contract.Writer = (*Stdout)(nil)
