package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
	"github.com/PyThaiNLP/nlpo3/plugins/assembler/delimited"
	"github.com/PyThaiNLP/nlpo3/plugins/splitter/lines"
)

// 通用桩件 ----------------------------------------------------
type stubReader struct{ files map[string]string }

func (r stubReader) Iterate(ctx context.Context, roots []string, yield func(contract.FileID, io.ReadCloser) error) error {
	for _, name := range roots {
		if err := yield(contract.FileID(name), io.NopCloser(strings.NewReader(r.files[name]))); err != nil {
			return err
		}
	}
	return nil
}

// stubSegmenter 逐 rune 切分；遇到 fail 文本返回错误。
type stubSegmenter struct {
	mu    sync.Mutex
	dicts []string
	fail  string
}

func (s *stubSegmenter) Segment(ctx context.Context, text, dict string, safe, parallel bool) ([]string, error) {
	s.mu.Lock()
	s.dicts = append(s.dicts, dict)
	s.mu.Unlock()
	if s.fail != "" && text == s.fail {
		return nil, contract.ErrDictionaryNotFound
	}
	var out []string
	for _, r := range text {
		out = append(out, string(r))
	}
	return out, nil
}

type stubWriter struct {
	mu  sync.Mutex
	out map[contract.ArtifactID]string
	err error
}

func (w *stubWriter) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		w.out = map[contract.ArtifactID]string{}
	}
	w.out[id] = string(b)
	return nil
}

func comps(files map[string]string, seg contract.Segmenter, w contract.Writer) Components {
	return Components{
		Reader:    stubReader{files: files},
		Splitter:  lines.New(nil),
		Segmenter: seg,
		Assembler: delimited.NewWith(nil),
		Writer:    w,
	}
}

// UT-PIP-01: 多文件多行，输出按行序
func TestRunOrdered(t *testing.T) {
	files := map[string]string{
		"a.txt": "abc\n\nxy\n",
		"b.txt": "",
	}
	seg := &stubSegmenter{}
	w := &stubWriter{}
	set := Settings{Inputs: []string{"a.txt", "b.txt"}, Concurrency: 3, Dict: "tiny"}
	if err := Run(context.Background(), comps(files, seg, w), set, nil); err != nil {
		t.Fatalf("运行失败: %v", err)
	}
	if got := w.out["a.txt"]; got != "a|b|c\n\nx|y\n" {
		t.Fatalf("a.txt 输出错误: %q", got)
	}
	if got, ok := w.out["b.txt"]; !ok || got != "" {
		t.Fatalf("空文件应写出空输出: %q %v", got, ok)
	}
	for _, d := range seg.dicts {
		if d != "tiny" {
			t.Fatalf("词典名未透传: %q", d)
		}
	}
}

// UT-PIP-02: 分词错误上抛且保留哨兵
func TestRunSegmentError(t *testing.T) {
	files := map[string]string{"a.txt": "ok\nbad\nok\n"}
	err := Run(context.Background(), comps(files, &stubSegmenter{fail: "bad"}, &stubWriter{}), Settings{Inputs: []string{"a.txt"}}, nil)
	if !errors.Is(err, contract.ErrDictionaryNotFound) {
		t.Fatalf("应返回 ErrDictionaryNotFound, got %v", err)
	}
}

// UT-PIP-03: Writer 错误
func TestRunWriterError(t *testing.T) {
	boom := errors.New("disk full")
	files := map[string]string{"a.txt": strings.Repeat("line\n", 100)}
	err := Run(context.Background(), comps(files, &stubSegmenter{}, &stubWriter{err: boom}), Settings{Inputs: []string{"a.txt"}}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("应返回写出错误, got %v", err)
	}
}

// UT-PIP-04: 组件缺失
func TestRunSanity(t *testing.T) {
	if err := Run(context.Background(), Components{}, Settings{}, nil); err == nil {
		t.Fatalf("缺失组件应报错")
	}
}
