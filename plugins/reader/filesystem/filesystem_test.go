package filesystem

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

func mustNew(t *testing.T, opts *Options) *FileSystem {
	t.Helper()
	r, err := New(opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return r
}

func names(t *testing.T, r *FileSystem, roots ...string) []string {
	t.Helper()
	var files []string
	err := r.Iterate(context.Background(), roots, func(id contract.FileID, rc io.ReadCloser) error {
		files = append(files, filepath.Base(string(id)))
		return rc.Close()
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	return files
}

// TestIterateSingleFile 读取单文件
func TestIterateSingleFile(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "a.txt")
	_ = os.WriteFile(fp, []byte("ตากลม"), 0o644)
	var got []byte
	err := mustNew(t, nil).Iterate(context.Background(), []string{fp}, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		got = append(got, b...)
		if id != contract.NormalizeFileID(fp) {
			t.Fatalf("file id mismatch %s", id)
		}
		return nil
	})
	if err != nil || string(got) != "ตากลม" {
		t.Fatalf("iterate: %v %q", err, string(got))
	}
}

// TestExcludeDir 跳过目录，稳定顺序
func TestExcludeDir(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644)
	_ = os.MkdirAll(filepath.Join(dir, "Skip"), 0o755)
	_ = os.WriteFile(filepath.Join(dir, "Skip", "bad.txt"), []byte("x"), 0o644)
	_ = os.MkdirAll(filepath.Join(dir, "sub"), 0o755)
	_ = os.WriteFile(filepath.Join(dir, "sub", "c.txt"), []byte("c"), 0o644)

	got := names(t, mustNew(t, &Options{ExcludeDirNames: []string{"skip", ""}}), dir)
	if diff := cmp.Diff([]string{"c.txt", "a.txt", "b.txt"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

// TestGlobFilter Include/Exclude 模式
func TestGlobFilter(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"news.txt", "notes.md", "draft.txt"} {
		_ = os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644)
	}
	r := mustNew(t, &Options{Include: []string{"*.txt"}, Exclude: []string{"draft*"}})
	if diff := cmp.Diff([]string{"news.txt"}, names(t, r, dir)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	// 显式文件不受模式过滤
	if got := names(t, r, filepath.Join(dir, "notes.md")); len(got) != 1 {
		t.Fatalf("explicit file filtered: %v", got)
	}
	if _, err := New(&Options{Include: []string{"[bad"}}); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("非法模式应失败, got %v", err)
	}
}

// TestIterateDashMix 混用 '-' 返回错误
func TestIterateDashMix(t *testing.T) {
	err := mustNew(t, nil).Iterate(context.Background(), []string{"-", "a"}, func(contract.FileID, io.ReadCloser) error { return nil })
	if err == nil {
		t.Fatalf("expect error for dash mix")
	}
}

// TestIterateStdin roots 为空或 '-' 时读取 STDIN
func TestIterateStdin(t *testing.T) {
	for _, roots := range [][]string{nil, {"-"}} {
		old := os.Stdin
		pr, pw, _ := os.Pipe()
		os.Stdin = pr
		go func() {
			_, _ = pw.Write([]byte("hi"))
			_ = pw.Close()
		}()
		var data []byte
		err := mustNew(t, nil).Iterate(context.Background(), roots, func(id contract.FileID, rc io.ReadCloser) error {
			defer rc.Close()
			if id != StdinID {
				t.Fatalf("id=%s", id)
			}
			data, _ = io.ReadAll(rc)
			return nil
		})
		os.Stdin = old
		_ = pr.Close()
		if err != nil || string(data) != "hi" {
			t.Fatalf("stdin %v: %v %q", roots, err, string(data))
		}
	}
}

// TestIterateCtxCancel 上下文取消
func TestIterateCtxCancel(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "a.txt")
	_ = os.WriteFile(fp, []byte("x"), 0o644)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := mustNew(t, nil).Iterate(ctx, []string{fp}, func(contract.FileID, io.ReadCloser) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expect ctx cancel, got %v", err)
	}
}

// TestIterateMissing 不存在的根返回错误
func TestIterateMissing(t *testing.T) {
	err := mustNew(t, nil).Iterate(context.Background(), []string{filepath.Join(t.TempDir(), "no")}, func(contract.FileID, io.ReadCloser) error { return nil })
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expect not exist, got %v", err)
	}
}

// TestYieldError yield 错误上抛
func TestYieldError(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "a.txt")
	_ = os.WriteFile(fp, []byte("x"), 0o644)
	boom := errors.New("boom")
	err := mustNew(t, nil).Iterate(context.Background(), []string{fp}, func(contract.FileID, io.ReadCloser) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expect boom, got %v", err)
	}
}

// TestNewBufferedCloserDefault bufSize<=0 时使用默认
func TestNewBufferedCloserDefault(t *testing.T) {
	bc := newBufferedCloser(io.NopCloser(strings.NewReader("")), 0)
	if bc.Reader == nil || bc.Size() != 64*1024 {
		t.Fatalf("default buffer not applied")
	}
	_ = bc.Close()
}
