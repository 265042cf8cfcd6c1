package engine

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
	"github.com/PyThaiNLP/nlpo3/pkg/dict"
	"github.com/PyThaiNLP/nlpo3/pkg/registry"
	"github.com/PyThaiNLP/nlpo3/plugins/limiter/space"
)

var flagCombos = []struct{ safe, parallel bool }{
	{false, false}, {true, false}, {false, true}, {true, true},
}

func newEngine(t testing.TB) *Engine {
	t.Helper()
	return New(registry.New(), Settings{}, nil)
}

func writeWords(t testing.TB, words ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(words, "\n")+"\n"), 0o644))
	return p
}

// randomThai 以内置词表与空白随机拼接长文本。
func randomThai(r *rand.Rand, n int) string {
	words := dict.BuiltinWords()
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(words[r.Intn(len(words))])
		switch r.Intn(6) {
		case 0:
			b.WriteByte(' ')
		case 1:
			b.WriteString("ab1")
		}
	}
	return b.String()
}

// UT-ENG-01: 固定用例 abcd
func TestFixtures(t *testing.T) {
	e := newEngine(t)
	msg, ok := e.LoadWords("p", []string{"ab", "cd", "abc"})
	require.True(t, ok, msg)
	msg, ok = e.LoadWords("q", []string{"ab", "abc", "cd", "d"})
	require.True(t, ok, msg)

	for _, fc := range flagCombos {
		got, err := e.Segment(context.Background(), "abcd", "p", fc.safe, fc.parallel)
		require.NoError(t, err)
		if diff := cmp.Diff([]string{"ab", "cd"}, got); diff != "" {
			t.Fatalf("p safe=%v parallel=%v (-want +got):\n%s", fc.safe, fc.parallel, diff)
		}
		got, err = e.Segment(context.Background(), "abcd", "q", fc.safe, fc.parallel)
		require.NoError(t, err)
		if diff := cmp.Diff([]string{"abc", "d"}, got); diff != "" {
			t.Fatalf("q safe=%v parallel=%v (-want +got):\n%s", fc.safe, fc.parallel, diff)
		}
	}
}

// UT-ENG-02: 各开关组合下无损拼接
func TestLossless(t *testing.T) {
	e := newEngine(t)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		text := randomThai(r, 20+r.Intn(400))
		for _, fc := range flagCombos {
			toks, err := e.Segment(context.Background(), text, "", fc.safe, fc.parallel)
			require.NoError(t, err)
			if err := contract.ValidateTokens(text, toks); err != nil {
				t.Fatalf("safe=%v parallel=%v: %v", fc.safe, fc.parallel, err)
			}
		}
	}
}

// UT-ENG-03: 同输入多次调用结果一致
func TestDeterministic(t *testing.T) {
	e := newEngine(t)
	text := randomThai(rand.New(rand.NewSource(11)), 600)
	for _, fc := range flagCombos {
		first, err := e.Segment(context.Background(), text, "", fc.safe, fc.parallel)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := e.Segment(context.Background(), text, "", fc.safe, fc.parallel)
			require.NoError(t, err)
			if diff := cmp.Diff(first, again); diff != "" {
				t.Fatalf("safe=%v parallel=%v 第 %d 次结果不同:\n%s", fc.safe, fc.parallel, i, diff)
			}
		}
	}
}

// UT-ENG-04: 并行不改变结果（词典无空白词条时空白切分精确）
func TestParallelEquivalence(t *testing.T) {
	e := New(registry.New(), Settings{Space: space.New(&space.Options{MinSpan: 16}), Workers: 4}, nil)
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		text := randomThai(r, 300)
		for _, safeMode := range []bool{false, true} {
			seq, err := e.Segment(context.Background(), text, "", safeMode, false)
			require.NoError(t, err)
			par, err := e.Segment(context.Background(), text, "", safeMode, true)
			require.NoError(t, err)
			if diff := cmp.Diff(seq, par); diff != "" {
				t.Fatalf("safe=%v 并行结果不同:\n%s", safeMode, diff)
			}
		}
	}
}

// UT-ENG-05: 词典含空白词条时并行退回整段求解
func TestParallelWithSpaceWord(t *testing.T) {
	e := New(registry.New(), Settings{Space: space.New(&space.Options{MinSpan: 1})}, nil)
	_, ok := e.LoadWords("sp", []string{"a b", "b"})
	require.True(t, ok)
	got, err := e.Segment(context.Background(), "a b", "sp", false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b"}, got)
}

// UT-ENG-06: 安全模式限定单个 Span 长度，结果仍无损
func TestSafeBoundsLongText(t *testing.T) {
	e := newEngine(t)
	text := strings.Repeat("กกกกกกกกกก", 200)
	toks, err := e.Segment(context.Background(), text, "", true, false)
	require.NoError(t, err)
	require.NoError(t, contract.ValidateTokens(text, toks))
	for _, tok := range toks {
		if n := len([]rune(tok)); n > 140 {
			t.Fatalf("词元长度 %d 超出窗口", n)
		}
	}
}

// UT-ENG-07: 未知词典在计算前失败
func TestUnknownDictionary(t *testing.T) {
	e := newEngine(t)
	for _, fc := range flagCombos {
		got, err := e.Segment(context.Background(), "ทดสอบ", "nonexistent", fc.safe, fc.parallel)
		if !errors.Is(err, contract.ErrDictionaryNotFound) {
			t.Fatalf("期望 ErrDictionaryNotFound, got %v", err)
		}
		assert.Nil(t, got)
	}
	// 空文本也不掩盖未知词典
	_, err := e.Segment(context.Background(), "", "nonexistent", false, false)
	require.ErrorIs(t, err, contract.ErrDictionaryNotFound)
}

// UT-ENG-08: 空文本与非法 UTF-8 返回空序列
func TestEmptyAndInvalidInput(t *testing.T) {
	e := newEngine(t)
	for _, text := range []string{"", "\xff\xfe", "ab\x80"} {
		for _, fc := range flagCombos {
			got, err := e.Segment(context.Background(), text, "", fc.safe, fc.parallel)
			require.NoError(t, err)
			if got == nil || len(got) != 0 {
				t.Fatalf("%q: 期望空序列, got %#v", text, got)
			}
		}
	}
}

// UT-ENG-09: 默认词典名
func TestDefaultName(t *testing.T) {
	e := newEngine(t)
	a, err := e.Segment(context.Background(), "ฉันรักภาษาไทย", "", false, false)
	require.NoError(t, err)
	b, err := e.Segment(context.Background(), "ฉันรักภาษาไทย", "default", false, false)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"ฉัน", "รัก", "ภาษาไทย"}, a)
}

// UT-ENG-10: LoadDictionary 的消息与成功标志
func TestLoadDictionaryMessages(t *testing.T) {
	e := newEngine(t)
	p := writeWords(t, "ab", "cd")

	msg, ok := e.LoadDictionary(p, "mine")
	require.True(t, ok)
	assert.Equal(t, "Successful: file "+p+" has been successfully loaded to dictionary name mine.", msg)

	msg, ok = e.LoadDictionary(p, "mine")
	require.False(t, ok)
	assert.Equal(t, "Failed: dictionary name mine already exists, please use another name.", msg)

	msg, ok = e.LoadDictionary(p, "default")
	require.False(t, ok)
	assert.True(t, strings.HasPrefix(msg, "Failed: "), msg)

	msg, ok = e.LoadDictionary(filepath.Join(t.TempDir(), "missing.txt"), "other")
	require.False(t, ok)
	assert.True(t, strings.HasPrefix(msg, "Failed: "), msg)
	assert.False(t, e.Registry().Has("other"), "失败的加载不得留下条目")

	msg, ok = e.LoadDictionary(p, "")
	require.False(t, ok, msg)

	got, err := e.Segment(context.Background(), "abcd", "mine", false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "cd"}, got)
}

// UT-ENG-11: 已取消的 ctx 在 Span 之间生效
func TestCanceled(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	text := randomThai(rand.New(rand.NewSource(5)), 200)
	for _, fc := range flagCombos {
		_, err := e.Segment(ctx, text, "", fc.safe, fc.parallel)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("safe=%v parallel=%v: 期望 context.Canceled, got %v", fc.safe, fc.parallel, err)
		}
	}
}

// UT-ENG-12: 并发分词与并发加载互不干扰
func TestConcurrentUse(t *testing.T) {
	e := newEngine(t)
	text := randomThai(rand.New(rand.NewSource(9)), 300)
	want, err := e.Segment(context.Background(), text, "", false, false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			got, err := e.Segment(context.Background(), text, "", false, i%2 == 0)
			if err != nil {
				errs <- err
				return
			}
			if !cmp.Equal(want, got) {
				errs <- errors.New("并发结果不一致")
			}
		}(i)
		go func() {
			defer wg.Done()
			e.LoadWords("shared", []string{"x"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	assert.True(t, e.Registry().Has("shared"))
}
