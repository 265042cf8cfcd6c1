package dict

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

type sliceSource []string

func (s sliceSource) Read(ctx context.Context, yield func(string) error) error {
	for _, w := range s {
		if err := yield(w); err != nil {
			return err
		}
	}
	return nil
}

type brokenSource struct{}

func (brokenSource) Read(ctx context.Context, yield func(string) error) error {
	_ = yield("ก")
	return contract.ErrSourceUnreadable
}

// UT-DICT-01: 前缀查询按长度升序返回 rune 长度
func TestPrefixes(t *testing.T) {
	d, err := FromWords("ตา", "ตากลม", "กลม", "ab", "abc")
	require.NoError(t, err)

	got := d.Prefixes([]byte("ตากลมมาก"), nil)
	if diff := cmp.Diff([]int{2, 5}, got); diff != "" {
		t.Fatalf("前缀长度不符 (-want +got):\n%s", diff)
	}
	got = d.Prefixes([]byte("abcd"), got[:0])
	if diff := cmp.Diff([]int{2, 3}, got); diff != "" {
		t.Fatalf("前缀长度不符 (-want +got):\n%s", diff)
	}
	if got := d.Prefixes([]byte("zzz"), nil); len(got) != 0 {
		t.Fatalf("无命中应为空, got %v", got)
	}
	if got := d.Prefixes(nil, nil); len(got) != 0 {
		t.Fatalf("空输入应为空, got %v", got)
	}
}

// UT-DICT-02: 统计信息与去重
func TestStats(t *testing.T) {
	d, err := FromWords("กิน", "กิน", "", "ข้าว", "hello world")
	require.NoError(t, err)
	require.Equal(t, 3, d.Len())
	require.Equal(t, 11, d.MaxWordLen())
	require.True(t, d.HasSpace())
	require.True(t, d.Contains("ข้าว"))
	require.False(t, d.Contains("ข้า"))
	require.False(t, d.Contains(""))

	d2, err := FromWords("กิน")
	require.NoError(t, err)
	require.False(t, d2.HasSpace())
}

// UT-DICT-03: 非法 UTF-8 与来源错误
func TestLoadErrors(t *testing.T) {
	if _, err := FromWords("ok", string([]byte{0xff, 0xfe})); !errors.Is(err, contract.ErrSourceUnreadable) {
		t.Fatalf("非法 UTF-8 应返回 ErrSourceUnreadable, got %v", err)
	}
	if _, err := FromWords("a\x00b", "a"); !errors.Is(err, contract.ErrSourceUnreadable) {
		t.Fatalf("含 NUL 的词应返回 ErrSourceUnreadable, got %v", err)
	}
	if _, err := Load(context.Background(), brokenSource{}); !errors.Is(err, contract.ErrSourceUnreadable) {
		t.Fatalf("来源错误应上抛, got %v", err)
	}
	if _, err := Load(context.Background(), nil); !errors.Is(err, contract.ErrSourceUnreadable) {
		t.Fatalf("nil 来源应失败, got %v", err)
	}
	d, err := Load(context.Background(), sliceSource{"ab", "cd"})
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())
}

// UT-DICT-04: Build 之后禁止 Add
func TestBuilderSealed(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add("ก"))
	_ = b.Build()
	if err := b.Add("ข"); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("Build 后 Add 应失败, got %v", err)
	}
}

// UT-DICT-05: 内置词典
func TestBuiltin(t *testing.T) {
	d := Builtin()
	require.Same(t, d, Builtin())
	require.Greater(t, d.Len(), 200)
	for _, w := range []string{"ภาษาไทย", "ทดสอบ", "การ", "ตัด", "คำ", "ฉัน", "รัก"} {
		require.Truef(t, d.Contains(w), "内置词典应包含 %q", w)
	}
	require.False(t, d.HasSpace())
	words := BuiltinWords()
	require.Equal(t, len(words), len(BuiltinWords()))
}

func BenchmarkPrefixes(b *testing.B) {
	d := Builtin()
	text := []byte("ภาษาไทยเป็นภาษาที่สวยงาม")
	var buf []int
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf = d.Prefixes(text, buf[:0])
	}
}
