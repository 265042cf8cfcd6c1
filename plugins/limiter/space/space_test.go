package space

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// UT-LIM-SPACE-01: 在空白段结束处切分
func TestPartitionCutsAfterWhitespaceRuns(t *testing.T) {
	l := New(&Options{MinSpan: 1})
	text := []rune("ab  cd\ne f")
	got := l.Partition(text, nil)
	want := []contract.Span{{From: 0, To: 4}, {From: 4, To: 7}, {From: 7, To: 9}, {From: 9, To: 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if err := contract.ValidateSpans(len(text), got); err != nil {
		t.Fatalf("覆盖校验失败: %v", err)
	}
}

// UT-LIM-SPACE-02: MinSpan 合并细碎切点
func TestPartitionMinSpan(t *testing.T) {
	text := []rune(strings.Repeat("กิน ", 200))
	l := New(nil)
	got := l.Partition(text, nil)
	if err := contract.ValidateSpans(len(text), got); err != nil {
		t.Fatalf("覆盖校验失败: %v", err)
	}
	for _, sp := range got[:len(got)-1] {
		if sp.Len() < defaultMinSpan {
			t.Fatalf("非末段长度应 >= %d, got %d", defaultMinSpan, sp.Len())
		}
		if text[sp.To-1] != ' ' {
			t.Fatalf("切点应紧随空白")
		}
	}
	if len(got) < 2 {
		t.Fatalf("800 rune 文本应被切分, got %d", len(got))
	}
}

func TestPartitionNoWhitespace(t *testing.T) {
	l := New(&Options{MinSpan: 1})
	if got := l.Partition([]rune("ภาษาไทย"), nil); len(got) != 1 {
		t.Fatalf("无空白应为单段, got %v", got)
	}
	if got := l.Partition(nil, nil); got != nil {
		t.Fatalf("空文本应返回 nil")
	}
	if got := l.Partition([]rune("   "), nil); len(got) != 1 {
		t.Fatalf("纯空白应为单段, got %v", got)
	}
}
