package whole

import "testing"

func TestPartition(t *testing.T) {
	l := New(nil)
	if got := l.Partition(nil, nil); got != nil {
		t.Fatalf("空文本应返回 nil, got %v", got)
	}
	got := l.Partition([]rune("ภาษาไทย"), nil)
	if len(got) != 1 || got[0].From != 0 || got[0].To != 7 {
		t.Fatalf("应为单个整段 Span, got %v", got)
	}
}
