package list

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

func TestRead(t *testing.T) {
	in := []string{" กิน ", "", "ข้าว", "\t"}
	s := New(&Options{Words: in})
	in[0] = "changed"
	var got []string
	if err := s.Read(context.Background(), func(w string) error { got = append(got, w); return nil }); err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if diff := cmp.Diff([]string{"กิน", "ข้าว"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestReadErrors(t *testing.T) {
	s := New(&Options{Words: []string{string([]byte{0xff})}})
	if err := s.Read(context.Background(), func(string) error { return nil }); !errors.Is(err, contract.ErrSourceUnreadable) {
		t.Fatalf("非法 UTF-8 应失败, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New(nil).Read(ctx, func(string) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("已取消应返回 ctx 错误, got %v", err)
	}
}
