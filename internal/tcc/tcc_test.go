package tcc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// UT-TCC-01: 含不发音符号（การันต์）的簇
func TestBoundariesKaran(t *testing.T) {
	got := Boundaries("พิสูจน์ได้ค่ะ")
	if diff := cmp.Diff([]int{2, 7, 10, 13}, got); diff != "" {
		t.Fatalf("簇边界不符 (-want +got):\n%s", diff)
	}
}

// UT-TCC-02: 一般情形
func TestSegmentGeneral(t *testing.T) {
	got := Segment("เรือน้อยลอยอยู่")
	want := []string{"เรือ", "น้", "อ", "ย", "ล", "อ", "ย", "อ", "ยู่"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("簇切分不符 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4, 6, 7, 8, 9, 10, 11, 12, 15}, Boundaries("เรือน้อยลอยอยู่")); diff != "" {
		t.Fatalf("簇边界不符 (-want +got):\n%s", diff)
	}
}

// UT-TCC-03: 非泰文逐字符成簇；拼接无损
func TestNonThaiAndLossless(t *testing.T) {
	got := Segment("ab 1")
	if diff := cmp.Diff([]string{"a", "b", " ", "1"}, got); diff != "" {
		t.Fatalf("非泰文簇不符 (-want +got):\n%s", diff)
	}
	for _, s := range []string{"", "ภาษาไทย ABC ๑๒๓", "ก็ได้", "เกี่ยวข้อง\n"} {
		if strings.Join(Segment(s), "") != s {
			t.Fatalf("拼接未还原 %q", s)
		}
		b := Boundaries(s)
		if len(s) == 0 {
			if len(b) != 0 {
				t.Fatalf("空串应无边界")
			}
			continue
		}
		if b[len(b)-1] != len([]rune(s)) {
			t.Fatalf("末边界应为 rune 总数: %v", b)
		}
	}
}
