package contract

import (
	"fmt"
	"strings"
)

// 校验库函数（纯函数，无 I/O）：
// - ValidateSpans:  Span 序列互不相交、按序覆盖 [0,n)
// - ValidateTokens: 词元按序拼接还原原文（无损拼接）

// ValidateSpans 校验 spans 是否恰好按序覆盖 [0,n)。
// n==0 时仅接受空序列。
func ValidateSpans(n int, spans []Span) error {
	if n < 0 {
		return ErrInvalidInput
	}
	expect := 0
	for i, sp := range spans {
		if sp.From != expect {
			return fmt.Errorf("%w: span %d starts at %d, want %d", ErrInvariantViolation, i, sp.From, expect)
		}
		if sp.To <= sp.From {
			return fmt.Errorf("%w: span %d is empty or reversed [%d,%d)", ErrInvariantViolation, i, sp.From, sp.To)
		}
		expect = sp.To
	}
	if expect != n {
		return fmt.Errorf("%w: spans cover [0,%d), want [0,%d)", ErrInvariantViolation, expect, n)
	}
	return nil
}

// ValidateTokens 校验 tokens 依序拼接后等于 text，且不含空词元。
func ValidateTokens(text string, tokens []string) error {
	rest := text
	for i, tok := range tokens {
		if tok == "" {
			return fmt.Errorf("%w: empty token at %d", ErrInvariantViolation, i)
		}
		if !strings.HasPrefix(rest, tok) {
			return fmt.Errorf("%w: token %d %q does not match input", ErrInvariantViolation, i, tok)
		}
		rest = rest[len(tok):]
	}
	if rest != "" {
		return fmt.Errorf("%w: %d trailing bytes not covered", ErrInvariantViolation, len(rest))
	}
	return nil
}
