// Package dict 提供不可变词典：一次构建、只读共享。
// 前缀索引基于双数组 Trie（cedar），键为词的 UTF-8 字节，值为词的 rune 长度；
// 查询 "text[i:] 的所有前缀词" 的代价与命中数成正比，与词表规模无关。
package dict

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	cedar "github.com/liuzl/cedar-go"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// Dictionary 为不可变词典。构建完成后不再修改，可被任意并发读者共享。
type Dictionary struct {
	trie     *cedar.Cedar
	count    int
	maxLen   int
	hasSpace bool
}

// Builder 逐词构建 Dictionary。非并发安全；Build 之后不可再 Add。
type Builder struct {
	d     *Dictionary
	built bool
}

// NewBuilder 创建空构建器。
func NewBuilder() *Builder {
	return &Builder{d: &Dictionary{trie: cedar.New()}}
}

// Add 加入一个词。空串忽略；重复词忽略；非法 UTF-8 或含 NUL 字节返回 ErrSourceUnreadable。
// cedar 以 NUL 作键终止符，含 NUL 的词无法存入。
func (b *Builder) Add(word string) error {
	if b.built {
		return fmt.Errorf("%w: builder already built", contract.ErrInvalidInput)
	}
	if word == "" {
		return nil
	}
	if !utf8.ValidString(word) {
		return fmt.Errorf("%w: invalid UTF-8 in word %q", contract.ErrSourceUnreadable, word)
	}
	if strings.IndexByte(word, 0) >= 0 {
		return fmt.Errorf("%w: NUL byte in word %q", contract.ErrSourceUnreadable, word)
	}
	key := []byte(word)
	if _, err := b.d.trie.Get(key); err == nil {
		return nil
	}
	n := utf8.RuneCountInString(word)
	if err := b.d.trie.Insert(key, n); err != nil {
		return fmt.Errorf("dict insert %q: %w", word, err)
	}
	b.d.count++
	if n > b.d.maxLen {
		b.d.maxLen = n
	}
	if strings.IndexFunc(word, unicode.IsSpace) >= 0 {
		b.d.hasSpace = true
	}
	return nil
}

// Build 返回构建完成的词典。
func (b *Builder) Build() *Dictionary {
	b.built = true
	return b.d
}

// FromWords 由内存词表构建词典（词两端空白已由调用方处理）。
func FromWords(words ...string) (*Dictionary, error) {
	b := NewBuilder()
	for _, w := range words {
		if err := b.Add(w); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Load 从 WordSource 读取全部词并构建词典。
// 任一错误都不会产出部分构建的词典。
func Load(ctx context.Context, src contract.WordSource) (*Dictionary, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil word source", contract.ErrSourceUnreadable)
	}
	b := NewBuilder()
	if err := src.Read(ctx, b.Add); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// Len 返回词条数（去重后）。
func (d *Dictionary) Len() int { return d.count }

// MaxWordLen 返回最长词的 rune 长度。
func (d *Dictionary) MaxWordLen() int { return d.maxLen }

// HasSpace 报告是否存在含空白字符的词条。
// 为 false 时，在空白处切分文本不会切断任何词典词。
func (d *Dictionary) HasSpace() bool { return d.hasSpace }

// Contains 报告 word 是否为词条。
func (d *Dictionary) Contains(word string) bool {
	if word == "" {
		return false
	}
	_, err := d.trie.Get([]byte(word))
	return err == nil
}

// Prefixes 将 b 的所有前缀词的 rune 长度追加到 dst 后返回，按长度升序。
// b 须为合法 UTF-8 文本从某个 rune 起点开始的字节切片。
func (d *Dictionary) Prefixes(b []byte, dst []int) []int {
	if d.count == 0 || len(b) == 0 {
		return dst
	}
	for _, id := range d.trie.PrefixMatch(b, 0) {
		n, err := d.trie.Value(id)
		if err != nil {
			continue
		}
		dst = append(dst, n)
	}
	return dst
}
