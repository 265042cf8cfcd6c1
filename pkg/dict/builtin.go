package dict

import (
	_ "embed"
	"strings"
	"sync"
)

// 内置泰文常用词表（"default" 词典来源），一行一词。
//
//go:embed words_th.txt
var builtinWords string

// BuiltinWords 返回内置词表的副本（已去空白、跳过空行）。
func BuiltinWords() []string {
	lines := strings.Split(builtinWords, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if w := strings.TrimSpace(l); w != "" {
			out = append(out, w)
		}
	}
	return out
}

var builtinOnce = sync.OnceValue(func() *Dictionary {
	d, err := FromWords(BuiltinWords()...)
	if err != nil {
		// 内置词表随二进制发布，解析失败属于构建缺陷
		panic("dict: builtin word list: " + err.Error())
	}
	return d
})

// Builtin 返回进程内共享的内置词典（首次调用时构建）。
func Builtin() *Dictionary { return builtinOnce() }
