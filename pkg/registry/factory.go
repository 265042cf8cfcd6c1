package registry

import (
	"bytes"
	"encoding/json"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
	"github.com/PyThaiNLP/nlpo3/plugins/assembler/delimited"
	"github.com/PyThaiNLP/nlpo3/plugins/limiter/safe"
	"github.com/PyThaiNLP/nlpo3/plugins/limiter/space"
	"github.com/PyThaiNLP/nlpo3/plugins/limiter/whole"
	rfs "github.com/PyThaiNLP/nlpo3/plugins/reader/filesystem"
	sfile "github.com/PyThaiNLP/nlpo3/plugins/source/file"
	slist "github.com/PyThaiNLP/nlpo3/plugins/source/list"
	"github.com/PyThaiNLP/nlpo3/plugins/splitter/lines"
	wfs "github.com/PyThaiNLP/nlpo3/plugins/writer/filesystem"
	"github.com/PyThaiNLP/nlpo3/plugins/writer/stdout"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewSource 工厂签名：接收原样 JSON Options。
type NewSource func(raw json.RawMessage) (contract.WordSource, error)

// NewLimiter 工厂签名：接收原样 JSON Options。
type NewLimiter func(raw json.RawMessage) (contract.Limiter, error)

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewSplitter 工厂签名：接收原样 JSON Options。
type NewSplitter func(raw json.RawMessage) (contract.Splitter, error)

// NewAssembler 工厂签名：接收原样 JSON Options。
type NewAssembler func(raw json.RawMessage) (contract.Assembler, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Source 词表来源工厂（显式、零反射）。
var Source = map[string]NewSource{
	// file: 一行一词的文本文件
	"file": func(raw json.RawMessage) (contract.WordSource, error) {
		var opts sfile.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return sfile.New(&opts)
	},
	// list: 内联词表
	"list": func(raw json.RawMessage) (contract.WordSource, error) {
		var opts slist.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return slist.New(&opts), nil
	},
}

// Limiter 歧义限制器工厂。
var Limiter = map[string]NewLimiter{
	// safe: 窗口内保底切分，限制单段长度
	"safe": func(raw json.RawMessage) (contract.Limiter, error) {
		var opts safe.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return safe.New(&opts), nil
	},
	// space: 空白后切分（词典无含空白词时精确）
	"space": func(raw json.RawMessage) (contract.Limiter, error) {
		var opts space.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return space.New(&opts), nil
	},
	// whole: 不切分
	"whole": func(raw json.RawMessage) (contract.Limiter, error) {
		var opts whole.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return whole.New(&opts), nil
	},
}

// Reader 工厂注册表。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts)
	},
}

// Splitter 工厂注册表。
var Splitter = map[string]NewSplitter{
	// lines: 一行一条 Record
	"lines": func(raw json.RawMessage) (contract.Splitter, error) {
		var opts lines.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return lines.New(&opts), nil
	},
}

// Assembler 工厂注册表。
var Assembler = map[string]NewAssembler{
	// delimited: tokens 以分隔符连接，一行一条
	"delimited": func(raw json.RawMessage) (contract.Assembler, error) { return delimited.New(raw) },
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（默认原子替换）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
	// stdout: 顺序写到标准输出
	"stdout": func(raw json.RawMessage) (contract.Writer, error) {
		var opts stdout.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return stdout.New(&opts), nil
	},
}
