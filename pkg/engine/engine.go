// Package engine 提供分词核心的两个入口：LoadDictionary 与 Segment。
//
// Engine 持有词典注册表（显式传入，不使用进程级单例）、建图策略与限制器；
// 每次 Segment 按 safe/parallel 选择划分策略，逐 Span 求解后按序拼接。
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/PyThaiNLP/nlpo3/internal/diag"
	"github.com/PyThaiNLP/nlpo3/internal/newmm"
	"github.com/PyThaiNLP/nlpo3/internal/pipeline"
	"github.com/PyThaiNLP/nlpo3/pkg/contract"
	"github.com/PyThaiNLP/nlpo3/pkg/registry"
	"github.com/PyThaiNLP/nlpo3/plugins/limiter/safe"
	"github.com/PyThaiNLP/nlpo3/plugins/limiter/space"
	"github.com/PyThaiNLP/nlpo3/plugins/limiter/whole"
	"github.com/PyThaiNLP/nlpo3/plugins/source/file"
	"github.com/PyThaiNLP/nlpo3/plugins/source/list"
)

const comp = "engine"

// Settings 为引擎级配置；零值可用。
type Settings struct {
	ClusterAware bool
	GroupRuns    bool
	// Workers: 并行模式的 worker 上限；<=0 表示 GOMAXPROCS。
	Workers int
	// Safe: 安全模式限制器；nil 使用 safe 默认窗口。
	Safe contract.Limiter
	// Space: 非安全并行模式的预切分；nil 使用 space 默认值。
	// 仅在词典无含空白词条时启用，实现须只在空白段结束处切分。
	Space contract.Limiter
}

// Engine 并发安全；可被多个 goroutine 同时调用。
type Engine struct {
	reg     *registry.Registry
	opt     newmm.Options
	safe    contract.Limiter
	space   contract.Limiter
	whole   contract.Limiter
	workers int
	logger  *diag.Logger
}

// New 创建引擎。reg 为 nil 时新建一个仅含 "default" 的注册表。
func New(reg *registry.Registry, set Settings, logger *diag.Logger) *Engine {
	if reg == nil {
		reg = registry.New()
	}
	e := &Engine{
		reg:     reg,
		opt:     newmm.Options{ClusterAware: set.ClusterAware, GroupRuns: set.GroupRuns},
		safe:    set.Safe,
		space:   set.Space,
		whole:   whole.New(nil),
		workers: set.Workers,
		logger:  logger,
	}
	if e.safe == nil {
		e.safe = safe.New(nil)
	}
	if e.space == nil {
		e.space = space.New(nil)
	}
	return e
}

// Registry 返回引擎使用的注册表。
func (e *Engine) Registry() *registry.Registry { return e.reg }

// LoadDictionary 从文件 src（每行一词）加载词典并注册为 name。
// 返回面向调用方的消息与成功标志；失败时注册表不变。
func (e *Engine) LoadDictionary(src, name string) (string, bool) {
	s, err := file.New(&file.Options{Path: src})
	if err != nil {
		return LoadMessage(src, name, err)
	}
	return LoadMessage(src, name, e.LoadSource(context.Background(), name, s))
}

// LoadWords 以内存词表注册词典。
func (e *Engine) LoadWords(name string, words []string) (string, bool) {
	err := e.LoadSource(context.Background(), name, list.New(&list.Options{Words: words}))
	return LoadMessage("<list>", name, err)
}

// LoadSource 为 Go 调用方提供的错误返回形式。
func (e *Engine) LoadSource(ctx context.Context, name string, src contract.WordSource) error {
	t := e.logger.StartWithKV(comp, "load", "", "", map[string]string{"dict": name})
	t0 := time.Now()
	if err := e.reg.Load(ctx, name, src); err != nil {
		diag.IncOp(comp, "load", "fail")
		diag.IncError(comp, string(diag.Classify(err)))
		e.logger.ErrorWithKV(comp, string(diag.Classify(err)), err.Error(), &t0, "", "", map[string]string{"dict": name})
		return err
	}
	diag.IncOp(comp, "load", "ok")
	if d, err := e.reg.Get(name); err == nil {
		t.Finish("load", int64(d.Len()))
	}
	return nil
}

// LoadMessage 将加载结果转为面向调用方的消息与成功标志。
func LoadMessage(src, name string, err error) (string, bool) {
	switch {
	case err == nil:
		return fmt.Sprintf("Successful: file %s has been successfully loaded to dictionary name %s.", src, name), true
	case errors.Is(err, contract.ErrDuplicateName):
		return fmt.Sprintf("Failed: dictionary name %s already exists, please use another name.", name), false
	case errors.Is(err, contract.ErrReservedName):
		return fmt.Sprintf("Failed: dictionary name %s is reserved.", name), false
	default:
		return fmt.Sprintf("Failed: %v.", err), false
	}
}

// Segment 将 text 切分为词元，词元按序拼接等于 text。
// name 为空表示 "default"；词典不存在时在任何计算之前返回 ErrDictionaryNotFound。
// 空文本或非法 UTF-8 返回空序列且无错误。ctx 仅在 Span 之间检查。
func (e *Engine) Segment(ctx context.Context, text, name string, safeMode, parallel bool) ([]string, error) {
	if name == "" {
		name = registry.DefaultName
	}
	d, err := e.reg.Get(name)
	if err != nil {
		diag.IncError(comp, string(diag.CodeNotFound))
		return nil, err
	}
	if text == "" || !utf8.ValidString(text) {
		return []string{}, nil
	}
	rs := []rune(text)
	seg := newmm.New(d, e.opt)

	var lim contract.Limiter
	switch {
	case safeMode:
		lim = e.safe
	case parallel && !d.HasSpace():
		lim = e.space
	default:
		lim = e.whole
	}
	spans := lim.Partition(rs, seg.Solve)
	if err := contract.ValidateSpans(len(rs), spans); err != nil {
		return nil, err
	}
	e.logger.DebugStart(comp, "segment", "", "", map[string]string{
		"dict":  name,
		"runes": strconv.Itoa(len(rs)),
		"spans": strconv.Itoa(len(spans)),
	})

	out := make([]string, 0, len(rs)/4+1)
	if !parallel || len(spans) < 2 {
		for _, sp := range spans {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			part := rs[sp.From:sp.To]
			out = append(out, newmm.Tokens(part, seg.Solve(part))...)
		}
		return out, nil
	}

	w := pipeline.Workers(len(spans))
	if e.workers > 0 && e.workers < w {
		w = e.workers
	}
	err = pipeline.Ordered(ctx, len(spans), w,
		func(ctx context.Context, i int) ([]string, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			part := rs[spans[i].From:spans[i].To]
			return newmm.Tokens(part, seg.Solve(part)), nil
		},
		func(_ int, toks []string) error {
			out = append(out, toks...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ contract.Segmenter = (*Engine)(nil)
