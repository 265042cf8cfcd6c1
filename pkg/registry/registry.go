// Package registry 维护名称到词典的映射，并提供插件工厂表。
//
// 词典注册表读多写少：Get 读取原子发布的快照，互不阻塞；
// Load/Insert 之间串行，构建新映射的副本后一次性发布。
// 名称一经占用不可覆盖，"default" 为内置词表保留。
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
	"github.com/PyThaiNLP/nlpo3/pkg/dict"
)

// DefaultName 为内置词典的保留名。
const DefaultName = "default"

type snapshot = map[string]*dict.Dictionary

// Registry 为并发安全的词典注册表。零值不可用，使用 New 创建。
type Registry struct {
	loadMu sync.Mutex
	m      atomic.Pointer[snapshot]
}

// New 创建注册表，"default" 指向内置泰语词表。
func New() *Registry {
	return NewWith(dict.Builtin())
}

// NewWith 以给定词典作为 "default" 创建注册表。
func NewWith(def *dict.Dictionary) *Registry {
	r := &Registry{}
	m := snapshot{DefaultName: def}
	r.m.Store(&m)
	return r
}

// Get 返回名称对应的词典；不存在时返回包装了 ErrDictionaryNotFound 的错误。
func (r *Registry) Get(name string) (*dict.Dictionary, error) {
	if d, ok := (*r.m.Load())[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", contract.ErrDictionaryNotFound, name)
}

// Has 报告名称是否已被占用。
func (r *Registry) Has(name string) bool {
	_, ok := (*r.m.Load())[name]
	return ok
}

// Names 返回全部名称（升序）。
func (r *Registry) Names() []string {
	m := *r.m.Load()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load 从 src 构建词典并以 name 注册。
// 名称非法、保留、已存在，或来源不可读时返回错误，注册表保持不变。
func (r *Registry) Load(ctx context.Context, name string, src contract.WordSource) error {
	if err := r.checkName(name); err != nil {
		return err
	}
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	// 持锁后复查，避免为注定失败的加载读取来源
	if r.Has(name) {
		return fmt.Errorf("%w: %q", contract.ErrDuplicateName, name)
	}
	d, err := dict.Load(ctx, src)
	if err != nil {
		return err
	}
	r.publish(name, d)
	return nil
}

// Insert 注册一个已构建的词典，名称规则同 Load。
func (r *Registry) Insert(name string, d *dict.Dictionary) error {
	if d == nil {
		return fmt.Errorf("%w: nil dictionary", contract.ErrInvalidInput)
	}
	if err := r.checkName(name); err != nil {
		return err
	}
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.Has(name) {
		return fmt.Errorf("%w: %q", contract.ErrDuplicateName, name)
	}
	r.publish(name, d)
	return nil
}

func (r *Registry) checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", contract.ErrInvalidName)
	case name != strings.TrimSpace(name):
		return fmt.Errorf("%w: %q has leading or trailing spaces", contract.ErrInvalidName, name)
	case name == DefaultName:
		return fmt.Errorf("%w: %q", contract.ErrReservedName, name)
	case r.Has(name):
		return fmt.Errorf("%w: %q", contract.ErrDuplicateName, name)
	}
	return nil
}

// publish 须在 loadMu 内调用。
func (r *Registry) publish(name string, d *dict.Dictionary) {
	old := *r.m.Load()
	next := make(snapshot, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[name] = d
	r.m.Store(&next)
}
