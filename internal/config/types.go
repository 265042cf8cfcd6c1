package config

import (
	"encoding/json"

	"github.com/PyThaiNLP/nlpo3/internal/rate"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// 键使用 snake_case；未知字段在解析期失败。
// 布尔开关使用指针，以区分"未设置"与"显式 false"。
type Config struct {
	Inputs      []string `json:"inputs"`
	Concurrency int      `json:"concurrency"`
	// Dict: 分词使用的词典名；空为 "default"。
	Dict string `json:"dict"`
	// Delimiter: 输出词间分隔符；非 nil 时覆盖 options.assembler。
	Delimiter    *string `json:"delimiter,omitempty"`
	Safe         *bool   `json:"safe,omitempty"`
	Parallel     *bool   `json:"parallel,omitempty"`
	ClusterAware *bool   `json:"cluster_aware,omitempty"`
	GroupRuns    *bool   `json:"group_runs,omitempty"`
	// Workers: 单次并行分词的 worker 上限；0 表示 GOMAXPROCS。
	Workers int     `json:"workers"`
	Logging Logging `json:"logging"`

	// Dictionaries: 启动时加载的自定义词典（按序，名称唯一）。
	Dictionaries []Dictionary `json:"dictionaries"`

	Components Components `json:"components"`
	Options    Options    `json:"options"`
	Server     Server     `json:"server"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
}

// Dictionary: 命名词典定义；Source 为词表来源工厂名（file|list），Options 原样传入工厂。
type Dictionary struct {
	Name    string          `json:"name"`
	Source  string          `json:"source"`
	Options json.RawMessage `json:"options"`
}

// Components: 批处理流水线的组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Splitter  string `json:"splitter"`
	Assembler string `json:"assembler"`
	Writer    string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。Safe/Space 为两个限制器的窗口参数。
type Options struct {
	Reader    json.RawMessage `json:"reader"`
	Splitter  json.RawMessage `json:"splitter"`
	Assembler json.RawMessage `json:"assembler"`
	Writer    json.RawMessage `json:"writer"`
	Safe      json.RawMessage `json:"safe"`
	Space     json.RawMessage `json:"space"`
}

// Server: HTTP 服务配置。
type Server struct {
	Addr string `json:"addr"`
	// CacheSize: 分词结果 LRU 容量；负数关闭缓存。
	CacheSize int `json:"cache_size"`
	// Rate: 按调用方限流；全零关闭。
	Rate rate.Limits `json:"rate"`
	// RateWaitMS: 额度不足时的最长排队毫秒数；0 立即拒绝。
	RateWaitMS int `json:"rate_wait_ms"`
}

// BoolOr 返回 *p，p 为 nil 时返回 def。
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
