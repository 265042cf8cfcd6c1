package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/PyThaiNLP/nlpo3/pkg/registry"
)

// Format 为配置文件格式。
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// EnvPrefix 为环境变量覆盖的前缀。
const EnvPrefix = "NLPO3_"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Inputs:      []string{"-"},
		Concurrency: 1,
		Dict:        registry.DefaultName,
		Logging:     Logging{Level: "info"},
		Components: Components{
			Reader:    "fs",
			Splitter:  "lines",
			Assembler: "delimited",
			Writer:    "stdout",
		},
		Server: Server{Addr: ":8080", CacheSize: 4096},
	}
}

// FormatOf 按扩展名判断格式；未知扩展名视为 JSON。
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load 从文件路径或原始内容解析 Config（严格拒绝未知字段）。
// raw 非空时优先；其格式按 path 的扩展名判断，path 为空时按 JSON。
func Load(path string, raw []byte) (Config, error) {
	switch {
	case len(raw) > 0:
		return Parse(FormatOf(path), raw)
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		return Parse(FormatOf(path), b)
	default:
		return Config{}, errors.New("no config source provided")
	}
}

// Parse 解析指定格式的配置。TOML/YAML 先转为通用树，再经严格 JSON 解码，
// 三种格式共享同一套字段名与未知字段规则。
func Parse(f Format, b []byte) (Config, error) {
	var cfg Config
	js := b
	switch f {
	case FormatTOML:
		var tree map[string]any
		if err := toml.Unmarshal(b, &tree); err != nil {
			return cfg, fmt.Errorf("toml: %w", err)
		}
		out, err := json.Marshal(tree)
		if err != nil {
			return cfg, err
		}
		js = out
	case FormatYAML:
		var tree map[string]any
		if err := yaml.UnmarshalWithOptions(b, &tree, yaml.Strict()); err != nil {
			return cfg, fmt.Errorf("yaml: %w", err)
		}
		out, err := json.Marshal(tree)
		if err != nil {
			return cfg, err
		}
		js = out
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为"替换"；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if s := strings.TrimSpace(over.Dict); s != "" {
		out.Dict = s
	}
	if over.Delimiter != nil {
		v := *over.Delimiter
		out.Delimiter = &v
	}
	out.Safe = overBool(out.Safe, over.Safe)
	out.Parallel = overBool(out.Parallel, over.Parallel)
	out.ClusterAware = overBool(out.ClusterAware, over.ClusterAware)
	out.GroupRuns = overBool(out.GroupRuns, over.GroupRuns)
	if over.Workers != 0 {
		out.Workers = over.Workers
	}
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}

	// 词典：同名替换，新名追加
	out.Dictionaries = cloneDicts(base.Dictionaries)
	for _, d := range over.Dictionaries {
		replaced := false
		for i := range out.Dictionaries {
			if out.Dictionaries[i].Name == d.Name {
				out.Dictionaries[i] = cloneDict(d)
				replaced = true
				break
			}
		}
		if !replaced {
			out.Dictionaries = append(out.Dictionaries, cloneDict(d))
		}
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Splitter != "" {
		out.Components.Splitter = over.Components.Splitter
	}
	if over.Components.Assembler != "" {
		out.Components.Assembler = over.Components.Assembler
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Splitter) > 0 {
		out.Options.Splitter = cloneRaw(over.Options.Splitter)
	}
	if len(over.Options.Assembler) > 0 {
		out.Options.Assembler = cloneRaw(over.Options.Assembler)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	if len(over.Options.Safe) > 0 {
		out.Options.Safe = cloneRaw(over.Options.Safe)
	}
	if len(over.Options.Space) > 0 {
		out.Options.Space = cloneRaw(over.Options.Space)
	}

	if s := strings.TrimSpace(over.Server.Addr); s != "" {
		out.Server.Addr = s
	}
	if over.Server.CacheSize != 0 {
		out.Server.CacheSize = over.Server.CacheSize
	}
	if over.Server.Rate.Enabled() {
		out.Server.Rate = over.Server.Rate
	}
	if over.Server.RateWaitMS != 0 {
		out.Server.RateWaitMS = over.Server.RateWaitMS
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 NLPO3_；空值与集合之外的键忽略；数值/布尔解析失败时报错。
// 支持：INPUTS, CONCURRENCY, DICT, DELIMITER, SAFE, PARALLEL, CLUSTER_AWARE,
// GROUP_RUNS, WORKERS, LOG_LEVEL, SERVER_ADDR, SERVER_CACHE_SIZE, SERVER_RATE_*, COMPONENTS_*,
// OPTIONS_*_JSON，以及 DICT__<name>__PATH（以文件来源追加命名词典）。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := kv[eq+1:]
		tv := strings.TrimSpace(val)
		if val == "" || (tv == "" && key != "DELIMITER") {
			// 空值视为未设置（.env 模板中的占位）；分隔符允许纯空白
			continue
		}
		var err error
		switch key {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "CONCURRENCY":
			over.Concurrency, err = atoi(val)
		case "DICT":
			over.Dict = tv
		case "DELIMITER":
			// 分隔符可含空白，不做裁剪
			d := val
			over.Delimiter = &d
		case "SAFE":
			over.Safe, err = parseBool(val)
		case "PARALLEL":
			over.Parallel, err = parseBool(val)
		case "CLUSTER_AWARE":
			over.ClusterAware, err = parseBool(val)
		case "GROUP_RUNS":
			over.GroupRuns, err = parseBool(val)
		case "WORKERS":
			over.Workers, err = atoi(val)
		case "LOG_LEVEL":
			over.Logging.Level = tv
		case "SERVER_ADDR":
			over.Server.Addr = tv
		case "SERVER_CACHE_SIZE":
			over.Server.CacheSize, err = atoi(val)
		case "SERVER_RATE_RPM":
			over.Server.Rate.RPM, err = atoi(val)
		case "SERVER_RATE_RUNES_PER_MIN":
			over.Server.Rate.RunesPerMin, err = atoi(val)
		case "SERVER_RATE_MAX_RUNES_PER_REQ":
			over.Server.Rate.MaxRunesPerReq, err = atoi(val)
		case "SERVER_RATE_WAIT_MS":
			over.Server.RateWaitMS, err = atoi(val)
		case "COMPONENTS_READER":
			over.Components.Reader = tv
		case "COMPONENTS_SPLITTER":
			over.Components.Splitter = tv
		case "COMPONENTS_ASSEMBLER":
			over.Components.Assembler = tv
		case "COMPONENTS_WRITER":
			over.Components.Writer = tv
		case "OPTIONS_READER_JSON":
			over.Options.Reader = rawOrNil(tv)
		case "OPTIONS_SPLITTER_JSON":
			over.Options.Splitter = rawOrNil(tv)
		case "OPTIONS_ASSEMBLER_JSON":
			over.Options.Assembler = rawOrNil(tv)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = rawOrNil(tv)
		case "OPTIONS_SAFE_JSON":
			over.Options.Safe = rawOrNil(tv)
		case "OPTIONS_SPACE_JSON":
			over.Options.Space = rawOrNil(tv)
		default:
			// DICT__<name>__PATH
			parts := strings.Split(key, "__")
			if len(parts) == 3 && parts[0] == "DICT" && parts[2] == "PATH" && tv != "" {
				var d Dictionary
				d, err = FileDictionary(parts[1], tv)
				if err == nil {
					over.Dictionaries = append(over.Dictionaries, d)
				}
			}
		}
		if err != nil {
			return Config{}, fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
		}
	}
	return over, nil
}

// FileDictionary 构造以文件为来源的词典定义。
func FileDictionary(name, path string) (Dictionary, error) {
	raw, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return Dictionary{}, err
	}
	return Dictionary{Name: name, Source: "file", Options: raw}, nil
}

func overBool(base, over *bool) *bool {
	if over == nil {
		return base
	}
	v := *over
	return &v
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func cloneDict(d Dictionary) Dictionary {
	d.Options = cloneRaw(d.Options)
	return d
}

func cloneDicts(in []Dictionary) []Dictionary {
	if len(in) == 0 {
		return nil
	}
	out := make([]Dictionary, len(in))
	for i, d := range in {
		out[i] = cloneDict(d)
	}
	return out
}

func rawOrNil(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) { return strconv.Atoi(strings.TrimSpace(s)) }

func parseBool(s string) (*bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &v, nil
}
