package config

import "encoding/json"

// DefaultTemplateConfig 返回一个"可运行"的默认配置模板：
// - 默认输入为 STDIN（"-"），结果写到 STDOUT；
// - 词典使用内置 "default"，并给出一个自定义词典条目示例（list 来源，可直接运行）；
// - 选项包含全部键，值为安全中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	delim := "|"
	off := false
	cfg := Config{
		Inputs:       []string{"-"},
		Concurrency:  d.Concurrency,
		Dict:         d.Dict,
		Delimiter:    &delim,
		Safe:         &off,
		Parallel:     &off,
		ClusterAware: &off,
		GroupRuns:    &off,
		Workers:      0,
		Logging:      Logging{Level: "info"},
		Dictionaries: []Dictionary{{
			Name:    "example",
			Source:  "list",
			Options: json.RawMessage(`{"words": ["ภาษาไทย", "ตัดคำ"]}`),
		}},
		Components: d.Components,
		Server:     d.Server,
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "vendor"],
  "include": ["*.txt"],
  "exclude": []
}`)
	cfg.Options.Splitter = json.RawMessage(`{
  "max_line_bytes": 0,
  "allow_exts": []
}`)
	// delimiter 由顶层字段覆盖；此处保持空对象
	cfg.Options.Assembler = json.RawMessage(`{}`)
	// stdout writer；改用 fs 时填写 output_dir 等键
	cfg.Options.Writer = json.RawMessage(`{
  "headers": false
}`)
	cfg.Options.Safe = json.RawMessage(`{
  "scan_point": 120,
  "scan_left": 20,
  "scan_right": 20
}`)
	cfg.Options.Space = json.RawMessage(`{
  "min_span": 256
}`)
	return cfg
}
