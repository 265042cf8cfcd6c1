package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	cfgpkg "github.com/PyThaiNLP/nlpo3/internal/config"
)

// runInit: nlpo3 init-config [dir|-] [--format json|toml|yaml]
// 目录为 "-" 时仅把配置写到 STDOUT（不生成 .env）。
func runInit(args []string) int {
	fs := pflag.NewFlagSet("init-config", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	format := fs.StringP("format", "f", "json", "配置格式 json|toml|yaml")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 1 {
		fprintf(os.Stderr, "init-config 至多接受一个目录参数\n")
		return exitUsage
	}
	dir := "."
	if fs.NArg() == 1 {
		dir = normalizeInitArg(fs.Arg(0))
	}
	f, ext, err := parseFormat(*format)
	if err != nil {
		fprintf(os.Stderr, "%v\n", err)
		return exitUsage
	}
	b, err := encodeConfig(cfgpkg.DefaultTemplateConfig(), f)
	if err != nil {
		fprintf(os.Stderr, "生成配置失败: %v\n", err)
		return exitRuntime
	}
	if dir == "-" {
		if err := writeConfig("-", b); err != nil {
			fprintf(os.Stderr, "写出配置失败: %v\n", err)
			return exitRuntime
		}
		return exitOK
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fprintf(os.Stderr, "创建目录失败: %v\n", err)
		return exitRuntime
	}
	cfgPath := filepath.Join(dir, "config"+ext)
	if err := writeConfig(cfgPath, b); err != nil {
		fprintf(os.Stderr, "写出配置失败: %v\n", err)
		return exitRuntime
	}
	fprintf(os.Stderr, "已生成 %s\n", cfgPath)
	envPath := filepath.Join(dir, ".env")
	if err := writeDotEnv(envPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			fprintf(os.Stderr, "跳过 %s（已存在）\n", envPath)
			return exitOK
		}
		fprintf(os.Stderr, "写出 .env 失败: %v\n", err)
		return exitRuntime
	}
	fprintf(os.Stderr, "已生成 %s\n", envPath)
	return exitOK
}

// normalizeInitArg: 兼容 "--init-config=dir" 形式的遗留写法与首尾空白。
func normalizeInitArg(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '='); i >= 0 && strings.HasPrefix(s, "-") && s != "-" {
		s = strings.TrimSpace(s[i+1:])
	}
	if s == "" {
		return "."
	}
	return s
}

func parseFormat(s string) (cfgpkg.Format, string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return cfgpkg.FormatJSON, ".json", nil
	case "toml":
		return cfgpkg.FormatTOML, ".toml", nil
	case "yaml", "yml":
		return cfgpkg.FormatYAML, ".yaml", nil
	default:
		return cfgpkg.FormatJSON, "", fmt.Errorf("未知格式 %q（json|toml|yaml）", s)
	}
}

// encodeConfig 以 JSON 为中间表示编码为目标格式，保证三种格式字段名一致。
func encodeConfig(c cfgpkg.Config, f cfgpkg.Format) ([]byte, error) {
	js, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	if f == cfgpkg.FormatJSON {
		return append(js, '\n'), nil
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	plain := plainTree(tree)
	if f == cfgpkg.FormatTOML {
		return toml.Marshal(plain)
	}
	return yaml.Marshal(plain)
}

// plainTree: json.Number 转为 int64/float64；丢弃 null（TOML 无空值）。
func plainTree(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			if e == nil {
				continue
			}
			out[k] = plainTree(e)
		}
		return out
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if e == nil {
				continue
			}
			out = append(out, plainTree(e))
		}
		return out
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	default:
		return v
	}
}

// writeConfig: "-" 写到 STDOUT；否则独占创建（不覆盖已有文件）。
func writeConfig(path string, b []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(b)
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeDotEnv 生成 .env 模板：全部键注释掉，取消注释即生效。
func writeDotEnv(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := dotEnvTemplate(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func dotEnvTemplate(w io.Writer) error {
	p := cfgpkg.EnvPrefix
	lines := []string{
		"# nlpo3 环境变量（优先级：默认 < 配置文件 < ENV < 命令行）",
		"# 配置文件路径或内联 JSON",
		"# " + p + "CONFIG_FILE=config.json",
		"# " + p + "CONFIG_JSON=",
		"",
		"# 输入（逗号分隔；- 表示 STDIN）",
		"# " + p + "INPUTS=-",
		"# " + p + "CONCURRENCY=1",
		"# " + p + "DICT=default",
		"# " + p + "DELIMITER=|",
		"# " + p + "SAFE=false",
		"# " + p + "PARALLEL=false",
		"# " + p + "CLUSTER_AWARE=false",
		"# " + p + "GROUP_RUNS=false",
		"# " + p + "WORKERS=0",
		"# " + p + "LOG_LEVEL=info",
		"",
		"# 自定义词典：" + p + "DICT__<name>__PATH=/path/to/words.txt",
		"# " + p + "DICT__custom__PATH=",
		"",
		"# 组件与选项（原样 JSON）",
		"# " + p + "COMPONENTS_READER=fs",
		"# " + p + "COMPONENTS_SPLITTER=lines",
		"# " + p + "COMPONENTS_ASSEMBLER=delimited",
		"# " + p + "COMPONENTS_WRITER=stdout",
		"# " + p + `OPTIONS_WRITER_JSON={"output_dir":"out"}`,
		"# " + p + `OPTIONS_SAFE_JSON={"scan_point":120,"scan_left":20,"scan_right":20}`,
		"# " + p + `OPTIONS_SPACE_JSON={"min_span":256}`,
		"",
		"# HTTP 服务",
		"# " + p + "SERVER_ADDR=:8080",
		"# " + p + "SERVER_CACHE_SIZE=4096",
		"# " + p + "SERVER_RATE_RPM=0",
		"# " + p + "SERVER_RATE_RUNES_PER_MIN=0",
		"# " + p + "SERVER_RATE_MAX_RUNES_PER_REQ=0",
		"# " + p + "SERVER_RATE_WAIT_MS=0",
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
