package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	cfgpkg "github.com/PyThaiNLP/nlpo3/internal/config"
	"github.com/PyThaiNLP/nlpo3/internal/diag"
	"github.com/PyThaiNLP/nlpo3/internal/pipeline"
	"github.com/PyThaiNLP/nlpo3/internal/server"
	"github.com/PyThaiNLP/nlpo3/pkg/registry"
)

// 测试替换点
var (
	pipelineRun = pipeline.Run
	serveFunc   = func(ctx context.Context, s *server.Server, addr string) error { return s.ListenAndServe(ctx, addr) }
)

// 退出码
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
	exitConfig  = 3
)

// customDict 为 --dict-path 注册的词典名。
const customDict = "custom"

const usageText = `用法:
  nlpo3 [segment] [flags] [inputs...]   逐行分词（默认读取 STDIN，写到 STDOUT）
  nlpo3 serve [flags]                   启动 HTTP 服务
  nlpo3 init-config [dir] [--format json|toml|yaml]
                                        生成默认配置与 .env 模板（不覆盖已存在文件）
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	cmd, rest := "segment", args
	if len(args) > 0 {
		switch args[0] {
		case "segment", "serve", "init-config":
			cmd, rest = args[0], args[1:]
		case "help", "-h", "--help":
			fprintf(os.Stdout, "%s", usageText)
			return exitOK
		}
	}
	switch cmd {
	case "serve":
		return runServe(rest)
	case "init-config":
		return runInit(rest)
	default:
		return runSegment(rest)
	}
}

func runSegment(args []string) int {
	start := time.Now()
	corrID := uuid.NewString()
	fs := pflag.NewFlagSet("segment", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		flagConfig      string
		flagDictPath    string
		flagDelim       string
		flagSafe        bool
		flagParallel    bool
		flagOut         string
		flagConcurrency int
		flagStatus      bool
		flagLogLevel    string
	)
	fs.StringVarP(&flagConfig, "config", "c", "", "配置文件路径（.json/.toml/.yaml）；缺省读取 ./config.*（若存在）")
	fs.StringVarP(&flagDictPath, "dict-path", "d", "", `词典文件路径（一行一词）；"default" 表示内置词典`)
	fs.StringVarP(&flagDelim, "word-delimiter", "w", "|", "输出词间分隔符")
	fs.BoolVarP(&flagSafe, "safe", "z", false, "安全模式：限制歧义段长度")
	fs.BoolVarP(&flagParallel, "parallel", "p", false, "单行内并行分词")
	fs.StringVarP(&flagOut, "out", "o", "", "输出目录；缺省写到 STDOUT")
	fs.IntVarP(&flagConcurrency, "concurrency", "j", 0, "行级并发度（覆盖配置）")
	fs.BoolVar(&flagStatus, "status", false, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	fs.StringVar(&flagLogLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	var over cfgpkg.Config
	if fs.Changed("word-delimiter") {
		over.Delimiter = &flagDelim
	}
	if fs.Changed("safe") {
		over.Safe = &flagSafe
	}
	if fs.Changed("parallel") {
		over.Parallel = &flagParallel
	}
	if flagConcurrency > 0 {
		over.Concurrency = flagConcurrency
	}
	over.Logging.Level = flagLogLevel
	switch p := strings.TrimSpace(flagDictPath); p {
	case "":
	case registry.DefaultName:
		over.Dict = registry.DefaultName
	default:
		d, err := cfgpkg.FileDictionary(customDict, p)
		if err != nil {
			fprintf(os.Stderr, "词典参数无效: %v\n", err)
			return exitUsage
		}
		over.Dictionaries = []cfgpkg.Dictionary{d}
		over.Dict = customDict
	}
	if o := strings.TrimSpace(flagOut); o != "" {
		raw, err := json.Marshal(map[string]string{"output_dir": o})
		if err != nil {
			fprintf(os.Stderr, "输出目录参数无效: %v\n", err)
			return exitUsage
		}
		over.Components.Writer = "fs"
		over.Options.Writer = raw
	}
	if len(fs.Args()) > 0 {
		over.Inputs = fs.Args()
	}

	logger := diag.NewLogger(corrID, "info")
	cfg, err := loadConfig(flagConfig, over)
	if err != nil {
		fprintf(os.Stderr, "配置解析失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "first error", &start)
		_ = logger.Close()
		return exitConfig
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(os.Stderr, cfg)
		logger.Error("config", string(diag.Classify(err)), "first error", &start)
		_ = logger.Close()
		return exitConfig
	}
	// 使用最终配置中的日志级别重建 logger
	_ = logger.Close()
	logger = diag.NewLogger(corrID, cfg.Logging.Level)
	defer func() { _ = logger.Close() }()

	if err := preflightCheckOutputDir(cfg); err != nil {
		fprintf(os.Stderr, "输出目录不可写或无法创建: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comp, set, err := cfgpkg.Assemble(ctx, cfg, logger)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return exitConfig
	}
	logger.DebugStart("config", "effective", "", "", map[string]string{
		"inputs_count": fmt.Sprintf("%d", len(cfg.Inputs)),
		"concurrency":  fmt.Sprintf("%d", cfg.Concurrency),
		"dict":         set.Dict,
		"safe":         fmt.Sprintf("%t", set.Safe),
		"parallel":     fmt.Sprintf("%t", set.Parallel),
		"reader":       cfg.Components.Reader,
		"splitter":     cfg.Components.Splitter,
		"assembler":    cfg.Components.Assembler,
		"writer":       cfg.Components.Writer,
	})

	// 终端信息提示（非日志）
	term := diag.NewTerminal(os.Stderr, flagStatus)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.RunStart(cfg.Concurrency, set.Dict)

	t := logger.Start("pipeline", "run")
	if err := pipelineRun(ctx, comp, set, logger); err != nil {
		code := string(diag.Classify(err))
		logger.Error("pipeline", code, "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(os.Stderr, "运行失败: %v\n", err)
		}
		term.RunFinish(false, time.Since(start))
		return exitRuntime
	}
	t.Finish("run", 0)
	diag.IncOp("pipeline", "finish", "success")
	term.RunFinish(true, time.Since(start))
	return exitOK
}

func runServe(args []string) int {
	start := time.Now()
	corrID := uuid.NewString()
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		flagConfig    string
		flagAddr      string
		flagCacheSize int
		flagDicts     map[string]string
		flagRPM       int
		flagRunesPM   int
		flagLogLevel  string
	)
	fs.StringVarP(&flagConfig, "config", "c", "", "配置文件路径（.json/.toml/.yaml）")
	fs.StringVar(&flagAddr, "addr", "", "监听地址（覆盖配置，默认 :8080）")
	fs.IntVar(&flagCacheSize, "cache-size", 0, "分词结果缓存容量；负数关闭（覆盖配置）")
	fs.IntVar(&flagRPM, "rpm", 0, "每个调用方的请求数/分钟上限（覆盖配置）")
	fs.IntVar(&flagRunesPM, "runes-per-min", 0, "每个调用方的字符数/分钟上限（覆盖配置）")
	fs.StringToStringVar(&flagDicts, "dict", nil, "启动时加载的词典 name=path，可重复")
	fs.StringVar(&flagLogLevel, "log-level", "", "日志级别（覆盖配置）")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fprintf(os.Stderr, "serve 不接受位置参数: %v\n", fs.Args())
		return exitUsage
	}

	over := cfgpkg.Config{
		Server:  cfgpkg.Server{Addr: flagAddr, CacheSize: flagCacheSize},
		Logging: cfgpkg.Logging{Level: flagLogLevel},
	}
	for _, name := range slices.Sorted(maps.Keys(flagDicts)) {
		d, err := cfgpkg.FileDictionary(name, flagDicts[name])
		if err != nil {
			fprintf(os.Stderr, "词典参数无效: %v\n", err)
			return exitUsage
		}
		over.Dictionaries = append(over.Dictionaries, d)
	}

	cfg, err := loadConfig(flagConfig, over)
	if err == nil {
		// 限流参数按维度覆盖
		if fs.Changed("rpm") {
			cfg.Server.Rate.RPM = flagRPM
		}
		if fs.Changed("runes-per-min") {
			cfg.Server.Rate.RunesPerMin = flagRunesPM
		}
		err = cfgpkg.Validate(cfg)
	}
	if err != nil {
		fprintf(os.Stderr, "配置无效: %v\n", err)
		return exitConfig
	}
	logger := diag.NewLogger(corrID, cfg.Logging.Level)
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := cfgpkg.BuildEngine(ctx, cfg, logger)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Error("server", string(diag.Classify(err)), "first error", &start)
		return exitConfig
	}
	srv := server.New(eng, server.Options{
		CacheSize: cfg.Server.CacheSize,
		Rate:      cfg.Server.Rate,
		RateWait:  time.Duration(cfg.Server.RateWaitMS) * time.Millisecond,
	}, logger)
	fprintf(os.Stderr, "[serve] %s | 词典=%s\n", cfg.Server.Addr, strings.Join(eng.Registry().Names(), ","))
	if err := serveFunc(ctx, srv, cfg.Server.Addr); err != nil {
		fprintf(os.Stderr, "服务失败: %v\n", err)
		logger.Error("server", string(diag.Classify(err)), "serve", &start)
		return exitRuntime
	}
	return exitOK
}

// loadConfig 合并 defaults < 文件 < ENV < CLI。
// 文件来源：flag > NLPO3_CONFIG_FILE > ./config.{json,toml,yaml,yml}；
// 或 NLPO3_CONFIG_JSON 直接提供 JSON 内容。
func loadConfig(path string, cli cfgpkg.Config) (cfgpkg.Config, error) {
	var raw []byte
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		raw = []byte(s)
	}
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" && len(raw) == 0 {
		for _, name := range []string{"config.json", "config.toml", "config.yaml", "config.yml"} {
			if st, err := os.Stat(name); err == nil && !st.IsDir() {
				path = name
				break
			}
		}
	}

	cfg := cfgpkg.Defaults()
	if path != "" || len(raw) > 0 {
		if len(raw) > 0 {
			// ENV 内联内容恒为 JSON
			path = ""
		}
		base, err := cfgpkg.Load(path, raw)
		if err != nil {
			return cfg, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	env, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, env)
	return cfgpkg.Merge(cfg, cli), nil
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	fprintf(w, "有效配置:\n%s\n", b)
	return nil
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；
// - 跳过空行与 # 注释；支持可选前缀 "export "；
// - 按首个 '=' 分割；成对单/双引号会被去除，双引号内处理 \n \t \r \" \\；
// - 不覆盖已存在的环境变量。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if len(val) >= 2 {
			if q := val[0]; (q == '\'' || q == '"') && val[len(val)-1] == q {
				val = val[1 : len(val)-1]
				if q == '"' {
					val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
				}
			}
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// preflightCheckOutputDir: 使用 fs writer 时，启动前检查输出目录可写性。
// 目录存在则试写临时文件；不存在则检查父目录可写。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	if name := strings.TrimSpace(cfg.Components.Writer); name != "fs" {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		// 交由装配阶段报错
		return nil
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	case err == nil:
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	parent := filepath.Dir(dir)
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	return os.RemoveAll(tmpd)
}
