package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PyThaiNLP/nlpo3/internal/diag"
	"github.com/PyThaiNLP/nlpo3/internal/pipeline"
	"github.com/PyThaiNLP/nlpo3/pkg/engine"
	"github.com/PyThaiNLP/nlpo3/pkg/registry"
	"github.com/PyThaiNLP/nlpo3/plugins/assembler/delimited"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("config: inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if cfg.Concurrency < 1 {
		return errors.New("config: concurrency must be >= 1")
	}
	if cfg.Workers < 0 {
		return errors.New("config: workers must be >= 0")
	}
	if r := cfg.Server.Rate; r.RPM < 0 || r.RunesPerMin < 0 || r.MaxRunesPerReq < 0 || cfg.Server.RateWaitMS < 0 {
		return errors.New("config: server rate limits must be >= 0")
	}

	// 词典：名称非空、唯一、非保留；来源已注册
	seen := map[string]bool{registry.DefaultName: true}
	for i, d := range cfg.Dictionaries {
		name := strings.TrimSpace(d.Name)
		switch {
		case name == "":
			return fmt.Errorf("config: dictionaries[%d] name empty", i)
		case name == registry.DefaultName:
			return fmt.Errorf("config: dictionary name %q is reserved", name)
		case seen[name]:
			return fmt.Errorf("config: duplicate dictionary %q", name)
		}
		seen[name] = true
		if registry.Source[effName(d.Source, "file")] == nil {
			return fmt.Errorf("config: dictionary source %q not registered", d.Source)
		}
	}
	if dn := effName(strings.TrimSpace(cfg.Dict), registry.DefaultName); !seen[dn] {
		return fmt.Errorf("config: dict %q not defined", dn)
	}

	// 组件名若为空，使用默认名（由 Defaults() 提供）。
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Splitter, d.Components.Splitter); registry.Splitter[name] == nil {
		return fmt.Errorf("config: splitter %q not registered", name)
	}
	if name := effName(cfg.Components.Assembler, d.Components.Assembler); registry.Assembler[name] == nil {
		return fmt.Errorf("config: assembler %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	return nil
}

// BuildEngine 构造注册表与引擎，并按序加载配置中的词典。
// 任一词典加载失败即返回错误。
func BuildEngine(ctx context.Context, cfg Config, logger *diag.Logger) (*engine.Engine, error) {
	safeLim, err := registry.Limiter["safe"](cfg.Options.Safe)
	if err != nil {
		return nil, fmt.Errorf("options.safe: %w", err)
	}
	spaceLim, err := registry.Limiter["space"](cfg.Options.Space)
	if err != nil {
		return nil, fmt.Errorf("options.space: %w", err)
	}
	eng := engine.New(registry.New(), engine.Settings{
		ClusterAware: BoolOr(cfg.ClusterAware, false),
		GroupRuns:    BoolOr(cfg.GroupRuns, false),
		Workers:      cfg.Workers,
		Safe:         safeLim,
		Space:        spaceLim,
	}, logger)

	for _, d := range cfg.Dictionaries {
		newSrc := registry.Source[effName(d.Source, "file")]
		if newSrc == nil {
			return nil, fmt.Errorf("dictionary %q: source %q not registered", d.Name, d.Source)
		}
		src, err := newSrc(d.Options)
		if err != nil {
			return nil, fmt.Errorf("dictionary %q: %w", d.Name, err)
		}
		if err := eng.LoadSource(ctx, strings.TrimSpace(d.Name), src); err != nil {
			return nil, fmt.Errorf("dictionary %q: %w", d.Name, err)
		}
	}
	return eng, nil
}

// Assemble 校验配置并构造批处理所需的 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(ctx context.Context, cfg Config, logger *diag.Logger) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	eng, err := BuildEngine(ctx, cfg, logger)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	sn := effName(cfg.Components.Splitter, d.Components.Splitter)
	an := effName(cfg.Components.Assembler, d.Components.Assembler)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	s, err := registry.Splitter[sn](cfg.Options.Splitter)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	asmRaw := cfg.Options.Assembler
	if cfg.Delimiter != nil {
		if asmRaw, err = json.Marshal(delimited.Options{Delimiter: cfg.Delimiter}); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, err
		}
	}
	asm, err := registry.Assembler[an](asmRaw)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	w, err := registry.Writer[wn](cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	comp := pipeline.Components{
		Reader:    r,
		Splitter:  s,
		Segmenter: eng,
		Assembler: asm,
		Writer:    w,
	}
	set := pipeline.Settings{
		Inputs:      cloneStrings(cfg.Inputs),
		Concurrency: cfg.Concurrency,
		Dict:        strings.TrimSpace(cfg.Dict),
		Safe:        BoolOr(cfg.Safe, false),
		Parallel:    BoolOr(cfg.Parallel, false),
	}
	return comp, set, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
