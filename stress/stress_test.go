package stress

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/PyThaiNLP/nlpo3/internal/config"
	"github.com/PyThaiNLP/nlpo3/internal/pipeline"
	"github.com/PyThaiNLP/nlpo3/pkg/dict"
	"github.com/PyThaiNLP/nlpo3/pkg/engine"
)

// corpus 以内置词表随机拼接出含空白与拉丁字符的长文本。
func corpus(seed int64, n int) []string {
	words := dict.BuiltinWords()
	r := rand.New(rand.NewSource(seed))
	out := make([]string, n)
	for i := range out {
		var b strings.Builder
		size := 50 + r.Intn(400)
		for j := 0; j < size; j++ {
			b.WriteString(words[r.Intn(len(words))])
			switch r.Intn(20) {
			case 0:
				b.WriteByte(' ')
			case 1:
				b.WriteString("abc 12")
			}
		}
		out[i] = b.String()
	}
	return out
}

func buildEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := cfgpkg.Defaults()
	cfg.Logging.Level = "error"
	eng, err := cfgpkg.BuildEngine(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("BuildEngine: %v", err)
	}
	return eng
}

// TestStress 在不同并发度下并发分词，校验无损与确定性并记录延迟统计。
func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("short 模式跳过压力测试")
	}
	eng := buildEngine(t)
	texts := corpus(1, 64)

	// 基准：顺序模式结果
	want := make([][]string, len(texts))
	for i, s := range texts {
		toks, err := eng.Segment(context.Background(), s, "", false, false)
		if err != nil {
			t.Fatalf("segment: %v", err)
		}
		want[i] = toks
	}

	levels := []int{1, 8, 16, 32, 64}
	for _, conc := range levels {
		t.Run(fmt.Sprintf("concurrency_%d", conc), func(t *testing.T) {
			const runs = 5
			var mu sync.Mutex
			latencies := make([]time.Duration, 0, runs*len(texts))
			for run := 0; run < runs; run++ {
				g, ctx := errgroup.WithContext(context.Background())
				g.SetLimit(conc)
				for i, s := range texts {
					safe := (i+run)%2 == 0
					parallel := (i+run)%3 == 0
					g.Go(func() error {
						start := time.Now()
						toks, err := eng.Segment(ctx, s, "", safe, parallel)
						if err != nil {
							return err
						}
						d := time.Since(start)
						if strings.Join(toks, "") != s {
							return fmt.Errorf("text %d: 结果不无损", i)
						}
						if !safe && strings.Join(toks, "|") != strings.Join(want[i], "|") {
							return fmt.Errorf("text %d: 非安全模式结果与顺序基准不同", i)
						}
						mu.Lock()
						latencies = append(latencies, d)
						mu.Unlock()
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					t.Fatalf("run %d: %v", run, err)
				}
			}
			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			var total time.Duration
			for _, d := range latencies {
				total += d
			}
			avg := total / time.Duration(len(latencies))
			idx := int(math.Ceil(float64(len(latencies))*0.95)) - 1
			if idx < 0 {
				idx = 0
			}
			t.Logf("并发%d 样本%d 平均%v 95%%延迟%v", conc, len(latencies), avg, latencies[idx])
		})
	}
}

// TestStressPipeline 以批处理流水线处理多文件目录。
func TestStressPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("short 模式跳过压力测试")
	}
	in := t.TempDir()
	out := t.TempDir()
	texts := corpus(2, 200)
	for f := 0; f < 8; f++ {
		body := strings.Join(texts[f*25:(f+1)*25], "\n") + "\n"
		if err := os.WriteFile(filepath.Join(in, fmt.Sprintf("doc-%d.txt", f)), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for _, conc := range []int{1, 4, 16} {
		cfg := cfgpkg.Defaults()
		cfg.Inputs = []string{in}
		cfg.Concurrency = conc
		cfg.Logging.Level = "error"
		cfg.Components.Writer = "fs"
		cfg.Options.Writer = []byte(fmt.Sprintf(`{"output_dir":%q}`, out))
		comp, set, err := cfgpkg.Assemble(context.Background(), cfg, nil)
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		start := time.Now()
		if err := pipelineRun(comp, set); err != nil {
			t.Fatalf("concurrency %d: %v", conc, err)
		}
		t.Logf("并发%d 耗时%v", conc, time.Since(start))
		for f := 0; f < 8; f++ {
			b, err := os.ReadFile(filepath.Join(out, fmt.Sprintf("doc-%d.tok.txt", f)))
			if err != nil {
				t.Fatalf("read output: %v", err)
			}
			lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
			if len(lines) != 25 {
				t.Fatalf("doc-%d: 行数 %d", f, len(lines))
			}
			for i, l := range lines {
				if strings.ReplaceAll(l, "|", "") != texts[f*25+i] {
					t.Fatalf("doc-%d 第 %d 行不无损", f, i)
				}
			}
		}
	}
}

func pipelineRun(comp pipeline.Components, set pipeline.Settings) error {
	return pipeline.Run(context.Background(), comp, set, nil)
}
