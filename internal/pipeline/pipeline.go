package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/PyThaiNLP/nlpo3/internal/diag"
	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// - 单点并发：行级并发只在此层管理；原子组件均为同步实现。
// - 顺序门闩：同一文件的行按 Index 严格递增提交给 Assembler；乱序结果暂存，连续冲刷。
// - 首错取消：任一阶段出错即取消整体，排空后返回该错误。
// - 流式写出：装配结果经 io.Pipe 单次交给 Writer。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Splitter  contract.Splitter
	Segmenter contract.Segmenter
	Assembler contract.Assembler
	Writer    contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Inputs []string
	// Concurrency: 每个文件内同时分词的行数上限；<=0 取 GOMAXPROCS。
	Concurrency int
	// Dict: 词典名；空为 "default"。
	Dict     string
	Safe     bool
	Parallel bool
}

// Run 执行流水线：Reader → Splitter → Segmenter（行级并发）→ Assembler → Writer。
// Inputs 为空时读取 STDIN。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rtimer := logger.Start("reader", "iterate")
	files := 0
	err := comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		files++
		stimer := logger.StartWith("splitter", "split", string(fid), "")
		recs, err := comp.Splitter.Split(ctx, fid, rc)
		if err != nil {
			diag.Record(logger, "splitter", "split failed", err, string(fid), "")
			return fmt.Errorf("splitter split: %w", err)
		}
		stimer.Finish("split", int64(len(recs)))
		diag.IncOp("splitter", "finish", "success")
		if err := perFile(ctx, comp, set, logger, fid, recs); err != nil {
			return fmt.Errorf("perFile %s: %w", fid, err)
		}
		return nil
	})
	if err != nil {
		diag.Record(logger, "reader", "iterate failed", err, "", "")
		return fmt.Errorf("reader iterate: %w", err)
	}
	rtimer.Finish("iterate", int64(files))
	diag.IncOp("reader", "finish", "success")
	return nil
}

func perFile(ctx context.Context, comp Components, set Settings, logger *diag.Logger, fid contract.FileID, recs []contract.Record) (err error) {
	term := diag.GetTerminal()
	term.FileStart(string(fid), len(recs))
	fileStart := time.Now()
	defer func() { term.FileFinish(err == nil, time.Since(fileStart)) }()

	// 单次 Writer.Write，装配结果经管道流式写出
	pr, pw := io.Pipe()
	wdone := make(chan error, 1)
	wtimer := logger.StartWith("writer", "write", string(fid), "")
	go func() {
		werr := comp.Writer.Write(ctx, contract.ArtifactID(fid), pr)
		// Writer 提前返回时解除 emit 阻塞
		_ = pr.CloseWithError(werr)
		wdone <- werr
	}()

	assemble := func(lines []contract.LineResult, batch string) error {
		rd, aerr := comp.Assembler.Assemble(ctx, fid, lines)
		if aerr != nil {
			diag.Record(logger, "assembler", "assemble failed", aerr, string(fid), batch)
			return fmt.Errorf("assembler assemble: %w", aerr)
		}
		if _, cerr := io.Copy(pw, rd); cerr != nil {
			return fmt.Errorf("writer pipe: %w", cerr)
		}
		return nil
	}

	var runErr error
	if len(recs) == 0 {
		runErr = assemble(nil, "")
	} else {
		done := 0
		runErr = Ordered(ctx, len(recs), set.Concurrency,
			func(ctx context.Context, i int) (contract.LineResult, error) {
				rec := recs[i]
				toks, serr := comp.Segmenter.Segment(ctx, rec.Text, set.Dict, set.Safe, set.Parallel)
				if serr != nil {
					diag.Record(logger, "segmenter", "segment failed", serr, string(fid), strconv.FormatInt(int64(rec.Index), 10))
					return contract.LineResult{}, serr
				}
				return contract.LineResult{FileID: fid, Index: rec.Index, Tokens: toks}, nil
			},
			func(i int, lr contract.LineResult) error {
				done++
				term.FileProgress(done, len(recs), 0)
				return assemble([]contract.LineResult{lr}, strconv.FormatInt(int64(lr.Index), 10))
			})
	}

	if runErr != nil {
		_ = pw.CloseWithError(runErr)
	} else {
		_ = pw.Close()
	}
	werr := <-wdone
	switch {
	case runErr != nil:
		diag.Record(logger, "pipeline", "first error", runErr, string(fid), "")
		return runErr
	case werr != nil:
		diag.Record(logger, "writer", "write failed", werr, string(fid), "")
		return fmt.Errorf("writer write: %w", werr)
	}
	wtimer.Finish("write", int64(len(recs)))
	diag.IncOp("writer", "finish", "success")
	return nil
}

func sanity(c Components) error {
	if c.Reader == nil || c.Splitter == nil || c.Segmenter == nil || c.Assembler == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	return nil
}
