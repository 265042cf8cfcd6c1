package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/PyThaiNLP/nlpo3/pkg/contract"
)

// Workers 返回处理 n 个任务的 worker 数：不超过 GOMAXPROCS，也不超过 n。
func Workers(n int) int {
	w := runtime.GOMAXPROCS(0)
	if n < w {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Ordered 以固定大小的 worker 池执行下标 0..n-1 的任务，并按下标严格递增调用 emit。
//   - 乱序完成的结果暂存于门闩，连续冲刷；
//   - 首个错误（work 或 emit）取消其余任务，排空后返回该错误；
//   - emit 只在调用方 goroutine 中执行，无需加锁。
//
// workers<=0 时取 Workers(n)。
func Ordered[T any](ctx context.Context, n, workers int, work func(ctx context.Context, i int) (T, error), emit func(i int, v T) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 || workers > n {
		workers = Workers(n)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type res struct {
		idx int
		v   T
		err error
	}
	// 有界通道：2×worker，形成自然背压
	inCh := make(chan int, workers*2)
	outCh := make(chan res, workers*2)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range inCh {
				if err := ctx.Err(); err != nil {
					outCh <- res{idx: i, err: err}
					continue
				}
				v, err := work(ctx, i)
				outCh <- res{idx: i, v: v, err: err}
			}
		}()
	}

	go func() {
		defer close(inCh)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case inCh <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	// 门闩：按下标连续冲刷
	expect := 0
	buf := make(map[int]T)
	var firstErr error
	for r := range outCh {
		if firstErr != nil {
			continue
		}
		if r.err != nil {
			firstErr = r.err
			cancel()
			continue
		}
		buf[r.idx] = r.v
		for {
			v, ok := buf[expect]
			if !ok {
				break
			}
			delete(buf, expect)
			if err := emit(expect, v); err != nil {
				firstErr = err
				cancel()
				break
			}
			expect++
		}
	}
	if firstErr != nil {
		return firstErr
	}
	if expect != n {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: ordered gate emitted %d of %d", contract.ErrInvariantViolation, expect, n)
	}
	return nil
}
