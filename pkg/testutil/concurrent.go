// Package testutil holds helpers shared by quota tests.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
)

// ConcurrentResult tallies the outcomes of concurrent admission attempts.
type ConcurrentResult struct {
	Admitted int32
	Denied   int32
	Errors   int32
}

// Total returns the number of attempts executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Admitted + r.Denied + r.Errors
}

// RunConcurrent executes fn in parallel goroutines and counts admissions,
// denials and errors. An error wins over the admitted flag.
func RunConcurrent(goroutines int, fn func(idx int) (admitted bool, err error)) *ConcurrentResult {
	var wg sync.WaitGroup
	var admitted, denied, errs atomic.Int32

	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ok, err := fn(idx)
			switch {
			case err != nil:
				errs.Add(1)
			case ok:
				admitted.Add(1)
			default:
				denied.Add(1)
			}
		}(i)
	}

	wg.Wait()

	return &ConcurrentResult{
		Admitted: admitted.Load(),
		Denied:   denied.Load(),
		Errors:   errs.Load(),
	}
}

// RunConcurrentCtx is RunConcurrent with a shared context.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) (bool, error)) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) (bool, error) {
		return fn(ctx, idx)
	})
}
