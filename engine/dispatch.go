package engine

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
)

// ProgressFunc is invoked once per completed chunk with the percentage of
// chunks done so far (0-100), the source chunk, and its localized result.
// In concurrent mode percentages follow completion order and are therefore
// not monotonic over wall-clock time; sequential mode reports them strictly
// in input order.
type ProgressFunc func(pct int, sourceChunk, processedChunk *Payload)

// LocalizeOptions selects the dispatch mode for one call. Concurrent dispatch
// and deterministic progress are mutually exclusive: pick throughput or pick
// ordered progress.
type LocalizeOptions struct {
	// Concurrent fans chunks out under the engine's concurrency cap.
	Concurrent bool
	// Progress, when set, is called after each chunk completes.
	Progress ProgressFunc
}

// sendFunc localizes a single chunk. The retry executor is already folded in
// by the caller, so one invocation covers the chunk's full retry lifecycle.
type sendFunc func(ctx context.Context, chunk *Payload) (*Payload, error)

// dispatchChunks runs send over every chunk and merges the results back in
// partition order. Either every chunk succeeds and the complete merged
// payload is returned, or the first exhausted chunk failure fails the whole
// call; no partial results are surfaced.
func dispatchChunks(ctx context.Context, chunks []*Payload, send sendFunc, maxConcurrent int, opts LocalizeOptions) (*Payload, error) {
	if len(chunks) == 0 {
		return NewPayload(), nil
	}

	if !opts.Concurrent {
		return dispatchSequential(ctx, chunks, send, opts.Progress)
	}
	return dispatchConcurrent(ctx, chunks, send, maxConcurrent, opts.Progress)
}

// dispatchSequential processes chunks one at a time in input order, so
// progress percentages are strictly increasing and aligned with key order.
func dispatchSequential(ctx context.Context, chunks []*Payload, send sendFunc, progress ProgressFunc) (*Payload, error) {
	results := make([]*Payload, len(chunks))
	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		processed, err := send(ctx, chunk)
		if err != nil {
			return nil, err
		}
		results[i] = processed

		if progress != nil {
			progress(percentage(i+1, len(chunks)), chunk, processed)
		}
	}
	return mergeChunks(results), nil
}

// dispatchConcurrent schedules every chunk under a counting semaphore of size
// maxConcurrent. The semaphore slot is held across the chunk's entire retry
// lifecycle, so one chunk's retries never free a slot for another chunk
// mid-retry. Results land in a position-indexed slice and are merged in
// partition order once all workers finish.
func dispatchConcurrent(ctx context.Context, chunks []*Payload, send sendFunc, maxConcurrent int, progress ProgressFunc) (*Payload, error) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	results := make([]*Payload, len(chunks))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once
	var completed int64
	var progressMu sync.Mutex

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(i int, chunk *Payload) {
			defer func() {
				<-sem
				wg.Done()
			}()

			processed, err := send(ctx, chunk)
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
				})
				return
			}
			results[i] = processed

			done := atomic.AddInt64(&completed, 1)
			if progress != nil {
				progressMu.Lock()
				progress(percentage(int(done), len(chunks)), chunk, processed)
				progressMu.Unlock()
			}
		}(i, chunk)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mergeChunks(results), nil
}

func percentage(done, total int) int {
	return int(math.Round(100 * float64(done) / float64(total)))
}
