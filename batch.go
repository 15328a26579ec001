package squeeze

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// BatchItem represents one file to compress in a batch operation.
type BatchItem struct {
	// Src is the input file path.
	Src string
	// Dst is the output file path.
	Dst string
	// Request overrides BatchOptions.Request for this item.
	Request *Request
}

// BatchResult holds the result for a single item in a batch.
type BatchResult struct {
	Item BatchItem
	// Result is nil if Err is non-nil.
	Result *Result
	Err    error
	// Index is the position in the original input slice.
	Index int
}

// BatchOptions configures batch compression behavior.
type BatchOptions struct {
	// Workers is the number of concurrent workers. 0 = runtime.NumCPU().
	Workers int
	// Request is used for any BatchItem without its own.
	Request Request
	// MaxBytes rejects larger source files. 0 means no limit.
	MaxBytes int64
	// OnItem is called after each item completes, with the completed and
	// total counts.
	OnItem func(completed, total int)
}

// CompressBatch compresses files concurrently with the default Compressor.
func CompressBatch(ctx context.Context, items []BatchItem, opts BatchOptions) []BatchResult {
	return defaultCompressor.CompressBatch(ctx, items, opts)
}

// CompressBatch compresses multiple files on a pool of workers. Each item
// runs the usual single-threaded pipeline. Results are returned in input
// order. Cancelling ctx stops new items from starting; items already running
// finish.
func (c *Compressor) CompressBatch(ctx context.Context, items []BatchItem, opts BatchOptions) []BatchResult {
	if len(items) == 0 {
		return nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(items) {
		workers = len(items)
	}
	c.log.Debug("batch started", zap.Int("items", len(items)), zap.Int("workers", workers))

	results := make([]BatchResult, len(items))
	workCh := make(chan int, len(items))
	var wg sync.WaitGroup
	var completed int
	var completedMu sync.Mutex

	for i := range items {
		workCh <- i
	}
	close(workCh)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				item := items[idx]
				if err := ctx.Err(); err != nil {
					results[idx] = BatchResult{Item: item, Err: err, Index: idx}
					continue
				}

				req := opts.Request
				if item.Request != nil {
					req = *item.Request
				}
				result, err := c.compressFile(item.Src, item.Dst, req, opts.MaxBytes)
				results[idx] = BatchResult{Item: item, Result: result, Err: err, Index: idx}

				if opts.OnItem != nil {
					completedMu.Lock()
					completed++
					n := completed
					completedMu.Unlock()
					opts.OnItem(n, len(items))
				}
			}
		}()
	}

	wg.Wait()
	return results
}

// BatchSummary provides aggregate statistics for a batch operation.
type BatchSummary struct {
	Total      int
	Succeeded  int
	Failed     int
	TotalSaved int64
	AvgRatio   float64
}

// Summarize computes aggregate statistics from batch results.
func Summarize(results []BatchResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	var ratioSum float64
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		if r.Result != nil {
			s.TotalSaved += r.Result.OriginalSize - r.Result.CompressedSize
			ratioSum += r.Result.Ratio
		}
	}
	if s.Succeeded > 0 {
		s.AvgRatio = ratioSum / float64(s.Succeeded)
	}
	return s
}

// String returns a human-readable batch summary.
func (s BatchSummary) String() string {
	return fmt.Sprintf(
		"Batch: %d/%d succeeded | %s saved | Avg ratio: %.2fx",
		s.Succeeded, s.Total, humanBytes(s.TotalSaved), s.AvgRatio,
	)
}
