// Package bulk runs an operation across many independent items, collecting
// per-item outcomes. Partial failure is an expected result, not an error:
// one item failing never aborts or rolls back the others.
package bulk

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Operation applies the bulk action to a single item. Returning ErrSkipped
// (wrapped or direct) marks the item as skipped rather than failed.
type Operation func(ctx context.Context, itemID string) error

// ItemFailure records why one item failed.
type ItemFailure struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// Outcome aggregates per-item results of one bulk run. Succeeded and Failed
// may both be non-empty; Skipped counts items already in the target state.
type Outcome struct {
	Succeeded    []string      `json:"succeeded"`
	Skipped      []string      `json:"skipped"`
	Failed       []ItemFailure `json:"failed"`
	SuccessCount int           `json:"success_count"`
	SkippedCount int           `json:"skipped_count"`
	FailureCount int           `json:"failure_count"`
}

// Runner fans an operation out over items with bounded concurrency and waits
// for every item to settle before reporting.
type Runner struct {
	concurrency int64
	logger      *zap.Logger
}

// NewRunner constructs a runner. Concurrency below 1 falls back to 1.
func NewRunner(concurrency int, logger *zap.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{concurrency: int64(concurrency), logger: logger}
}

// Run applies op to every item. Items execute concurrently up to the
// configured limit; writes to the shared outcome serialize under a mutex.
// Run returns only after all items have settled.
func (r *Runner) Run(ctx context.Context, itemIDs []string, op Operation) Outcome {
	outcome := Outcome{
		Succeeded: make([]string, 0, len(itemIDs)),
		Skipped:   make([]string, 0),
		Failed:    make([]ItemFailure, 0),
	}
	if len(itemIDs) == 0 {
		return outcome
	}

	sem := semaphore.NewWeighted(r.concurrency)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, itemID := range itemIDs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; remaining items count as failed so the
			// caller still gets a full accounting.
			mu.Lock()
			outcome.Failed = append(outcome.Failed, ItemFailure{ItemID: itemID, Reason: err.Error()})
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)
			err := op(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				outcome.Succeeded = append(outcome.Succeeded, id)
			case IsSkipped(err):
				outcome.Skipped = append(outcome.Skipped, id)
			default:
				r.logger.Warn("bulk item failed", zap.String("item_id", id), zap.Error(err))
				outcome.Failed = append(outcome.Failed, ItemFailure{ItemID: id, Reason: err.Error()})
			}
		}(itemID)
	}

	wg.Wait()
	outcome.SuccessCount = len(outcome.Succeeded)
	outcome.SkippedCount = len(outcome.Skipped)
	outcome.FailureCount = len(outcome.Failed)
	return outcome
}

// NothingToDo reports whether the run had eligible items but none required a
// transition (all skipped). Callers surface this as an informational result.
func (o Outcome) NothingToDo() bool {
	return o.SuccessCount == 0 && o.FailureCount == 0 && o.SkippedCount > 0
}
