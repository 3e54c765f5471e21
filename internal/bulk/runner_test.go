package bulk

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunnerAllSucceed(t *testing.T) {
	runner := NewRunner(4, zap.NewNop())
	var mu sync.Mutex
	applied := map[string]bool{}

	outcome := runner.Run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, id string) error {
		mu.Lock()
		defer mu.Unlock()
		applied[id] = true
		return nil
	})

	assert.Equal(t, 3, outcome.SuccessCount)
	assert.Equal(t, 0, outcome.FailureCount)
	assert.Len(t, applied, 3)
}

func TestRunnerPartialFailure(t *testing.T) {
	runner := NewRunner(2, zap.NewNop())
	var mu sync.Mutex
	applied := map[string]bool{}

	items := []string{"item-1", "item-2", "item-3", "item-4", "item-5"}
	outcome := runner.Run(context.Background(), items, func(ctx context.Context, id string) error {
		if id == "item-2" {
			return errors.New("api returned success=false")
		}
		mu.Lock()
		defer mu.Unlock()
		applied[id] = true
		return nil
	})

	assert.Equal(t, 4, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.FailureCount)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, "item-2", outcome.Failed[0].ItemID)
	assert.Equal(t, "api returned success=false", outcome.Failed[0].Reason)
	assert.False(t, applied["item-2"])
	assert.Len(t, applied, 4)
}

func TestRunnerSkippedItems(t *testing.T) {
	runner := NewRunner(2, zap.NewNop())

	outcome := runner.Run(context.Background(), []string{"a", "b"}, func(ctx context.Context, id string) error {
		return Skip("account already active")
	})

	assert.Equal(t, 0, outcome.SuccessCount)
	assert.Equal(t, 0, outcome.FailureCount)
	assert.Equal(t, 2, outcome.SkippedCount)
	assert.True(t, outcome.NothingToDo())
}

func TestRunnerEmptyItems(t *testing.T) {
	runner := NewRunner(2, zap.NewNop())
	outcome := runner.Run(context.Background(), nil, func(ctx context.Context, id string) error {
		t.Fatal("operation must not run for empty input")
		return nil
	})
	assert.Equal(t, 0, outcome.SuccessCount)
	assert.False(t, outcome.NothingToDo())
}

func TestRunnerWaitsForAllItems(t *testing.T) {
	runner := NewRunner(8, zap.NewNop())
	var count int
	var mu sync.Mutex

	items := make([]string, 50)
	for i := range items {
		items[i] = string(rune('a' + i%26))
	}
	outcome := runner.Run(context.Background(), items, func(ctx context.Context, id string) error {
		mu.Lock()
		defer mu.Unlock()
		count++
		return nil
	})

	assert.Equal(t, 50, count)
	assert.Equal(t, 50, outcome.SuccessCount)
}

func TestSkipMatchesErrSkipped(t *testing.T) {
	assert.True(t, IsSkipped(Skip("already active")))
	assert.True(t, IsSkipped(ErrSkipped))
	assert.False(t, IsSkipped(errors.New("other")))
	assert.Equal(t, "already active", Skip("already active").Error())
}
