package async

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Run(context.Background(), nil))
	assert.Nil(t, Run(context.Background(), []Task{}))
}

func TestRun_AllSucceed(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32

	tasks := []Task{
		{Name: "a", Func: func(context.Context) error { calls.Add(1); return nil }},
		{Name: "b", Func: func(context.Context) error { calls.Add(1); return nil }},
		{Name: "c", Func: func(context.Context) error { calls.Add(1); return nil }},
	}

	results := Run(context.Background(), tasks)

	require.Len(t, results, 3)
	assert.EqualValues(t, 3, calls.Load())
	for i, res := range results {
		assert.Equal(t, tasks[i].Name, res.Name, "results preserve input order")
		assert.NoError(t, res.Err)
	}
	assert.NoError(t, FirstError(results))
}

func TestRun_CollectsEveryError(t *testing.T) {
	t.Parallel()
	errB := errors.New("b broke")
	errC := errors.New("c broke")

	results := Run(context.Background(), []Task{
		{Name: "a", Func: func(context.Context) error { return nil }},
		{Name: "b", Func: func(context.Context) error { return errB }},
		{Name: "c", Func: func(context.Context) error { return errC }},
	})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, errB)
	assert.ErrorIs(t, results[2].Err, errC)
}

func TestRun_FailureDoesNotBlockSiblings(t *testing.T) {
	t.Parallel()
	var slowDone atomic.Bool

	results := Run(context.Background(), []Task{
		{Name: "fast-fail", Func: func(context.Context) error { return errors.New("boom") }},
		{Name: "slow-ok", Func: func(context.Context) error {
			time.Sleep(50 * time.Millisecond)
			slowDone.Store(true)
			return nil
		}},
	})

	require.Len(t, results, 2)
	assert.True(t, slowDone.Load(), "slow task must run to completion despite sibling failure")
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
}

func TestRun_ResultsInInputOrder(t *testing.T) {
	t.Parallel()
	// Tasks complete in reverse order; results must still match input order.
	tasks := make([]Task, 5)
	for i := range tasks {
		delay := time.Duration(len(tasks)-i) * 10 * time.Millisecond
		tasks[i] = Task{
			Name: fmt.Sprintf("task-%d", i),
			Func: func(context.Context) error {
				time.Sleep(delay)
				return nil
			},
		}
	}

	results := Run(context.Background(), tasks)

	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("task-%d", i), res.Name)
	}
}

func TestFirstError(t *testing.T) {
	t.Parallel()
	errX := errors.New("x")

	err := FirstError([]Result{
		{Name: "ok"},
		{Name: "bad", Err: errX},
		{Name: "worse", Err: errors.New("y")},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errX, "first error in input order wins")
	assert.Contains(t, err.Error(), "bad")
}
