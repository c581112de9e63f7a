// Package async provides utilities for parallel task execution with
// per-task result collection.
//
// [Run] executes multiple operations concurrently and returns every
// task's outcome in input order. Callers that only care about the first
// failure can use [FirstError]. It is used by the reconciler to fan out
// independent per-instance operations without letting one failure mask
// or block the others.
package async

import (
	"context"
	"fmt"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Result is the outcome of a single task.
type Result struct {
	Name string
	Err  error
}

// Run executes all tasks in parallel and waits for every one to finish.
// Results are returned in the same order as the input tasks, regardless
// of completion order. A failed task never cancels or delays its
// siblings; each Result carries that task's own error (or nil).
//
// Example:
//
//	tasks := []Task{
//	    {Name: "vm-500", Func: reconcileOrdinal(0)},
//	    {Name: "vm-501", Func: reconcileOrdinal(1)},
//	}
//	for _, res := range async.Run(ctx, tasks) {
//	    if res.Err != nil { ... }
//	}
func Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	type indexed struct {
		idx int
		err error
	}

	resultChan := make(chan indexed, len(tasks))

	for i, task := range tasks {
		go func(i int, task Task) {
			resultChan <- indexed{idx: i, err: task.Func(ctx)}
		}(i, task)
	}

	results := make([]Result, len(tasks))
	for range tasks {
		res := <-resultChan
		results[res.idx] = Result{Name: tasks[res.idx].Name, Err: res.err}
	}

	return results
}

// FirstError returns the first failed result (in input order) wrapped
// with its task name, or nil if every task succeeded.
func FirstError(results []Result) error {
	for _, res := range results {
		if res.Err != nil {
			return fmt.Errorf("task %s failed: %w", res.Name, res.Err)
		}
	}
	return nil
}
