// Package taskqueue provides a dynamic task queue with dependency-aware
// claiming for subtask execution.
//
// Instead of static execution order batches where all tasks in group N
// must complete before group N+1 starts, taskqueue allows workers to
// claim the next available task as soon as its dependencies are
// satisfied. This keeps the worker pool busy and reduces overall
// execution time.
//
// The core type is [TaskQueue], which holds tasks added via AddTask and
// provides thread-safe operations for claiming, completing, and failing
// them. Dependencies are tracked internally so that completing a task
// automatically unblocks downstream tasks for claiming.
//
// Usage:
//
//	queue := taskqueue.NewQueue()
//	queue.AddTask(taskqueue.Task{ID: "t-1", AgentType: "implement"})
//
//	task, err := queue.ClaimNext("worker-1")
//	if task != nil {
//	    queue.MarkRunning(task.ID)
//	    // ... execute task ...
//	    unblocked, err := queue.Complete(task.ID)
//	}
package taskqueue
