package taskqueue

import "time"

// TaskStatus represents the current state of a queued task.
type TaskStatus string

const (
	// TaskPending indicates the task is waiting to be claimed.
	TaskPending TaskStatus = "pending"

	// TaskClaimed indicates the task has been claimed by a worker but
	// has not yet started running.
	TaskClaimed TaskStatus = "claimed"

	// TaskAwaitingApproval indicates the task was claimed but its agent
	// type requires human approval before it may start running; see
	// internal/approval.
	TaskAwaitingApproval TaskStatus = "awaiting_approval"

	// TaskRunning indicates the task is actively being executed.
	TaskRunning TaskStatus = "running"

	// TaskCompleted indicates the task finished successfully.
	TaskCompleted TaskStatus = "completed"

	// TaskFailed indicates the task failed and exhausted all retries.
	TaskFailed TaskStatus = "failed"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is the static description of a unit of work submitted to a
// TaskQueue: what to do, which agent type should do it, and what must
// complete first.
type Task struct {
	// ID uniquely identifies the task within its queue.
	ID string `json:"id"`

	// Description is the prompt/goal handed to the executing agent.
	Description string `json:"description"`

	// AgentType names the agent type that should execute this task
	// (e.g. "implement", "test", "review"); see internal/registry.
	AgentType string `json:"agent_type"`

	// DependsOn lists the IDs of tasks that must be completed before
	// this one becomes claimable.
	DependsOn []string `json:"depends_on,omitempty"`

	// Priority orders claim selection among tasks at the same
	// dependency level; lower values claim first.
	Priority int `json:"priority"`
}

// QueuedTask is a Task plus its execution state within a TaskQueue.
type QueuedTask struct {
	Task

	// Status is the current execution state.
	Status TaskStatus `json:"status"`

	// ClaimedBy is the worker/agent ID that claimed this task.
	ClaimedBy string `json:"claimed_by,omitempty"`

	// ClaimedAt is when the task was claimed.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// RetryCount is the number of retry attempts so far.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retry attempts allowed.
	MaxRetries int `json:"max_retries"`

	// FailureContext contains error context from the most recent failure.
	FailureContext string `json:"failure_context,omitempty"`
}

// QueueStatus is a snapshot of the queue's current state counts.
type QueueStatus struct {
	Total            int `json:"total"`
	Pending          int `json:"pending"`
	Claimed          int `json:"claimed"`
	AwaitingApproval int `json:"awaiting_approval"`
	Running          int `json:"running"`
	Completed        int `json:"completed"`
	Failed           int `json:"failed"`
}
