package approval

import (
	"errors"
	"fmt"
	"time"

	"github.com/devswarm/devswarm/internal/event"
	"github.com/devswarm/devswarm/internal/taskqueue"
)

// Sentinel errors returned by gate operations.
var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrNotAwaitingApproval = errors.New("task is not awaiting approval")
)

// TaskLookup returns whether a task with the given ID requires approval.
type TaskLookup func(taskID string) (requiresApproval bool, exists bool)

// Gate wraps a TaskQueue to intercept MarkRunning transitions for tasks
// that require human approval (QUALITY/AUTONOMY modes' approval flag).
// Tasks needing approval are held in TaskAwaitingApproval status until
// explicitly approved or rejected; the queue's own status is the single
// source of truth, so the gate keeps no shadow state.
//
// For tasks that do not require approval, all operations pass through to
// the underlying TaskQueue unchanged.
type Gate struct {
	q      *taskqueue.TaskQueue
	bus    *event.Bus
	lookup TaskLookup
}

// NewGate creates a Gate wrapping the given queue. The lookup function
// determines whether a given task requires approval.
func NewGate(q *taskqueue.TaskQueue, bus *event.Bus, lookup TaskLookup) *Gate {
	return &Gate{q: q, bus: bus, lookup: lookup}
}

// MarkRunning transitions a task to running. If the task requires
// approval it is instead held in TaskAwaitingApproval and a
// task.paused event is published; call Approve to resume it.
func (g *Gate) MarkRunning(taskID string) error {
	requiresApproval, exists := g.lookup(taskID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if !requiresApproval {
		return g.q.MarkRunning(taskID)
	}

	task := g.q.GetTask(taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if err := g.q.MarkAwaitingApproval(taskID); err != nil {
		return err
	}

	g.bus.Publish(event.TypeTaskPaused, map[string]any{
		"reason":     "awaiting_approval",
		"claimed_by": task.ClaimedBy,
	}, event.WithAggregate(taskID, event.AggregateTask))
	return nil
}

// Approve resumes a task that is awaiting approval, transitioning it to
// running.
func (g *Gate) Approve(taskID string) error {
	if !g.IsAwaitingApproval(taskID) {
		return fmt.Errorf("%w: %s", ErrNotAwaitingApproval, taskID)
	}
	if err := g.q.MarkRunning(taskID); err != nil {
		return fmt.Errorf("approve task: %w", err)
	}
	g.bus.Publish(event.TypeTaskResumed, map[string]any{
		"reason": "approved",
	}, event.WithAggregate(taskID, event.AggregateTask))
	return nil
}

// Reject fails a task that is awaiting approval with the given reason.
func (g *Gate) Reject(taskID, reason string) error {
	if !g.IsAwaitingApproval(taskID) {
		return fmt.Errorf("%w: %s", ErrNotAwaitingApproval, taskID)
	}
	if err := g.q.Fail(taskID, reason); err != nil {
		return fmt.Errorf("reject task: %w", err)
	}
	return nil
}

// PendingApprovals returns the IDs of tasks currently awaiting approval.
func (g *Gate) PendingApprovals() []string {
	pending := g.q.TasksByStatus(taskqueue.TaskAwaitingApproval)
	ids := make([]string, 0, len(pending))
	for _, task := range pending {
		ids = append(ids, task.ID)
	}
	return ids
}

// IsAwaitingApproval returns true if the given task is currently
// awaiting approval.
func (g *Gate) IsAwaitingApproval(taskID string) bool {
	task := g.q.GetTask(taskID)
	return task != nil && task.Status == taskqueue.TaskAwaitingApproval
}

// ClaimNext delegates to the underlying queue.
func (g *Gate) ClaimNext(claimantID string) (*taskqueue.QueuedTask, error) {
	return g.q.ClaimNext(claimantID)
}

// Complete delegates to the underlying queue.
func (g *Gate) Complete(taskID string) ([]string, error) {
	return g.q.Complete(taskID)
}

// Fail delegates to the underlying queue.
func (g *Gate) Fail(taskID, failureContext string) error {
	return g.q.Fail(taskID, failureContext)
}

// Release delegates to the underlying queue.
func (g *Gate) Release(taskID string) error {
	return g.q.Release(taskID)
}

// Status delegates to the underlying queue.
func (g *Gate) Status() taskqueue.QueueStatus {
	return g.q.Status()
}

// IsComplete delegates to the underlying queue.
func (g *Gate) IsComplete() bool {
	return g.q.IsComplete()
}

// GetTask delegates to the underlying queue.
func (g *Gate) GetTask(taskID string) *taskqueue.QueuedTask {
	return g.q.GetTask(taskID)
}

// TasksClaimedBy delegates to the underlying queue.
func (g *Gate) TasksClaimedBy(claimantID string) []*taskqueue.QueuedTask {
	return g.q.TasksClaimedBy(claimantID)
}

// ReleaseStaleClaimed delegates to the underlying queue.
func (g *Gate) ReleaseStaleClaimed(cutoff time.Time) []string {
	return g.q.ReleaseStaleClaimed(cutoff)
}
