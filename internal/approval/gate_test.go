package approval

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/devswarm/devswarm/internal/event"
	"github.com/devswarm/devswarm/internal/taskqueue"
)

// eventCollector gathers events from the bus for assertions.
type eventCollector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *eventCollector) handler(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *eventCollector) findByType(eventType event.Type) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var found []event.Event
	for _, e := range c.events {
		if e.Type == eventType {
			found = append(found, e)
		}
	}
	return found
}

func (c *eventCollector) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// approvalSet names which task IDs in a test queue require approval.
type approvalSet map[string]bool

// lookupFor builds a TaskLookup from a queue and an approval set: a task
// exists if it is present in the queue, and requires approval if its ID is
// in the set.
func lookupFor(q *taskqueue.TaskQueue, req approvalSet) TaskLookup {
	return func(taskID string) (bool, bool) {
		if q.GetTask(taskID) == nil {
			return false, false
		}
		return req[taskID], true
	}
}

// setupGate creates a Gate over a two-task queue: "t1" requires approval,
// "t2" does not.
func setupGate(t *testing.T) (*Gate, *taskqueue.TaskQueue, *eventCollector) {
	t.Helper()
	bus := event.NewBus()
	col := &eventCollector{}
	bus.SubscribeAll(col.handler)

	q := taskqueue.NewQueue()
	if err := q.AddTask(taskqueue.Task{ID: "t1", Description: "Requires approval"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := q.AddTask(taskqueue.Task{ID: "t2", Description: "No approval needed"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	gate := NewGate(q, bus, lookupFor(q, approvalSet{"t1": true}))
	return gate, q, col
}

func TestGate_MarkRunning_RequiresApproval(t *testing.T) {
	gate, _, col := setupGate(t)

	if _, err := gate.ClaimNext("worker-1"); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if _, err := gate.ClaimNext("worker-2"); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	col.reset()

	if err := gate.MarkRunning("t1"); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}

	pausedEvents := col.findByType(event.TypeTaskPaused)
	if len(pausedEvents) != 1 {
		t.Fatalf("expected 1 TypeTaskPaused event, got %d", len(pausedEvents))
	}
	if pausedEvents[0].AggregateID != "t1" {
		t.Errorf("AggregateID = %q, want t1", pausedEvents[0].AggregateID)
	}

	if !gate.IsAwaitingApproval("t1") {
		t.Error("expected t1 to be awaiting approval")
	}

	got := gate.GetTask("t1")
	if got.Status != taskqueue.TaskAwaitingApproval {
		t.Errorf("GetTask status = %q, want %q", got.Status, taskqueue.TaskAwaitingApproval)
	}
}

func TestGate_MarkRunning_NoApproval(t *testing.T) {
	gate, _, col := setupGate(t)

	if _, err := gate.ClaimNext("worker-1"); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if _, err := gate.ClaimNext("worker-2"); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	col.reset()

	if err := gate.MarkRunning("t2"); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}

	pausedEvents := col.findByType(event.TypeTaskPaused)
	if len(pausedEvents) != 0 {
		t.Errorf("expected 0 TypeTaskPaused events, got %d", len(pausedEvents))
	}

	if gate.IsAwaitingApproval("t2") {
		t.Error("t2 should NOT be awaiting approval")
	}
	if got := gate.GetTask("t2"); got.Status != taskqueue.TaskRunning {
		t.Errorf("status = %q, want running", got.Status)
	}
}

func TestGate_MarkRunning_TaskNotFound(t *testing.T) {
	gate, _, _ := setupGate(t)

	err := gate.MarkRunning("nonexistent")
	if err == nil {
		t.Fatal("expected error for nonexistent task")
	}
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("error = %v, want ErrTaskNotFound", err)
	}
}

func TestGate_MarkRunning_InvalidTransition(t *testing.T) {
	gate, _, _ := setupGate(t)

	// t1 is pending, not claimed — MarkRunning should fail.
	err := gate.MarkRunning("t1")
	if err == nil {
		t.Fatal("expected error for pending task")
	}
	if !errors.Is(err, taskqueue.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestGate_Approve(t *testing.T) {
	gate, _, col := setupGate(t)

	_, _ = gate.ClaimNext("worker-1")
	_, _ = gate.ClaimNext("worker-2")
	_ = gate.MarkRunning("t1")
	col.reset()

	if err := gate.Approve("t1"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if gate.IsAwaitingApproval("t1") {
		t.Error("task should no longer be awaiting approval")
	}

	got := gate.GetTask("t1")
	if got.Status != taskqueue.TaskRunning {
		t.Errorf("status = %q, want running", got.Status)
	}

	resumedEvents := col.findByType(event.TypeTaskResumed)
	if len(resumedEvents) != 1 {
		t.Errorf("expected 1 TypeTaskResumed event, got %d", len(resumedEvents))
	}
}

func TestGate_Approve_NotAwaiting(t *testing.T) {
	gate, _, _ := setupGate(t)

	err := gate.Approve("t1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrNotAwaitingApproval) {
		t.Errorf("error = %v, want ErrNotAwaitingApproval", err)
	}
}

func TestGate_Reject(t *testing.T) {
	gate, _, _ := setupGate(t)

	_, _ = gate.ClaimNext("worker-1")
	_, _ = gate.ClaimNext("worker-2")
	_ = gate.MarkRunning("t1")

	if err := gate.Reject("t1", "too risky"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	if gate.IsAwaitingApproval("t1") {
		t.Error("task should no longer be awaiting approval")
	}

	got := gate.GetTask("t1")
	if got.Status != taskqueue.TaskPending {
		t.Errorf("status = %q, want pending (retry available)", got.Status)
	}
}

func TestGate_Reject_NotAwaiting(t *testing.T) {
	gate, _, _ := setupGate(t)

	err := gate.Reject("t1", "reason")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrNotAwaitingApproval) {
		t.Errorf("error = %v, want ErrNotAwaitingApproval", err)
	}
}

func TestGate_PendingApprovals(t *testing.T) {
	gate, _, _ := setupGate(t)

	pending := gate.PendingApprovals()
	if len(pending) != 0 {
		t.Errorf("expected 0 pending, got %d", len(pending))
	}

	_, _ = gate.ClaimNext("worker-1")
	_, _ = gate.ClaimNext("worker-2")
	_ = gate.MarkRunning("t1")

	pending = gate.PendingApprovals()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}
	if pending[0] != "t1" {
		t.Errorf("pending[0] = %q, want t1", pending[0])
	}

	_ = gate.Approve("t1")
	pending = gate.PendingApprovals()
	if len(pending) != 0 {
		t.Errorf("expected 0 pending after approve, got %d", len(pending))
	}
}

func TestGate_Status_AdjustsCounts(t *testing.T) {
	gate, _, _ := setupGate(t)

	_, _ = gate.ClaimNext("worker-1")
	_, _ = gate.ClaimNext("worker-2")

	s := gate.Status()
	if s.Claimed != 2 {
		t.Errorf("Claimed = %d, want 2", s.Claimed)
	}
	if s.AwaitingApproval != 0 {
		t.Errorf("AwaitingApproval = %d, want 0", s.AwaitingApproval)
	}

	_ = gate.MarkRunning("t1")

	s = gate.Status()
	if s.Claimed != 1 {
		t.Errorf("Claimed = %d, want 1", s.Claimed)
	}
	if s.AwaitingApproval != 1 {
		t.Errorf("AwaitingApproval = %d, want 1", s.AwaitingApproval)
	}
}

func TestGate_Release_CleansUpPending(t *testing.T) {
	gate, _, _ := setupGate(t)

	_, _ = gate.ClaimNext("worker-1")
	_, _ = gate.ClaimNext("worker-2")
	_ = gate.MarkRunning("t1")

	if !gate.IsAwaitingApproval("t1") {
		t.Fatal("expected awaiting approval before release")
	}

	if err := gate.Release("t1"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if gate.IsAwaitingApproval("t1") {
		t.Error("task should no longer be awaiting approval after release")
	}
	if got := gate.GetTask("t1"); got.Status != taskqueue.TaskPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

func TestGate_ReleaseStaleClaimed_CleansUpPending(t *testing.T) {
	bus := event.NewBus()
	q := taskqueue.NewQueue()
	if err := q.AddTask(taskqueue.Task{ID: "t1"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	gate := NewGate(q, bus, lookupFor(q, approvalSet{"t1": true}))

	_, _ = gate.ClaimNext("worker-1")
	_ = gate.MarkRunning("t1")

	if !gate.IsAwaitingApproval("t1") {
		t.Fatal("expected awaiting approval")
	}

	// ReleaseStaleClaimed only releases TaskClaimed, not TaskAwaitingApproval,
	// so it should have no effect here.
	released := gate.ReleaseStaleClaimed(time.Now().Add(time.Hour))
	if len(released) != 0 {
		t.Fatalf("released = %v, want none (t1 is awaiting approval, not claimed)", released)
	}
	if !gate.IsAwaitingApproval("t1") {
		t.Error("t1 should still be awaiting approval")
	}
}

func TestGate_Passthrough_Complete(t *testing.T) {
	gate, _, _ := setupGate(t)

	_, _ = gate.ClaimNext("worker-1")
	_, _ = gate.ClaimNext("worker-2")
	_ = gate.MarkRunning("t2")

	unblocked, err := gate.Complete("t2")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	// No tasks depend on t2 in our test queue, so unblocked should be empty.
	_ = unblocked
}

func TestGate_Passthrough_Fail(t *testing.T) {
	gate, _, _ := setupGate(t)

	_, _ = gate.ClaimNext("worker-1")
	_, _ = gate.ClaimNext("worker-2")
	_ = gate.MarkRunning("t2")

	if err := gate.Fail("t2", "crash"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
}

func TestGate_Passthrough_IsComplete(t *testing.T) {
	gate, _, _ := setupGate(t)

	if gate.IsComplete() {
		t.Error("should not be complete")
	}
}

func TestGate_Passthrough_TasksClaimedBy(t *testing.T) {
	gate, _, _ := setupGate(t)

	_, _ = gate.ClaimNext("worker-1")

	tasks := gate.TasksClaimedBy("worker-1")
	if len(tasks) != 1 {
		t.Errorf("TasksClaimedBy = %d, want 1", len(tasks))
	}
}

func TestGate_GetTask_NotAwaiting(t *testing.T) {
	gate, _, _ := setupGate(t)

	task := gate.GetTask("t2")
	if task == nil {
		t.Fatal("expected non-nil task")
	}
	if task.Status != taskqueue.TaskPending {
		t.Errorf("status = %q, want pending", task.Status)
	}
}

func TestGate_GetTask_NotFound(t *testing.T) {
	gate, _, _ := setupGate(t)

	task := gate.GetTask("nonexistent")
	if task != nil {
		t.Errorf("expected nil for nonexistent task, got %+v", task)
	}
}

func TestGate_MultiplePendingApprovals(t *testing.T) {
	bus := event.NewBus()
	q := taskqueue.NewQueue()
	for _, id := range []string{"a1", "a2", "a3"} {
		if err := q.AddTask(taskqueue.Task{ID: id}); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}
	gate := NewGate(q, bus, lookupFor(q, approvalSet{"a1": true, "a2": true}))

	_, _ = gate.ClaimNext("worker-1")
	_, _ = gate.ClaimNext("worker-2")
	_, _ = gate.ClaimNext("worker-3")

	_ = gate.MarkRunning("a1")
	_ = gate.MarkRunning("a2")
	_ = gate.MarkRunning("a3")

	pending := gate.PendingApprovals()
	sort.Strings(pending)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0] != "a1" || pending[1] != "a2" {
		t.Errorf("pending = %v, want [a1 a2]", pending)
	}

	s := gate.Status()
	if s.AwaitingApproval != 2 {
		t.Errorf("AwaitingApproval = %d, want 2", s.AwaitingApproval)
	}
	if s.Running != 1 {
		t.Errorf("Running = %d, want 1", s.Running)
	}
}

func TestGate_ConcurrentOperations(t *testing.T) {
	bus := event.NewBus()
	q := taskqueue.NewQueue()
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		if err := q.AddTask(taskqueue.Task{ID: id}); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}
	gate := NewGate(q, bus, lookupFor(q, approvalSet{"c1": true, "c2": true}))

	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			claimant := fmt.Sprintf("worker-%d", idx)
			_, _ = gate.ClaimNext(claimant)
		}(i)
	}
	wg.Wait()

	wg.Add(4)
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		go func(taskID string) {
			defer wg.Done()
			_ = gate.MarkRunning(taskID)
		}(id)
	}
	wg.Wait()

	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = gate.Approve("c1")
	}()
	go func() {
		defer wg.Done()
		_ = gate.Reject("c2", "not needed")
	}()
	wg.Wait()

	if gate.IsAwaitingApproval("c1") {
		t.Error("c1 should not be awaiting after approve")
	}
	if gate.IsAwaitingApproval("c2") {
		t.Error("c2 should not be awaiting after reject")
	}
}

func TestGate_Approve_UnderlyingError(t *testing.T) {
	// Approve should propagate errors from the underlying MarkRunning: force
	// this by releasing the task underneath the gate first.
	bus := event.NewBus()
	q := taskqueue.NewQueue()
	if err := q.AddTask(taskqueue.Task{ID: "t1"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	gate := NewGate(q, bus, lookupFor(q, approvalSet{"t1": true}))

	_, _ = gate.ClaimNext("worker-1")
	_ = gate.MarkRunning("t1")

	_ = q.Release("t1")

	err := gate.Approve("t1")
	if err == nil {
		t.Fatal("expected error from Approve after underlying release")
	}
}

func TestGate_Reject_UnderlyingError(t *testing.T) {
	// Reject should propagate errors from the underlying Fail: force this
	// by releasing the task underneath the gate first.
	bus := event.NewBus()
	q := taskqueue.NewQueue()
	if err := q.AddTask(taskqueue.Task{ID: "t1"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	gate := NewGate(q, bus, lookupFor(q, approvalSet{"t1": true}))

	_, _ = gate.ClaimNext("worker-1")
	_ = gate.MarkRunning("t1")

	_ = q.Release("t1")

	err := gate.Reject("t1", "reason")
	if err == nil {
		t.Fatal("expected error from Reject after underlying release")
	}
}

func TestGate_MarkRunning_GetTaskNil(t *testing.T) {
	// Defensive check: a lookup that claims a task exists and requires
	// approval, while the underlying queue does not actually have it.
	bus := event.NewBus()
	q := taskqueue.NewQueue()
	if err := q.AddTask(taskqueue.Task{ID: "t1"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	lookup := func(taskID string) (bool, bool) {
		if taskID == "phantom" {
			return true, true
		}
		return false, taskID == "t1"
	}
	gate := NewGate(q, bus, lookup)

	err := gate.MarkRunning("phantom")
	if err == nil {
		t.Fatal("expected error for phantom task")
	}
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("error = %v, want ErrTaskNotFound", err)
	}
}
