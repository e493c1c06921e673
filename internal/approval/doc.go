// Package approval provides the human-approval gate for task execution
// (spec open question: external gate, paused status, approve(taskId)).
//
// When a task's agent type requires human approval before running, the
// gate intercepts the claimed-to-running transition and holds the task
// in TaskAwaitingApproval until explicitly approved or rejected. The
// underlying TaskQueue's status is the only state tracked — the gate
// adds no shadow bookkeeping of its own.
//
// # Usage
//
//	gate := approval.NewGate(queue, bus, lookupFunc)
//
//	// MarkRunning is intercepted for tasks requiring approval.
//	err := gate.MarkRunning(taskID)
//	// If the task requires approval, it enters TaskAwaitingApproval.
//
//	err = gate.Approve(taskID)
//	// or:
//	err = gate.Reject(taskID, "plan looks risky")
//
// # Thread Safety
//
// Gate delegates every mutation to TaskQueue, which is itself safe for
// concurrent use.
package approval
