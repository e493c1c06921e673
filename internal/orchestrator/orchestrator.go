// Package orchestrator implements spec §4.1: the top-level pipeline that
// turns a submitted task description into a decomposed, executed, and
// finalized Task, coordinating the mode manager, agent registry, worker
// pool, cost tracker, and event bus.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devswarm/devswarm/internal/config"
	"github.com/devswarm/devswarm/internal/cost"
	"github.com/devswarm/devswarm/internal/errors"
	"github.com/devswarm/devswarm/internal/event"
	"github.com/devswarm/devswarm/internal/eventstore"
	"github.com/devswarm/devswarm/internal/fanout"
	"github.com/devswarm/devswarm/internal/logging"
	"github.com/devswarm/devswarm/internal/mode"
	"github.com/devswarm/devswarm/internal/registry"
	"github.com/devswarm/devswarm/internal/task"
	"github.com/devswarm/devswarm/internal/workerpool"
)

// entry is the orchestrator's private bookkeeping for one submitted task.
// Every mutation of t goes through mu so Get can hand back a safe
// snapshot while run continues to execute concurrently.
type entry struct {
	mu       sync.Mutex
	t        *task.Task
	modeName string
	strategy mode.Strategy
	cancel   context.CancelFunc
	approve  chan bool // signaled by Approve/Reject; nil once consumed
}

// Orchestrator owns every in-flight and completed task known to this
// process, per spec §9's "process-wide state owned by an App context"
// redesign guidance.
type Orchestrator struct {
	cfg      *config.Config
	modeMgr  *mode.Manager
	registry *registry.Registry
	pool     *workerpool.Pool
	bus      *event.Bus
	store    eventstore.Store
	tracker  *cost.Tracker
	hub      *fanout.Hub
	logger   *logging.Logger

	mu    sync.RWMutex
	tasks map[string]*entry
}

// New builds an Orchestrator. hub may be nil, in which case New creates a
// private one; logger may be nil.
func New(cfg *config.Config, modeMgr *mode.Manager, reg *registry.Registry, pool *workerpool.Pool, bus *event.Bus, store eventstore.Store, tracker *cost.Tracker, hub *fanout.Hub, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if hub == nil {
		hub = fanout.NewHub(bus, fanout.DefaultBufferSize, logger)
	}
	return &Orchestrator{
		cfg:      cfg,
		modeMgr:  modeMgr,
		registry: reg,
		pool:     pool,
		bus:      bus,
		store:    store,
		tracker:  tracker,
		hub:      hub,
		logger:   logger.With("component", "orchestrator"),
		tasks:    make(map[string]*entry),
	}
}

// Submit validates and creates a task in pending status, publishes
// task.created, and starts its execution pipeline in the background.
// Returns the new task's id.
func (o *Orchestrator) Submit(description, projectID, modeName string, priority int) (string, error) {
	if description == "" {
		return "", errors.NewValidationError("description must not be empty").WithField("description")
	}
	if priority < 0 || priority > 100 {
		return "", errors.NewValidationError("priority must be within [0,100]").WithField("priority").WithValue(priority)
	}
	if modeName == "" {
		modeName, _ = o.modeMgr.Current()
	}
	strategy, err := o.modeMgr.Get(modeName)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	t := &task.Task{
		ID:          id,
		Description: description,
		ProjectID:   projectID,
		Status:      task.StatusPending,
		Priority:    priority,
		Mode:        modeName,
		CreatedAt:   time.Now(),
	}
	e := &entry{t: t, modeName: modeName, strategy: strategy}

	o.mu.Lock()
	o.tasks[id] = e
	o.mu.Unlock()

	o.publish(e, event.TypeTaskCreated, map[string]any{"mode": modeName, "priority": priority})
	o.appendEvent(id, event.TypeTaskCreated, map[string]any{"mode": modeName})

	go o.run(e)

	return id, nil
}

// Get returns a snapshot copy of the task, safe to read without racing
// the pipeline goroutine still mutating the original.
func (o *Orchestrator) Get(taskID string) (*task.Task, error) {
	e, err := o.lookup(taskID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.t), nil
}

// List returns snapshots of every known task.
func (o *Orchestrator) List() []*task.Task {
	o.mu.RLock()
	entries := make([]*entry, 0, len(o.tasks))
	for _, e := range o.tasks {
		entries = append(entries, e)
	}
	o.mu.RUnlock()

	out := make([]*task.Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, snapshot(e.t))
		e.mu.Unlock()
	}
	return out
}

// Cancel marks taskID for cancellation. Idempotent: cancelling a
// terminal task, or a task already marked for cancellation, is a no-op.
func (o *Orchestrator) Cancel(taskID string) error {
	e, err := o.lookup(taskID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.t.IsTerminal() {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Retry produces a new task with the same description, mode, and
// priority as taskID. Only legal when taskID is in failed status.
func (o *Orchestrator) Retry(taskID string) (string, error) {
	e, err := o.lookup(taskID)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.t.Status != task.StatusFailed {
		e.mu.Unlock()
		return "", errors.NewConflictError("task is not in a retryable (failed) state").WithCause(errors.ErrTaskNotFailed)
	}
	description, modeName, priority, projectID := e.t.Description, e.t.Mode, e.t.Priority, e.t.ProjectID
	e.mu.Unlock()

	return o.Submit(description, projectID, modeName, priority)
}

// Approve resumes a task paused awaiting human approval (QUALITY/AUTONOMY
// modes' human_approval flag). Reject fails the task instead.
func (o *Orchestrator) Approve(taskID string) error {
	return o.resolveApproval(taskID, true, "")
}

func (o *Orchestrator) Reject(taskID, reason string) error {
	return o.resolveApproval(taskID, false, reason)
}

func (o *Orchestrator) resolveApproval(taskID string, approved bool, reason string) error {
	e, err := o.lookup(taskID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.t.Status != task.StatusPaused || e.approve == nil {
		e.mu.Unlock()
		return errors.NewConflictError("task is not awaiting approval")
	}
	ch := e.approve
	e.approve = nil
	e.mu.Unlock()

	select {
	case ch <- approved:
	default:
	}
	if !approved {
		o.logger.Info("task rejected by approval gate", "task_id", taskID, "reason", reason)
	}
	return nil
}

// Subscribe streams events matching filter until unsubscribe is called.
func (o *Orchestrator) Subscribe(filter fanout.Filter) (<-chan event.Event, func()) {
	return o.hub.Subscribe(filter)
}

func (o *Orchestrator) lookup(taskID string) (*entry, error) {
	o.mu.RLock()
	e, ok := o.tasks[taskID]
	o.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("task", taskID)
	}
	return e, nil
}

// snapshot returns a shallow copy of t safe for a caller to read; Phases
// and Errors are copied one level deep since run mutates them in place.
func snapshot(t *task.Task) *task.Task {
	cp := *t
	cp.Phases = make([]*task.Phase, len(t.Phases))
	for i, p := range t.Phases {
		pc := *p
		cp.Phases[i] = &pc
	}
	cp.Errors = append([]task.Error(nil), t.Errors...)
	cp.FilesModified = append([]string(nil), t.FilesModified...)
	return &cp
}

func (o *Orchestrator) publish(e *entry, t event.Type, data map[string]any) event.Event {
	e.mu.Lock()
	id := e.t.ID
	e.mu.Unlock()
	return o.bus.Publish(t, data, event.WithAggregate(id, event.AggregateTask))
}

// appendEvent persists a domain event to the event store, independent of
// the bus's in-process fan-out, per spec §4.4.
func (o *Orchestrator) appendEvent(aggregateID string, t event.Type, data map[string]any) {
	if o.store == nil {
		return
	}
	v, _ := o.store.GetLatestVersion(aggregateID)
	ev := event.Event{
		ID:            uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: event.AggregateTask,
		Type:          t,
		Data:          data,
		Version:       v + 1,
		Timestamp:     time.Now(),
	}
	if err := o.store.Append(ev); err != nil {
		o.logger.Warn("failed to persist event", "task_id", aggregateID, "type", string(t), "error", err)
	}
}
