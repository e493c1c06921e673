package orchestrator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/devswarm/devswarm/internal/agent"
	"github.com/devswarm/devswarm/internal/config"
	"github.com/devswarm/devswarm/internal/errors"
	"github.com/devswarm/devswarm/internal/event"
	"github.com/devswarm/devswarm/internal/mode"
	"github.com/devswarm/devswarm/internal/registry"
	"github.com/devswarm/devswarm/internal/task"
)

// run drives one task through spec §4.1's analyze → decompose → execute →
// finalize pipeline. It owns e.t exclusively except for the fields Get
// reads under e.mu.
func (o *Orchestrator) run(e *entry) {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancel = cancel
	e.t.Status = task.StatusAnalyzing
	e.t.StartedAt = time.Now()
	e.mu.Unlock()

	complexity := mode.ClassifyComplexity(e.t.Description)
	o.publish(e, event.TypeTaskStarted, map[string]any{"complexity": string(complexity)})
	o.appendEvent(e.t.ID, event.TypeTaskStarted, map[string]any{"complexity": string(complexity)})

	phases, err := e.strategy.Decompose(e.t.Description)
	if err != nil {
		o.failOnce(e, errors.ClassInternal, err.Error(), 0, "")
		return
	}
	if err := validatePlan(phases); err != nil {
		o.failOnce(e, errors.ClassValidation, "invalid_plan: "+err.Error(), 0, "")
		return
	}

	e.mu.Lock()
	e.t.Phases = phases
	e.t.Status = task.StatusRunning
	e.mu.Unlock()

	modeCfg := o.cfg.ModeConfigFor(e.modeName)

	if modeCfg.HumanApproval {
		if !o.awaitApproval(ctx, e) {
			o.finishCancelled(e)
			return
		}
	}

	for _, phase := range phases {
		if e.isTerminal() {
			return
		}
		if ctx.Err() != nil {
			o.finishCancelled(e)
			return
		}

		if phase.AutoComplete() {
			o.publishPhase(e, event.TypePhaseCompleted, phase)
			continue
		}

		o.publishPhase(e, event.TypePhaseStarted, phase)
		phase.Status = task.PhaseRunning
		phaseStart := time.Now()

		ok := o.executePhase(ctx, e, phase, complexity, modeCfg)
		phase.Duration = time.Since(phaseStart)

		if e.isTerminal() {
			// A subtask failure already finalized the task (e.g. cost cap).
			return
		}
		if ctx.Err() != nil {
			o.finishCancelled(e)
			return
		}

		if !ok {
			if phase.Required {
				phase.Status = task.PhaseFailed
				o.publishPhase(e, event.TypePhaseFailed, phase)
				o.failOnce(e, errors.ClassProvider, "required phase failed", phase.Number, "")
				return
			}
			phase.Status = task.PhaseSkipped
			o.publishPhase(e, event.TypePhaseSkipped, phase)
			continue
		}

		phase.Status = task.PhaseCompleted
		o.publishPhase(e, event.TypePhaseCompleted, phase)

		e.mu.Lock()
		currentCost := e.t.Cost
		e.mu.Unlock()
		if !e.strategy.ShouldContinue(currentCost) {
			o.failOnce(e, errors.ClassCostExceeded, "mode's shouldContinue returned false", phase.Number, "")
			return
		}
	}

	o.complete(e)
}

// executePhase resolves the phase's agent types into registry execution
// levels, runs each level's subtasks (concurrently across distinct agent
// types when the phase is parallel, one type group after another
// otherwise, and always serialized within a type since the registry
// treats a type as non-reentrant), and reports whether every subtask that ran succeeded.
func (o *Orchestrator) executePhase(ctx context.Context, e *entry, phase *task.Phase, complexity mode.Complexity, modeCfg config.ModeConfig) bool {
	types := uniqueTypes(phase.Subtasks)
	levels, err := registry.ExecutionOrder(types)
	if err != nil {
		e.mu.Lock()
		e.t.Errors = append(e.t.Errors, task.Error{Type: string(errors.ClassUnresolvable), Message: err.Error(), Phase: phase.Number})
		e.mu.Unlock()
		return false
	}

	allOK := true
	for _, level := range levels {
		if ctx.Err() != nil {
			return false
		}

		byType := make(map[agent.Type][]*task.Subtask)
		for _, st := range phase.Subtasks {
			if containsType(level, st.AgentType) {
				byType[st.AgentType] = append(byType[st.AgentType], st)
			}
		}

		results := make(chan bool, len(byType))
		runGroup := func(sts []*task.Subtask) {
			ok := true
			for _, st := range sts {
				if ctx.Err() != nil {
					ok = false
					break
				}
				if !o.runSubtask(ctx, e, phase, st, complexity, modeCfg) {
					ok = false
				}
				if e.isTerminal() {
					break
				}
			}
			results <- ok
		}

		if phase.Parallel {
			for _, sts := range byType {
				go runGroup(sts)
			}
		} else {
			for _, sts := range byType {
				runGroup(sts)
			}
		}
		for range byType {
			if !<-results {
				allOK = false
			}
		}
	}
	return allOK
}

// runSubtask executes st, retrying transient/provider failures up to
// mode.maxRetries with exponential backoff per spec §7, and folds a
// successful result's files/tokens/cost into the task.
func (o *Orchestrator) runSubtask(ctx context.Context, e *entry, phase *task.Phase, st *task.Subtask, complexity mode.Complexity, modeCfg config.ModeConfig) bool {
	modelChoice := e.strategy.SelectModel(complexity)

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			st.Status = task.SubtaskFailed
			return false
		}
		st.Status = task.SubtaskRunning

		priorResults := o.priorResults(e)
		atask := agent.Task{
			TaskID:      e.t.ID,
			SubtaskID:   st.ID,
			Description: st.Description,
			AgentType:   st.AgentType,
			Input:       st.Input,
			Timeout:     modeCfg.TaskTimeout(),
		}

		result, err := o.runViaPool(ctx, st.ID, modeCfg.TaskTimeout(), st.AgentType, atask, priorResults)
		if err == nil && result.Success {
			st.Status = task.SubtaskCompleted
			out := result
			st.Output = &out

			e.mu.Lock()
			e.t.AddFiles(result.ModifiedFiles)
			e.t.AddUsage(result.TokensIn, result.TokensOut, result.Cost)
			e.t.AddResult(phase.Number, st.AgentType, result)
			e.mu.Unlock()

			o.tracker.RecordCost(e.t.ID, e.modeName, result.TokensIn, result.TokensOut, result.Cost)
			o.publish(e, event.TypeCostIncurred, map[string]any{"subtask_id": st.ID, "cost": result.Cost, "model": modelChoice.Model})

			if o.tracker.ExceedsCap(e.t.ID, e.modeName, modeCfg.HasCostCap(), modeCfg.CostCapUSD) {
				o.publish(e, event.TypeCostLimitReached, map[string]any{"subtask_id": st.ID})
				o.failOnce(e, errors.ClassCostExceeded, "cost cap exceeded", phase.Number, string(st.AgentType))
				return false
			}
			return true
		}

		failErr := err
		if failErr == nil {
			failErr = fmt.Errorf("%s", result.Error)
		}
		class := errors.Classify(failErr)
		if err == nil {
			// A domain-level agent failure (not a registry/error-taxonomy
			// error) defaults to the provider class per spec §7.
			class = errors.ClassProvider
		}

		retryable := class == errors.ClassTransient || class == errors.ClassProvider
		if retryable && attempt < modeCfg.MaxRetries {
			o.logger.Warn("subtask failed, retrying", "task_id", e.t.ID, "subtask_id", st.ID, "attempt", attempt+1, "error", failErr)
			select {
			case <-time.After(backoffDuration(attempt)):
			case <-ctx.Done():
				st.Status = task.SubtaskFailed
				return false
			}
			continue
		}

		st.Status = task.SubtaskFailed
		e.mu.Lock()
		e.t.Errors = append(e.t.Errors, task.Error{
			Type:    string(class),
			Message: failErr.Error(),
			Phase:   phase.Number,
			Agent:   string(st.AgentType),
		})
		e.mu.Unlock()
		return false
	}
}

// runViaPool routes a subtask's execution through the worker pool so its
// wall-clock budget (mode.taskTimeout, spec §4.6) is enforced by the pool's
// own deadline rather than left to the provider call to honor voluntarily.
// A pool-level timeout surfaces as errors.ClassTimeout, which runSubtask
// treats as non-retryable per spec §7.
func (o *Orchestrator) runViaPool(ctx context.Context, subtaskID string, timeout time.Duration, agentType agent.Type, atask agent.Task, priorResults map[agent.Type]agent.Result) (agent.Result, error) {
	resultCh := o.pool.SubmitTimeout(ctx, timeout, subtaskID, func(workCtx context.Context) (any, error) {
		return o.registry.ExecuteWithDependencies(workCtx, agentType, atask, priorResults)
	})

	r := <-resultCh
	if r.Err != nil {
		return agent.Result{}, r.Err
	}
	result, ok := r.Value.(agent.Result)
	if !ok {
		return agent.Result{}, fmt.Errorf("worker pool returned unexpected value type %T", r.Value)
	}
	return result, nil
}

// priorResults flattens every phase's recorded results into the map
// executeWithDependencies enriches the next call's context with.
func (o *Orchestrator) priorResults(e *entry) map[agent.Type]agent.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[agent.Type]agent.Result)
	for _, byType := range e.t.Results {
		for t, r := range byType {
			out[t] = r
		}
	}
	return out
}

func (o *Orchestrator) awaitApproval(ctx context.Context, e *entry) bool {
	ch := make(chan bool, 1)
	e.mu.Lock()
	e.t.Status = task.StatusPaused
	e.approve = ch
	e.mu.Unlock()

	o.publish(e, event.TypeTaskPaused, map[string]any{"reason": "awaiting_approval"})

	select {
	case approved := <-ch:
		e.mu.Lock()
		e.t.Status = task.StatusRunning
		e.mu.Unlock()
		if approved {
			o.publish(e, event.TypeTaskResumed, map[string]any{"reason": "approved"})
			return true
		}
		o.failOnce(e, errors.ClassCancelled, "rejected by approval gate", 0, "")
		return false
	case <-ctx.Done():
		return false
	}
}

// complete finalizes a task that ran every required phase successfully.
func (o *Orchestrator) complete(e *entry) {
	e.mu.Lock()
	if e.t.IsTerminal() {
		e.mu.Unlock()
		return
	}
	e.t.Status = task.StatusCompleted
	e.t.CompletedAt = time.Now()
	e.mu.Unlock()

	o.publish(e, event.TypeTaskCompleted, map[string]any{})
	o.appendEvent(e.t.ID, event.TypeTaskCompleted, map[string]any{})
}

// failOnce transitions the task to failed exactly once; subsequent calls
// (e.g. a phase-level failure observed after a subtask already failed
// the task on cost_exceeded) are no-ops.
func (o *Orchestrator) failOnce(e *entry, class errors.Class, message string, phaseNumber int, agentType string) {
	e.mu.Lock()
	if e.t.IsTerminal() {
		e.mu.Unlock()
		return
	}
	e.t.Status = task.StatusFailed
	e.t.CompletedAt = time.Now()
	e.t.Errors = append(e.t.Errors, task.Error{Type: string(class), Message: message, Phase: phaseNumber, Agent: agentType})
	e.mu.Unlock()

	o.publish(e, event.TypeTaskFailed, map[string]any{"class": string(class), "message": message})
	o.appendEvent(e.t.ID, event.TypeTaskFailed, map[string]any{"class": string(class), "message": message})
}

func (o *Orchestrator) finishCancelled(e *entry) {
	e.mu.Lock()
	if e.t.IsTerminal() {
		e.mu.Unlock()
		return
	}
	e.t.Status = task.StatusCancelled
	e.t.CompletedAt = time.Now()
	e.mu.Unlock()

	o.publish(e, event.TypeTaskCancelled, map[string]any{})
	o.appendEvent(e.t.ID, event.TypeTaskCancelled, map[string]any{})
}

func (e *entry) isTerminal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.t.IsTerminal()
}

func (o *Orchestrator) publishPhase(e *entry, t event.Type, phase *task.Phase) {
	o.publish(e, t, map[string]any{
		"phase":    phase.Number,
		"name":     phase.Name,
		"duration": phase.Duration.String(),
	})
}

// validatePlan rejects a plan where a subtask's dependsOn id is not
// present anywhere in the plan, per spec §4.1's `invalid_plan` edge case.
func validatePlan(phases []*task.Phase) error {
	ids := make(map[string]bool)
	for _, p := range phases {
		for _, st := range p.Subtasks {
			ids[st.ID] = true
		}
	}
	for _, p := range phases {
		for _, st := range p.Subtasks {
			for _, dep := range st.DependsOn {
				if !ids[dep] {
					return fmt.Errorf("subtask %q depends on unknown id %q", st.ID, dep)
				}
			}
		}
	}
	return nil
}

func uniqueTypes(subtasks []*task.Subtask) []agent.Type {
	seen := make(map[agent.Type]bool)
	var out []agent.Type
	for _, st := range subtasks {
		if !seen[st.AgentType] {
			seen[st.AgentType] = true
			out = append(out, st.AgentType)
		}
	}
	return out
}

func containsType(level []agent.Type, t agent.Type) bool {
	for _, v := range level {
		if v == t {
			return true
		}
	}
	return false
}

// backoffDuration implements spec §7's retry schedule: base 500ms,
// factor 2, jitter ±20%, capped at 30s.
func backoffDuration(attempt int) time.Duration {
	const (
		base    = 500 * time.Millisecond
		factor  = 2.0
		maxWait = 30 * time.Second
	)
	d := time.Duration(float64(base) * math.Pow(factor, float64(attempt)))
	if d > maxWait {
		d = maxWait
	}
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	return time.Duration(float64(d) * jitter)
}
