// Package registry implements spec §4.3's Agent Registry: a closed
// dependency map between agent types, topological execution-level
// ordering, and bounded-concurrency execution with prior-phase-result
// enrichment.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/devswarm/devswarm/internal/agent"
	"github.com/devswarm/devswarm/internal/errors"
)

// dependencies is the closed mapping from spec §4.3: a type's listed
// dependencies must have produced a result before it can run.
var dependencies = map[agent.Type][]agent.Type{
	agent.TypeArchitect: {agent.TypeConcept},
	agent.TypeImplement: {agent.TypeArchitect},
	agent.TypeTest:      {agent.TypeImplement},
	agent.TypeReview:    {agent.TypeImplement},
	agent.TypeSecurity:  {agent.TypeImplement},
	agent.TypeDocs:      {agent.TypeImplement},
	agent.TypeOptimize:  {agent.TypeImplement, agent.TypeTest},
	agent.TypeDeploy:    {agent.TypeTest, agent.TypeReview},
}

// Dependencies returns the closed set of types t depends on. Types absent
// from the map (concept, refactor, debug, migrate, the language experts)
// have no dependencies.
func Dependencies(t agent.Type) []agent.Type {
	return dependencies[t]
}

// DefaultConcurrencyCap bounds how many agents may be "active" at once
// across the registry, matching spec §8's "count of agents in running
// status ≤ registry cap" invariant.
const DefaultConcurrencyCap = 8

// Registry owns agent instances and coordinates their execution per spec
// §4.3/§5: the active-agents set is mutated only under mu, and an
// agent type is never reentrant while active.
type Registry struct {
	mu     sync.Mutex
	cond   *sync.Cond
	agents map[agent.Type]agent.Agent
	active map[agent.Type]bool
	cap    int
}

// New builds a Registry with the given concurrency cap (0 uses
// DefaultConcurrencyCap).
func New(cap int) *Registry {
	if cap <= 0 {
		cap = DefaultConcurrencyCap
	}
	r := &Registry{
		agents: make(map[agent.Type]agent.Agent),
		active: make(map[agent.Type]bool),
		cap:    cap,
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Register adds an agent to the registry, rejecting duplicates.
func (r *Registry) Register(a agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.Type()]; exists {
		return errors.NewRegistryError(fmt.Sprintf("agent type %q is already registered", a.Type()), nil).
			WithClass(errors.ClassConflict)
	}
	r.agents[a.Type()] = a
	return nil
}

// Unregister removes an agent, rejecting the call while that type is
// active.
func (r *Registry) Unregister(t agent.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active[t] {
		return errors.NewRegistryError(fmt.Sprintf("agent type %q is active", t), nil).
			WithClass(errors.ClassConflict)
	}
	delete(r.agents, t)
	return nil
}

func (r *Registry) get(t agent.Type) (agent.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[t]
	return a, ok
}

// ExecutionOrder computes topological execution levels over required's
// transitive dependencies: every type in level i depends only on types in
// levels < i. Raises `unresolvable` on a cycle or a dependency missing
// from required's closure.
func ExecutionOrder(required []agent.Type) ([][]agent.Type, error) {
	// Close over dependencies so a required type's deps are always present,
	// even if the caller only named the "leaf" types.
	closure := make(map[agent.Type]bool)
	var addClosure func(t agent.Type)
	addClosure = func(t agent.Type) {
		if closure[t] {
			return
		}
		closure[t] = true
		for _, dep := range Dependencies(t) {
			addClosure(dep)
		}
	}
	for _, t := range required {
		addClosure(t)
	}

	remaining := make(map[agent.Type]bool, len(closure))
	for t := range closure {
		remaining[t] = true
	}

	var levels [][]agent.Type
	for len(remaining) > 0 {
		var level []agent.Type
		for t := range remaining {
			ready := true
			for _, dep := range Dependencies(t) {
				if remaining[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, t)
			}
		}
		if len(level) == 0 {
			return nil, errors.NewRegistryError("cyclic or unresolvable agent dependency", nil).
				WithClass(errors.ClassUnresolvable)
		}
		for _, t := range level {
			delete(remaining, t)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// resultKey is the fixed-schema context key an upstream agent type's
// result is injected under, per spec §9.
func resultKey(t agent.Type) string { return string(t) + "Result" }

// enrich merges priorResults into task.Context using the fixed
// "<agentType>Result" keys.
func enrich(task agent.Task, priorResults map[agent.Type]agent.Result) agent.Task {
	ctx := make(map[string]any, len(task.Context)+len(priorResults))
	for k, v := range task.Context {
		ctx[k] = v
	}
	for t, r := range priorResults {
		ctx[resultKey(t)] = r.Output
	}
	task.Context = ctx
	return task
}

// ExecuteWithDependencies runs t's agent, rejecting the call if the
// concurrency cap is reached, enriching the task with priorResults, then
// running execute followed by validate. A validate failure downgrades the
// result to Success=false with a joined error message, per spec §4.3.
func (r *Registry) ExecuteWithDependencies(ctx context.Context, t agent.Type, task agent.Task, priorResults map[agent.Type]agent.Result) (agent.Result, error) {
	a, ok := r.get(t)
	if !ok {
		return agent.Result{}, errors.NewRegistryError(fmt.Sprintf("no agent registered for type %q", t), nil).
			WithClass(errors.ClassNotFound)
	}

	r.mu.Lock()
	if len(r.active) >= r.cap {
		r.mu.Unlock()
		return agent.Result{}, errors.NewRegistryError("concurrency cap reached", nil).
			WithClass(errors.ClassConflict)
	}
	if r.active[t] {
		r.mu.Unlock()
		return agent.Result{}, errors.NewRegistryError(fmt.Sprintf("agent type %q is not reentrant", t), nil).
			WithClass(errors.ClassConflict)
	}
	r.active[t] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.active, t)
		r.cond.Broadcast()
		r.mu.Unlock()
	}()

	result, err := a.Execute(ctx, enrich(task, priorResults))
	if err != nil {
		return result, err
	}

	if outcome := a.Validate(result); !outcome.OK {
		joined := ""
		for i, e := range outcome.Errors {
			if i > 0 {
				joined += "; "
			}
			joined += e
		}
		result.Success = false
		result.Error = "validation failed: " + joined
	}
	return result, nil
}

// ExecuteParallel runs every type in types concurrently, bounded by the
// registry's remaining capacity. Types that find no free slot are
// returned as unresolved errors in the result map rather than blocking
// indefinitely, per spec §4.3's "never blocks above the cap" contract.
func (r *Registry) ExecuteParallel(ctx context.Context, types []agent.Type, task agent.Task, priorResults map[agent.Type]agent.Result) map[agent.Type]agent.Result {
	results := make(map[agent.Type]agent.Result, len(types))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, t := range types {
		wg.Add(1)
		go func(t agent.Type) {
			defer wg.Done()
			result, err := r.ExecuteWithDependencies(ctx, t, task, priorResults)
			if err != nil && result.Error == "" {
				result = agent.Result{Success: false, Error: err.Error()}
			}
			mu.Lock()
			results[t] = result
			mu.Unlock()
		}(t)
	}
	wg.Wait()
	return results
}

// ActiveCount returns how many agent types are currently executing.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
