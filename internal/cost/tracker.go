package cost

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Usage is the cumulative token/cost tally for one task.
type Usage struct {
	TokensIn  int
	TokensOut int
	Cost      float64
}

// Tracker accumulates per-task token/cost usage and exposes it through a
// private Prometheus registry, mirroring spec §3's "tokensUsed and cost are
// monotonically non-decreasing" invariant: Record only ever adds.
type Tracker struct {
	mu    sync.Mutex
	usage map[string]*Usage

	registry    *prometheus.Registry
	costTotal   *prometheus.CounterVec
	tokensTotal *prometheus.CounterVec
	capExceeded *prometheus.CounterVec
}

// NewTracker builds a Tracker with its own Prometheus registry, so tests
// and multiple orchestrator instances never collide on the global default
// registry.
func NewTracker() *Tracker {
	registry := prometheus.NewRegistry()

	costTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "devswarm_task_cost_usd_total",
		Help: "Cumulative USD cost billed to a task, by mode.",
	}, []string{"mode"})
	tokensTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "devswarm_task_tokens_total",
		Help: "Cumulative tokens billed to a task, by mode and direction.",
	}, []string{"mode", "direction"})
	capExceeded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "devswarm_cost_cap_exceeded_total",
		Help: "Count of tasks that hit their configured cost cap.",
	}, []string{"mode"})

	registry.MustRegister(costTotal, tokensTotal, capExceeded)

	return &Tracker{
		usage:       make(map[string]*Usage),
		registry:    registry,
		costTotal:   costTotal,
		tokensTotal: tokensTotal,
		capExceeded: capExceeded,
	}
}

// Registry exposes the Tracker's private Prometheus registry for scraping.
func (t *Tracker) Registry() *prometheus.Registry { return t.registry }

// Record adds a billable call's tokens/cost to taskID's running total and
// returns the new cumulative Usage. Per spec.md's Open Question
// resolution, every billable call increments the tally regardless of the
// subtask's eventual success (including retries). Cost is estimated from
// model's pricing table entry.
func (t *Tracker) Record(taskID, mode string, tokensIn, tokensOut int, model string) Usage {
	return t.recordDelta(taskID, mode, tokensIn, tokensOut, EstimateByModel(tokensIn, tokensOut, model))
}

// RecordCost is like Record but takes an already-computed cost delta,
// used by the orchestrator when the agent's provider call already priced
// itself against the actual model it ran (which may differ from the
// mode's nominal selectModel choice, e.g. a fallback after retries).
func (t *Tracker) RecordCost(taskID, mode string, tokensIn, tokensOut int, cost float64) Usage {
	return t.recordDelta(taskID, mode, tokensIn, tokensOut, cost)
}

func (t *Tracker) recordDelta(taskID, mode string, tokensIn, tokensOut int, delta float64) Usage {
	t.mu.Lock()
	u, ok := t.usage[taskID]
	if !ok {
		u = &Usage{}
		t.usage[taskID] = u
	}
	u.TokensIn += tokensIn
	u.TokensOut += tokensOut
	u.Cost = RoundHalfEven(u.Cost+delta, 6)
	snapshot := *u
	t.mu.Unlock()

	t.costTotal.WithLabelValues(mode).Add(delta)
	t.tokensTotal.WithLabelValues(mode, "in").Add(float64(tokensIn))
	t.tokensTotal.WithLabelValues(mode, "out").Add(float64(tokensOut))

	return snapshot
}

// Usage returns taskID's current cumulative usage.
func (t *Tracker) Usage(taskID string) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if u, ok := t.usage[taskID]; ok {
		return *u
	}
	return Usage{}
}

// ExceedsCap reports whether taskID's accumulated cost has reached cap.
// capSet distinguishes "no cap configured" from "cap explicitly set to
// 0": spec §8's boundary requires a cap of exactly 0 to fail the task at
// its first billable call, which a bare float comparison can't express
// since 0 also means "disabled" at the mode-baseline level.
func (t *Tracker) ExceedsCap(taskID, mode string, capSet bool, cap float64) bool {
	if !capSet {
		return false
	}
	u := t.Usage(taskID)
	exceeded := u.Cost >= cap
	if exceeded {
		t.capExceeded.WithLabelValues(mode).Inc()
	}
	return exceeded
}

// Reset drops taskID's tracked usage, used when retrying a task: spec §7
// states a retry copies no prior state (files, tokens, cost).
func (t *Tracker) Reset(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.usage, taskID)
}
