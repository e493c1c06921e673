// Package mode implements spec §4.2's Mode Manager: four baseline
// strategies (SPEED, QUALITY, AUTONOMY, COST) that turn a task description
// into a phase plan, an agent selection, a validation profile, and a model
// choice.
package mode

import (
	"strings"
	"sync"

	"github.com/devswarm/devswarm/internal/agent"
	"github.com/devswarm/devswarm/internal/config"
	"github.com/devswarm/devswarm/internal/errors"
	"github.com/devswarm/devswarm/internal/event"
	"github.com/devswarm/devswarm/internal/task"
)

// Complexity is the closed classification spec §4.1's Analyze step
// produces from a task description.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// ClassifyComplexity applies spec §4.1's closed keyword table.
func ClassifyComplexity(description string) Complexity {
	d := strings.ToLower(description)
	for _, kw := range []string{"refactor", "architecture", "migrate", "redesign"} {
		if strings.Contains(d, kw) {
			return ComplexityComplex
		}
	}
	for _, kw := range []string{"add", "create", "implement", "feature"} {
		if strings.Contains(d, kw) {
			return ComplexityMedium
		}
	}
	for _, kw := range []string{"fix", "update", "change", "modify", "rename", "remove"} {
		if strings.Contains(d, kw) {
			return ComplexitySimple
		}
	}
	return ComplexityMedium
}

// AgentSelection is the outcome of a strategy's selectAgents call.
type AgentSelection struct {
	Primary   agent.Type
	Secondary []agent.Type
	Skip      []agent.Type
}

// ValidationConfig is the outcome of a strategy's validationConfig call.
type ValidationConfig struct {
	Typecheck           bool
	Lint                bool
	Build               bool
	Tests               bool
	RequireReview       bool
	RequireSecurityScan bool
	MinCoverage         float64 // 0 means unset
}

// ModelChoice is the outcome of a strategy's selectModel call.
type ModelChoice struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Strategy is the per-mode policy object spec §4.2 requires.
type Strategy interface {
	Name() string
	Decompose(description string) ([]*task.Phase, error)
	SelectAgents(description string) AgentSelection
	ValidationConfig() ValidationConfig
	SelectModel(complexity Complexity) ModelChoice
	// ShouldContinue reports whether execution should proceed given the
	// task's cost so far. Strategies without a cost-driven cutoff always
	// return true.
	ShouldContinue(currentCost float64) bool
}

// Manager holds the four baseline strategies and mediates mode switches
// per spec §4.2.
type Manager struct {
	mu         sync.Mutex
	strategies map[string]Strategy
	current    string
	switching  bool
	bus        *event.Bus
}

// NewManager builds a Manager from cfg's mode baselines, constructing the
// four concrete strategies keyed by name.
func NewManager(cfg *config.Config, bus *event.Bus) *Manager {
	m := &Manager{
		strategies: make(map[string]Strategy, len(cfg.Modes)),
		current:    cfg.DefaultMode,
		bus:        bus,
	}
	for name, mc := range cfg.Modes {
		m.strategies[name] = newStrategy(name, mc)
	}
	return m
}

// newStrategy builds the concrete Strategy for a mode name's baseline
// config.
func newStrategy(name string, mc config.ModeConfig) Strategy {
	switch name {
	case "SPEED":
		return &speedStrategy{cfg: mc}
	case "QUALITY":
		return &qualityStrategy{cfg: mc}
	case "AUTONOMY":
		return &autonomyStrategy{cfg: mc}
	case "COST":
		return &costStrategy{cfg: mc}
	default:
		return &speedStrategy{cfg: mc}
	}
}

// Current returns the active mode name and its strategy.
func (m *Manager) Current() (string, Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.strategies[m.current]
}

// Get returns the strategy for a named mode, used by in-flight tasks that
// must keep running under the mode they started with even after a switch.
func (m *Manager) Get(name string) (Strategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.strategies[name]
	if !ok {
		return nil, errors.NewNotFoundError("mode", name)
	}
	return s, nil
}

// SwitchMode changes the active mode. Rejects with `conflict` if a switch
// is already in progress; publishes mode.switching then mode.switched.
// Per spec §4.1, tasks already running continue under their original
// mode; only tasks submitted after this call observe the new strategy.
func (m *Manager) SwitchMode(target string) error {
	m.mu.Lock()
	if m.switching {
		m.mu.Unlock()
		return errors.NewConflictError("mode switch already in progress")
	}
	if _, ok := m.strategies[target]; !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("mode", target)
	}
	m.switching = true
	from := m.current
	m.mu.Unlock()

	m.publish(event.TypeModeSwitching, map[string]any{"from": from, "to": target})

	m.mu.Lock()
	m.current = target
	m.switching = false
	m.mu.Unlock()

	m.publish(event.TypeModeSwitched, map[string]any{"from": from, "to": target})
	return nil
}

// UpdateConfig merges a partial mode-baseline patch, reinitializes that
// mode's strategy, and publishes mode.config.updated.
func (m *Manager) UpdateConfig(name string, patch config.ModeConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.strategies[name]; !ok {
		return errors.NewNotFoundError("mode", name)
	}
	m.strategies[name] = newStrategy(name, patch)
	m.publish(event.TypeModeConfigUpdated, map[string]any{"mode": name})
	return nil
}

func (m *Manager) publish(t event.Type, data map[string]any) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(t, data, event.WithAggregate("modes", event.AggregateMode))
}

// newPhase is a small constructor shared by every strategy's Decompose.
func newPhase(number int, name string, parallel, required bool, subtasks ...*task.Subtask) *task.Phase {
	return &task.Phase{
		Number:   number,
		Name:     name,
		Parallel: parallel,
		Required: required,
		Status:   task.PhasePending,
		Subtasks: subtasks,
	}
}

func newSubtask(id, description string, agentType agent.Type, dependsOn ...string) *task.Subtask {
	return &task.Subtask{
		ID:          id,
		Description: description,
		AgentType:   agentType,
		Status:      task.SubtaskPending,
		DependsOn:   dependsOn,
	}
}
