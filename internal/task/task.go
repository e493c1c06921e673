// Package task holds the Task/Phase/Subtask data model shared by the mode
// manager (which produces phase plans) and the orchestrator (which
// executes them), per spec §3.
package task

import (
	"time"

	"github.com/devswarm/devswarm/internal/agent"
)

// Status is the closed set of lifecycle states a Task passes through.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnalyzing Status = "analyzing"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string { return string(s) }

// IsTerminal reports whether s is an end state the task never leaves.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// PhaseStatus is the closed set of lifecycle states a Phase passes through.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
	PhaseSkipped   PhaseStatus = "skipped"
)

func (s PhaseStatus) IsTerminal() bool {
	switch s {
	case PhaseCompleted, PhaseFailed, PhaseSkipped:
		return true
	default:
		return false
	}
}

// SubtaskStatus is the closed set of lifecycle states a Subtask passes
// through.
type SubtaskStatus string

const (
	SubtaskPending   SubtaskStatus = "pending"
	SubtaskRunning   SubtaskStatus = "running"
	SubtaskCompleted SubtaskStatus = "completed"
	SubtaskFailed    SubtaskStatus = "failed"
)

// Error is one terminal-failure entry recorded on a Task, per spec §7's
// "errors[] carrying one entry per terminal failure".
type Error struct {
	Type    string
	Message string
	Phase   int
	Agent   string
}

// Subtask (PhaseTask in spec.md's terms) is one unit of agent work within
// a Phase. DependsOn names subtask ids from strictly earlier phases or the
// same phase that must complete successfully first.
type Subtask struct {
	ID          string
	Description string
	AgentType   agent.Type
	Status      SubtaskStatus
	DependsOn   []string
	Input       map[string]any
	Output      *agent.Result
}

// Phase is an ordinal group of subtasks run together, in parallel or in
// sequence, within a Task.
type Phase struct {
	Number   int
	Name     string
	Parallel bool
	Required bool
	Status   PhaseStatus
	Subtasks []*Subtask
	Duration time.Duration
}

// AutoComplete applies spec §4.1's edge case: an empty subtask list
// auto-completes the phase.
func (p *Phase) AutoComplete() bool {
	if len(p.Subtasks) == 0 {
		p.Status = PhaseCompleted
		return true
	}
	return false
}

// TokenUsage is the cumulative input/output token count for a Task.
type TokenUsage struct {
	In  int
	Out int
}

// Task is the top-level unit of work submitted to the orchestrator.
type Task struct {
	ID            string
	Description   string
	ProjectID     string
	Status        Status
	Priority      int
	Mode          string
	Phases        []*Phase
	CurrentPhase  int
	Results       map[int]map[agent.Type]agent.Result
	FilesModified []string
	TokensUsed    TokenUsage
	Cost          float64
	Errors        []Error
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
}

// AddResult records phase p's result for agentType, creating the
// phase-level map on first use.
func (t *Task) AddResult(phase int, agentType agent.Type, result agent.Result) {
	if t.Results == nil {
		t.Results = make(map[int]map[agent.Type]agent.Result)
	}
	if t.Results[phase] == nil {
		t.Results[phase] = make(map[agent.Type]agent.Result)
	}
	t.Results[phase][agentType] = result
}

// AddFiles merges modified-file paths into the task's deduplicated file
// set, per spec §8's "sum over phases of collected file lists =
// task.filesModified (as sets)" invariant.
func (t *Task) AddFiles(paths []string) {
	seen := make(map[string]bool, len(t.FilesModified))
	for _, p := range t.FilesModified {
		seen[p] = true
	}
	for _, p := range paths {
		if !seen[p] {
			t.FilesModified = append(t.FilesModified, p)
			seen[p] = true
		}
	}
}

// AddUsage accumulates token/cost deltas. Per spec §3, both fields are
// monotonically non-decreasing, so AddUsage never accepts negative deltas.
func (t *Task) AddUsage(tokensIn, tokensOut int, cost float64) {
	if tokensIn > 0 {
		t.TokensUsed.In += tokensIn
	}
	if tokensOut > 0 {
		t.TokensUsed.Out += tokensOut
	}
	if cost > 0 {
		t.Cost += cost
	}
}

// IsTerminal reports whether the task has reached an end state.
func (t *Task) IsTerminal() bool { return t.Status.IsTerminal() }
