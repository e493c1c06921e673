// Package agent defines the Agent contract executed by the orchestrator's
// phase pipeline: a closed set of agent types, the task/result shapes they
// exchange, and the validation rule every result must satisfy.
package agent

import (
	"time"
)

// Type is a closed tag identifying what kind of subtask an agent performs.
type Type string

const (
	TypeConcept   Type = "concept"
	TypeArchitect Type = "architect"
	TypeImplement Type = "implement"
	TypeTest      Type = "test"
	TypeReview    Type = "review"
	TypeOptimize  Type = "optimize"
	TypeDocs      Type = "docs"
	TypeDeploy    Type = "deploy"
	TypeSecurity  Type = "security"
	TypeRefactor  Type = "refactor"
	TypeDebug     Type = "debug"
	TypeMigrate   Type = "migrate"

	// Language experts: narrower implement variants selected when a
	// description names a specific stack. Not used in dependency
	// resolution differently from TypeImplement.
	TypeGoExpert         Type = "go_expert"
	TypePythonExpert     Type = "python_expert"
	TypeTypeScriptExpert Type = "typescript_expert"
)

// AllTypes returns the closed set of valid agent types, in a stable order.
func AllTypes() []Type {
	return []Type{
		TypeConcept, TypeArchitect, TypeImplement, TypeTest, TypeReview,
		TypeOptimize, TypeDocs, TypeDeploy, TypeSecurity, TypeRefactor,
		TypeDebug, TypeMigrate, TypeGoExpert, TypePythonExpert, TypeTypeScriptExpert,
	}
}

// IsValid reports whether t belongs to the closed set of agent types.
func (t Type) IsValid() bool {
	for _, v := range AllTypes() {
		if v == t {
			return true
		}
	}
	return false
}

func (t Type) String() string { return string(t) }

// Capabilities describes what an agent implementation can do, surfaced to
// the registry and to CLI introspection (`mode info`, `task get`).
type Capabilities struct {
	Name                string
	Description         string
	Capabilities        []string
	Inputs              []string
	Outputs             []string
	RequiredContext     []string
	EstimatedDurationMs int64
}

// Task is the unit of work handed to an Agent's Execute method. Context
// carries prior-phase results keyed by "<agentType>Result", per spec §4.1's
// fixed-schema enrichment contract.
type Task struct {
	TaskID      string
	SubtaskID   string
	Description string
	AgentType   Type
	Input       map[string]any
	Context     map[string]any
	Timeout     time.Duration
}

// Result is what an Agent's Execute method returns. Success=false requires
// a non-empty Error; Success=true must leave Error empty.
type Result struct {
	Success       bool
	Error         string
	Suggestions   []string
	Output        map[string]any
	ModifiedFiles []string
	Duration      time.Duration
	TokensIn      int
	TokensOut     int
	Cost          float64
}

// Outcome is the result of validating a Result.
type Outcome struct {
	OK     bool
	Errors []string
}

// Validate applies the minimum rule every agent must honor regardless of
// domain logic: a failed result must explain itself.
func Validate(r Result) Outcome {
	if !r.Success && r.Error == "" {
		return Outcome{OK: false, Errors: []string{"success=false requires a non-empty error"}}
	}
	if r.Success && r.Error != "" {
		return Outcome{OK: false, Errors: []string{"success=true must not carry an error"}}
	}
	return Outcome{OK: true}
}
