package agent

import (
	"fmt"
	"strings"

	"github.com/devswarm/devswarm/internal/event"
	"github.com/devswarm/devswarm/internal/logging"
	"github.com/devswarm/devswarm/internal/provider"
)

// spec describes the static, type-specific parts of an agent: its
// capabilities and how it turns a Task into a prompt. Every type in
// AllTypes() has an entry; New fails for anything outside the closed set.
type spec struct {
	capabilities Capabilities
	systemPrompt string
}

var specs = map[Type]spec{
	TypeConcept: {
		capabilities: Capabilities{
			Name: "concept", Description: "Clarifies intent and constraints before design begins.",
			Capabilities: []string{"requirements analysis"}, Outputs: []string{"concept brief"},
			EstimatedDurationMs: 15_000,
		},
		systemPrompt: "You are a software concept analyst. Given a task description, produce a concise brief covering goals, constraints, and open questions. Respond with a JSON object.",
	},
	TypeArchitect: {
		capabilities: Capabilities{
			Name: "architect", Description: "Designs the technical approach for a task.",
			Capabilities: []string{"system design"}, RequiredContext: []string{"conceptResult"},
			Outputs: []string{"architecture plan"}, EstimatedDurationMs: 30_000,
		},
		systemPrompt: "You are a software architect. Given a task description and any prior concept brief, produce a technical design covering components, interfaces, and data flow. Respond with a JSON object.",
	},
	TypeImplement: {
		capabilities: Capabilities{
			Name: "implement", Description: "Writes the code that satisfies the task.",
			Capabilities: []string{"code generation"}, Outputs: []string{"modified files", "diff"},
			EstimatedDurationMs: 60_000,
		},
		systemPrompt: "You are a software engineer. Implement the requested change, listing every file you modified. Respond with a JSON object containing a \"files\" array.",
	},
	TypeTest: {
		capabilities: Capabilities{
			Name: "test", Description: "Writes and evaluates tests for the implementation.",
			Capabilities: []string{"test authoring"}, RequiredContext: []string{"implementResult"},
			Outputs: []string{"test results"}, EstimatedDurationMs: 45_000,
		},
		systemPrompt: "You are a test engineer. Given an implementation, write tests covering its behavior and edge cases. Respond with a JSON object.",
	},
	TypeReview: {
		capabilities: Capabilities{
			Name: "review", Description: "Reviews the implementation for correctness and style.",
			Capabilities: []string{"code review"}, RequiredContext: []string{"implementResult"},
			Outputs: []string{"review comments"}, EstimatedDurationMs: 30_000,
		},
		systemPrompt: "You are a senior code reviewer. Review the implementation for correctness, readability, and adherence to the task description. Respond with a JSON object containing an \"issues\" array.",
	},
	TypeOptimize: {
		capabilities: Capabilities{
			Name: "optimize", Description: "Improves performance of the implementation.",
			Capabilities: []string{"performance tuning"}, RequiredContext: []string{"implementResult", "testResult"},
			Outputs: []string{"optimized files"}, EstimatedDurationMs: 45_000,
		},
		systemPrompt: "You are a performance engineer. Identify and apply optimizations to the implementation without changing observable behavior. Respond with a JSON object.",
	},
	TypeDocs: {
		capabilities: Capabilities{
			Name: "docs", Description: "Writes documentation for the implementation.",
			Capabilities: []string{"technical writing"}, RequiredContext: []string{"implementResult"},
			Outputs: []string{"documentation"}, EstimatedDurationMs: 20_000,
		},
		systemPrompt: "You are a technical writer. Document the change: what it does and how to use it. Respond with a JSON object.",
	},
	TypeDeploy: {
		capabilities: Capabilities{
			Name: "deploy", Description: "Prepares the implementation for release.",
			Capabilities: []string{"release engineering"}, RequiredContext: []string{"testResult", "reviewResult"},
			Outputs: []string{"deployment plan"}, EstimatedDurationMs: 20_000,
		},
		systemPrompt: "You are a release engineer. Given a tested, reviewed implementation, produce a deployment plan and rollback strategy. Respond with a JSON object.",
	},
	TypeSecurity: {
		capabilities: Capabilities{
			Name: "security", Description: "Scans the implementation for security issues.",
			Capabilities: []string{"security review"}, RequiredContext: []string{"implementResult"},
			Outputs: []string{"security findings"}, EstimatedDurationMs: 30_000,
		},
		systemPrompt: "You are a security engineer. Scan the implementation for vulnerabilities (injection, auth, secrets, unsafe deserialization). Respond with a JSON object containing a \"findings\" array.",
	},
	TypeRefactor: {
		capabilities: Capabilities{
			Name: "refactor", Description: "Restructures code without changing behavior.",
			Capabilities: []string{"refactoring"}, Outputs: []string{"modified files"}, EstimatedDurationMs: 40_000,
		},
		systemPrompt: "You are a software engineer performing a refactor. Improve structure without changing observable behavior. Respond with a JSON object.",
	},
	TypeDebug: {
		capabilities: Capabilities{
			Name: "debug", Description: "Diagnoses and fixes a defect.",
			Capabilities: []string{"debugging"}, Outputs: []string{"root cause", "fix"}, EstimatedDurationMs: 40_000,
		},
		systemPrompt: "You are a debugging specialist. Diagnose the root cause described in the task and propose a fix. Respond with a JSON object.",
	},
	TypeMigrate: {
		capabilities: Capabilities{
			Name: "migrate", Description: "Migrates code or data to a new form.",
			Capabilities: []string{"migration"}, Outputs: []string{"migration steps"}, EstimatedDurationMs: 50_000,
		},
		systemPrompt: "You are a migration engineer. Plan and perform the described migration, noting any breaking changes. Respond with a JSON object.",
	},
	TypeGoExpert: {
		capabilities: Capabilities{
			Name: "go_expert", Description: "Implements Go-specific changes.",
			Capabilities: []string{"go implementation"}, Outputs: []string{"modified files"}, EstimatedDurationMs: 60_000,
		},
		systemPrompt: "You are an expert Go engineer. Implement the requested change idiomatically for Go. Respond with a JSON object.",
	},
	TypePythonExpert: {
		capabilities: Capabilities{
			Name: "python_expert", Description: "Implements Python-specific changes.",
			Capabilities: []string{"python implementation"}, Outputs: []string{"modified files"}, EstimatedDurationMs: 60_000,
		},
		systemPrompt: "You are an expert Python engineer. Implement the requested change idiomatically for Python. Respond with a JSON object.",
	},
	TypeTypeScriptExpert: {
		capabilities: Capabilities{
			Name: "typescript_expert", Description: "Implements TypeScript-specific changes.",
			Capabilities: []string{"typescript implementation"}, Outputs: []string{"modified files"}, EstimatedDurationMs: 60_000,
		},
		systemPrompt: "You are an expert TypeScript engineer. Implement the requested change idiomatically for TypeScript. Respond with a JSON object.",
	},
}

// buildPrompt renders the user prompt for any agent type: the task
// description plus every prior-phase result injected under the fixed
// "<agentType>Result" keys spec §9 specifies.
func buildPrompt(task Task) (string, string) {
	s, ok := specs[task.AgentType]
	if !ok {
		return "", task.Description
	}

	var sb strings.Builder
	sb.WriteString(task.Description)
	if len(task.Context) > 0 {
		sb.WriteString("\n\nContext from prior phases:\n")
		for k, v := range task.Context {
			fmt.Fprintf(&sb, "- %s: %v\n", k, v)
		}
	}
	return s.systemPrompt, sb.String()
}

// New builds the agent implementation for t, wired to p/bus/logger and the
// model parameters selected by the caller's mode strategy.
func New(t Type, p provider.Provider, bus *event.Bus, logger *logging.Logger, model string, temperature float64, maxTokens int) (Agent, error) {
	s, ok := specs[t]
	if !ok {
		return nil, fmt.Errorf("agent: unknown agent type %q", t)
	}
	return NewBaseAgent(t, s.capabilities, p, bus, logger, buildPrompt, DefaultResultParser, model, temperature, maxTokens), nil
}
