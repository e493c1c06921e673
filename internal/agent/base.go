package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/devswarm/devswarm/internal/event"
	"github.com/devswarm/devswarm/internal/logging"
	"github.com/devswarm/devswarm/internal/provider"
)

// Agent is the contract every agent type implements, per spec §4.3.
type Agent interface {
	Type() Type
	Capabilities() Capabilities
	Execute(ctx context.Context, task Task) (Result, error)
	Validate(result Result) Outcome
}

// PromptBuilder renders an agent's system and user prompts for a task.
type PromptBuilder func(task Task) (systemPrompt, userPrompt string)

// ResultParser turns a provider's raw generation into a domain Result.
// Agents that only need the raw text (most of them) can use
// DefaultResultParser.
type ResultParser func(gen provider.GenerateResult) Result

// BaseAgent implements the common Execute/Validate template shared by
// every concrete agent: build a prompt, call the provider, translate the
// response, and emit the agent.{started,progress,completed,failed}
// lifecycle events spec §4.3 requires of every implementation.
type BaseAgent struct {
	agentType    Type
	capabilities Capabilities
	provider     provider.Provider
	bus          *event.Bus
	logger       *logging.Logger
	buildPrompt  PromptBuilder
	parseResult  ResultParser
	model        string
	temperature  float64
	maxTokens    int
}

// NewBaseAgent constructs a BaseAgent. logger may be nil, in which case a
// NopLogger is used, matching the teacher's "logging is optional
// everywhere" posture.
func NewBaseAgent(t Type, caps Capabilities, p provider.Provider, bus *event.Bus, logger *logging.Logger, buildPrompt PromptBuilder, parseResult ResultParser, model string, temperature float64, maxTokens int) *BaseAgent {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if parseResult == nil {
		parseResult = DefaultResultParser
	}
	return &BaseAgent{
		agentType:    t,
		capabilities: caps,
		provider:     p,
		bus:          bus,
		logger:       logger.With("agent_type", string(t)),
		buildPrompt:  buildPrompt,
		parseResult:  parseResult,
		model:        model,
		temperature:  temperature,
		maxTokens:    maxTokens,
	}
}

func (a *BaseAgent) Type() Type                 { return a.agentType }
func (a *BaseAgent) Capabilities() Capabilities { return a.capabilities }

// Execute runs the agent's prompt through its provider, honoring ctx
// cancellation, and publishes the agent.* lifecycle events.
func (a *BaseAgent) Execute(ctx context.Context, task Task) (Result, error) {
	start := time.Now()
	a.publish(event.TypeAgentStarted, task, map[string]any{"agent_type": string(a.agentType)})
	a.publish(event.TypeAgentProgress, task, map[string]any{"agent_type": string(a.agentType), "progress": 0})

	select {
	case <-ctx.Done():
		result := Result{Success: false, Error: "cancelled", Duration: time.Since(start)}
		a.publish(event.TypeAgentFailed, task, map[string]any{"agent_type": string(a.agentType), "error": result.Error})
		return result, ctx.Err()
	default:
	}

	system, user := a.buildPrompt(task)
	gen, err := a.provider.Generate(ctx, user, provider.Options{
		Model:        a.model,
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
		SystemPrompt: system,
	})
	if err != nil {
		result := Result{Success: false, Error: err.Error(), Duration: time.Since(start)}
		a.publish(event.TypeAgentFailed, task, map[string]any{"agent_type": string(a.agentType), "error": result.Error})
		return result, nil
	}

	result := a.parseResult(gen)
	result.Duration = time.Since(start)
	result.Cost = a.provider.EstimateCost(gen.TokensIn, gen.TokensOut, gen.Model)

	a.publish(event.TypeAgentProgress, task, map[string]any{"agent_type": string(a.agentType), "progress": 100})
	if result.Success {
		a.publish(event.TypeAgentCompleted, task, map[string]any{"agent_type": string(a.agentType)})
	} else {
		a.publish(event.TypeAgentFailed, task, map[string]any{"agent_type": string(a.agentType), "error": result.Error})
	}
	return result, nil
}

// Validate applies the minimum rule of spec §4.3: success=false requires
// a non-empty error.
func (a *BaseAgent) Validate(result Result) Outcome {
	return Validate(result)
}

func (a *BaseAgent) publish(t event.Type, task Task, data map[string]any) {
	if a.bus == nil {
		return
	}
	data["subtask_id"] = task.SubtaskID
	a.bus.Publish(t, data, event.WithAggregate(task.TaskID, event.AggregateTask))
}

// DefaultResultParser treats the model's raw content as the agent's
// textual output, tolerantly extracting a JSON payload if present and
// otherwise falling back to plain text. finishReason=length is surfaced
// as a truncated, still-successful result per DESIGN.md's Open Question
// resolution; a maxTokens-doubling retry is the caller's (mode-driven)
// decision, not the parser's.
func DefaultResultParser(gen provider.GenerateResult) Result {
	if gen.FinishReason == provider.FinishError {
		return Result{Success: false, Error: "provider returned an error finish reason"}
	}

	output := map[string]any{"content": gen.Content}
	if raw, err := provider.ExtractJSON(gen.Content); err == nil {
		var parsed any
		if json.Unmarshal(raw, &parsed) == nil {
			output["parsed"] = parsed
		}
	}
	if gen.FinishReason == provider.FinishLength {
		output["truncated"] = true
	}

	return Result{
		Success:   true,
		Output:    output,
		TokensIn:  gen.TokensIn,
		TokensOut: gen.TokensOut,
	}
}
