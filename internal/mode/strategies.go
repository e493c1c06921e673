package mode

import (
	"strings"

	"github.com/devswarm/devswarm/internal/agent"
	"github.com/devswarm/devswarm/internal/config"
	"github.com/devswarm/devswarm/internal/task"
)

func mentionsUI(description string) bool {
	d := strings.ToLower(description)
	for _, kw := range []string{"ui", "translation", "multilingual"} {
		if strings.Contains(d, kw) {
			return true
		}
	}
	return false
}

func modelChoice(m config.ModelDescriptor) ModelChoice {
	return ModelChoice{Provider: m.Provider, Model: m.ModelID, Temperature: m.Temperature, MaxTokens: m.MaxTokens}
}

// speedStrategy: one parallel implement phase, required, plus an optional
// verify phase. Validation is build-only; the primary model serves every
// complexity.
type speedStrategy struct{ cfg config.ModeConfig }

func (s *speedStrategy) Name() string { return "SPEED" }

func (s *speedStrategy) Decompose(description string) ([]*task.Phase, error) {
	return []*task.Phase{
		newPhase(1, "implement", true, true, newSubtask("s1", description, agent.TypeImplement)),
		newPhase(2, "verify", false, false, newSubtask("s2", "verify the change builds", agent.TypeTest)),
	}, nil
}

func (s *speedStrategy) SelectAgents(description string) AgentSelection {
	return AgentSelection{Primary: agent.TypeImplement, Secondary: []agent.Type{agent.TypeTest}}
}

func (s *speedStrategy) ValidationConfig() ValidationConfig {
	return ValidationConfig{Build: true}
}

func (s *speedStrategy) SelectModel(Complexity) ModelChoice {
	return modelChoice(s.cfg.PrimaryModel)
}

func (s *speedStrategy) ShouldContinue(currentCost float64) bool { return true }

// qualityStrategy: concept→architect, then parallel implement (+
// translations when the description calls for it), then parallel
// test/review/security, then docs. Every phase is required.
type qualityStrategy struct{ cfg config.ModeConfig }

func (s *qualityStrategy) Name() string { return "QUALITY" }

func (s *qualityStrategy) Decompose(description string) ([]*task.Phase, error) {
	phase1 := newPhase(1, "concept_architect", false, true,
		newSubtask("concept", description, agent.TypeConcept),
		newSubtask("architect", description, agent.TypeArchitect, "concept"),
	)

	implementSubtasks := []*task.Subtask{newSubtask("implement", description, agent.TypeImplement, "architect")}
	if mentionsUI(description) {
		implementSubtasks = append(implementSubtasks, newSubtask("translations", description, agent.TypeImplement, "architect"))
	}
	phase2 := newPhase(2, "implement", true, true, implementSubtasks...)

	phase3 := newPhase(3, "validate", true, true,
		newSubtask("test", description, agent.TypeTest, "implement"),
		newSubtask("review", description, agent.TypeReview, "implement"),
		newSubtask("security", description, agent.TypeSecurity, "implement"),
	)

	phase4 := newPhase(4, "docs", false, true, newSubtask("docs", description, agent.TypeDocs, "implement"))

	return []*task.Phase{phase1, phase2, phase3, phase4}, nil
}

func (s *qualityStrategy) SelectAgents(description string) AgentSelection {
	secondary := []agent.Type{agent.TypeArchitect, agent.TypeTest, agent.TypeReview, agent.TypeSecurity, agent.TypeDocs}
	return AgentSelection{Primary: agent.TypeConcept, Secondary: secondary}
}

func (s *qualityStrategy) ValidationConfig() ValidationConfig {
	return ValidationConfig{
		Typecheck: true, Lint: true, Build: true, Tests: true,
		RequireReview: true, RequireSecurityScan: true, MinCoverage: 0.80,
	}
}

func (s *qualityStrategy) SelectModel(Complexity) ModelChoice {
	return modelChoice(s.cfg.PrimaryModel)
}

func (s *qualityStrategy) ShouldContinue(currentCost float64) bool { return true }

// autonomyStrategy: analysis, architecture, implementation (parallel),
// testing, review+security (parallel), optimization (optional), docs,
// deploy.
type autonomyStrategy struct{ cfg config.ModeConfig }

func (s *autonomyStrategy) Name() string { return "AUTONOMY" }

func (s *autonomyStrategy) Decompose(description string) ([]*task.Phase, error) {
	return []*task.Phase{
		newPhase(1, "analysis", false, true, newSubtask("concept", description, agent.TypeConcept)),
		newPhase(2, "architecture", false, true, newSubtask("architect", description, agent.TypeArchitect, "concept")),
		newPhase(3, "implementation", true, true, newSubtask("implement", description, agent.TypeImplement, "architect")),
		newPhase(4, "testing", false, true, newSubtask("test", description, agent.TypeTest, "implement")),
		newPhase(5, "review_security", true, true,
			newSubtask("review", description, agent.TypeReview, "implement"),
			newSubtask("security", description, agent.TypeSecurity, "implement"),
		),
		newPhase(6, "optimization", false, false, newSubtask("optimize", description, agent.TypeOptimize, "implement", "test")),
		newPhase(7, "docs", false, true, newSubtask("docs", description, agent.TypeDocs, "implement")),
		newPhase(8, "deploy", false, true, newSubtask("deploy", description, agent.TypeDeploy, "test", "review")),
	}, nil
}

func (s *autonomyStrategy) SelectAgents(description string) AgentSelection {
	return AgentSelection{
		Primary:   agent.TypeArchitect,
		Secondary: []agent.Type{agent.TypeImplement, agent.TypeTest, agent.TypeReview, agent.TypeSecurity, agent.TypeDocs, agent.TypeDeploy},
		Skip:      []agent.Type{agent.TypeOptimize},
	}
}

func (s *autonomyStrategy) ValidationConfig() ValidationConfig {
	return ValidationConfig{
		Typecheck: true, Lint: true, Build: true, Tests: true,
		RequireReview: true, RequireSecurityScan: true,
	}
}

// SelectModel uses the primary model for complex work and the fallback
// model (Bedrock in the default baseline) for simpler work;
// PreferLocalModel does not change the choice.
func (s *autonomyStrategy) SelectModel(c Complexity) ModelChoice {
	if c == ComplexityComplex {
		return modelChoice(s.cfg.PrimaryModel)
	}
	if s.cfg.PreferLocalModel {
		return modelChoice(s.cfg.FallbackModel)
	}
	return modelChoice(s.cfg.FallbackModel)
}

func (s *autonomyStrategy) ShouldContinue(currentCost float64) bool {
	if !s.cfg.HasCostCap() {
		return true
	}
	return currentCost < s.cfg.CostCapUSD
}

// costStrategy: implement, then optional test; build-only validation;
// local models for simple/medium complexity, cheapest cloud model for
// complex, and a hard stop once currentCost reaches the mode's cap.
type costStrategy struct{ cfg config.ModeConfig }

func (s *costStrategy) Name() string { return "COST" }

func (s *costStrategy) Decompose(description string) ([]*task.Phase, error) {
	return []*task.Phase{
		newPhase(1, "implement", false, true, newSubtask("implement", description, agent.TypeImplement)),
		newPhase(2, "test", false, false, newSubtask("test", description, agent.TypeTest, "implement")),
	}, nil
}

func (s *costStrategy) SelectAgents(description string) AgentSelection {
	return AgentSelection{Primary: agent.TypeImplement, Secondary: []agent.Type{agent.TypeTest}}
}

func (s *costStrategy) ValidationConfig() ValidationConfig {
	return ValidationConfig{Build: true}
}

func (s *costStrategy) SelectModel(c Complexity) ModelChoice {
	if c == ComplexityComplex {
		return modelChoice(s.cfg.PrimaryModel)
	}
	return modelChoice(s.cfg.FallbackModel)
}

func (s *costStrategy) ShouldContinue(currentCost float64) bool {
	if !s.cfg.HasCostCap() {
		return true
	}
	return currentCost < s.cfg.CostCapUSD
}
