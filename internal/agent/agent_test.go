package agent

import (
	"context"
	"testing"

	"github.com/devswarm/devswarm/internal/event"
	"github.com/devswarm/devswarm/internal/provider"
)

type fakeProvider struct {
	result provider.GenerateResult
	err    error
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts provider.Options) (provider.GenerateResult, error) {
	return f.result, f.err
}
func (f *fakeProvider) GenerateStream(ctx context.Context, prompt string, opts provider.Options) (<-chan provider.StreamChunk, error) {
	ch := make(chan provider.StreamChunk)
	close(ch)
	return ch, nil
}
func (f *fakeProvider) ListModels() []provider.ModelInfo { return nil }
func (f *fakeProvider) HealthCheck(ctx context.Context) provider.HealthStatus {
	return provider.HealthStatus{Healthy: true}
}
func (f *fakeProvider) EstimateCost(tokensIn, tokensOut int, model string) float64 { return 0.01 }

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		r    Result
		ok   bool
	}{
		{"success with no error", Result{Success: true}, true},
		{"failure with error", Result{Success: false, Error: "boom"}, true},
		{"failure missing error", Result{Success: false}, false},
		{"success with error", Result{Success: true, Error: "oops"}, false},
	}
	for _, tt := range tests {
		if got := Validate(tt.r).OK; got != tt.ok {
			t.Errorf("%s: Validate().OK = %v, want %v", tt.name, got, tt.ok)
		}
	}
}

func TestNew_UnknownType(t *testing.T) {
	if _, err := New(Type("bogus"), &fakeProvider{}, nil, nil, "model", 0.5, 100); err == nil {
		t.Error("expected an error for an unknown agent type")
	}
}

func TestBaseAgent_Execute_Success(t *testing.T) {
	fp := &fakeProvider{result: provider.GenerateResult{
		Content: "```json\n{\"files\":[\"a.go\"]}\n```", FinishReason: provider.FinishStop,
		TokensIn: 10, TokensOut: 20,
	}}
	a, err := New(TypeImplement, fp, event.NewBus(), nil, "claude-haiku-4-20250514", 0.2, 4096)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := a.Execute(context.Background(), Task{TaskID: "t1", SubtaskID: "s1", AgentType: TypeImplement, Description: "fix typo"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Execute() result.Success = false, error = %q", result.Error)
	}
	if result.TokensIn != 10 || result.TokensOut != 20 {
		t.Errorf("unexpected token counts: %+v", result)
	}
	outcome := a.Validate(result)
	if !outcome.OK {
		t.Errorf("Validate() = %+v, want OK", outcome)
	}
}

func TestBaseAgent_Execute_CancelledContext(t *testing.T) {
	a, err := New(TypeTest, &fakeProvider{}, nil, nil, "model", 0.2, 100)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := a.Execute(ctx, Task{TaskID: "t1", AgentType: TypeTest})
	if err == nil {
		t.Error("expected an error for a cancelled context")
	}
	if result.Success {
		t.Error("cancelled execution should not report success")
	}
}

func TestBaseAgent_Execute_ProviderError(t *testing.T) {
	fp := &fakeProvider{err: context.DeadlineExceeded}
	a, err := New(TypeImplement, fp, nil, nil, "model", 0.2, 100)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := a.Execute(context.Background(), Task{TaskID: "t1", AgentType: TypeImplement})
	if err != nil {
		t.Fatalf("Execute() should surface the error in Result, got err = %v", err)
	}
	if result.Success {
		t.Error("expected Success=false on provider error")
	}
	if result.Error == "" {
		t.Error("expected a non-empty error string")
	}
}

func TestAllTypes_AreValid(t *testing.T) {
	for _, ty := range AllTypes() {
		if !ty.IsValid() {
			t.Errorf("%s should be valid", ty)
		}
		if _, ok := specs[ty]; !ok {
			t.Errorf("%s has no registered spec", ty)
		}
	}
	if Type("nonsense").IsValid() {
		t.Error("nonsense should not be valid")
	}
}

func TestBaseAgent_Execute_Timing(t *testing.T) {
	fp := &fakeProvider{result: provider.GenerateResult{Content: "ok", FinishReason: provider.FinishStop}}
	a, _ := New(TypeDocs, fp, nil, nil, "model", 0.2, 100)

	result, _ := a.Execute(context.Background(), Task{TaskID: "t1", AgentType: TypeDocs})
	if result.Duration < 0 {
		t.Error("expected a non-negative measured duration")
	}
}
