package registry

import (
	"context"
	"runtime"
	"testing"

	"github.com/devswarm/devswarm/internal/agent"
)

type stubAgent struct {
	t      agent.Type
	result agent.Result
	err    error
}

func (s *stubAgent) Type() agent.Type                 { return s.t }
func (s *stubAgent) Capabilities() agent.Capabilities { return agent.Capabilities{Name: string(s.t)} }
func (s *stubAgent) Execute(ctx context.Context, task agent.Task) (agent.Result, error) {
	return s.result, s.err
}
func (s *stubAgent) Validate(result agent.Result) agent.Outcome { return agent.Validate(result) }

func TestRegister_RejectsDuplicate(t *testing.T) {
	r := New(0)
	a := &stubAgent{t: agent.TypeImplement, result: agent.Result{Success: true}}

	if err := r.Register(a); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(a); err == nil {
		t.Error("expected an error registering a duplicate type")
	}
}

func TestUnregister_RejectsWhileActive(t *testing.T) {
	r := New(0)
	done := make(chan agent.Result)

	blocking := &blockingAgent{t: agent.TypeImplement, release: done}
	if err := r.Register(blocking); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	go func() {
		_, _ = r.ExecuteWithDependencies(context.Background(), agent.TypeImplement, agent.Task{}, nil)
	}()

	// Give the goroutine a chance to mark the type active.
	for i := 0; i < 1000 && r.ActiveCount() == 0; i++ {
		runtime.Gosched()
	}

	if err := r.Unregister(agent.TypeImplement); err == nil {
		t.Error("expected Unregister to reject an active type")
	}
	close(done)
}

type blockingAgent struct {
	t       agent.Type
	release chan agent.Result
}

func (b *blockingAgent) Type() agent.Type                 { return b.t }
func (b *blockingAgent) Capabilities() agent.Capabilities { return agent.Capabilities{} }
func (b *blockingAgent) Execute(ctx context.Context, task agent.Task) (agent.Result, error) {
	<-b.release
	return agent.Result{Success: true}, nil
}
func (b *blockingAgent) Validate(result agent.Result) agent.Outcome { return agent.Validate(result) }

func TestExecutionOrder_ClosesOverDependencies(t *testing.T) {
	levels, err := ExecutionOrder([]agent.Type{agent.TypeDeploy})
	if err != nil {
		t.Fatalf("ExecutionOrder() error = %v", err)
	}

	// deploy <- {test, review} <- {implement} <- {architect} <- {concept}
	if len(levels) != 5 {
		t.Fatalf("ExecutionOrder() levels = %d, want 5: %+v", len(levels), levels)
	}
	if levels[0][0] != agent.TypeConcept {
		t.Errorf("level 0 = %v, want [concept]", levels[0])
	}
	last := levels[len(levels)-1]
	if len(last) != 1 || last[0] != agent.TypeDeploy {
		t.Errorf("last level = %v, want [deploy]", last)
	}
}

func TestExecutionOrder_ParallelSiblingsShareALevel(t *testing.T) {
	levels, err := ExecutionOrder([]agent.Type{agent.TypeTest, agent.TypeReview, agent.TypeSecurity, agent.TypeDocs})
	if err != nil {
		t.Fatalf("ExecutionOrder() error = %v", err)
	}
	// concept, architect, implement, then {test,review,security,docs} all in one level.
	if len(levels) != 4 {
		t.Fatalf("levels = %d, want 4: %+v", len(levels), levels)
	}
	if len(levels[3]) != 4 {
		t.Errorf("level 3 = %v, want 4 siblings", levels[3])
	}
}

func TestExecuteWithDependencies_EnrichesContext(t *testing.T) {
	r := New(0)
	var seenContext map[string]any
	a := &capturingAgent{t: agent.TypeTest, capture: &seenContext}
	_ = r.Register(a)

	prior := map[agent.Type]agent.Result{
		agent.TypeImplement: {Success: true, Output: map[string]any{"files": []string{"a.go"}}},
	}
	result, err := r.ExecuteWithDependencies(context.Background(), agent.TypeTest, agent.Task{}, prior)
	if err != nil {
		t.Fatalf("ExecuteWithDependencies() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if _, ok := seenContext["implementResult"]; !ok {
		t.Errorf("expected implementResult key in enriched context, got %+v", seenContext)
	}
}

type capturingAgent struct {
	t       agent.Type
	capture *map[string]any
}

func (c *capturingAgent) Type() agent.Type                 { return c.t }
func (c *capturingAgent) Capabilities() agent.Capabilities { return agent.Capabilities{} }
func (c *capturingAgent) Execute(ctx context.Context, task agent.Task) (agent.Result, error) {
	*c.capture = task.Context
	return agent.Result{Success: true}, nil
}
func (c *capturingAgent) Validate(result agent.Result) agent.Outcome { return agent.Validate(result) }

func TestExecuteWithDependencies_ValidateFailureDowngradesResult(t *testing.T) {
	r := New(0)
	a := &stubAgent{t: agent.TypeImplement, result: agent.Result{Success: false}} // missing Error
	_ = r.Register(a)

	result, err := r.ExecuteWithDependencies(context.Background(), agent.TypeImplement, agent.Task{}, nil)
	if err != nil {
		t.Fatalf("ExecuteWithDependencies() error = %v", err)
	}
	if result.Success {
		t.Error("expected validation failure to force Success=false")
	}
	if result.Error == "" {
		t.Error("expected a validation error message")
	}
}

func TestExecuteParallel_RunsAllConcurrently(t *testing.T) {
	r := New(4)
	for _, typ := range []agent.Type{agent.TypeTest, agent.TypeReview, agent.TypeSecurity} {
		_ = r.Register(&stubAgent{t: typ, result: agent.Result{Success: true}})
	}

	results := r.ExecuteParallel(context.Background(), []agent.Type{agent.TypeTest, agent.TypeReview, agent.TypeSecurity}, agent.Task{}, nil)
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for typ, res := range results {
		if !res.Success {
			t.Errorf("%s: expected success, got %+v", typ, res)
		}
	}
}
