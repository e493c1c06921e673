package task

import (
	"testing"

	"github.com/devswarm/devswarm/internal/agent"
)

func TestPhase_AutoComplete(t *testing.T) {
	p := &Phase{}
	if !p.AutoComplete() {
		t.Fatal("expected an empty phase to auto-complete")
	}
	if p.Status != PhaseCompleted {
		t.Errorf("Status = %v, want completed", p.Status)
	}

	p2 := &Phase{Subtasks: []*Subtask{{ID: "s1"}}}
	if p2.AutoComplete() {
		t.Error("a non-empty phase should not auto-complete")
	}
}

func TestTask_AddFiles_Deduplicates(t *testing.T) {
	tk := &Task{}
	tk.AddFiles([]string{"a.go", "b.go"})
	tk.AddFiles([]string{"b.go", "c.go"})

	if len(tk.FilesModified) != 3 {
		t.Errorf("FilesModified = %v, want 3 unique entries", tk.FilesModified)
	}
}

func TestTask_AddUsage_MonotonicallyNonDecreasing(t *testing.T) {
	tk := &Task{}
	tk.AddUsage(100, 50, 0.01)
	tk.AddUsage(10, 5, 0.001)

	if tk.TokensUsed.In != 110 || tk.TokensUsed.Out != 55 {
		t.Errorf("TokensUsed = %+v, want {110 55}", tk.TokensUsed)
	}
	if tk.Cost <= 0.01 {
		t.Errorf("Cost = %v, expected to have grown past 0.01", tk.Cost)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	nonTerminal := []Status{StatusPending, StatusAnalyzing, StatusRunning, StatusPaused}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestTask_AddResult(t *testing.T) {
	tk := &Task{}
	tk.AddResult(1, agent.TypeImplement, agent.Result{Success: true})
	if _, ok := tk.Results[1][agent.TypeImplement]; !ok {
		t.Fatal("expected phase 1's implement result to be recorded")
	}
}
