package mode

import (
	"testing"

	"github.com/devswarm/devswarm/internal/config"
)

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		description string
		want        Complexity
	}{
		{"refactor the auth module", ComplexityComplex},
		{"migrate the database schema", ComplexityComplex},
		{"add a biorhythm calculator", ComplexityMedium},
		{"fix typo in header", ComplexitySimple},
		{"something unrelated entirely", ComplexityMedium},
	}
	for _, tt := range tests {
		if got := ClassifyComplexity(tt.description); got != tt.want {
			t.Errorf("ClassifyComplexity(%q) = %v, want %v", tt.description, got, tt.want)
		}
	}
}

func TestSpeedStrategy_Decompose(t *testing.T) {
	cfg := config.Default()
	s := newStrategy("SPEED", cfg.Modes["SPEED"])

	phases, err := s.Decompose("fix typo in header")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if len(phases) != 2 {
		t.Fatalf("len(phases) = %d, want 2", len(phases))
	}
	if !phases[0].Required || phases[1].Required {
		t.Errorf("expected phase 1 required, phase 2 optional: %+v", phases)
	}
}

func TestQualityStrategy_Decompose_WithTranslations(t *testing.T) {
	cfg := config.Default()
	s := newStrategy("QUALITY", cfg.Modes["QUALITY"])

	phases, err := s.Decompose("add biorhythm calculator UI with translations")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if len(phases) != 4 {
		t.Fatalf("len(phases) = %d, want 4", len(phases))
	}
	if len(phases[1].Subtasks) != 2 {
		t.Errorf("expected 2 parallel implement subtasks when UI/translations mentioned, got %d", len(phases[1].Subtasks))
	}
	for _, p := range phases {
		if !p.Required {
			t.Errorf("QUALITY phase %q should be required", p.Name)
		}
	}
}

func TestAutonomyStrategy_Decompose_HasEightPhases(t *testing.T) {
	cfg := config.Default()
	s := newStrategy("AUTONOMY", cfg.Modes["AUTONOMY"])

	phases, err := s.Decompose("redesign the billing pipeline")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if len(phases) != 8 {
		t.Fatalf("len(phases) = %d, want 8", len(phases))
	}
	if phases[5].Required {
		t.Error("optimization phase should not be required")
	}
}

func TestCostStrategy_ShouldContinue(t *testing.T) {
	cfg := config.Default()
	s := newStrategy("COST", cfg.Modes["COST"])

	cap := cfg.Modes["COST"].CostCapUSD
	if s.ShouldContinue(cap + 0.01) {
		t.Error("ShouldContinue should be false once currentCost reaches the cap")
	}
	if !s.ShouldContinue(0) {
		t.Error("ShouldContinue should be true well under the cap")
	}
}

func TestManager_SwitchMode(t *testing.T) {
	cfg := config.Default()
	m := NewManager(cfg, nil)

	if name, _ := m.Current(); name != "SPEED" {
		t.Fatalf("initial mode = %q, want SPEED", name)
	}

	if err := m.SwitchMode("QUALITY"); err != nil {
		t.Fatalf("SwitchMode() error = %v", err)
	}
	if name, _ := m.Current(); name != "QUALITY" {
		t.Errorf("mode after switch = %q, want QUALITY", name)
	}

	if err := m.SwitchMode("NONSENSE"); err == nil {
		t.Error("expected an error switching to an unknown mode")
	}
}

func TestManager_Get_PreservesInFlightMode(t *testing.T) {
	cfg := config.Default()
	m := NewManager(cfg, nil)

	speed, err := m.Get("SPEED")
	if err != nil {
		t.Fatalf("Get(SPEED) error = %v", err)
	}

	if err := m.SwitchMode("QUALITY"); err != nil {
		t.Fatalf("SwitchMode() error = %v", err)
	}

	// A task that started under SPEED keeps using the strategy it grabbed
	// before the switch.
	phases, err := speed.Decompose("fix typo")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if len(phases) != 2 {
		t.Errorf("expected SPEED's 2-phase plan even after switching modes, got %d", len(phases))
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	cfg := config.Default()
	m := NewManager(cfg, nil)

	patch := cfg.Modes["SPEED"]
	patch.MaxRetries = 9
	if err := m.UpdateConfig("SPEED", patch); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	s, err := m.Get("SPEED")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := s.(*speedStrategy).cfg.MaxRetries; got != 9 {
		t.Errorf("updated strategy MaxRetries = %d, want 9", got)
	}
}
