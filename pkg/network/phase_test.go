package network

import "testing"

func TestNormalizePhase(t *testing.T) {
	tests := []struct {
		in     string
		want   Phase
		wantOK bool
	}{
		{"P1", PhaseBIMP1, true},
		{" phase_1 ", PhaseBIMP1, true},
		{"1", PhaseBIMP1, true},
		{"bim_p2", PhaseBIMP2, true},
		{"5D_A", PhaseC5DA, true},
		{"c5db", PhaseC5DB, true},
		{"B", PhaseC5DB, true},
		{"", "", false},
		{"phase3", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizePhase(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizePhase(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPhaseModelAndCardinal(t *testing.T) {
	tests := []struct {
		phase    Phase
		model    DataModel
		cardinal int
	}{
		{PhaseBIMP1, DataModelBIM, 1},
		{PhaseBIMP2, DataModelBIM, 2},
		{PhaseC5DA, DataModelC5D, 1},
		{PhaseC5DB, DataModelC5D, 2},
		{Phase("Z"), "", 0},
	}

	for _, tt := range tests {
		if got := tt.phase.Model(); got != tt.model {
			t.Errorf("%s.Model() = %q, want %q", tt.phase, got, tt.model)
		}
		if got := tt.phase.Cardinal(); got != tt.cardinal {
			t.Errorf("%s.Cardinal() = %d, want %d", tt.phase, got, tt.cardinal)
		}
	}
}

func TestPhasesCoverAliasTargets(t *testing.T) {
	known := make(map[Phase]bool)
	for _, p := range Phases() {
		known[p] = true
	}
	for alias, p := range phaseAliases {
		if !known[p] {
			t.Errorf("alias %q maps to unlisted phase %q", alias, p)
		}
	}
}
