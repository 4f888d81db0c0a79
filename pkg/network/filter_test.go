package network

import "testing"

func TestScopeFilter_MatchesNode(t *testing.T) {
	node := Node{ID: 1, FabNo: 10, ModelNo: 2, PhaseNo: 1, E2EGroupNo: 7}

	tests := []struct {
		name   string
		filter ScopeFilter
		want   bool
	}{
		{"empty filter", ScopeFilter{}, true},
		{"fab match", ScopeFilter{FabNo: IntPtr(10)}, true},
		{"fab mismatch", ScopeFilter{FabNo: IntPtr(11)}, false},
		{"model mismatch", ScopeFilter{ModelNo: IntPtr(3)}, false},
		{"phase match", ScopeFilter{PhaseNo: IntPtr(1)}, true},
		{"group in list", ScopeFilter{E2EGroupNos: []int{3, 7}}, true},
		{"group not in list", ScopeFilter{E2EGroupNos: []int{3, 4}}, false},
		{"toolset ignored", ScopeFilter{Toolset: "TS1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.MatchesNode(node); got != tt.want {
				t.Errorf("MatchesNode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScopeFilter_Key(t *testing.T) {
	a := ScopeFilter{FabNo: IntPtr(1), E2EGroupNos: []int{3, 1, 2}}
	b := ScopeFilter{FabNo: IntPtr(1), E2EGroupNos: []int{1, 2, 3}}
	if a.Key() != b.Key() {
		t.Errorf("equal filters produced different keys: %q vs %q", a.Key(), b.Key())
	}

	c := ScopeFilter{FabNo: IntPtr(2), E2EGroupNos: []int{1, 2, 3}}
	if a.Key() == c.Key() {
		t.Errorf("different filters produced the same key %q", a.Key())
	}

	// Key must not reorder the caller's slice.
	if a.E2EGroupNos[0] != 3 {
		t.Errorf("Key() mutated E2EGroupNos: %v", a.E2EGroupNos)
	}
}

func TestLinkJoins(t *testing.T) {
	l := Link{ID: 1, StartNodeID: 5, EndNodeID: 6}
	if !l.Joins(5, 6) || !l.Joins(6, 5) {
		t.Error("Joins should hold in both directions")
	}
	if l.Joins(5, 7) {
		t.Error("Joins(5, 7) should be false")
	}
}
