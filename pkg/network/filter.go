package network

import (
	"slices"
	"strconv"
	"strings"
)

// ScopeFilter narrows which nodes, links and toolsets take part in a run.
// Nil or empty fields do not constrain.
type ScopeFilter struct {
	FabNo       *int   `json:"fab_no,omitempty" yaml:"fab_no,omitempty"`
	ModelNo     *int   `json:"model_no,omitempty" yaml:"model_no,omitempty"`
	PhaseNo     *int   `json:"phase_no,omitempty" yaml:"phase_no,omitempty"`
	E2EGroupNos []int  `json:"e2e_group_nos,omitempty" yaml:"e2e_group_nos,omitempty"`
	Toolset     string `json:"toolset,omitempty" yaml:"toolset,omitempty"`
}

// MatchesNode reports whether n satisfies the node-level constraints.
// Toolset does not apply to nodes.
func (f ScopeFilter) MatchesNode(n Node) bool {
	if f.FabNo != nil && n.FabNo != *f.FabNo {
		return false
	}
	if f.ModelNo != nil && n.ModelNo != *f.ModelNo {
		return false
	}
	if f.PhaseNo != nil && n.PhaseNo != *f.PhaseNo {
		return false
	}
	if len(f.E2EGroupNos) > 0 && !slices.Contains(f.E2EGroupNos, n.E2EGroupNo) {
		return false
	}
	return true
}

// MatchesToolset reports whether a toolset code passes the toolset constraint.
func (f ScopeFilter) MatchesToolset(code string) bool {
	return f.Toolset == "" || f.Toolset == code
}

// Key returns a canonical string form, stable across equal filters.
func (f ScopeFilter) Key() string {
	groups := slices.Clone(f.E2EGroupNos)
	slices.Sort(groups)
	groupStrs := make([]string, len(groups))
	for i, g := range groups {
		groupStrs[i] = strconv.Itoa(g)
	}

	parts := []string{
		"fab:" + optInt(f.FabNo),
		"model:" + optInt(f.ModelNo),
		"phase:" + optInt(f.PhaseNo),
		"e2e:" + strings.Join(groupStrs, ","),
		"toolset:" + f.Toolset,
	}
	return strings.Join(parts, "|")
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
