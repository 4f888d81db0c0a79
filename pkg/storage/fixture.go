package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
)

// Fixture is the YAML form of a graph, used to run without a database.
type Fixture struct {
	Nodes     []FixtureNode `yaml:"nodes"`
	Links     []FixtureLink `yaml:"links"`
	Equipment []FixtureEq   `yaml:"equipment"`
	Pocs      []FixturePoc  `yaml:"pocs"`
}

type FixtureNode struct {
	ID                 int64  `yaml:"id"`
	FabNo              int    `yaml:"fab_no"`
	ModelNo            int    `yaml:"model_no"`
	PhaseNo            int    `yaml:"phase_no"`
	E2EGroupNo         int    `yaml:"e2e_group_no"`
	DataCode           int    `yaml:"data_code"`
	UtilityNo          *int   `yaml:"utility_no"`
	Markers            string `yaml:"markers"`
	IsEquipmentLogical bool   `yaml:"equipment_logical"`
	IsEquipmentPOC     bool   `yaml:"equipment_poc"`
	IsUsed             bool   `yaml:"used"`
}

type FixtureLink struct {
	ID     int64   `yaml:"id"`
	Start  int64   `yaml:"start"`
	End    int64   `yaml:"end"`
	Length float64 `yaml:"length"`
	Cost   float64 `yaml:"cost"`
}

type FixtureEq struct {
	ID         int64  `yaml:"id"`
	Toolset    string `yaml:"toolset"`
	NodeID     int64  `yaml:"node_id"`
	CategoryNo int    `yaml:"category_no"`
	PhaseNo    int    `yaml:"phase_no"`
	Active     *bool  `yaml:"active"` // defaults to true
}

type FixturePoc struct {
	ID          int64  `yaml:"id"`
	EquipmentID int64  `yaml:"equipment_id"`
	NodeID      int64  `yaml:"node_id"`
	UtilityNo   *int   `yaml:"utility_no"`
	Markers     string `yaml:"markers"`
	IsUsed      bool   `yaml:"used"`
	IsLoopback  bool   `yaml:"loopback"`
}

// LoadFixture reads a YAML fixture file into a new MemoryStore.
func LoadFixture(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes YAML fixture data into a new MemoryStore. Unknown
// keys, non-positive ids and duplicate ids are rejected.
func ParseFixture(data []byte) (*MemoryStore, error) {
	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := fx.check(); err != nil {
		return nil, err
	}

	m := NewMemoryStore()
	for _, n := range fx.Nodes {
		m.AddNodes(network.Node{
			ID:                 n.ID,
			FabNo:              n.FabNo,
			ModelNo:            n.ModelNo,
			PhaseNo:            n.PhaseNo,
			E2EGroupNo:         n.E2EGroupNo,
			DataCode:           n.DataCode,
			UtilityNo:          n.UtilityNo,
			Markers:            n.Markers,
			IsEquipmentLogical: n.IsEquipmentLogical,
			IsEquipmentPOC:     n.IsEquipmentPOC,
			IsUsed:             n.IsUsed,
		})
	}
	for _, l := range fx.Links {
		m.AddLinks(network.Link{ID: l.ID, StartNodeID: l.Start, EndNodeID: l.End, Length: l.Length, Cost: l.Cost})
	}
	for _, e := range fx.Equipment {
		m.AddEquipment(network.Equipment{
			ID:         e.ID,
			Toolset:    e.Toolset,
			NodeID:     e.NodeID,
			CategoryNo: e.CategoryNo,
			PhaseNo:    e.PhaseNo,
			IsActive:   e.Active == nil || *e.Active,
		})
	}
	for _, p := range fx.Pocs {
		m.AddConnectionPoints(network.ConnectionPoint{
			ID:          p.ID,
			EquipmentID: p.EquipmentID,
			NodeID:      p.NodeID,
			UtilityNo:   p.UtilityNo,
			Markers:     p.Markers,
			IsUsed:      p.IsUsed,
			IsLoopback:  p.IsLoopback,
		})
	}
	return m, nil
}

func (fx *Fixture) check() error {
	type entity struct {
		name string
		ids  []int64
	}
	var nodeIDs, linkIDs, eqIDs, pocIDs []int64
	for _, n := range fx.Nodes {
		nodeIDs = append(nodeIDs, n.ID)
	}
	for _, l := range fx.Links {
		linkIDs = append(linkIDs, l.ID)
	}
	for _, e := range fx.Equipment {
		eqIDs = append(eqIDs, e.ID)
	}
	for _, p := range fx.Pocs {
		pocIDs = append(pocIDs, p.ID)
	}

	for _, ent := range []entity{{"node", nodeIDs}, {"link", linkIDs}, {"equipment", eqIDs}, {"poc", pocIDs}} {
		seen := make(map[int64]bool, len(ent.ids))
		for _, id := range ent.ids {
			if id <= 0 {
				return NewError("ParseFixture").Entity(ent.name, id).Cause(ErrInvalidID).Err()
			}
			if seen[id] {
				return NewError("ParseFixture").Entity(ent.name, id).Context("duplicate").Cause(ErrInvalidID).Err()
			}
			seen[id] = true
		}
	}
	return nil
}
