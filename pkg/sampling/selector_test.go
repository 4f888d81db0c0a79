package sampling

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

// newStore builds a toolset per entry of sizes with that many equipment.
// Equipment i of the k-th toolset (sorted, from 1) sits on node k*100+i
// and has one used POC on the same node.
func newStore(sizes map[string]int) *storage.MemoryStore {
	m := storage.NewMemoryStore()
	codes := slices.Sorted(maps.Keys(sizes))
	for k, code := range codes {
		n := sizes[code]
		base := int64(k+1) * 100
		for i := int64(1); i <= int64(n); i++ {
			node := base + i
			m.AddNodes(network.Node{ID: node, FabNo: 1})
			m.AddEquipment(network.Equipment{ID: node, Toolset: code, NodeID: node, IsActive: true})
			m.AddConnectionPoints(network.ConnectionPoint{ID: node * 10, EquipmentID: node, NodeID: node, IsUsed: true})
		}
	}
	return m
}

type countingSource struct {
	Source
	toolsetCalls int
}

func (c *countingSource) ToolsetsInScope(ctx context.Context, f network.ScopeFilter) ([]string, error) {
	c.toolsetCalls++
	return c.Source.ToolsetsInScope(ctx, f)
}

func TestSelector_FetchUniverseCached(t *testing.T) {
	src := &countingSource{Source: newStore(map[string]int{"TS-B": 2, "TS-A": 2})}
	s := NewSelector(src, Options{Seed: 1}, nil)
	ctx := context.Background()

	got, err := s.FetchUniverse(ctx, network.ScopeFilter{})
	if err != nil {
		t.Fatalf("FetchUniverse failed: %v", err)
	}
	if len(got) != 2 || got[0] != "TS-A" || got[1] != "TS-B" {
		t.Errorf("universe = %v, want [TS-A TS-B]", got)
	}
	if _, err := s.FetchUniverse(ctx, network.ScopeFilter{}); err != nil {
		t.Fatal(err)
	}
	if src.toolsetCalls != 1 {
		t.Errorf("store queried %d times, want 1", src.toolsetCalls)
	}
}

func TestSelector_PickToolsetEmpty(t *testing.T) {
	s := NewSelector(storage.NewMemoryStore(), Options{Seed: 1}, nil)
	if _, err := s.FetchUniverse(context.Background(), network.ScopeFilter{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.PickToolset(); ok {
		t.Error("PickToolset on empty universe returned a toolset")
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Errorf("Next err = %v, want ErrExhausted", err)
	}
}

func TestSelector_PickPocPairDistinctEquipment(t *testing.T) {
	s := NewSelector(newStore(map[string]int{"TS-A": 5}), Options{Seed: 7}, nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		p, err := s.PickPocPair(ctx, "TS-A")
		if err != nil {
			t.Fatalf("PickPocPair failed: %v", err)
		}
		if p.Start.Equipment.ID == p.End.Equipment.ID {
			t.Fatalf("draw %d used equipment %d twice", i, p.Start.Equipment.ID)
		}
		if p.Start.Poc.NodeID == p.End.Poc.NodeID {
			t.Fatalf("draw %d returned a pair on one node", i)
		}
		if p.Start.Toolset != "TS-A" || p.End.Toolset != "TS-A" {
			t.Fatalf("draw %d toolsets = %s/%s", i, p.Start.Toolset, p.End.Toolset)
		}
	}
}

func TestSelector_SeedIsReproducible(t *testing.T) {
	ctx := context.Background()
	draw := func() []int64 {
		s := NewSelector(newStore(map[string]int{"TS-A": 6}), Options{Seed: 42}, nil)
		var ids []int64
		for i := 0; i < 20; i++ {
			p, err := s.PickPocPair(ctx, "TS-A")
			if err != nil {
				t.Fatalf("PickPocPair failed: %v", err)
			}
			ids = append(ids, p.Start.Poc.ID, p.End.Poc.ID)
		}
		return ids
	}

	a, b := draw(), draw()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sequences diverge at %d: %v vs %v", i, a, b)
		}
	}
}

func TestSelector_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("single equipment", func(t *testing.T) {
		s := NewSelector(newStore(map[string]int{"TS-A": 1}), Options{Seed: 1}, nil)
		_, err := s.PickPocPair(ctx, "TS-A")
		var rej *RejectionError
		if !errors.As(err, &rej) || rej.Toolset != "TS-A" {
			t.Fatalf("err = %v, want rejection for TS-A", err)
		}
		if !errors.Is(err, ErrPairRejected) {
			t.Error("rejection does not match ErrPairRejected")
		}
	})

	t.Run("shared node", func(t *testing.T) {
		m := storage.NewMemoryStore()
		m.AddNodes(network.Node{ID: 1})
		m.AddEquipment(
			network.Equipment{ID: 1, Toolset: "TS-A", NodeID: 1, IsActive: true},
			network.Equipment{ID: 2, Toolset: "TS-A", NodeID: 1, IsActive: true},
		)
		m.AddConnectionPoints(
			network.ConnectionPoint{ID: 11, EquipmentID: 1, NodeID: 1, IsUsed: true},
			network.ConnectionPoint{ID: 21, EquipmentID: 2, NodeID: 1, IsUsed: true},
		)
		s := NewSelector(m, Options{Seed: 1}, nil)
		if _, err := s.PickPocPair(ctx, "TS-A"); !errors.Is(err, ErrPairRejected) {
			t.Errorf("err = %v, want ErrPairRejected", err)
		}
	})

	t.Run("loopback only", func(t *testing.T) {
		m := newStore(map[string]int{"TS-A": 2})
		m.AddConnectionPoints(network.ConnectionPoint{ID: 1019, EquipmentID: 101, NodeID: 101, IsLoopback: true})
		s := NewSelector(m, Options{Seed: 1}, nil)
		for i := 0; i < 20; i++ {
			p, err := s.PickPocPair(ctx, "TS-A")
			if err != nil {
				t.Fatalf("PickPocPair failed: %v", err)
			}
			if p.Start.Poc.IsLoopback || p.End.Poc.IsLoopback {
				t.Fatal("loopback connection point was sampled")
			}
		}
	})
}

func TestSelector_ToolsetRemovedAfterRejections(t *testing.T) {
	s := NewSelector(newStore(map[string]int{"TS-A": 1, "TS-B": 2}), Options{Seed: 1, MaxPairRejections: 3}, nil)
	if _, err := s.FetchUniverse(context.Background(), network.ScopeFilter{}); err != nil {
		t.Fatal(err)
	}

	if s.RecordRejection("TS-A") || s.RecordRejection("TS-A") {
		t.Fatal("toolset removed too early")
	}
	if !s.RecordRejection("TS-A") {
		t.Fatal("toolset not removed after third rejection")
	}
	if u := s.Universe(); len(u) != 1 || u[0] != "TS-B" {
		t.Errorf("universe = %v, want [TS-B]", u)
	}

	// A success resets the consecutive count.
	s.RecordRejection("TS-B")
	s.RecordRejection("TS-B")
	s.RecordSuccess("TS-B")
	if s.RecordRejection("TS-B") {
		t.Error("count was not reset by success")
	}
	if st := s.Stats(); len(st.RemovedToolsets) != 1 || st.RemovedToolsets[0] != "TS-A" {
		t.Errorf("removed = %v", st.RemovedToolsets)
	}
}

func TestSelector_EquipmentCapSpreadsAttempts(t *testing.T) {
	s := NewSelector(newStore(map[string]int{"TS-A": 4}), Options{Seed: 3, MaxAttemptsPerEquipment: 1}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.PickPocPair(ctx, "TS-A"); err != nil {
			t.Fatalf("PickPocPair failed: %v", err)
		}
	}
	st := s.Stats()
	if st.UniqueEquipment != 4 || st.MaxEquipment != 1 {
		t.Errorf("stats = %+v, want every equipment drawn once", st)
	}

	// The next draw finds every equipment capped and starts over.
	if _, err := s.PickPocPair(ctx, "TS-A"); err != nil {
		t.Fatalf("PickPocPair after reset failed: %v", err)
	}
	if st := s.Stats(); st.EquipmentAttempts != 2 {
		t.Errorf("attempts after reset = %d, want 2", st.EquipmentAttempts)
	}
}

func TestSelector_InterToolset(t *testing.T) {
	ctx := context.Background()
	s := NewSelector(newStore(map[string]int{"TS-A": 2, "TS-B": 2, "TS-C": 1}), Options{Seed: 9, InterToolset: true}, nil)
	if _, err := s.FetchUniverse(ctx, network.ScopeFilter{}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 30; i++ {
		p, err := s.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if p.Start.Toolset == p.End.Toolset {
			t.Fatalf("draw %d stayed in %s", i, p.Start.Toolset)
		}
	}

	single := NewSelector(newStore(map[string]int{"TS-A": 2}), Options{Seed: 1, InterToolset: true}, nil)
	if _, err := single.FetchUniverse(ctx, network.ScopeFilter{}); err != nil {
		t.Fatal(err)
	}
	if _, err := single.Next(ctx); !errors.Is(err, ErrPairRejected) {
		t.Errorf("err = %v, want ErrPairRejected", err)
	}
}

type wrongToolsetSource struct{ Source }

func (w wrongToolsetSource) EquipmentForToolset(ctx context.Context, toolset string) ([]network.Equipment, error) {
	return []network.Equipment{
		{ID: 1, Toolset: toolset, NodeID: 1, IsActive: true},
		{ID: 2, Toolset: "OTHER", NodeID: 2, IsActive: true},
	}, nil
}

func TestSelector_ToolsetMismatch(t *testing.T) {
	s := NewSelector(wrongToolsetSource{Source: storage.NewMemoryStore()}, Options{Seed: 1, MaxPairRejections: 3}, nil)
	_, err := s.PickPocPair(context.Background(), "TS-A")
	if !errors.Is(err, ErrToolsetMismatch) {
		t.Fatalf("err = %v, want ErrToolsetMismatch", err)
	}
	if !errors.Is(err, ErrPairRejected) {
		t.Errorf("mismatch should also count as a rejection: %v", err)
	}
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Toolset != "TS-A" {
		t.Fatalf("rejection not attributed to TS-A: %v", err)
	}

	s.universe = []string{"TS-A"}
	for i := 0; i < 2; i++ {
		if s.RecordRejection(rej.Toolset) {
			t.Fatalf("removed after %d rejections", i+1)
		}
	}
	if !s.RecordRejection(rej.Toolset) {
		t.Fatal("toolset kept after MaxPairRejections mismatches")
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v, want ErrExhausted", err)
	}
}

type duplicateEquipmentSource struct{ Source }

func (d duplicateEquipmentSource) EquipmentForToolset(ctx context.Context, toolset string) ([]network.Equipment, error) {
	eqs, err := d.Source.EquipmentForToolset(ctx, toolset)
	return append(eqs, eqs...), err
}

func TestSelector_DuplicateEquipmentRows(t *testing.T) {
	src := duplicateEquipmentSource{Source: newStore(map[string]int{"TS-A": 2})}
	s := NewSelector(src, Options{Seed: 5, MaxAttemptsPerEquipment: 100}, nil)

	for i := 0; i < 50; i++ {
		p, err := s.PickPocPair(context.Background(), "TS-A")
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if p.Start.Equipment.ID == p.End.Equipment.ID {
			t.Fatalf("draw %d picked equipment %d twice", i, p.Start.Equipment.ID)
		}
	}
}

type foreignPocSource struct{ Source }

func (f foreignPocSource) PocsForEquipment(ctx context.Context, equipmentID int64) ([]network.ConnectionPoint, error) {
	pocs, err := f.Source.PocsForEquipment(ctx, equipmentID)
	return append(pocs, network.ConnectionPoint{ID: 9999, EquipmentID: equipmentID + 1, NodeID: 1}), err
}

func TestSelector_ForeignConnectionPoint(t *testing.T) {
	src := foreignPocSource{Source: newStore(map[string]int{"TS-A": 2})}
	s := NewSelector(src, Options{Seed: 1}, nil)

	_, err := s.PickPocPair(context.Background(), "TS-A")
	if !errors.Is(err, ErrToolsetMismatch) {
		t.Errorf("err = %v, want ErrToolsetMismatch for a trailing foreign connection point", err)
	}
}

func TestHandleMissingPath(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStore()
	s := NewSelector(m, Options{Seed: 1}, nil)

	used := Pair{
		Start: Candidate{Toolset: "TS-A", Poc: network.ConnectionPoint{ID: 1, NodeID: 10, IsUsed: true}},
		End:   Candidate{Toolset: "TS-A", Poc: network.ConnectionPoint{ID: 2, NodeID: 20, IsUsed: true}},
	}
	flagged, err := s.HandleMissingPath(ctx, m, "run-1", used)
	if err != nil || !flagged {
		t.Fatalf("HandleMissingPath = %v, %v; want flag", flagged, err)
	}

	unused := used
	unused.End.Poc.IsUsed = false
	flagged, err = s.HandleMissingPath(ctx, m, "run-1", unused)
	if err != nil || flagged {
		t.Fatalf("HandleMissingPath = %v, %v; want no flag", flagged, err)
	}

	flags := m.ReviewFlags("run-1")
	if len(flags) != 1 {
		t.Fatalf("flags = %d, want 1", len(flags))
	}
	f := flags[0]
	if f.Reason != ReasonNoPath || f.StartPOCID != 1 || f.EndPOCID != 2 || f.StartNodeID != 10 || f.EndNodeID != 20 {
		t.Errorf("flag = %+v", f)
	}

	m.FailWrites(errors.New("disk full"))
	if _, err := s.HandleMissingPath(ctx, m, "run-1", used); !errors.Is(err, storage.ErrStorageUnavailable) {
		t.Errorf("err = %v, want ErrStorageUnavailable", err)
	}
}
