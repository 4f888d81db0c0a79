package paths

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func chain() Record {
	return Record{
		Nodes:            []int64{1, 2, 3, 4},
		Links:            []int64{10, 11, 12},
		StartPOCID:       100,
		EndPOCID:         200,
		StartEquipmentID: 7,
		EndEquipmentID:   8,
	}
}

func TestRecordHashStable(t *testing.T) {
	a := chain()
	b := chain()
	if a.Hash() != b.Hash() {
		t.Fatal("identical records produced different hashes")
	}
	if len(a.Hash()) != 64 {
		t.Errorf("hash length = %d, want 64", len(a.Hash()))
	}

	// Node and link sequences must not be interchangeable.
	c := Record{Nodes: []int64{1, 2}, Links: []int64{3}}
	d := Record{Nodes: []int64{1}, Links: []int64{2, 3}}
	if c.Hash() == d.Hash() {
		t.Error("different node/link splits collided")
	}
}

func TestRecordHashDirectionSensitive(t *testing.T) {
	r := chain()
	rev := r.Reversed()
	if r.Hash() == rev.Hash() {
		t.Error("reversed path should hash differently")
	}

	c1 := r.Canonical()
	c2 := rev.Canonical()
	if c1.Hash() != c2.Hash() {
		t.Error("canonical forms of both directions should match")
	}
}

func TestRecordReversed(t *testing.T) {
	r := chain()
	rev := r.Reversed()

	wantNodes := []int64{4, 3, 2, 1}
	for i, id := range wantNodes {
		if rev.Nodes[i] != id {
			t.Fatalf("Nodes = %v, want %v", rev.Nodes, wantNodes)
		}
	}
	if rev.Links[0] != 12 || rev.Links[2] != 10 {
		t.Errorf("Links = %v", rev.Links)
	}
	if rev.StartPOCID != 200 || rev.EndEquipmentID != 7 {
		t.Errorf("endpoints not swapped: %+v", rev)
	}
	if r.Nodes[0] != 1 {
		t.Error("Reversed mutated the receiver")
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"valid chain", chain(), false},
		{"single node", Record{Nodes: []int64{5}}, false},
		{"empty", Record{}, true},
		{"zero node", Record{Nodes: []int64{1, 0}, Links: []int64{9}}, true},
		{"zero link", Record{Nodes: []int64{1, 2}, Links: []int64{0}}, true},
		{"misaligned", Record{Nodes: []int64{1, 2, 3}, Links: []int64{9}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrDataIntegrity) {
					t.Errorf("Validate() = %v, want ErrDataIntegrity", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestRecordCounts(t *testing.T) {
	r := chain()
	if r.HopCount() != 3 {
		t.Errorf("HopCount() = %d, want 3", r.HopCount())
	}
	if r.UniqueElements() != 7 {
		t.Errorf("UniqueElements() = %d, want 7", r.UniqueElements())
	}
	if r.StartNode() != 1 || r.EndNode() != 4 {
		t.Errorf("endpoints = %d..%d", r.StartNode(), r.EndNode())
	}

	var empty Record
	if empty.StartNode() != 0 || empty.EndNode() != 0 {
		t.Error("empty record should report zero endpoints")
	}
}

func TestProperty_HashDeterministic(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("equal sequences hash equally", prop.ForAll(
		func(nodes []int64) bool {
			links := make([]int64, 0, len(nodes))
			for i := 1; i < len(nodes); i++ {
				links = append(links, nodes[i]+1000)
			}
			a := Record{Nodes: nodes, Links: links}
			b := Record{Nodes: append([]int64(nil), nodes...), Links: append([]int64(nil), links...)}
			return a.Hash() == b.Hash()
		},
		gen.SliceOf(gen.Int64Range(1, 1<<40)),
	))

	properties.Property("canonical is direction independent", prop.ForAll(
		func(nodes []int64) bool {
			links := make([]int64, 0, len(nodes))
			for i := 1; i < len(nodes); i++ {
				links = append(links, int64(i))
			}
			r := Record{Nodes: nodes, Links: links}
			rev := r.Reversed()
			c1 := r.Canonical()
			c2 := rev.Canonical()
			return c1.Hash() == c2.Hash()
		},
		gen.SliceOfN(6, gen.Int64Range(1, 50)),
	))

	properties.TestingRun(t)
}
