// Package paths defines discovered path records, their dedup hash and the
// structured context blob persisted alongside them.
package paths

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrDataIntegrity marks a path that references null/zero ids or whose
// node and link sequences are misaligned.
var ErrDataIntegrity = errors.New("path data integrity violation")

// Record is an ordered node/link sequence between two connection points.
// Links[i] connects Nodes[i] to Nodes[i+1].
type Record struct {
	Nodes []int64
	Links []int64

	Toolset          string
	StartPOCID       int64
	EndPOCID         int64
	StartEquipmentID int64
	EndEquipmentID   int64

	TotalCost   float64
	TotalLength float64
}

// StartNode returns the first node id, or 0 for an empty record.
func (r *Record) StartNode() int64 {
	if len(r.Nodes) == 0 {
		return 0
	}
	return r.Nodes[0]
}

// EndNode returns the last node id, or 0 for an empty record.
func (r *Record) EndNode() int64 {
	if len(r.Nodes) == 0 {
		return 0
	}
	return r.Nodes[len(r.Nodes)-1]
}

// HopCount is the number of links in the path.
func (r *Record) HopCount() int {
	return len(r.Links)
}

// UniqueElements counts distinct node and link ids.
func (r *Record) UniqueElements() int {
	seenNodes := make(map[int64]struct{}, len(r.Nodes))
	for _, id := range r.Nodes {
		seenNodes[id] = struct{}{}
	}
	seenLinks := make(map[int64]struct{}, len(r.Links))
	for _, id := range r.Links {
		seenLinks[id] = struct{}{}
	}
	return len(seenNodes) + len(seenLinks)
}

// Hash returns the hex SHA-256 of the ordered node and link sequence.
// Traversal direction is significant; use Canonical first to ignore it.
func (r *Record) Hash() string {
	var b strings.Builder
	b.WriteString("n:")
	writeIDs(&b, r.Nodes)
	b.WriteString("|l:")
	writeIDs(&b, r.Links)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeIDs(b *strings.Builder, ids []int64) {
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
}

// Validate checks structural integrity: non-empty, no zero ids and
// len(Links) == len(Nodes)-1.
func (r *Record) Validate() error {
	if len(r.Nodes) == 0 {
		return fmt.Errorf("%w: path has no nodes", ErrDataIntegrity)
	}
	if len(r.Links) != len(r.Nodes)-1 {
		return fmt.Errorf("%w: %d links for %d nodes", ErrDataIntegrity, len(r.Links), len(r.Nodes))
	}
	for i, id := range r.Nodes {
		if id <= 0 {
			return fmt.Errorf("%w: node at position %d has id %d", ErrDataIntegrity, i, id)
		}
	}
	for i, id := range r.Links {
		if id <= 0 {
			return fmt.Errorf("%w: link at position %d has id %d", ErrDataIntegrity, i, id)
		}
	}
	return nil
}

// Reversed returns the same path traversed end to start, with the endpoint
// references swapped.
func (r *Record) Reversed() Record {
	out := *r
	out.Nodes = slices.Clone(r.Nodes)
	out.Links = slices.Clone(r.Links)
	slices.Reverse(out.Nodes)
	slices.Reverse(out.Links)
	out.StartPOCID, out.EndPOCID = r.EndPOCID, r.StartPOCID
	out.StartEquipmentID, out.EndEquipmentID = r.EndEquipmentID, r.StartEquipmentID
	return out
}

// Canonical returns whichever of r and its reverse has the lexicographically
// smaller node sequence (links break ties), so both directions share a hash.
func (r *Record) Canonical() Record {
	rev := r.Reversed()
	c := slices.Compare(rev.Nodes, r.Nodes)
	if c == 0 {
		c = slices.Compare(rev.Links, r.Links)
	}
	if c < 0 {
		return rev
	}
	out := *r
	out.Nodes = slices.Clone(r.Nodes)
	out.Links = slices.Clone(r.Links)
	return out
}
