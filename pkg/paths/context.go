package paths

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-netprobe/pkg/network"
)

// ContextVersion is the current encoding version of Context.
const ContextVersion = 1

var validate = validator.New()

// Context is the structured description of a path kept for later triage.
// It is encoded as snappy-compressed JSON and never evaluated.
type Context struct {
	Version          int      `json:"v" validate:"eq=1"`
	PathHash         string   `json:"path_hash" validate:"required,len=64,hexadecimal"`
	Nodes            []int64  `json:"nodes" validate:"required,min=1,dive,gt=0"`
	Links            []int64  `json:"links" validate:"dive,gt=0"`
	Toolset          string   `json:"toolset,omitempty"`
	StartPOCID       int64    `json:"start_poc_id" validate:"gte=0"`
	EndPOCID         int64    `json:"end_poc_id" validate:"gte=0"`
	StartEquipmentID int64    `json:"start_equipment_id" validate:"gte=0"`
	EndEquipmentID   int64    `json:"end_equipment_id" validate:"gte=0"`
	TotalCost        float64  `json:"total_cost" validate:"gte=0"`
	TotalLength      float64  `json:"total_length" validate:"gte=0"`
	DataCodes        []int    `json:"data_codes,omitempty"`
	UtilityNos       []int    `json:"utility_nos,omitempty"`
	References       []string `json:"references,omitempty"`
}

// NewContext builds a Context for r. attrs may be nil; when given, distinct
// data codes, utilities and marker references are collected from it.
func NewContext(r *Record, attrs []network.Node) Context {
	c := Context{
		Version:          ContextVersion,
		PathHash:         r.Hash(),
		Nodes:            r.Nodes,
		Links:            r.Links,
		Toolset:          r.Toolset,
		StartPOCID:       r.StartPOCID,
		EndPOCID:         r.EndPOCID,
		StartEquipmentID: r.StartEquipmentID,
		EndEquipmentID:   r.EndEquipmentID,
		TotalCost:        r.TotalCost,
		TotalLength:      r.TotalLength,
	}

	seenCodes := make(map[int]bool)
	seenUtils := make(map[int]bool)
	seenRefs := make(map[string]bool)
	for _, n := range attrs {
		if !seenCodes[n.DataCode] {
			seenCodes[n.DataCode] = true
			c.DataCodes = append(c.DataCodes, n.DataCode)
		}
		if u, ok := n.Utility(); ok && !seenUtils[u] {
			seenUtils[u] = true
			c.UtilityNos = append(c.UtilityNos, u)
		}
		for _, ref := range network.ExtractMarkers(n.Markers, true) {
			if !seenRefs[ref] {
				seenRefs[ref] = true
				c.References = append(c.References, ref)
			}
		}
	}
	return c
}

// Record rebuilds the path record described by the context.
func (c Context) Record() Record {
	return Record{
		Nodes:            c.Nodes,
		Links:            c.Links,
		Toolset:          c.Toolset,
		StartPOCID:       c.StartPOCID,
		EndPOCID:         c.EndPOCID,
		StartEquipmentID: c.StartEquipmentID,
		EndEquipmentID:   c.EndEquipmentID,
		TotalCost:        c.TotalCost,
		TotalLength:      c.TotalLength,
	}
}

// EncodeContext serializes c as snappy-compressed JSON.
func EncodeContext(c Context) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal path context: %w", err)
	}
	return snappy.Encode(nil, data), nil
}

// DecodeContext reverses EncodeContext. Unknown fields, failed field checks
// and a hash that does not match the sequences are all rejected.
func DecodeContext(blob []byte) (Context, error) {
	var c Context

	data, err := snappy.Decode(nil, blob)
	if err != nil {
		return c, fmt.Errorf("failed to decompress path context: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return c, fmt.Errorf("failed to unmarshal path context: %w", err)
	}

	if err := validate.Struct(c); err != nil {
		return c, fmt.Errorf("invalid path context: %w", err)
	}

	rec := c.Record()
	if err := rec.Validate(); err != nil {
		return c, err
	}
	if rec.Hash() != c.PathHash {
		return c, fmt.Errorf("%w: context hash does not match its sequences", ErrDataIntegrity)
	}
	return c, nil
}
