// Package sampling draws random connection-point pairs for a run, spreading
// attempts across equipment so that a few well-connected tools do not
// dominate the sample.
package sampling

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/dd0wney/cluso-netprobe/pkg/logging"
	"github.com/dd0wney/cluso-netprobe/pkg/network"
)

var (
	// ErrPairRejected means no usable pair could be drawn this time. The
	// caller should try again.
	ErrPairRejected = errors.New("connection point pair rejected")
	// ErrToolsetMismatch means the store returned equipment outside the
	// requested toolset. Only the current selection is abandoned.
	ErrToolsetMismatch = errors.New("connection point does not belong to toolset")
	// ErrExhausted means the sampling universe has no toolsets left.
	ErrExhausted = errors.New("sampling universe exhausted")
)

// RejectionError carries the toolset a rejected draw was attributed to.
// Cause is set when the draw failed on inconsistent store data.
type RejectionError struct {
	Toolset string
	Reason  string
	Cause   error
}

func (e *RejectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: toolset %s: %s", e.Cause, e.Toolset, e.Reason)
	}
	return fmt.Sprintf("%s: toolset %s: %s", ErrPairRejected, e.Toolset, e.Reason)
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrPairRejected
}

func (e *RejectionError) Unwrap() error {
	return e.Cause
}

func reject(toolset, reason string) error {
	return &RejectionError{Toolset: toolset, Reason: reason}
}

// mismatch rejects a draw whose store rows do not belong to toolset. It
// matches both ErrPairRejected and ErrToolsetMismatch.
func mismatch(toolset, reason string) error {
	return &RejectionError{Toolset: toolset, Reason: reason, Cause: ErrToolsetMismatch}
}

// Source is the part of the graph store the selector reads.
type Source interface {
	ToolsetsInScope(ctx context.Context, filter network.ScopeFilter) ([]string, error)
	EquipmentForToolset(ctx context.Context, toolset string) ([]network.Equipment, error)
	PocsForEquipment(ctx context.Context, equipmentID int64) ([]network.ConnectionPoint, error)
}

// Options tunes candidate selection.
type Options struct {
	// MaxAttemptsPerEquipment caps how often one equipment (and one POC)
	// is drawn before the others get a turn.
	MaxAttemptsPerEquipment int
	// MaxPairRejections is how many consecutive rejections remove a
	// toolset from the universe.
	MaxPairRejections int
	// InterToolset draws the two endpoints from different toolsets.
	InterToolset bool
	// Seed fixes the random sequence; 0 picks a random seed.
	Seed uint64

	CategoryDiversityWeight float64
	PhaseDiversityWeight    float64
}

// DefaultOptions returns the selection defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttemptsPerEquipment: 3,
		MaxPairRejections:       20,
		CategoryDiversityWeight: 0.2,
		PhaseDiversityWeight:    0.2,
	}
}

// Candidate is one endpoint of a pair.
type Candidate struct {
	Toolset   string
	Equipment network.Equipment
	Poc       network.ConnectionPoint
}

// Pair is a drawn start/end candidate pair.
type Pair struct {
	Start Candidate
	End   Candidate
}

// BothUsed reports whether both connection points are marked used.
func (p Pair) BothUsed() bool {
	return p.Start.Poc.IsUsed && p.End.Poc.IsUsed
}

// Selector holds the sampling universe of one run. It is not safe for
// concurrent use.
type Selector struct {
	source Source
	opts   Options
	rng    *rand.Rand
	logger logging.Logger

	universe []string
	fetched  bool

	equipment map[string][]network.Equipment
	pocs      map[int64][]network.ConnectionPoint

	eqAttempts  map[int64]int
	pocAttempts map[int64]int
	rejections  map[string]int
	removed     []string
}

// NewSelector creates a selector over source.
func NewSelector(source Source, opts Options, logger logging.Logger) *Selector {
	def := DefaultOptions()
	if opts.MaxAttemptsPerEquipment <= 0 {
		opts.MaxAttemptsPerEquipment = def.MaxAttemptsPerEquipment
	}
	if opts.MaxPairRejections <= 0 {
		opts.MaxPairRejections = def.MaxPairRejections
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Selector{
		source:      source,
		opts:        opts,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger:      logger.With(logging.Component("sampler")),
		equipment:   make(map[string][]network.Equipment),
		pocs:        make(map[int64][]network.ConnectionPoint),
		eqAttempts:  make(map[int64]int),
		pocAttempts: make(map[int64]int),
		rejections:  make(map[string]int),
	}
}

// FetchUniverse loads the toolsets matching filter. The result is cached
// for the lifetime of the selector.
func (s *Selector) FetchUniverse(ctx context.Context, filter network.ScopeFilter) ([]string, error) {
	if s.fetched {
		return slices.Clone(s.universe), nil
	}

	toolsets, err := s.source.ToolsetsInScope(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load toolsets: %w", err)
	}
	slices.Sort(toolsets)
	s.universe = slices.Compact(toolsets)
	s.fetched = true

	s.logger.Info("sampling universe loaded", logging.Count(len(s.universe)))
	return slices.Clone(s.universe), nil
}

// Universe returns the toolsets still available.
func (s *Selector) Universe() []string {
	return slices.Clone(s.universe)
}

// PickToolset draws a toolset uniformly. It returns false when the
// universe is empty.
func (s *Selector) PickToolset() (string, bool) {
	if len(s.universe) == 0 {
		return "", false
	}
	return s.universe[s.rng.IntN(len(s.universe))], true
}

// PickPocPair draws two connection points on distinct equipment of one
// toolset. Rejections are returned as *RejectionError.
func (s *Selector) PickPocPair(ctx context.Context, toolset string) (Pair, error) {
	eqs, err := s.toolsetEquipment(ctx, toolset)
	if err != nil {
		return Pair{}, err
	}
	if len(eqs) < 2 {
		return Pair{}, reject(toolset, "fewer than two active equipment")
	}

	eq1, eq2 := s.pickEquipmentPair(eqs)

	start, err := s.candidate(ctx, toolset, eq1)
	if err != nil {
		return Pair{}, err
	}
	end, err := s.candidate(ctx, toolset, eq2)
	if err != nil {
		return Pair{}, err
	}
	return s.checkPair(toolset, start, end)
}

// PickInterToolsetPair draws one connection point from each of two distinct
// toolsets. Rejections are attributed to the first toolset.
func (s *Selector) PickInterToolsetPair(ctx context.Context) (Pair, error) {
	if len(s.universe) == 0 {
		return Pair{}, ErrExhausted
	}
	if len(s.universe) < 2 {
		return Pair{}, reject(s.universe[0], "inter-toolset sampling needs two toolsets")
	}

	i := s.rng.IntN(len(s.universe))
	j := s.rng.IntN(len(s.universe) - 1)
	if j >= i {
		j++
	}
	ts1, ts2 := s.universe[i], s.universe[j]

	start, err := s.candidateFromToolset(ctx, ts1)
	if err != nil {
		return Pair{}, err
	}
	end, err := s.candidateFromToolset(ctx, ts2)
	if err != nil {
		var rej *RejectionError
		if errors.As(err, &rej) && rej.Cause == nil {
			rej.Toolset = ts1
		}
		return Pair{}, err
	}
	return s.checkPair(ts1, start, end)
}

// Next draws a pair according to the configured mode.
func (s *Selector) Next(ctx context.Context) (Pair, error) {
	if s.opts.InterToolset {
		return s.PickInterToolsetPair(ctx)
	}
	toolset, ok := s.PickToolset()
	if !ok {
		return Pair{}, ErrExhausted
	}
	return s.PickPocPair(ctx, toolset)
}

func (s *Selector) checkPair(toolset string, start, end Candidate) (Pair, error) {
	if start.Poc.ID == end.Poc.ID {
		return Pair{}, reject(toolset, "same connection point drawn twice")
	}
	if start.Poc.NodeID == end.Poc.NodeID {
		return Pair{}, reject(toolset, "connection points share a node")
	}
	return Pair{Start: start, End: end}, nil
}

// RecordRejection counts a rejected draw against toolset and removes the
// toolset once MaxPairRejections consecutive rejections accumulate. It
// reports whether the toolset was removed.
func (s *Selector) RecordRejection(toolset string) bool {
	s.rejections[toolset]++
	if s.rejections[toolset] < s.opts.MaxPairRejections {
		return false
	}

	idx := slices.Index(s.universe, toolset)
	if idx < 0 {
		return false
	}
	s.universe = slices.Delete(s.universe, idx, idx+1)
	s.removed = append(s.removed, toolset)
	s.logger.Warn("toolset removed from universe",
		logging.Toolset(toolset),
		logging.Int("rejections", s.rejections[toolset]),
		logging.Int("remaining", len(s.universe)))
	return true
}

// RecordSuccess resets the consecutive rejection count of toolset.
func (s *Selector) RecordSuccess(toolset string) {
	delete(s.rejections, toolset)
}

func (s *Selector) toolsetEquipment(ctx context.Context, toolset string) ([]network.Equipment, error) {
	if eqs, ok := s.equipment[toolset]; ok {
		return eqs, nil
	}
	eqs, err := s.source.EquipmentForToolset(ctx, toolset)
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment for toolset %s: %w", toolset, err)
	}
	seen := make(map[int64]bool, len(eqs))
	unique := make([]network.Equipment, 0, len(eqs))
	for _, eq := range eqs {
		if eq.Toolset != toolset {
			s.logger.Warn("equipment outside toolset",
				logging.Toolset(toolset),
				logging.EquipmentID(eq.ID),
				logging.String("equipment_toolset", eq.Toolset))
			return nil, mismatch(toolset, fmt.Sprintf("equipment %d is in %s", eq.ID, eq.Toolset))
		}
		if seen[eq.ID] {
			continue
		}
		seen[eq.ID] = true
		unique = append(unique, eq)
	}
	s.equipment[toolset] = unique
	return unique, nil
}

// samplePocs returns the non-loopback connection points of an equipment.
func (s *Selector) samplePocs(ctx context.Context, equipmentID int64) ([]network.ConnectionPoint, error) {
	if pocs, ok := s.pocs[equipmentID]; ok {
		return pocs, nil
	}
	all, err := s.source.PocsForEquipment(ctx, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection points for equipment %d: %w", equipmentID, err)
	}
	var pocs []network.ConnectionPoint
	for _, p := range all {
		if !p.IsLoopback {
			pocs = append(pocs, p)
		}
	}
	s.pocs[equipmentID] = pocs
	return pocs, nil
}

func (s *Selector) candidateFromToolset(ctx context.Context, toolset string) (Candidate, error) {
	eqs, err := s.toolsetEquipment(ctx, toolset)
	if err != nil {
		return Candidate{}, err
	}
	if len(eqs) == 0 {
		return Candidate{}, reject(toolset, "no active equipment")
	}
	return s.candidate(ctx, toolset, s.pickEquipment(eqs))
}

func (s *Selector) candidate(ctx context.Context, toolset string, eq network.Equipment) (Candidate, error) {
	pocs, err := s.samplePocs(ctx, eq.ID)
	if err != nil {
		return Candidate{}, err
	}
	if len(pocs) == 0 {
		return Candidate{}, reject(toolset, fmt.Sprintf("equipment %d has no connection points", eq.ID))
	}
	for _, p := range pocs {
		if p.EquipmentID != eq.ID {
			return Candidate{}, mismatch(toolset, fmt.Sprintf("connection point %d belongs to equipment %d, not %d", p.ID, p.EquipmentID, eq.ID))
		}
	}
	return Candidate{Toolset: toolset, Equipment: eq, Poc: s.pickPoc(pocs)}, nil
}
