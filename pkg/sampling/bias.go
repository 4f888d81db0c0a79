package sampling

import (
	"github.com/dd0wney/cluso-netprobe/pkg/network"
)

// available returns the items whose attempt count is below the cap. When
// fewer than need remain, every counter is reset and all items return.
func available[T any](items []T, id func(T) int64, attempts map[int64]int, limit, need int) []T {
	var out []T
	for _, it := range items {
		if attempts[id(it)] < limit {
			out = append(out, it)
		}
	}
	if len(out) >= need {
		return out
	}
	for _, it := range items {
		attempts[id(it)] = 0
	}
	return items
}

func equipmentID(e network.Equipment) int64 { return e.ID }
func pocID(p network.ConnectionPoint) int64 { return p.ID }

// diversityWeights down-weights equipment whose category or phase is
// shared with others in the candidate list.
func (s *Selector) diversityWeights(eqs []network.Equipment) []float64 {
	categories := make(map[int]int)
	phases := make(map[int]int)
	for _, eq := range eqs {
		categories[eq.CategoryNo]++
		phases[eq.PhaseNo]++
	}

	weights := make([]float64, len(eqs))
	for i, eq := range eqs {
		w := 1.0
		if categories[eq.CategoryNo] > 1 {
			w *= 1 - s.opts.CategoryDiversityWeight
		}
		if phases[eq.PhaseNo] > 1 {
			w *= 1 - s.opts.PhaseDiversityWeight
		}
		weights[i] = max(w, 0.1)
	}
	return weights
}

func (s *Selector) weightedIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := s.rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// pickEquipment draws one equipment honouring the attempt cap.
func (s *Selector) pickEquipment(eqs []network.Equipment) network.Equipment {
	pool := available(eqs, equipmentID, s.eqAttempts, s.opts.MaxAttemptsPerEquipment, 1)
	eq := pool[s.weightedIndex(s.diversityWeights(pool))]
	s.eqAttempts[eq.ID]++
	return eq
}

// pickEquipmentPair draws two distinct equipment. eqs must hold at least two.
func (s *Selector) pickEquipmentPair(eqs []network.Equipment) (network.Equipment, network.Equipment) {
	pool := available(eqs, equipmentID, s.eqAttempts, s.opts.MaxAttemptsPerEquipment, 2)
	weights := s.diversityWeights(pool)

	i := s.weightedIndex(weights)
	rest := make([]network.Equipment, 0, len(pool)-1)
	restWeights := make([]float64, 0, len(pool)-1)
	for k, eq := range pool {
		if k != i {
			rest = append(rest, eq)
			restWeights = append(restWeights, weights[k])
		}
	}
	eq1 := pool[i]
	eq2 := rest[s.weightedIndex(restWeights)]

	s.eqAttempts[eq1.ID]++
	s.eqAttempts[eq2.ID]++
	return eq1, eq2
}

// pickPoc draws one connection point uniformly among those under the cap.
func (s *Selector) pickPoc(pocs []network.ConnectionPoint) network.ConnectionPoint {
	pool := available(pocs, pocID, s.pocAttempts, s.opts.MaxAttemptsPerEquipment, 1)
	p := pool[s.rng.IntN(len(pool))]
	s.pocAttempts[p.ID]++
	return p
}

// Stats summarizes how attempts were spread.
type Stats struct {
	EquipmentAttempts int
	PocAttempts       int
	AvgEquipment      float64
	AvgPoc            float64
	MaxEquipment      int
	MaxPoc            int
	UniqueEquipment   int
	UniquePocs        int
	RemovedToolsets   []string
}

// Stats returns the sampling statistics accumulated so far. Counters that
// were reset by the attempt cap count from their reset.
func (s *Selector) Stats() Stats {
	st := Stats{
		UniqueEquipment: len(s.eqAttempts),
		UniquePocs:      len(s.pocAttempts),
		RemovedToolsets: append([]string(nil), s.removed...),
	}
	for _, n := range s.eqAttempts {
		st.EquipmentAttempts += n
		st.MaxEquipment = max(st.MaxEquipment, n)
	}
	for _, n := range s.pocAttempts {
		st.PocAttempts += n
		st.MaxPoc = max(st.MaxPoc, n)
	}
	if st.UniqueEquipment > 0 {
		st.AvgEquipment = float64(st.EquipmentAttempts) / float64(st.UniqueEquipment)
	}
	if st.UniquePocs > 0 {
		st.AvgPoc = float64(st.PocAttempts) / float64(st.UniquePocs)
	}
	return st
}
