package oracle

import (
	"hash/fnv"
	"math"
)

// Simulator produces deterministic drifting prices for commodities with no
// primary or backup mapping (e.g. NATGAS, COPPER when unconfigured). The
// drift amplitude is fixed per commodity (3-5%) and its phase walks
// forward one step per refresh tick, so repeated calls with increasing
// tick values trace a smooth oscillation instead of a random walk.
type Simulator struct {
	bases map[string]uint64
}

// NewSimulator creates a simulator seeded with a base price (6-decimal)
// per commodity.
func NewSimulator(bases map[string]uint64) *Simulator {
	return &Simulator{bases: bases}
}

// Price returns the simulated price for commodity at the given tick, and
// whether commodity has a configured base.
func (s *Simulator) Price(commodity string, tick uint64) (uint64, bool) {
	base, ok := s.bases[commodity]
	if !ok {
		return 0, false
	}

	h := fnv.New64a()
	h.Write([]byte(commodity))
	seed := float64(h.Sum64()%1000) / 1000.0

	amplitude := 0.03 + 0.02*seed // 3%-5%
	phase := seed * 2 * math.Pi
	osc := math.Sin(phase + float64(tick)*0.1)

	drifted := float64(base) * (1 + amplitude*osc)
	return uint64(drifted), true
}
