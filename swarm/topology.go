package swarm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTopology is returned for topology values that are not implemented.
var ErrTopology = errors.New("unimplemented topology")

// Topology determines which particles a particle learns from.
type Topology int

const (
	// Star connects every particle to every other: the visible best is the
	// swarm's global best.
	Star Topology = iota
	// StaticRing connects each particle to its index neighbors i-1 and i+1
	// (wrapping around at the ends).
	StaticRing
)

func (t Topology) String() string {
	switch t {
	case Star:
		return "star"
	case StaticRing:
		return "ring"
	}
	return fmt.Sprintf("Topology(%d)", int(t))
}

func (t Topology) Valid() bool { return t == Star || t == StaticRing }

func ParseTopology(s string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "star":
		return Star, nil
	case "ring", "staticring", "static-ring":
		return StaticRing, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrTopology, s)
}

func (t Topology) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrTopology, int(t))
	}
	return []byte(t.String()), nil
}

func (t *Topology) UnmarshalText(text []byte) error {
	v, err := ParseTopology(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ringTable builds the neighbor table for a static ring of n particles.
// Particle i's left neighbor is table[i] and its right neighbor is
// table[i+2].
func ringTable(n int) []int {
	table := make([]int, n+2)
	for k := range table {
		table[k] = k - 1
	}
	table[0] = n - 1
	table[n+1] = 0
	return table
}

// visible returns the personal-best vector particle i steers toward
// socially.  The returned slice must not be modified.
func (s *Swarm) visible(i int) []float64 {
	switch s.cfg.Topology {
	case Star:
		return s.bestPos
	case StaticRing:
		return s.ringBest(i)
	}
	panic(fmt.Sprintf("%v: %v", ErrTopology, s.cfg.Topology))
}

// ringBest compares the personal best values of particle i and its two
// ring neighbors.  A neighbor wins only if it is strictly better than both
// other candidates; otherwise the particle's own best is used.
func (s *Swarm) ringBest(i int) []float64 {
	left := s.pop[s.ring[i]]
	right := s.pop[s.ring[i+2]]
	self := s.pop[i]

	if left.BestVal < self.BestVal && left.BestVal < right.BestVal {
		return left.BestPos
	} else if right.BestVal < self.BestVal && right.BestVal < left.BestVal {
		return right.BestPos
	}
	return self.BestPos
}

// VisibleBest returns dimension d of the best position visible to particle
// i under the swarm's topology.
func (s *Swarm) VisibleBest(i, d int) float64 { return s.visible(i)[d] }
