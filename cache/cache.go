// Package cache memoizes objective evaluations.  Two lookup strategies are
// provided: Exact reuses a value only for a bit-identical position, while
// Nearest reuses the value of the closest previously evaluated position if
// it lies within a configurable radius of the query.
package cache

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rwcarlsen/swarmopt"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// DefaultRadius is the euclidean distance within which Nearest reuses a
// cached value.
const DefaultRadius = 1e-6

var ErrStrategy = errors.New("unknown cache strategy")

type Strategy int

const (
	// None evaluates every position.
	None Strategy = iota
	Exact
	Nearest
)

func (s Strategy) String() string {
	switch s {
	case None:
		return "none"
	case Exact:
		return "exact"
	case Nearest:
		return "nearest"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return None, nil
	case "exact":
		return Exact, nil
	case "nearest", "neighbor", "neighbour":
		return Nearest, nil
	}
	return None, fmt.Errorf("%w: %q", ErrStrategy, s)
}

func (s Strategy) MarshalText() ([]byte, error) {
	if s < None || s > Nearest {
		return nil, fmt.Errorf("%w: %v", ErrStrategy, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Option func(*Cache)

// Radius sets the reuse distance of the Nearest strategy.  A zero radius
// only reuses values for identical positions.
func Radius(r float64) Option {
	return func(c *Cache) {
		c.radius = r
	}
}

// Cache is an objective decorator.  It is safe for concurrent use provided
// the wrapped objective is; evaluations themselves run outside of any lock.
// Failed evaluations are never cached.
type Cache struct {
	obj      swarmopt.Objectiver
	strategy Strategy
	radius   float64

	exact *gocache.Cache

	mu   sync.Mutex
	tree *kdtree.Tree

	hits   atomic.Int64
	misses atomic.Int64
}

func New(obj swarmopt.Objectiver, s Strategy, opts ...Option) (*Cache, error) {
	if _, err := s.MarshalText(); err != nil {
		return nil, err
	}

	c := &Cache{
		obj:      obj,
		strategy: s,
		radius:   DefaultRadius,
		tree:     &kdtree.Tree{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.radius < 0 {
		return nil, fmt.Errorf("cache: negative radius %v", c.radius)
	}

	c.exact = gocache.New(gocache.NoExpiration, 0)
	return c, nil
}

func (c *Cache) ConcurrencySafe() {}

// ScratchLen reports the scratch space needed by the wrapped objective.
func (c *Cache) ScratchLen(ndim int) int { return swarmopt.ScratchLen(c.obj, ndim) }

func (c *Cache) Strategy() Strategy { return c.strategy }

// Hits returns the number of evaluations answered from the cache.
func (c *Cache) Hits() int { return int(c.hits.Load()) }

// Misses returns the number of evaluations passed to the wrapped objective.
func (c *Cache) Misses() int { return int(c.misses.Load()) }

// Len returns the number of cached values.
func (c *Cache) Len() int {
	switch c.strategy {
	case Exact:
		return c.exact.ItemCount()
	case Nearest:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.tree.Len()
	}
	return 0
}

func (c *Cache) Objective(x, scratch []float64) (float64, error) {
	if val, ok := c.lookup(x); ok {
		c.hits.Add(1)
		return val, nil
	}

	c.misses.Add(1)
	val, err := c.obj.Objective(x, scratch)
	if err != nil {
		return val, err
	}
	c.store(x, val)
	return val, nil
}

func (c *Cache) lookup(x []float64) (float64, bool) {
	switch c.strategy {
	case Exact:
		v, ok := c.exact.Get(key(x))
		if !ok {
			return 0, false
		}
		return v.(float64), true
	case Nearest:
		c.mu.Lock()
		nn, dist := c.tree.Nearest(entry{Point: x})
		c.mu.Unlock()
		// kdtree distances are squared
		if nn == nil || dist > c.radius*c.radius {
			return 0, false
		}
		return nn.(entry).val, true
	}
	return 0, false
}

func (c *Cache) store(x []float64, val float64) {
	switch c.strategy {
	case Exact:
		c.exact.Set(key(x), val, gocache.NoExpiration)
	case Nearest:
		e := entry{Point: append(kdtree.Point{}, x...), val: val}
		c.mu.Lock()
		c.tree.Insert(e, false)
		c.mu.Unlock()
	}
}

func key(x []float64) string {
	h := swarmopt.Hash(x)
	return string(h[:])
}

// entry is a cached evaluation stored in the kd-tree.
type entry struct {
	kdtree.Point
	val float64
}

func (e entry) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return e.Point.Compare(c.(entry).Point, d)
}

func (e entry) Distance(c kdtree.Comparable) float64 {
	return e.Point.Distance(c.(entry).Point)
}
