package mesh

import (
	"math"
	"testing"

	"github.com/rwcarlsen/swarmopt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReflect(t *testing.T) {
	b := NewBox(1, -100, 100)
	var tests = []struct {
		x, want float64
	}{
		{98 + 7, 95},
		{-105, -95},
		{50, 50},
		{100, 100},
		{-100, -100},
		// overshoots the opposite bound after the first reflection
		{350, -50},
		{-530, -70},
	}

	for _, test := range tests {
		got := b.Reflect(0, test.x)
		if math.Abs(got-test.want) > 1e-12 {
			t.Errorf("reflect %v: want %v, got %v", test.x, test.want, got)
		}
	}

	assert.Equal(t, 0.0, b.Reflect(0, math.NaN()))
	assert.Equal(t, 0.0, b.Reflect(0, math.Inf(1)))

	// far outside the box, where subtracting the range is lost to rounding
	for _, x := range []float64{1e300, -1e300, math.MaxFloat64, 1e17 + 3} {
		got := b.Reflect(0, x)
		assert.True(t, got >= -100 && got <= 100, "reflect %v: got %v", x, got)
	}

	// a box that does not start at the origin
	b = NewBox(1, 2, 5)
	assert.InDelta(t, 4.0, b.Reflect(0, 6), 1e-12)
	assert.InDelta(t, 3.0, b.Reflect(0, 1), 1e-12)
	assert.InDelta(t, 3.0, b.Reflect(0, 9), 1e-12)
}

func TestClampVel(t *testing.T) {
	b := NewBox(2, -100, 100)
	assert.Equal(t, 100.0, b.VMax[0])
	assert.Equal(t, 100.0, b.ClampVel(0, 150))
	assert.Equal(t, -100.0, b.ClampVel(1, -150))
	assert.Equal(t, 42.0, b.ClampVel(1, 42))
}

func TestBoxValidate(t *testing.T) {
	assert.NoError(t, NewBox(3, -5, 5).Validate())
	assert.Error(t, NewBox(0, -5, 5).Validate())
	assert.Error(t, NewBox(2, 5, -5).Validate())

	b := NewBox(2, -5, 5)
	b.VMax = b.VMax[:1]
	assert.Error(t, b.Validate())

	b = NewBox(2, -5, 5)
	b.VMax[1] = 0
	assert.Error(t, b.Validate())

	b = NewBox(2, -5, 5)
	b.VMax[0] = math.Inf(1)
	assert.Error(t, b.Validate())

	// the range and speed limit overflow
	assert.Error(t, NewBox(1, -1e308, 1e308).Validate())
	assert.Error(t, NewBox(1, math.Inf(-1), 0).Validate())
	assert.NoError(t, NewBox(1, -1e307, 1e307).Validate())
}

func TestBoxContainsClamp(t *testing.T) {
	b := NewBox(2, -1, 1)
	assert.True(t, b.Contains([]float64{0, 1}))
	assert.False(t, b.Contains([]float64{0, 1.1}))

	x := []float64{-3, 0.5}
	b.Clamp(x)
	assert.Equal(t, []float64{-1, 0.5}, x)
}

func TestInfiniteNearest(t *testing.T) {
	m := &Infinite{Step: 0.5}
	got := m.Nearest([]float64{1.2, -0.8, 0.1})
	want := []float64{1.0, -1.0, 0}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "dim %v", i)
	}

	cont := &Infinite{}
	assert.Equal(t, []float64{1.2, 3.4}, cont.Nearest([]float64{1.2, 3.4}))
}

func TestInfiniteBasis(t *testing.T) {
	// axes rotated by 45 degrees
	s := math.Sqrt2 / 2
	m := &Infinite{
		Step:  1,
		Basis: mat.NewDense(2, 2, []float64{s, -s, s, s}),
	}

	// the point 1 unit along the first rotated axis is a grid point
	p := []float64{s, s}
	got := m.Nearest(p)
	assert.InDelta(t, s, got[0], 1e-9)
	assert.InDelta(t, s, got[1], 1e-9)

	got = m.Nearest([]float64{s + 0.1, s - 0.05})
	assert.InDelta(t, s, got[0], 0.2)
	assert.InDelta(t, s, got[1], 0.2)
}

func TestBoundedObjective(t *testing.T) {
	box := NewBox(2, -1, 1)
	m := NewBounded(&Infinite{Step: 0.5}, box)

	var seen []float64
	obj := Objective(swarmopt.SimpleFunc(func(x []float64) float64 {
		seen = append([]float64{}, x...)
		return x[0] + x[1]
	}), m)

	val, err := obj.Objective([]float64{3.3, 0.3}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0.5}, seen)
	assert.Equal(t, 1.5, val)
}
