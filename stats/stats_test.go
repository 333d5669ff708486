package stats

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	s := Summarize("vals", []float64{4, 1, 3, 2, 5})
	assert.Equal(t, 5, s.N)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Median)

	one := Summarize("one", []float64{7})
	assert.Equal(t, 0.0, one.Std)
	assert.Equal(t, 7.0, one.Mean)

	empty := Summarize("none", nil)
	assert.Equal(t, 0, empty.N)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestRecorderReportOrder(t *testing.T) {
	r := NewRecorder()
	r.Observe("zeta", 1)
	r.Observe("alpha", 2)
	r.Observe("mid", 3)
	r.Observe("alpha", 4)

	rep := r.Report()
	require.Len(t, rep, 3)
	assert.Equal(t, "alpha", rep[0].Name)
	assert.Equal(t, 2, rep[0].N)
	assert.Equal(t, 3.0, rep[0].Mean)
	assert.Equal(t, "mid", rep[1].Name)
	assert.Equal(t, "zeta", rep[2].Name)

	assert.Equal(t, []float64{2, 4}, r.Samples("alpha"))
	assert.Nil(t, r.Samples("missing"))

	r.Reset()
	assert.Empty(t, r.Report())
}

func TestRecorderTime(t *testing.T) {
	var r Recorder
	err := r.Time("sleep", func() error {
		time.Sleep(time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	got := r.Samples("sleep")
	require.Len(t, got, 1)
	assert.GreaterOrEqual(t, got[0], 0.001)
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 250; j++ {
				r.Add("eval", time.Microsecond)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, r.Samples("eval"), 1000)
}
