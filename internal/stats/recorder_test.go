package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderSummary(t *testing.T) {
	r := NewRecorder()
	for i := 1; i <= 100; i++ {
		r.Record("list", time.Duration(i)*time.Millisecond, i%10 != 0, 10)
	}
	r.Record("create", 500*time.Millisecond, true, 5)

	s := r.Summary()
	assert.Equal(t, int64(101), s.Count)
	assert.Equal(t, int64(10), s.Errors)
	assert.Equal(t, int64(1005), s.Bytes)
	assert.InDelta(t, 10.0/101.0, s.ErrorRate, 1e-9)
	assert.Positive(t, s.Throughput)

	assert.InDelta(t, float64(time.Millisecond), float64(s.Min), float64(time.Millisecond)/100)
	assert.InDelta(t, float64(500*time.Millisecond), float64(s.Max), float64(time.Millisecond))
	assert.InDelta(t, float64(51*time.Millisecond), float64(s.P50), float64(time.Millisecond))
	assert.InDelta(t, float64(100*time.Millisecond), float64(s.P99), float64(time.Millisecond))

	require.Len(t, s.Requests, 2)
	assert.Equal(t, "create", s.Requests[0].Name)
	assert.Equal(t, int64(1), s.Requests[0].Count)
	assert.Equal(t, "list", s.Requests[1].Name)
	assert.Equal(t, int64(100), s.Requests[1].Count)
	assert.Equal(t, int64(10), s.Requests[1].Errors)
}

func TestRecorderEmpty(t *testing.T) {
	s := NewRecorder().Summary()
	assert.Zero(t, s.Count)
	assert.Zero(t, s.P99)
	assert.Zero(t, s.ErrorRate)
	assert.Empty(t, s.Requests)
}

func TestRecorderClampsOutOfRange(t *testing.T) {
	r := NewRecorder()
	r.Record("", 0, true, 0)
	r.Record("", 2*time.Hour, true, 0)

	s := r.Summary()
	assert.Equal(t, int64(2), s.Count)
	assert.Equal(t, time.Microsecond, s.Min)
	assert.InDelta(t, float64(time.Hour), float64(s.Max), float64(time.Hour)/100)
	assert.Empty(t, s.Requests)
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Record("r", time.Millisecond, true, 1)
			}
		}()
	}
	wg.Wait()

	s := r.Summary()
	assert.Equal(t, int64(800), s.Count)
	assert.Equal(t, int64(800), s.Requests[0].Count)
}
