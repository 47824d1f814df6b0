// Package stats aggregates request latencies for repeated collection runs.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range in microseconds: 1µs to 1 hour, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// Recorder collects latencies using HDR histograms, overall and per
// request name. Recorder is safe for concurrent use.
type Recorder struct {
	// HDR histogram RecordValue is not thread-safe
	mu         sync.Mutex
	overall    *hdrhistogram.Histogram
	byName     map[string]*hdrhistogram.Histogram
	nameErrors map[string]int64

	total     atomic.Int64
	failed    atomic.Int64
	bytes     atomic.Int64
	startTime time.Time
}

// NewRecorder creates an empty recorder. The elapsed time of the summary
// is measured from this call.
func NewRecorder() *Recorder {
	return &Recorder{
		overall:    newHistogram(),
		byName:     make(map[string]*hdrhistogram.Histogram),
		nameErrors: make(map[string]int64),
		startTime:  time.Now(),
	}
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
}

// Record adds one exchange. Failed exchanges count towards the error rate
// and still contribute their latency.
func (r *Recorder) Record(name string, duration time.Duration, success bool, bytes int64) {
	latencyMicros := duration.Microseconds()

	// Clamp to valid range
	if latencyMicros < histogramMin {
		latencyMicros = histogramMin
	}
	if latencyMicros > histogramMax {
		latencyMicros = histogramMax
	}

	r.mu.Lock()
	r.overall.RecordValue(latencyMicros)
	if name != "" {
		hist, ok := r.byName[name]
		if !ok {
			hist = newHistogram()
			r.byName[name] = hist
		}
		hist.RecordValue(latencyMicros)
		if !success {
			r.nameErrors[name]++
		}
	}
	r.mu.Unlock()

	r.total.Add(1)
	r.bytes.Add(bytes)
	if !success {
		r.failed.Add(1)
	}
}

// Latency holds latency percentiles of a histogram.
type Latency struct {
	Count  int64         `json:"count" yaml:"count"`
	Errors int64         `json:"errors" yaml:"errors"`
	Min    time.Duration `json:"min" yaml:"min"`
	Max    time.Duration `json:"max" yaml:"max"`
	Mean   time.Duration `json:"mean" yaml:"mean"`
	StdDev time.Duration `json:"stdDev" yaml:"stdDev"`
	P50    time.Duration `json:"p50" yaml:"p50"`
	P90    time.Duration `json:"p90" yaml:"p90"`
	P95    time.Duration `json:"p95" yaml:"p95"`
	P99    time.Duration `json:"p99" yaml:"p99"`
}

// NamedLatency is the latency of a single request name.
type NamedLatency struct {
	Name    string `json:"name" yaml:"name"`
	Latency `yaml:",inline"`
}

// Summary is a snapshot of a Recorder.
type Summary struct {
	Latency    `yaml:",inline"`
	Bytes      int64          `json:"bytes" yaml:"bytes"`
	Elapsed    time.Duration  `json:"elapsed" yaml:"elapsed"`
	Throughput float64        `json:"throughput" yaml:"throughput"`
	ErrorRate  float64        `json:"errorRate" yaml:"errorRate"`
	Requests   []NamedLatency `json:"requests,omitempty" yaml:"requests,omitempty"`
}

// Summary returns the statistics collected so far. Per-request entries are
// sorted by name.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		Latency: latencyOf(r.overall),
		Bytes:   r.bytes.Load(),
		Elapsed: time.Since(r.startTime),
	}
	s.Count = r.total.Load()
	s.Errors = r.failed.Load()

	if s.Count > 0 {
		s.ErrorRate = float64(s.Errors) / float64(s.Count)
	}
	if s.Elapsed > 0 {
		s.Throughput = float64(s.Count) / s.Elapsed.Seconds()
	}

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		latency := latencyOf(r.byName[name])
		latency.Errors = r.nameErrors[name]
		s.Requests = append(s.Requests, NamedLatency{Name: name, Latency: latency})
	}
	return s
}

func latencyOf(h *hdrhistogram.Histogram) Latency {
	if h.TotalCount() == 0 {
		return Latency{}
	}
	return Latency{
		Count:  h.TotalCount(),
		Min:    micros(h.Min()),
		Max:    micros(h.Max()),
		Mean:   time.Duration(h.Mean() * float64(time.Microsecond)),
		StdDev: time.Duration(h.StdDev() * float64(time.Microsecond)),
		P50:    micros(h.ValueAtQuantile(50)),
		P90:    micros(h.ValueAtQuantile(90)),
		P95:    micros(h.ValueAtQuantile(95)),
		P99:    micros(h.ValueAtQuantile(99)),
	}
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
