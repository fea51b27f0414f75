// Package collector aggregates classified request outcomes.
//
// Virtual users hand every outcome to a Collector. The histogram
// implementation here enqueues without blocking (a full queue drops the
// sample and counts the drop) and aggregates on a background goroutine,
// so recording never stalls a reporting user.
package collector

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histMin     int64 = 1
	histMax     int64 = 3600000000
	histSigFigs       = 3
)

// DefaultQueueSize is the default capacity of the sample queue.
const DefaultQueueSize = 4096

// Sample is one classified request outcome. Label is the aggregation
// key, not the literal request path.
type Sample struct {
	Label   string
	Elapsed time.Duration
	OK      bool
}

// Collector receives classified outcomes from virtual users.
type Collector interface {
	Record(Sample)
}

// HistogramCollector aggregates samples into per-label HDR histograms.
type HistogramCollector struct {
	ch       chan Sample
	recorded atomic.Int64
	dropped  atomic.Int64

	mu     sync.Mutex
	labels map[string]*labelAgg

	// closeMu serializes Close against in-flight Records so the sample
	// channel is never closed while a producer may be sending on it.
	closeMu sync.RWMutex
	closed  bool

	done chan struct{}
}

type labelAgg struct {
	hist     *hdrhistogram.Histogram
	count    int64
	failures int64
}

// New creates a collector and starts its drain goroutine. queueSize <= 0
// selects DefaultQueueSize.
func New(queueSize int) *HistogramCollector {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	c := &HistogramCollector{
		ch:     make(chan Sample, queueSize),
		labels: make(map[string]*labelAgg),
		done:   make(chan struct{}),
	}
	go c.drain()
	return c
}

// Record enqueues a sample without blocking. Samples that do not fit in
// the queue are dropped and counted; the drop count is surfaced in the
// report rather than silently lost.
//
// Recording after Close is safe: late samples from abandoned users are
// counted as dropped instead of panicking on the closed channel.
func (c *HistogramCollector) Record(s Sample) {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()

	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.ch <- s:
		c.recorded.Add(1)
	default:
		c.dropped.Add(1)
	}
}

// Recorded returns the number of samples accepted so far. Useful for
// asserting that a drained pool produces no further samples.
func (c *HistogramCollector) Recorded() int64 {
	return c.recorded.Load()
}

func (c *HistogramCollector) drain() {
	defer close(c.done)
	for s := range c.ch {
		c.aggregate(s)
	}
}

func (c *HistogramCollector) aggregate(s Sample) {
	micros := s.Elapsed.Microseconds()
	if micros < histMin {
		micros = histMin
	}
	if micros > histMax {
		micros = histMax
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	agg, ok := c.labels[s.Label]
	if !ok {
		agg = &labelAgg{hist: hdrhistogram.New(histMin, histMax, histSigFigs)}
		c.labels[s.Label] = agg
	}
	agg.hist.RecordValue(micros)
	agg.count++
	if !s.OK {
		agg.failures++
	}
}

// Close stops accepting samples and waits for the queue to drain.
// Idempotent, and safe to call while users may still record.
func (c *HistogramCollector) Close() {
	c.closeMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	c.closeMu.Unlock()
	<-c.done
}

// Dropped returns the number of samples lost to a full queue.
func (c *HistogramCollector) Dropped() int64 {
	return c.dropped.Load()
}

// Snapshot returns the aggregated report so far. Safe to call while
// samples are still being drained, though totals will be mid-flight.
func (c *HistogramCollector) Snapshot() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	rep := &Report{
		Dropped: c.dropped.Load(),
		Labels:  make([]LabelStats, 0, len(c.labels)),
	}

	for label, agg := range c.labels {
		rep.Total += agg.count
		rep.Failures += agg.failures
		rep.Labels = append(rep.Labels, LabelStats{
			Label:    label,
			Count:    agg.count,
			Failures: agg.failures,
			Min:      time.Duration(agg.hist.Min()) * time.Microsecond,
			Mean:     time.Duration(agg.hist.Mean()) * time.Microsecond,
			P50:      time.Duration(agg.hist.ValueAtQuantile(50)) * time.Microsecond,
			P90:      time.Duration(agg.hist.ValueAtQuantile(90)) * time.Microsecond,
			P95:      time.Duration(agg.hist.ValueAtQuantile(95)) * time.Microsecond,
			P99:      time.Duration(agg.hist.ValueAtQuantile(99)) * time.Microsecond,
			Max:      time.Duration(agg.hist.Max()) * time.Microsecond,
		})
	}

	sort.Slice(rep.Labels, func(i, j int) bool {
		return rep.Labels[i].Label < rep.Labels[j].Label
	})
	return rep
}

// Report is the aggregated view of a run.
type Report struct {
	Total    int64
	Failures int64
	Dropped  int64
	Elapsed  time.Duration
	Labels   []LabelStats
}

// LabelStats holds the latency distribution for one aggregation label.
type LabelStats struct {
	Label    string
	Count    int64
	Failures int64
	Min      time.Duration
	Mean     time.Duration
	P50      time.Duration
	P90      time.Duration
	P95      time.Duration
	P99      time.Duration
	Max      time.Duration
}
