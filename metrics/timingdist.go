// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"sync/atomic"

	"github.com/wlach/glean/metricdata"
)

// TimerId identifies one outstanding timer of a timing distribution. Ids are
// allocated per metric and never reused by that metric; timers of different
// metrics may share an id.
type TimerId uint64

// TimingDistributionMetric accumulates many timing samples into an
// exponential histogram. Unlike a timespan, any number of timers may be
// outstanding concurrently, each addressed by its TimerId.
type TimingDistributionMetric struct {
	meta metricdata.CommonMetricData

	nextTimer atomic.Uint64
	// running maps outstanding timers to their start reading. Only touched
	// from dispatched tasks.
	running map[TimerId]uint64
}

func NewTimingDistributionMetric(meta metricdata.CommonMetricData) *TimingDistributionMetric {
	return &TimingDistributionMetric{
		meta:    meta,
		running: map[TimerId]uint64{},
	}
}

// Start begins a new timer and returns its id. The id is allocated
// immediately; the bookkeeping runs on the dispatcher.
func (m *TimingDistributionMetric) Start(g Glean) TimerId {
	id := TimerId(m.nextTimer.Add(1))
	now := g.Monotonic().NowNanos()
	g.Dispatch(func() {
		if !shouldRecord(g, &m.meta) {
			return
		}
		m.running[id] = now
	})
	return id
}

// StopAndAccumulate ends the timer and folds the elapsed time into the
// histogram. An unknown or already stopped id records an InvalidState error.
func (m *TimingDistributionMetric) StopAndAccumulate(g Glean, id TimerId) {
	now := g.Monotonic().NowNanos()
	g.Dispatch(func() {
		m.stopSync(g, id, now)
	})
}

func (m *TimingDistributionMetric) stopSync(g Glean, id TimerId, now uint64) {
	if !shouldRecord(g, &m.meta) {
		delete(m.running, id)
		return
	}
	start, ok := m.running[id]
	if !ok {
		recordError(g, &m.meta, metricdata.InvalidState,
			"Timing distribution timer never started or already stopped")
		return
	}
	delete(m.running, id)
	var sample uint64
	if now > start {
		sample = now - start
	}
	m.accumulate(g, sample)
}

// Cancel discards the timer without accumulating a sample.
func (m *TimingDistributionMetric) Cancel(g Glean, id TimerId) {
	g.Dispatch(func() {
		delete(m.running, id)
	})
}

// AccumulateRawNanos folds an externally measured sample into the histogram.
func (m *TimingDistributionMetric) AccumulateRawNanos(g Glean, nanos uint64) {
	g.Dispatch(func() {
		if !shouldRecord(g, &m.meta) {
			return
		}
		m.accumulate(g, nanos)
	})
}

func (m *TimingDistributionMetric) accumulate(g Glean, sample uint64) {
	storageID := recordingIdentifier(g, &m.meta, metricdata.KindTimingDistribution)
	overflowed := false
	g.Storage().Record(m.meta.Lifetime, m.meta.SendInPings,
		metricdata.KindTimingDistribution, storageID,
		func(prev metricdata.Value) metricdata.Value {
			hist, ok := prev.(*metricdata.Histogram)
			if !ok {
				hist = metricdata.NewHistogram()
			}
			if !hist.Accumulate(sample) {
				overflowed = true
			}
			return hist
		})
	if overflowed {
		recordError(g, &m.meta, metricdata.InvalidOverflow,
			"Timing sample longer than the distribution range")
	}
}

// TestGetValue returns the stored histogram for ping, and whether one is
// present. Test-only.
func (m *TimingDistributionMetric) TestGetValue(g Glean, ping string) (*metricdata.Histogram, bool) {
	g.BlockOnDispatcher()
	v := g.Storage().SnapshotMetric(testStore(&m.meta, ping), lookupIdentifier(&m.meta))
	if h, ok := v.(*metricdata.Histogram); ok {
		return h, true
	}
	return nil, false
}

// TestGetNumRecordedErrors returns the recorded error count of kind for this
// metric. Test-only.
func (m *TimingDistributionMetric) TestGetNumRecordedErrors(g Glean,
	kind metricdata.ErrorKind, ping string) int32 {
	return TestGetNumRecordedErrors(g, &m.meta, kind, ping)
}
