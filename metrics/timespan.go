// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/wlach/glean/metricdata"
)

// TimespanMetric measures a single elapsed duration. Only one timer may be
// outstanding at a time, and a stored value is never overwritten: the state
// machine is Idle -> Running -> Stored, with illegal transitions counted as
// InvalidState errors.
type TimespanMetric struct {
	meta metricdata.CommonMetricData
	unit metricdata.TimeUnit

	// start is the monotonic reading of the outstanding timer. Only
	// touched from dispatched tasks.
	start *uint64
}

func NewTimespanMetric(meta metricdata.CommonMetricData,
	unit metricdata.TimeUnit) *TimespanMetric {
	return &TimespanMetric{meta: meta, unit: unit}
}

// Start begins the timer. The monotonic clock is read at call time, before
// the task is queued, so dispatcher latency does not inflate measurements.
func (m *TimespanMetric) Start(g Glean) {
	now := g.Monotonic().NowNanos()
	g.Dispatch(func() {
		m.startSync(g, now)
	})
}

func (m *TimespanMetric) startSync(g Glean, now uint64) {
	if !shouldRecord(g, &m.meta) {
		return
	}
	if m.start != nil {
		recordError(g, &m.meta, metricdata.InvalidState,
			"Timespan already started")
		return
	}
	m.start = &now
}

// Stop ends the timer and records the elapsed time, converted to the
// metric's unit with truncation.
func (m *TimespanMetric) Stop(g Glean) {
	now := g.Monotonic().NowNanos()
	g.Dispatch(func() {
		m.stopSync(g, now)
	})
}

func (m *TimespanMetric) stopSync(g Glean, now uint64) {
	if !shouldRecord(g, &m.meta) {
		// A straggling timer from before upload was disabled must not
		// survive re-enabling.
		m.start = nil
		return
	}
	if m.start == nil {
		recordError(g, &m.meta, metricdata.InvalidState,
			"Timespan not running")
		return
	}
	start := *m.start
	m.start = nil
	if now < start {
		recordError(g, &m.meta, metricdata.InvalidValue,
			"Timespan ended before it started")
		return
	}
	m.record(g, now-start)
}

// Cancel discards the outstanding timer, if any.
func (m *TimespanMetric) Cancel(g Glean) {
	g.Dispatch(func() {
		m.start = nil
	})
}

// SetRawNanos records an externally measured duration. Illegal while a
// timer is running or once a value is stored.
func (m *TimespanMetric) SetRawNanos(g Glean, nanos uint64) {
	g.Dispatch(func() {
		m.setRawSync(g, nanos)
	})
}

func (m *TimespanMetric) setRawSync(g Glean, nanos uint64) {
	if !shouldRecord(g, &m.meta) {
		return
	}
	if m.start != nil {
		recordError(g, &m.meta, metricdata.InvalidState,
			"Timespan can't be set while running")
		return
	}
	m.record(g, nanos)
}

// record writes elapsed unless a value is already stored. Presence is
// checked against the metric's first store; a stored value records an
// InvalidState error and is kept.
func (m *TimespanMetric) record(g Glean, elapsedNanos uint64) {
	id := recordingIdentifier(g, &m.meta, metricdata.KindTimespan)
	existing := g.Storage().SnapshotMetric(m.meta.SendInPings[0], id)
	if _, ok := existing.(metricdata.Timespan); ok {
		recordError(g, &m.meta, metricdata.InvalidState,
			"Timespan already recorded")
		return
	}
	g.Storage().Record(m.meta.Lifetime, m.meta.SendInPings, metricdata.KindTimespan,
		id, func(metricdata.Value) metricdata.Value {
			return metricdata.Timespan{Nanos: elapsedNanos, Unit: m.unit}
		})
}

// TestGetValue returns the stored elapsed time in the metric's unit, and
// whether one is present. Test-only.
func (m *TimespanMetric) TestGetValue(g Glean, ping string) (uint64, bool) {
	g.BlockOnDispatcher()
	v := g.Storage().SnapshotMetric(testStore(&m.meta, ping), lookupIdentifier(&m.meta))
	if t, ok := v.(metricdata.Timespan); ok {
		return t.Unit.FromNanos(t.Nanos), true
	}
	return 0, false
}

// TestGetNumRecordedErrors returns the recorded error count of kind for this
// metric. Test-only.
func (m *TimespanMetric) TestGetNumRecordedErrors(g Glean, kind metricdata.ErrorKind,
	ping string) int32 {
	return TestGetNumRecordedErrors(g, &m.meta, kind, ping)
}
