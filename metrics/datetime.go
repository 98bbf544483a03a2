// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"time"

	"github.com/wlach/glean/metricdata"
)

// DatetimeMetric records an instant with timezone offset, truncated to the
// metric's declared precision when rendered.
type DatetimeMetric struct {
	meta      metricdata.CommonMetricData
	precision metricdata.TimeUnit
}

func NewDatetimeMetric(meta metricdata.CommonMetricData,
	precision metricdata.TimeUnit) *DatetimeMetric {
	return &DatetimeMetric{meta: meta, precision: precision}
}

// Set records value. A nil value records the current wall clock time.
func (m *DatetimeMetric) Set(g Glean, value *time.Time) {
	// The wall clock is read at call time, not when the task runs, so the
	// recorded instant reflects the host's intent.
	var t time.Time
	if value != nil {
		t = *value
	} else {
		t = g.Clock().Now()
	}
	g.Dispatch(func() {
		m.setSync(g, t)
	})
}

func (m *DatetimeMetric) setSync(g Glean, t time.Time) {
	if !shouldRecord(g, &m.meta) {
		return
	}
	id := recordingIdentifier(g, &m.meta, metricdata.KindDatetime)
	g.Storage().Record(m.meta.Lifetime, m.meta.SendInPings, metricdata.KindDatetime,
		id, func(metricdata.Value) metricdata.Value {
			return metricdata.Datetime{Time: t, Precision: m.precision}
		})
}

// TestGetValue returns the stored instant rendered at the metric's
// precision, and whether one is present. Test-only.
func (m *DatetimeMetric) TestGetValue(g Glean, ping string) (string, bool) {
	g.BlockOnDispatcher()
	v := g.Storage().SnapshotMetric(testStore(&m.meta, ping), lookupIdentifier(&m.meta))
	if d, ok := v.(metricdata.Datetime); ok {
		return d.AsJSON().(string), true
	}
	return "", false
}

// TestGetNumRecordedErrors returns the recorded error count of kind for this
// metric. Test-only.
func (m *DatetimeMetric) TestGetNumRecordedErrors(g Glean, kind metricdata.ErrorKind,
	ping string) int32 {
	return TestGetNumRecordedErrors(g, &m.meta, kind, ping)
}
