// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/wlach/glean/metricdata"
)

// BooleanMetric records a simple flag. Set overwrites the stored value.
type BooleanMetric struct {
	meta metricdata.CommonMetricData
}

func NewBooleanMetric(meta metricdata.CommonMetricData) *BooleanMetric {
	return &BooleanMetric{meta: meta}
}

// Set records value to every store this metric is sent in.
func (m *BooleanMetric) Set(g Glean, value bool) {
	g.Dispatch(func() {
		m.setSync(g, value)
	})
}

func (m *BooleanMetric) setSync(g Glean, value bool) {
	if !shouldRecord(g, &m.meta) {
		return
	}
	id := recordingIdentifier(g, &m.meta, metricdata.KindBoolean)
	g.Storage().Record(m.meta.Lifetime, m.meta.SendInPings, metricdata.KindBoolean,
		id, func(metricdata.Value) metricdata.Value {
			return metricdata.Boolean(value)
		})
}

// TestGetValue returns the stored flag for ping (or the metric's first
// ping), and whether one is present. Test-only.
func (m *BooleanMetric) TestGetValue(g Glean, ping string) (bool, bool) {
	g.BlockOnDispatcher()
	v := g.Storage().SnapshotMetric(testStore(&m.meta, ping), lookupIdentifier(&m.meta))
	if b, ok := v.(metricdata.Boolean); ok {
		return bool(b), true
	}
	return false, false
}

// TestGetNumRecordedErrors returns the recorded error count of kind for this
// metric. Test-only.
func (m *BooleanMetric) TestGetNumRecordedErrors(g Glean, kind metricdata.ErrorKind,
	ping string) int32 {
	return TestGetNumRecordedErrors(g, &m.meta, kind, ping)
}
