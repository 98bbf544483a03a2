// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/wlach/glean/metricdata"
)

// StringMetric records a short UTF-8 string, overwriting on every set.
// Values longer than MaxStringLength bytes are truncated on a character
// boundary and the truncation is counted as an InvalidValue error.
type StringMetric struct {
	meta metricdata.CommonMetricData
}

func NewStringMetric(meta metricdata.CommonMetricData) *StringMetric {
	return &StringMetric{meta: meta}
}

// Set records value to every store this metric is sent in.
func (m *StringMetric) Set(g Glean, value string) {
	g.Dispatch(func() {
		m.setSync(g, value)
	})
}

func (m *StringMetric) setSync(g Glean, value string) {
	if !shouldRecord(g, &m.meta) {
		return
	}
	value = truncateString(g, &m.meta, value)
	id := recordingIdentifier(g, &m.meta, metricdata.KindString)
	g.Storage().Record(m.meta.Lifetime, m.meta.SendInPings, metricdata.KindString,
		id, func(metricdata.Value) metricdata.Value {
			return metricdata.String(value)
		})
}

// TestGetValue returns the stored string for ping, and whether one is
// present. Test-only.
func (m *StringMetric) TestGetValue(g Glean, ping string) (string, bool) {
	g.BlockOnDispatcher()
	v := g.Storage().SnapshotMetric(testStore(&m.meta, ping), lookupIdentifier(&m.meta))
	if s, ok := v.(metricdata.String); ok {
		return string(s), true
	}
	return "", false
}

// TestGetNumRecordedErrors returns the recorded error count of kind for this
// metric. Test-only.
func (m *StringMetric) TestGetNumRecordedErrors(g Glean, kind metricdata.ErrorKind,
	ping string) int32 {
	return TestGetNumRecordedErrors(g, &m.meta, kind, ping)
}
