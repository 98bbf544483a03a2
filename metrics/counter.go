// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"math"

	"github.com/wlach/glean/metricdata"
)

// CounterMetric accumulates positive increments. The stored sum saturates
// instead of wrapping.
type CounterMetric struct {
	meta metricdata.CommonMetricData
}

func NewCounterMetric(meta metricdata.CommonMetricData) *CounterMetric {
	return &CounterMetric{meta: meta}
}

// Add increments the counter by amount. A non-positive amount records an
// InvalidValue error and leaves the stored sum unchanged.
func (m *CounterMetric) Add(g Glean, amount int32) {
	g.Dispatch(func() {
		m.addSync(g, amount)
	})
}

func (m *CounterMetric) addSync(g Glean, amount int32) {
	if !shouldRecord(g, &m.meta) {
		return
	}
	if amount <= 0 {
		recordError(g, &m.meta, metricdata.InvalidValue,
			fmt.Sprintf("Added negative or zero value %d", amount))
		return
	}
	id := recordingIdentifier(g, &m.meta, metricdata.KindCounter)
	g.Storage().Record(m.meta.Lifetime, m.meta.SendInPings, metricdata.KindCounter,
		id, func(prev metricdata.Value) metricdata.Value {
			sum := int64(amount)
			if c, ok := prev.(metricdata.Counter); ok {
				sum += int64(c)
			}
			if sum > math.MaxInt32 {
				sum = math.MaxInt32
			}
			return metricdata.Counter(sum)
		})
}

// TestGetValue returns the stored sum for ping, and whether one is present.
// Test-only.
func (m *CounterMetric) TestGetValue(g Glean, ping string) (int32, bool) {
	g.BlockOnDispatcher()
	v := g.Storage().SnapshotMetric(testStore(&m.meta, ping), lookupIdentifier(&m.meta))
	if c, ok := v.(metricdata.Counter); ok {
		return int32(c), true
	}
	return 0, false
}

// TestGetNumRecordedErrors returns the recorded error count of kind for this
// metric. Test-only.
func (m *CounterMetric) TestGetNumRecordedErrors(g Glean, kind metricdata.ErrorKind,
	ping string) int32 {
	return TestGetNumRecordedErrors(g, &m.meta, kind, ping)
}
