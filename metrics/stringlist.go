// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"

	"github.com/wlach/glean/metricdata"
)

// MaxListLength caps the entries of a string list. Additions beyond the cap
// are dropped and counted as InvalidValue errors.
const MaxListLength = 20

// StringListMetric records a bounded list of short strings.
type StringListMetric struct {
	meta metricdata.CommonMetricData
}

func NewStringListMetric(meta metricdata.CommonMetricData) *StringListMetric {
	return &StringListMetric{meta: meta}
}

// Add appends value to the stored list.
func (m *StringListMetric) Add(g Glean, value string) {
	g.Dispatch(func() {
		m.addSync(g, value)
	})
}

func (m *StringListMetric) addSync(g Glean, value string) {
	if !shouldRecord(g, &m.meta) {
		return
	}
	value = truncateString(g, &m.meta, value)
	id := recordingIdentifier(g, &m.meta, metricdata.KindStringList)

	// The cap check needs the current length, read under the storage lock
	// inside the merge. The error is recorded after, outside the closure,
	// to keep the merge pure.
	overflowed := false
	g.Storage().Record(m.meta.Lifetime, m.meta.SendInPings, metricdata.KindStringList,
		id, func(prev metricdata.Value) metricdata.Value {
			list, _ := prev.(metricdata.StringList)
			if len(list) >= MaxListLength {
				overflowed = true
				return list
			}
			return append(append(metricdata.StringList(nil), list...), value)
		})
	if overflowed {
		recordError(g, &m.meta, metricdata.InvalidValue,
			fmt.Sprintf("String list exceeds maximum of %d entries", MaxListLength))
	}
}

// Set replaces the stored list with values, truncating each entry and
// capping the list length.
func (m *StringListMetric) Set(g Glean, values []string) {
	g.Dispatch(func() {
		m.setSync(g, values)
	})
}

func (m *StringListMetric) setSync(g Glean, values []string) {
	if !shouldRecord(g, &m.meta) {
		return
	}
	if len(values) > MaxListLength {
		recordError(g, &m.meta, metricdata.InvalidValue,
			fmt.Sprintf("String list of length %d exceeds maximum of %d",
				len(values), MaxListLength))
		values = values[:MaxListLength]
	}
	list := make(metricdata.StringList, len(values))
	for i, v := range values {
		list[i] = truncateString(g, &m.meta, v)
	}
	id := recordingIdentifier(g, &m.meta, metricdata.KindStringList)
	g.Storage().Record(m.meta.Lifetime, m.meta.SendInPings, metricdata.KindStringList,
		id, func(metricdata.Value) metricdata.Value {
			return list
		})
}

// TestGetValue returns the stored list for ping, and whether one is present.
// Test-only.
func (m *StringListMetric) TestGetValue(g Glean, ping string) ([]string, bool) {
	g.BlockOnDispatcher()
	v := g.Storage().SnapshotMetric(testStore(&m.meta, ping), lookupIdentifier(&m.meta))
	if l, ok := v.(metricdata.StringList); ok {
		return []string(l), true
	}
	return nil, false
}

// TestGetNumRecordedErrors returns the recorded error count of kind for this
// metric. Test-only.
func (m *StringListMetric) TestGetNumRecordedErrors(g Glean, kind metricdata.ErrorKind,
	ping string) int32 {
	return TestGetNumRecordedErrors(g, &m.meta, kind, ping)
}
