// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"

	"github.com/wlach/glean/metricdata"
)

// EventMetric appends timestamped occurrences to the event stores of its
// pings. When a store reaches the configured capacity the corresponding ping
// is submitted immediately so no event is lost.
type EventMetric struct {
	meta             metricdata.CommonMetricData
	allowedExtraKeys []string
}

func NewEventMetric(meta metricdata.CommonMetricData,
	allowedExtraKeys []string) *EventMetric {
	return &EventMetric{meta: meta, allowedExtraKeys: allowedExtraKeys}
}

// Record appends one occurrence, stamped with the monotonic clock at call
// time. Extra keys not declared for this event are dropped and counted as
// InvalidValue errors; extra values are truncated like any string payload.
func (m *EventMetric) Record(g Glean, extras map[string]string) {
	timestampMs := g.Monotonic().NowNanos() / 1_000_000
	g.Dispatch(func() {
		m.recordSync(g, timestampMs, extras)
	})
}

func (m *EventMetric) recordSync(g Glean, timestampMs uint64, extras map[string]string) {
	if !shouldRecord(g, &m.meta) {
		return
	}

	var extra map[string]string
	for key, value := range extras {
		if !m.allowedKey(key) {
			recordError(g, &m.meta, metricdata.InvalidValue,
				fmt.Sprintf("Extra key %q is not allowed for this event", key))
			continue
		}
		if extra == nil {
			extra = make(map[string]string, len(extras))
		}
		extra[key] = truncateString(g, &m.meta, value)
	}

	ev := metricdata.Event{
		Timestamp: timestampMs,
		Category:  m.meta.Category,
		Name:      m.meta.Name,
		Extra:     extra,
	}
	counts := g.Storage().Events().Record(m.meta.SendInPings, ev)
	for store, count := range counts {
		if count >= g.MaxEvents() {
			g.SubmitPingSync(store, "max_capacity")
		}
	}
}

func (m *EventMetric) allowedKey(key string) bool {
	for _, k := range m.allowedExtraKeys {
		if k == key {
			return true
		}
	}
	return false
}

// TestGetValue returns the events recorded in ping, in recording order.
// Test-only.
func (m *EventMetric) TestGetValue(g Glean, ping string) []metricdata.Event {
	g.BlockOnDispatcher()
	events := g.Storage().Events().Snapshot(testStore(&m.meta, ping), false)
	var out []metricdata.Event
	for _, ev := range events {
		if ev.Category == m.meta.Category && ev.Name == m.meta.Name {
			out = append(out, ev)
		}
	}
	return out
}

// TestGetNumRecordedErrors returns the recorded error count of kind for this
// metric. Test-only.
func (m *EventMetric) TestGetNumRecordedErrors(g Glean, kind metricdata.ErrorKind,
	ping string) int32 {
	return TestGetNumRecordedErrors(g, &m.meta, kind, ping)
}
