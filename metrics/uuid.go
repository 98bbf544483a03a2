// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/google/uuid"

	"github.com/wlach/glean/metricdata"
)

// UuidMetric records a UUID, overwriting on every set.
type UuidMetric struct {
	meta metricdata.CommonMetricData
}

func NewUuidMetric(meta metricdata.CommonMetricData) *UuidMetric {
	return &UuidMetric{meta: meta}
}

// Set records id to every store this metric is sent in.
func (m *UuidMetric) Set(g Glean, id uuid.UUID) {
	g.Dispatch(func() {
		m.setSync(g, id)
	})
}

func (m *UuidMetric) setSync(g Glean, id uuid.UUID) {
	if !shouldRecord(g, &m.meta) {
		return
	}
	storageID := recordingIdentifier(g, &m.meta, metricdata.KindUuid)
	g.Storage().Record(m.meta.Lifetime, m.meta.SendInPings, metricdata.KindUuid,
		storageID, func(metricdata.Value) metricdata.Value {
			return metricdata.Uuid(id)
		})
}

// GenerateAndSet records a freshly generated random UUID and returns it.
func (m *UuidMetric) GenerateAndSet(g Glean) uuid.UUID {
	id := uuid.New()
	m.Set(g, id)
	return id
}

// TestGetValue returns the stored UUID for ping, and whether one is present.
// Test-only.
func (m *UuidMetric) TestGetValue(g Glean, ping string) (uuid.UUID, bool) {
	g.BlockOnDispatcher()
	v := g.Storage().SnapshotMetric(testStore(&m.meta, ping), lookupIdentifier(&m.meta))
	if u, ok := v.(metricdata.Uuid); ok {
		return uuid.UUID(u), true
	}
	return uuid.UUID{}, false
}

// TestGetNumRecordedErrors returns the recorded error count of kind for this
// metric. Test-only.
func (m *UuidMetric) TestGetNumRecordedErrors(g Glean, kind metricdata.ErrorKind,
	ping string) int32 {
	return TestGetNumRecordedErrors(g, &m.meta, kind, ping)
}
