// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/metrics"
)

func TestTimingDistributionAccumulates(t *testing.T) {
	mono := &fakeMonotonic{}
	g := newTestGleanWithClocks(t, &fakeClock{t: time.Now()}, mono)
	metric := metrics.NewTimingDistributionMetric(pingMeta("perf", "paint"))

	mono.set(0)
	id1 := metric.Start(g)
	mono.set(1_000)
	metric.StopAndAccumulate(g, id1)

	mono.set(2_000)
	id2 := metric.Start(g)
	mono.set(4_000)
	metric.StopAndAccumulate(g, id2)

	h, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.EqualValues(t, 2, h.Count())
	assert.EqualValues(t, 3_000, h.Sum())
}

func TestTimingDistributionConcurrentTimers(t *testing.T) {
	mono := &fakeMonotonic{}
	g := newTestGleanWithClocks(t, &fakeClock{t: time.Now()}, mono)
	metric := metrics.NewTimingDistributionMetric(pingMeta("perf", "paint"))

	mono.set(0)
	id1 := metric.Start(g)
	id2 := metric.Start(g)
	assert.NotEqual(t, id1, id2)

	mono.set(500)
	metric.StopAndAccumulate(g, id2)
	mono.set(1_500)
	metric.StopAndAccumulate(g, id1)

	h, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.EqualValues(t, 2, h.Count())
	assert.EqualValues(t, 2_000, h.Sum())
}

func TestTimingDistributionCancel(t *testing.T) {
	mono := &fakeMonotonic{}
	g := newTestGleanWithClocks(t, &fakeClock{t: time.Now()}, mono)
	metric := metrics.NewTimingDistributionMetric(pingMeta("perf", "paint"))

	id := metric.Start(g)
	metric.Cancel(g, id)
	metric.StopAndAccumulate(g, id)

	_, has := metric.TestGetValue(g, "")
	assert.False(t, has)
	assert.EqualValues(t, 1,
		metric.TestGetNumRecordedErrors(g, metricdata.InvalidState, ""))
}

func TestTimingDistributionUnknownTimer(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewTimingDistributionMetric(pingMeta("perf", "paint"))

	metric.StopAndAccumulate(g, metrics.TimerId(12345))

	_, has := metric.TestGetValue(g, "")
	assert.False(t, has)
	assert.EqualValues(t, 1,
		metric.TestGetNumRecordedErrors(g, metricdata.InvalidState, ""))
}

func TestTimingDistributionOverflowSample(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewTimingDistributionMetric(pingMeta("perf", "paint"))

	metric.AccumulateRawNanos(g, metricdata.HistogramMax+1)

	h, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.EqualValues(t, 1, h.Count())
	assert.EqualValues(t, 1,
		metric.TestGetNumRecordedErrors(g, metricdata.InvalidOverflow, ""))
}
