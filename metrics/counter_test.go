// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/metrics"
)

func TestCounterSumsAdds(t *testing.T) {
	g := newTestGlean(t)
	counter := metrics.NewCounterMetric(pingMeta("ui", "click"))

	counter.Add(g, 1)
	counter.Add(g, 2)
	counter.Add(g, 3)

	sum, has := counter.TestGetValue(g, "")
	require.True(t, has)
	assert.EqualValues(t, 6, sum)
	assert.EqualValues(t, 0,
		counter.TestGetNumRecordedErrors(g, metricdata.InvalidValue, ""))
}

func TestCounterRejectsNonPositive(t *testing.T) {
	g := newTestGlean(t)
	counter := metrics.NewCounterMetric(pingMeta("ui", "click"))

	counter.Add(g, 1)
	counter.Add(g, -2)
	counter.Add(g, 0)

	sum, has := counter.TestGetValue(g, "")
	require.True(t, has)
	assert.EqualValues(t, 1, sum)
	assert.EqualValues(t, 2,
		counter.TestGetNumRecordedErrors(g, metricdata.InvalidValue, ""))
}

func TestCounterNoValueBeforeFirstAdd(t *testing.T) {
	g := newTestGlean(t)
	counter := metrics.NewCounterMetric(pingMeta("ui", "click"))

	_, has := counter.TestGetValue(g, "")
	assert.False(t, has)

	// A rejected add must not create a value either.
	counter.Add(g, -1)
	_, has = counter.TestGetValue(g, "")
	assert.False(t, has)
}

func TestCounterDisabledRecordsNothing(t *testing.T) {
	g := newTestGlean(t)
	meta := pingMeta("ui", "click")
	meta.Disabled = true
	counter := metrics.NewCounterMetric(meta)

	counter.Add(g, 1)
	counter.Add(g, -1)

	_, has := counter.TestGetValue(g, "")
	assert.False(t, has)
	assert.EqualValues(t, 0,
		counter.TestGetNumRecordedErrors(g, metricdata.InvalidValue, ""))
}

func TestCounterWritesAllPings(t *testing.T) {
	g := newTestGlean(t)
	meta := pingMeta("ui", "click")
	meta.SendInPings = []string{"store1", "store2"}
	counter := metrics.NewCounterMetric(meta)

	counter.Add(g, 4)

	for _, ping := range meta.SendInPings {
		sum, has := counter.TestGetValue(g, ping)
		require.True(t, has, "expected value in %s", ping)
		assert.EqualValues(t, 4, sum)
	}
}
