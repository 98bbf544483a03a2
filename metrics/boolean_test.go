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

func TestBooleanSetOverwrites(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewBooleanMetric(pingMeta("app", "first_run"))

	metric.Set(g, true)
	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.True(t, v)

	metric.Set(g, false)
	v, has = metric.TestGetValue(g, "")
	require.True(t, has)
	assert.False(t, v)
}

func TestBooleanDisabledRecordsNothing(t *testing.T) {
	g := newTestGlean(t)
	meta := pingMeta("app", "first_run")
	meta.Disabled = true
	metric := metrics.NewBooleanMetric(meta)

	for range 10 {
		metric.Set(g, true)
	}

	_, has := metric.TestGetValue(g, "")
	assert.False(t, has)
	for _, kind := range []metricdata.ErrorKind{metricdata.InvalidValue,
		metricdata.InvalidLabel, metricdata.InvalidState, metricdata.InvalidOverflow} {
		assert.EqualValues(t, 0, metric.TestGetNumRecordedErrors(g, kind, ""))
	}
}
