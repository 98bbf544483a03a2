// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/metrics"
)

func TestStringListAddAppends(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewStringListMetric(pingMeta("app", "flags"))

	metric.Add(g, "one")
	metric.Add(g, "two")

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Equal(t, []string{"one", "two"}, v)
}

func TestStringListAddCapped(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewStringListMetric(pingMeta("app", "flags"))

	for i := range metrics.MaxListLength + 1 {
		metric.Add(g, fmt.Sprintf("entry-%02d", i))
	}

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Len(t, v, metrics.MaxListLength)
	assert.Equal(t, "entry-00", v[0])
	assert.EqualValues(t, 1,
		metric.TestGetNumRecordedErrors(g, metricdata.InvalidValue, ""))
}

func TestStringListSetReplaces(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewStringListMetric(pingMeta("app", "flags"))

	metric.Add(g, "old")
	metric.Set(g, []string{"new-a", "new-b"})

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Equal(t, []string{"new-a", "new-b"}, v)
}

func TestStringListSetTruncatesEntries(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewStringListMetric(pingMeta("app", "flags"))

	metric.Set(g, []string{strings.Repeat("x", 120)})

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	require.Len(t, v, 1)
	assert.Len(t, v[0], 100)
	assert.EqualValues(t, 1,
		metric.TestGetNumRecordedErrors(g, metricdata.InvalidValue, ""))
}

func TestStringListSetCapsLength(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewStringListMetric(pingMeta("app", "flags"))

	values := make([]string, metrics.MaxListLength+5)
	for i := range values {
		values[i] = fmt.Sprintf("v%d", i)
	}
	metric.Set(g, values)

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Len(t, v, metrics.MaxListLength)
	assert.EqualValues(t, 1,
		metric.TestGetNumRecordedErrors(g, metricdata.InvalidValue, ""))
}
