// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/metrics"
)

func TestStringSetOverwrites(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewStringMetric(pingMeta("app", "name"))

	metric.Set(g, "first")
	metric.Set(g, "second")

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Equal(t, "second", v)
}

func TestStringTruncation(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewStringMetric(pingMeta("app", "name"))

	long := strings.Repeat("a", 150)
	metric.Set(g, long)

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Equal(t, strings.Repeat("a", 100), v)
	assert.EqualValues(t, 1,
		metric.TestGetNumRecordedErrors(g, metricdata.InvalidValue, ""))
}

func TestStringTruncationRespectsCharBoundary(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewStringMetric(pingMeta("app", "name"))

	// 99 ASCII bytes followed by a three-byte rune straddling the cap.
	value := strings.Repeat("a", 99) + "€€"
	metric.Set(g, value)

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.True(t, utf8.ValidString(v))
	assert.LessOrEqual(t, len(v), 100)
	assert.True(t, strings.HasPrefix(value, v))
	assert.EqualValues(t, 1,
		metric.TestGetNumRecordedErrors(g, metricdata.InvalidValue, ""))
}
