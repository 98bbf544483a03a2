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

func TestDatetimeSetExplicit(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewDatetimeMetric(pingMeta("app", "updated"), metricdata.Second)

	loc := time.FixedZone("somewhere", 2*3600)
	when := time.Date(2024, 3, 10, 14, 5, 6, 999, loc)
	metric.Set(g, &when)

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Equal(t, "2024-03-10T14:05:06+02:00", v)
}

func TestDatetimeSetNowUsesWallClock(t *testing.T) {
	loc := time.FixedZone("pinned", -3600)
	pinned := time.Date(2024, 3, 10, 9, 30, 0, 0, loc)
	g := newTestGleanWithClocks(t, &fakeClock{t: pinned}, &fakeMonotonic{})
	metric := metrics.NewDatetimeMetric(pingMeta("app", "updated"), metricdata.Minute)

	metric.Set(g, nil)

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Equal(t, "2024-03-10T09:30-01:00", v)
}
