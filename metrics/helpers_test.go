// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wlach/glean"
	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/times"
)

// fakeMonotonic is a scriptable monotonic clock.
type fakeMonotonic struct {
	now atomic.Uint64
}

func (f *fakeMonotonic) NowNanos() uint64 { return f.now.Load() }

func (f *fakeMonotonic) set(nanos uint64) { f.now.Store(nanos) }

// fakeClock is a pinned wall clock.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time { return f.t }

func newTestGlean(t *testing.T) *glean.Glean {
	t.Helper()
	g, err := glean.New(glean.Configuration{
		DataPath:      t.TempDir(),
		ApplicationID: "glean-test-app",
		UploadEnabled: true,
	})
	require.NoError(t, err)
	g.OnReadyToSubmitPings()
	t.Cleanup(g.Shutdown)
	return g
}

func newTestGleanWithClocks(t *testing.T, clock times.Clock,
	mono times.Monotonic) *glean.Glean {
	t.Helper()
	g, err := glean.NewWithClocks(glean.Configuration{
		DataPath:      t.TempDir(),
		ApplicationID: "glean-test-app",
		UploadEnabled: true,
	}, clock, mono)
	require.NoError(t, err)
	g.OnReadyToSubmitPings()
	t.Cleanup(g.Shutdown)
	return g
}

func pingMeta(category, name string) metricdata.CommonMetricData {
	return metricdata.CommonMetricData{
		Category:    category,
		Name:        name,
		SendInPings: []string{"store1"},
		Lifetime:    metricdata.LifetimePing,
	}
}
