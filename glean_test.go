// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package glean_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wlach/glean"
	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/metrics"
	"github.com/wlach/glean/pings"
)

func newInstance(t *testing.T, dataPath string, uploadEnabled bool) *glean.Glean {
	t.Helper()
	g, err := glean.New(glean.Configuration{
		DataPath:      dataPath,
		ApplicationID: "glean-test-app",
		UploadEnabled: uploadEnabled,
	})
	require.NoError(t, err)
	g.OnReadyToSubmitPings()
	return g
}

func collectJSON(t *testing.T, g *glean.Glean, ping string) string {
	t.Helper()
	payload, ok := g.TestCollectPing(ping)
	require.True(t, ok, "expected ping %s to have a payload", ping)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(body)
}

func counterMeta(category, name, ping string) metricdata.CommonMetricData {
	return metricdata.CommonMetricData{
		Category:    category,
		Name:        name,
		SendInPings: []string{ping},
		Lifetime:    metricdata.LifetimePing,
	}
}

func TestCounterEndToEnd(t *testing.T) {
	g := newInstance(t, t.TempDir(), true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("events", true, false))

	counter := metrics.NewCounterMetric(counterMeta("ui", "click", "events"))
	counter.Add(g, 1)
	counter.Add(g, 1)
	counter.Add(g, 1)
	counter.Add(g, -2)
	g.BlockOnDispatcher()

	body := collectJSON(t, g, "events")
	assert.EqualValues(t, 3, gjson.Get(body, `metrics.counter.ui\.click`).Int())
	assert.EqualValues(t, 1,
		gjson.Get(body, `metrics.counter.glean\.error\.invalid_value/ui\.click`).Int())
}

func TestPingRoundTripToEmpty(t *testing.T) {
	g := newInstance(t, t.TempDir(), true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("custom", true, false))

	counter := metrics.NewCounterMetric(counterMeta("ui", "click", "custom"))
	counter.Add(g, 1)
	g.BlockOnDispatcher()

	first := collectJSON(t, g, "custom")
	assert.True(t, gjson.Get(first, "metrics").Exists())

	// Everything was Ping lifetime; a second collection has no data.
	_, ok := g.TestCollectPing("custom")
	assert.False(t, ok)
}

func TestNonPingLifetimesSurviveCollection(t *testing.T) {
	g := newInstance(t, t.TempDir(), true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("custom", true, false))

	appMeta := counterMeta("app", "counter", "custom")
	appMeta.Lifetime = metricdata.LifetimeApplication
	userMeta := counterMeta("user", "counter", "custom")
	userMeta.Lifetime = metricdata.LifetimeUser

	appCounter := metrics.NewCounterMetric(appMeta)
	userCounter := metrics.NewCounterMetric(userMeta)
	appCounter.Add(g, 1)
	userCounter.Add(g, 2)
	g.BlockOnDispatcher()

	first := collectJSON(t, g, "custom")
	assert.EqualValues(t, 1, gjson.Get(first, `metrics.counter.app\.counter`).Int())

	second := collectJSON(t, g, "custom")
	assert.EqualValues(t, 1, gjson.Get(second, `metrics.counter.app\.counter`).Int())
	assert.EqualValues(t, 2, gjson.Get(second, `metrics.counter.user\.counter`).Int())
}

func TestSequenceNumbersPersistAcrossRestart(t *testing.T) {
	dataPath := t.TempDir()

	g := newInstance(t, dataPath, true)
	g.RegisterPingType(pings.New("custom", true, true))
	first := collectJSON(t, g, "custom")
	second := collectJSON(t, g, "custom")
	g.Shutdown()

	assert.EqualValues(t, 0, gjson.Get(first, "ping_info.seq").Int())
	assert.EqualValues(t, 1, gjson.Get(second, "ping_info.seq").Int())

	restarted := newInstance(t, dataPath, true)
	defer restarted.Shutdown()
	restarted.RegisterPingType(pings.New("custom", true, true))
	third := collectJSON(t, restarted, "custom")
	assert.EqualValues(t, 2, gjson.Get(third, "ping_info.seq").Int())
}

func TestStartTimeChainsAcrossCollections(t *testing.T) {
	g := newInstance(t, t.TempDir(), true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("custom", true, true))

	first := collectJSON(t, g, "custom")
	second := collectJSON(t, g, "custom")
	assert.Equal(t,
		gjson.Get(first, "ping_info.end_time").String(),
		gjson.Get(second, "ping_info.start_time").String())
}

func TestClientIDIncludedOnlyWhenDeclared(t *testing.T) {
	g := newInstance(t, t.TempDir(), true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("with-id", true, true))
	g.RegisterPingType(pings.New("without-id", false, true))

	withID := collectJSON(t, g, "with-id")
	assert.True(t, gjson.Get(withID, "client_info.client_id").Exists())

	withoutID := collectJSON(t, g, "without-id")
	assert.False(t, gjson.Get(withoutID, "client_info.client_id").Exists())
	assert.True(t, gjson.Get(withoutID, "client_info.telemetry_sdk_build").Exists())
}

func TestSubmitPingWritesPendingFile(t *testing.T) {
	dataPath := t.TempDir()
	g := newInstance(t, dataPath, true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("custom", true, true))

	require.True(t, g.SubmitPingByName("custom", ""))

	entries, err := os.ReadDir(filepath.Join(dataPath, "pending_pings"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(filepath.Join(dataPath, "pending_pings", entries[0].Name()))
	require.NoError(t, err)

	urlPath, body, found := strings.Cut(string(content), "\n")
	require.True(t, found)
	assert.Equal(t,
		"/submit/glean-test-app/custom/1/"+entries[0].Name(), urlPath)
	assert.False(t, strings.HasSuffix(body, "\n"))
	assert.True(t, gjson.Valid(body))
	assert.True(t, gjson.Get(body, "ping_info.seq").Exists())
}

func TestSubmitEmptyPingSkipped(t *testing.T) {
	dataPath := t.TempDir()
	g := newInstance(t, dataPath, true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("custom", true, false))

	assert.False(t, g.SubmitPingByName("custom", ""))
	_, err := os.ReadDir(filepath.Join(dataPath, "pending_pings"))
	assert.True(t, os.IsNotExist(err))
}

func TestSetUploadEnabledFalseClearsAndRequestsDeletion(t *testing.T) {
	dataPath := t.TempDir()
	g := newInstance(t, dataPath, true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("custom", true, false))

	counterA := metrics.NewCounterMetric(counterMeta("a", "one", "custom"))
	counterB := metrics.NewCounterMetric(counterMeta("b", "two", "custom"))
	counterA.Add(g, 1)
	counterB.Add(g, 1)
	g.BlockOnDispatcher()

	g.SetUploadEnabled(false)
	assert.False(t, g.IsUploadEnabled())

	_, hasA := counterA.TestGetValue(g, "")
	_, hasB := counterB.TestGetValue(g, "")
	assert.False(t, hasA)
	assert.False(t, hasB)

	entries, err := os.ReadDir(filepath.Join(dataPath, "pending_pings"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(filepath.Join(dataPath, "pending_pings", entries[0].Name()))
	require.NoError(t, err)
	urlPath, _, _ := strings.Cut(string(content), "\n")
	assert.Contains(t, urlPath, "/deletion-request/")

	// Recording while disabled has no effect.
	counterA.Add(g, 5)
	_, hasA = counterA.TestGetValue(g, "")
	assert.False(t, hasA)
}

func TestReenablingUploadRegeneratesClientID(t *testing.T) {
	g := newInstance(t, t.TempDir(), true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("custom", true, true))

	before := gjson.Get(collectJSON(t, g, "custom"), "client_info.client_id").String()
	require.NotEmpty(t, before)

	g.SetUploadEnabled(false)
	g.SetUploadEnabled(true)

	after := gjson.Get(collectJSON(t, g, "custom"), "client_info.client_id").String()
	require.NotEmpty(t, after)
	assert.NotEqual(t, before, after)
}

func TestStartingDisabledClearsEverything(t *testing.T) {
	dataPath := t.TempDir()

	g := newInstance(t, dataPath, true)
	g.RegisterPingType(pings.New("custom", true, false))
	userMeta := counterMeta("user", "counter", "custom")
	userMeta.Lifetime = metricdata.LifetimeUser
	counter := metrics.NewCounterMetric(userMeta)
	counter.Add(g, 3)
	g.BlockOnDispatcher()
	g.Shutdown()

	disabled := newInstance(t, dataPath, false)
	defer disabled.Shutdown()
	assert.False(t, disabled.IsUploadEnabled())
	_, has := counter.TestGetValue(disabled, "")
	assert.False(t, has)
}

func TestExperiments(t *testing.T) {
	g := newInstance(t, t.TempDir(), true)
	defer g.Shutdown()
	g.RegisterPingType(pings.New("custom", true, true))

	g.SetExperimentActive("search-ranking", "treatment",
		map[string]string{"cohort": "b"})

	require.True(t, g.TestIsExperimentActive("search-ranking"))
	exp, ok := g.TestGetExperimentData("search-ranking")
	require.True(t, ok)
	assert.Equal(t, "treatment", exp.Branch)
	assert.Equal(t, "b", exp.Extra["cohort"])

	body := collectJSON(t, g, "custom")
	assert.Equal(t, "treatment",
		gjson.Get(body, "ping_info.experiments.search-ranking.branch").String())
	// Experiments never leak into the metrics section.
	assert.False(t, gjson.Get(body, "metrics.experiment").Exists())

	g.SetExperimentInactive("search-ranking")
	assert.False(t, g.TestIsExperimentActive("search-ranking"))
}

func TestSecondInstanceCannotShareDataDir(t *testing.T) {
	dataPath := t.TempDir()
	g := newInstance(t, dataPath, true)
	defer g.Shutdown()

	_, err := glean.New(glean.Configuration{
		DataPath:      dataPath,
		ApplicationID: "glean-test-app",
		UploadEnabled: true,
	})
	assert.Error(t, err)
}

func TestLeftoverEventsSubmitOnStartup(t *testing.T) {
	dataPath := t.TempDir()

	g := newInstance(t, dataPath, true)
	eventMeta := metricdata.CommonMetricData{
		Category:    "ui",
		Name:        "crashly",
		SendInPings: []string{"events"},
		Lifetime:    metricdata.LifetimePing,
	}
	metrics.NewEventMetric(eventMeta, nil).Record(g, nil)
	g.BlockOnDispatcher()
	// Shut down without collecting the events ping, so the event stays in
	// its store on disk and the lock is released for the next instance.
	g.Shutdown()

	restarted := newInstance(t, dataPath, true)
	defer restarted.Shutdown()
	restarted.BlockOnDispatcher()

	entries, err := os.ReadDir(filepath.Join(dataPath, "pending_pings"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(dataPath, "pending_pings", entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), `"reason":"startup"`)
}
