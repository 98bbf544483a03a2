// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlach/glean/metrics"
)

func TestUuidSet(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewUuidMetric(pingMeta("session", "id"))

	id := uuid.MustParse("2f5e2e38-fbbb-4e64-a02f-ec5f57f161ee")
	metric.Set(g, id)

	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Equal(t, id, v)
}

func TestUuidGenerateAndSet(t *testing.T) {
	g := newTestGlean(t)
	metric := metrics.NewUuidMetric(pingMeta("session", "id"))

	generated := metric.GenerateAndSet(g)
	v, has := metric.TestGetValue(g, "")
	require.True(t, has)
	assert.Equal(t, generated, v)

	// Generating again replaces the value.
	second := metric.GenerateAndSet(g)
	assert.NotEqual(t, generated, second)
	v, _ = metric.TestGetValue(g, "")
	assert.Equal(t, second, v)
}
