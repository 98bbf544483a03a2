// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metricdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketBounds(t *testing.T) {
	require.Len(t, bucketBounds, HistogramBuckets)
	assert.EqualValues(t, HistogramMin, bucketBounds[0])
	assert.EqualValues(t, HistogramMax, bucketBounds[HistogramBuckets-1])
	for i := 1; i < len(bucketBounds); i++ {
		assert.Greater(t, bucketBounds[i], bucketBounds[i-1],
			"bounds must be strictly increasing at %d", i)
	}
}

func TestHistogramAccumulate(t *testing.T) {
	h := NewHistogram()
	require.True(t, h.Accumulate(1))
	require.True(t, h.Accumulate(999))
	require.True(t, h.Accumulate(1000))

	assert.EqualValues(t, 3, h.Count())
	assert.EqualValues(t, 2000, h.Sum())

	var total uint64
	for _, count := range h.Values() {
		total += count
	}
	assert.EqualValues(t, 3, total)
}

func TestHistogramOverflow(t *testing.T) {
	h := NewHistogram()
	assert.False(t, h.Accumulate(HistogramMax+1))
	assert.EqualValues(t, 1, h.Count())
	// The clamped sample lands in the last bucket.
	assert.EqualValues(t, 1, h.Values()[bucketBounds[HistogramBuckets-1]])
	assert.EqualValues(t, HistogramMax, h.Sum())
}

func TestHistogramJSON(t *testing.T) {
	h := NewHistogram()
	require.True(t, h.Accumulate(10))

	payload := h.AsJSON().(map[string]any)
	assert.EqualValues(t, 10, payload["sum"])
	assert.EqualValues(t, 1, payload["count"])

	values := payload["values"].(map[string]uint64)
	// One recorded bucket plus the zero bucket delimiting the tail.
	assert.Len(t, values, 2)
}
