// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metricdata

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	values := []Value{
		Boolean(true),
		Counter(42),
		String("glean"),
		StringList{"a", "b"},
		Uuid(uuid.MustParse("2f5e2e38-fbbb-4e64-a02f-ec5f57f161ee")),
		Datetime{Time: time.Date(2024, 6, 5, 11, 2, 3, 500, loc), Precision: Millisecond},
		Timespan{Nanos: 3_000_000, Unit: Millisecond},
		Experiment{Branch: "treatment", Extra: map[string]string{"cohort": "a"}},
	}
	for _, v := range values {
		encoded, err := Encode(v)
		require.NoError(t, err, "encoding %s", v.Kind())
		decoded, err := Decode(encoded)
		require.NoError(t, err, "decoding %s", v.Kind())
		assert.Equal(t, v.Kind(), decoded.Kind())
		assert.Equal(t, v.AsJSON(), decoded.AsJSON())
	}
}

func TestCodecHistogram(t *testing.T) {
	h := NewHistogram()
	require.True(t, h.Accumulate(5))
	require.True(t, h.Accumulate(500))

	encoded, err := Encode(h)
	require.NoError(t, err)
	decoded, err := Decode(encoded)
	require.NoError(t, err)

	restored, ok := decoded.(*Histogram)
	require.True(t, ok)
	assert.Equal(t, h.Count(), restored.Count())
	assert.Equal(t, h.Sum(), restored.Sum())
	assert.Equal(t, h.Values(), restored.Values())
}

func TestCodecCorruption(t *testing.T) {
	_, err := Decode([]byte(`{"type":"counter","value":"not a number"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"launchpad","value":1}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json at all`))
	assert.Error(t, err)
}

func TestDatetimePrecision(t *testing.T) {
	loc := time.FixedZone("nowhere", -7*3600)
	d := time.Date(2024, 6, 5, 11, 2, 3, 123_456_789, loc)

	tests := []struct {
		precision TimeUnit
		rendered  string
	}{
		{Nanosecond, "2024-06-05T11:02:03.123456789-07:00"},
		{Millisecond, "2024-06-05T11:02:03.123-07:00"},
		{Second, "2024-06-05T11:02:03-07:00"},
		{Minute, "2024-06-05T11:02-07:00"},
		{Day, "2024-06-05-07:00"},
	}
	for _, tc := range tests {
		got := Datetime{Time: d, Precision: tc.precision}.AsJSON()
		assert.Equal(t, tc.rendered, got, "precision %s", tc.precision)
	}
}

func TestTimeUnitConversion(t *testing.T) {
	assert.EqualValues(t, 3, Millisecond.FromNanos(3_000_000))
	assert.EqualValues(t, 0, Second.FromNanos(999_999_999))
	assert.EqualValues(t, 2, Minute.FromNanos(150*1e9))
}
