// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metricdata

import (
	"math"
	"sort"
	"strconv"
)

const (
	// HistogramBuckets is the number of buckets in a timing distribution.
	HistogramBuckets = 100
	// HistogramMin is the lowest resolvable sample, in nanoseconds.
	HistogramMin = 1
	// HistogramMax is the highest resolvable sample, 10 minutes in
	// nanoseconds. Larger samples clamp into the last bucket.
	HistogramMax = 10 * 60 * 1_000_000_000
)

// bucketBounds holds the precomputed lower bounds of the exponentially
// spaced buckets, strictly increasing.
var bucketBounds = func() []uint64 {
	bounds := make([]uint64, HistogramBuckets)
	bounds[0] = HistogramMin
	logMax := math.Log(float64(HistogramMax))
	for i := 1; i < HistogramBuckets; i++ {
		b := uint64(math.Round(math.Exp(logMax * float64(i) / float64(HistogramBuckets-1))))
		if b <= bounds[i-1] {
			b = bounds[i-1] + 1
		}
		bounds[i] = b
	}
	return bounds
}()

// Histogram is an exponential histogram accumulating timing samples.
// The zero value is not usable; construct with NewHistogram.
type Histogram struct {
	values map[uint64]uint64
	sum    uint64
	count  uint64
}

func NewHistogram() *Histogram {
	return &Histogram{values: map[uint64]uint64{}}
}

// bucketFor returns the lower bound of the bucket sample falls into.
func bucketFor(sample uint64) uint64 {
	idx := sort.Search(len(bucketBounds), func(i int) bool {
		return bucketBounds[i] > sample
	})
	if idx == 0 {
		return bucketBounds[0]
	}
	return bucketBounds[idx-1]
}

// Accumulate adds one sample. It reports false when the sample exceeded the
// histogram range and was clamped into the last bucket; the caller is
// expected to count an overflow error in that case.
func (h *Histogram) Accumulate(sample uint64) bool {
	inRange := sample <= HistogramMax
	if !inRange {
		sample = HistogramMax
	}
	h.values[bucketFor(sample)]++
	h.sum += sample
	h.count++
	return inRange
}

// Sum returns the sum of all accumulated samples.
func (h *Histogram) Sum() uint64 { return h.sum }

// Count returns the number of accumulated samples.
func (h *Histogram) Count() uint64 { return h.count }

// Values returns the per-bucket counts keyed by bucket lower bound.
func (h *Histogram) Values() map[uint64]uint64 { return h.values }

func (*Histogram) Kind() Kind { return KindTimingDistribution }

// AsJSON renders the histogram payload: the non-empty buckets plus one
// trailing zero bucket delimiting the tail, the sample sum and the sample
// count. Bucket keys are stringified lower bounds.
func (h *Histogram) AsJSON() any {
	values := make(map[string]uint64, len(h.values)+1)
	var highest uint64
	for bound, count := range h.values {
		values[strconv.FormatUint(bound, 10)] = count
		if bound > highest {
			highest = bound
		}
	}
	if h.count > 0 {
		idx := sort.Search(len(bucketBounds), func(i int) bool {
			return bucketBounds[i] >= highest
		})
		if idx+1 < len(bucketBounds) {
			values[strconv.FormatUint(bucketBounds[idx+1], 10)] = 0
		}
	}
	return map[string]any{
		"values": values,
		"sum":    h.sum,
		"count":  h.count,
	}
}
