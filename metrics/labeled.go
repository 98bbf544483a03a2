// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"regexp"

	"github.com/elastic/go-freelru"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"github.com/wlach/glean/metricdata"
)

const (
	// MaxLabels is the cap on distinct labels per labeled metric. Labels
	// beyond the cap collapse into OtherLabel.
	MaxLabels = 16
	// OtherLabel is the sentinel receiving invalid and overflowing labels.
	OtherLabel = "__other__"

	labelCacheSize = 1024
)

var labelPattern = regexp.MustCompile(
	`^[a-z_][a-z0-9_-]{0,29}(\.[a-z_][a-z0-9_-]{0,29})*$`)

// labelCache memoizes label grammar checks. Label sets are small and highly
// repetitive, so almost every record after the first is a cache hit.
var labelCache = func() *freelru.SyncedLRU[string, bool] {
	cache, err := freelru.NewSynced[string, bool](labelCacheSize,
		func(s string) uint32 { return uint32(xxh3.HashString(s)) })
	if err != nil {
		log.Fatalf("Creating label cache: %v", err)
	}
	return cache
}()

func validLabel(label string) bool {
	if valid, ok := labelCache.Get(label); ok {
		return valid
	}
	valid := labelPattern.MatchString(label)
	labelCache.Add(label, valid)
	return valid
}

// lookupIdentifier is the identifier a test reader consults: the raw label
// as requested by the host, without validation.
func lookupIdentifier(meta *metricdata.CommonMetricData) string {
	if meta.DynamicLabel == "" {
		return meta.Identifier()
	}
	return meta.Identifier() + "/" + meta.DynamicLabel
}

// recordingIdentifier resolves the storage identifier for meta at recording
// time. A dynamic label that fails the grammar, or that would be the
// seventeenth distinct label, is replaced with OtherLabel and counted as an
// InvalidLabel error. Seen labels are discovered from the metric's first
// store. Must run on the dispatcher.
func recordingIdentifier(g Glean, meta *metricdata.CommonMetricData,
	kind metricdata.Kind) string {
	base := meta.Identifier()
	if meta.DynamicLabel == "" {
		return base
	}
	label := meta.DynamicLabel
	if !validLabel(label) {
		recordError(g, meta, metricdata.InvalidLabel,
			fmt.Sprintf("Label %q does not match the label grammar", label))
		return base + "/" + OtherLabel
	}
	seen := g.Storage().SeenLabels(meta.Lifetime, meta.SendInPings[0], kind, base)
	for _, s := range seen {
		if s == label {
			return base + "/" + label
		}
	}
	if len(seen) >= MaxLabels {
		recordError(g, meta, metricdata.InvalidLabel,
			fmt.Sprintf("Label %q exceeds the cap of %d distinct labels", label, MaxLabels))
		return base + "/" + OtherLabel
	}
	return base + "/" + label
}

// Labeled multiplexes one metric identifier across many string labels. Get
// hands out a submetric whose storage identifier is
// "<category>.<name>/<label>" once the label passed validation.
type Labeled[M any] struct {
	meta   metricdata.CommonMetricData
	newSub func(meta metricdata.CommonMetricData) M
}

// Get returns the submetric for label. Validation is deferred to recording
// time; the returned submetric is cheap and need not be cached by the host.
func (l *Labeled[M]) Get(label string) M {
	sub := l.meta
	sub.DynamicLabel = label
	return l.newSub(sub)
}

// NewLabeledCounter creates a labeled counter metric.
func NewLabeledCounter(meta metricdata.CommonMetricData) *Labeled[*CounterMetric] {
	return &Labeled[*CounterMetric]{meta: meta, newSub: NewCounterMetric}
}

// NewLabeledBoolean creates a labeled boolean metric.
func NewLabeledBoolean(meta metricdata.CommonMetricData) *Labeled[*BooleanMetric] {
	return &Labeled[*BooleanMetric]{meta: meta, newSub: NewBooleanMetric}
}

// NewLabeledString creates a labeled string metric.
func NewLabeledString(meta metricdata.CommonMetricData) *Labeled[*StringMetric] {
	return &Labeled[*StringMetric]{meta: meta, newSub: NewStringMetric}
}
