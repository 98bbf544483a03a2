// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	log "github.com/sirupsen/logrus"

	"github.com/wlach/glean/metricdata"
)

// errorCategory is the reserved category the per-metric error counters live
// under.
const errorCategory = "glean.error"

// errorMetricMeta builds the metadata of the reserved counter tracking kind
// errors for the metric described by meta. The counter is carried in the
// same pings as the offending metric, plus the metrics ping, and has Ping
// lifetime so it clears together with the data it annotates.
func errorMetricMeta(meta *metricdata.CommonMetricData, kind metricdata.ErrorKind) metricdata.CommonMetricData {
	pings := meta.SendInPings
	found := false
	for _, p := range pings {
		if p == "metrics" {
			found = true
			break
		}
	}
	if !found {
		pings = append(append([]string(nil), pings...), "metrics")
	}
	return metricdata.CommonMetricData{
		Name:        kind.String() + "/" + meta.Identifier(),
		Category:    errorCategory,
		SendInPings: pings,
		Lifetime:    metricdata.LifetimePing,
	}
}

// recordError counts a recording error against meta. It runs on the
// dispatcher, synchronously with the recording that failed, so the error
// lands in the same stores before any snapshot can intervene.
func recordError(g Glean, meta *metricdata.CommonMetricData, kind metricdata.ErrorKind, msg string) {
	if msg != "" {
		log.Debugf("%s: %s", meta.Identifier(), msg)
	}
	errMeta := errorMetricMeta(meta, kind)
	g.Storage().Record(errMeta.Lifetime, errMeta.SendInPings, metricdata.KindCounter,
		errMeta.Identifier(), func(prev metricdata.Value) metricdata.Value {
			if c, ok := prev.(metricdata.Counter); ok {
				return c + 1
			}
			return metricdata.Counter(1)
		})
}

// TestGetNumRecordedErrors returns how many errors of the given kind were
// recorded against the metric described by meta in ping. Test-only.
func TestGetNumRecordedErrors(g Glean, meta *metricdata.CommonMetricData,
	kind metricdata.ErrorKind, ping string) int32 {
	g.BlockOnDispatcher()
	errMeta := errorMetricMeta(meta, kind)
	v := g.Storage().SnapshotMetric(testStore(meta, ping), errMeta.Identifier())
	if c, ok := v.(metricdata.Counter); ok {
		return int32(c)
	}
	return 0
}
