// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"unicode/utf8"

	"github.com/wlach/glean/metricdata"
)

// MaxStringLength is the byte cap applied to every recorded string payload.
const MaxStringLength = 100

// shouldRecord reports whether a recording call may have side effects.
func shouldRecord(g Glean, meta *metricdata.CommonMetricData) bool {
	return g.IsUploadEnabled() && !meta.Disabled
}

// testStore picks the store a test reader consults: the explicitly requested
// ping, or the metric's first listed ping.
func testStore(meta *metricdata.CommonMetricData, ping string) string {
	if ping != "" {
		return ping
	}
	return meta.SendInPings[0]
}

// truncateString enforces the string byte cap, cutting on a character
// boundary and counting an InvalidValue error when anything was dropped.
// Must run on the dispatcher.
func truncateString(g Glean, meta *metricdata.CommonMetricData, value string) string {
	if len(value) <= MaxStringLength {
		return value
	}
	cut := MaxStringLength
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	recordError(g, meta, metricdata.InvalidValue,
		fmt.Sprintf("Value length %d exceeds maximum of %d", len(value), MaxStringLength))
	return value[:cut]
}
