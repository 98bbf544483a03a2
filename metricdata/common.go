// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metricdata

// CommonMetricData is the metadata attached to every metric instance. It is
// immutable after construction.
type CommonMetricData struct {
	// Name is the metric name within its category.
	Name string
	// Category groups related metrics. May be empty for a few reserved
	// metrics.
	Category string
	// SendInPings lists the pings (and therefore storage stores) this metric
	// is recorded into. Must be non-empty.
	SendInPings []string
	// Lifetime selects the reset policy for recorded values.
	Lifetime Lifetime
	// Disabled metrics record nothing and produce no errors.
	Disabled bool
	// DynamicLabel carries the not-yet-validated label of a submetric
	// obtained from a labeled metric. It is resolved against the label
	// grammar and the seen-label cap on the dispatcher, at recording time.
	DynamicLabel string
}

// Identifier returns the unique identifier of the metric,
// "<category>.<name>", or just the name when the category is empty.
func (m *CommonMetricData) Identifier() string {
	if m.Category == "" {
		return m.Name
	}
	return m.Category + "." + m.Name
}
