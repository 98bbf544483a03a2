// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics implements the metric kinds: their recording verbs, the
// validation and merge rules applied on the dispatcher worker, and the
// test-only readers. Metric instances carry only their own metadata; they
// reach storage and the dispatcher through the core instance passed
// explicitly into every call, so tests can run parallel instances against
// disjoint data paths.
package metrics // import "github.com/wlach/glean/metrics"

import (
	"github.com/wlach/glean/storage"
	"github.com/wlach/glean/times"
)

// Glean is the view of the core instance the metric kinds operate through.
// It is implemented by glean.Glean.
type Glean interface {
	// Dispatch submits fn to the single-writer task queue.
	Dispatch(fn func())
	// BlockOnDispatcher waits until every previously submitted task has
	// completed. Test readers call it to establish happens-before.
	BlockOnDispatcher()
	// Storage returns the storage engine. It must only be mutated from
	// dispatched tasks.
	Storage() *storage.Manager
	// IsUploadEnabled reports whether recording is active.
	IsUploadEnabled() bool
	// MaxEvents is the per-store event count that triggers a flush ping.
	MaxEvents() int
	// SubmitPingSync assembles and queues the named ping. It must be
	// called from a dispatched task; the metric kinds use it when an event
	// store reaches capacity.
	SubmitPingSync(name, reason string) bool
	// Clock is the wall clock.
	Clock() times.Clock
	// Monotonic is the monotonic clock.
	Monotonic() times.Monotonic
}
