// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

// Package times provides the wall and monotonic clock sources used across
// the SDK. Production code uses the system clocks; tests substitute fakes to
// make recorded instants and elapsed times deterministic.
package times // import "github.com/wlach/glean/times"

import (
	"time"
)

// Clock is the wall clock source. Now returns the current instant carrying
// the local timezone offset.
type Clock interface {
	Now() time.Time
}

// Monotonic is the monotonic clock source used for elapsed-time
// measurements. Readings are nanoseconds from an arbitrary fixed origin and
// never go backwards.
type Monotonic interface {
	NowNanos() uint64
}

// processStart anchors the monotonic clock. All monotonic readings are
// relative to it, so they stay comparable within one process.
var processStart = time.Now()

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type systemMonotonic struct{}

func (systemMonotonic) NowNanos() uint64 {
	return uint64(time.Since(processStart).Nanoseconds())
}

// SystemClock returns the production wall clock.
func SystemClock() Clock { return systemClock{} }

// SystemMonotonic returns the production monotonic clock.
func SystemMonotonic() Monotonic { return systemMonotonic{} }
