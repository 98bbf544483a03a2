// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metricdata // import "github.com/wlach/glean/metricdata"

import "fmt"

// Lifetime governs when a stored metric value is erased.
type Lifetime int32

const (
	// LifetimePing values are erased when a ping listing the metric is
	// successfully collected.
	LifetimePing Lifetime = iota
	// LifetimeApplication values are erased on process start.
	LifetimeApplication
	// LifetimeUser values survive until the on-disk profile is reset.
	LifetimeUser
)

func (l Lifetime) String() string {
	switch l {
	case LifetimePing:
		return "ping"
	case LifetimeApplication:
		return "application"
	case LifetimeUser:
		return "user"
	default:
		return fmt.Sprintf("unknown(%d)", int32(l))
	}
}

// NumLifetimes is the number of distinct lifetimes.
const NumLifetimes = 3

// Lifetimes lists all lifetimes in snapshot iteration order: entries from a
// later lifetime overwrite entries from an earlier one on identifier
// collision.
var Lifetimes = []Lifetime{LifetimePing, LifetimeApplication, LifetimeUser}
