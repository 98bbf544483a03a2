// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metricdata

import "fmt"

// TimeUnit is the resolution of a timespan or the truncation precision of a
// datetime.
type TimeUnit int32

const (
	Nanosecond TimeUnit = iota
	Microsecond
	Millisecond
	Second
	Minute
	Hour
	Day
)

func (u TimeUnit) String() string {
	switch u {
	case Nanosecond:
		return "nanosecond"
	case Microsecond:
		return "microsecond"
	case Millisecond:
		return "millisecond"
	case Second:
		return "second"
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	default:
		return fmt.Sprintf("unknown(%d)", int32(u))
	}
}

// TimeUnitFromString is the inverse of String. Unknown names map to
// Millisecond, the most common declared unit.
func TimeUnitFromString(s string) TimeUnit {
	switch s {
	case "nanosecond":
		return Nanosecond
	case "microsecond":
		return Microsecond
	case "millisecond":
		return Millisecond
	case "second":
		return Second
	case "minute":
		return Minute
	case "hour":
		return Hour
	case "day":
		return Day
	default:
		return Millisecond
	}
}

// FromNanos converts a duration in nanoseconds to this unit, truncating.
func (u TimeUnit) FromNanos(nanos uint64) uint64 {
	switch u {
	case Nanosecond:
		return nanos
	case Microsecond:
		return nanos / 1e3
	case Millisecond:
		return nanos / 1e6
	case Second:
		return nanos / 1e9
	case Minute:
		return nanos / (60 * 1e9)
	case Hour:
		return nanos / (3600 * 1e9)
	case Day:
		return nanos / (86400 * 1e9)
	default:
		return nanos
	}
}

// Layout returns the time layout used to render a datetime at this
// precision. Every layout carries the numeric timezone offset.
func (u TimeUnit) Layout() string {
	switch u {
	case Nanosecond:
		return "2006-01-02T15:04:05.000000000-07:00"
	case Microsecond:
		return "2006-01-02T15:04:05.000000-07:00"
	case Millisecond:
		return "2006-01-02T15:04:05.000-07:00"
	case Second:
		return "2006-01-02T15:04:05-07:00"
	case Minute:
		return "2006-01-02T15:04-07:00"
	case Hour:
		return "2006-01-02T15-07:00"
	case Day:
		return "2006-01-02-07:00"
	default:
		return "2006-01-02T15:04:05.000-07:00"
	}
}
