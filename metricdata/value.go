// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metricdata

import (
	"time"

	"github.com/google/uuid"
)

// Kind tags the concrete payload of a stored metric value. The tag doubles as
// the section name the value is placed under in an assembled ping payload.
type Kind string

const (
	KindBoolean            Kind = "boolean"
	KindCounter            Kind = "counter"
	KindString             Kind = "string"
	KindStringList         Kind = "string_list"
	KindUuid               Kind = "uuid"
	KindDatetime           Kind = "datetime"
	KindTimespan           Kind = "timespan"
	KindTimingDistribution Kind = "timing_distribution"
	KindExperiment         Kind = "experiment"
)

// Value is the discriminated union of concrete per-kind payloads.
//
// AsJSON returns the payload representation placed into an assembled ping,
// built from types encoding/json renders canonically (sorted object keys, no
// insignificant whitespace).
type Value interface {
	Kind() Kind
	AsJSON() any
}

// Boolean is a simple flag, overwritten on every set.
type Boolean bool

func (Boolean) Kind() Kind    { return KindBoolean }
func (b Boolean) AsJSON() any { return bool(b) }

// Counter accumulates positive increments.
type Counter int32

func (Counter) Kind() Kind    { return KindCounter }
func (c Counter) AsJSON() any { return int32(c) }

// String holds a UTF-8 string of at most metrics.MaxStringLength bytes.
type String string

func (String) Kind() Kind    { return KindString }
func (s String) AsJSON() any { return string(s) }

// StringList holds up to metrics.MaxListLength bounded UTF-8 strings.
type StringList []string

func (StringList) Kind() Kind { return KindStringList }
func (l StringList) AsJSON() any {
	// Empty lists serialize as [], not null.
	if l == nil {
		return []string{}
	}
	return []string(l)
}

// Uuid holds a 16-byte UUID, rendered in its canonical hyphenated form.
type Uuid uuid.UUID

func (Uuid) Kind() Kind    { return KindUuid }
func (u Uuid) AsJSON() any { return uuid.UUID(u).String() }

// Datetime is an instant carrying its timezone offset, truncated to the
// metric's declared precision. Truncation happens at rendering time, after
// the timezone offset is attached.
type Datetime struct {
	Time      time.Time
	Precision TimeUnit
}

func (Datetime) Kind() Kind    { return KindDatetime }
func (d Datetime) AsJSON() any { return d.Time.Format(d.Precision.Layout()) }

// Timespan is a single elapsed duration, stored in nanoseconds and rendered
// in the metric's declared unit.
type Timespan struct {
	Nanos uint64
	Unit  TimeUnit
}

func (Timespan) Kind() Kind { return KindTimespan }
func (t Timespan) AsJSON() any {
	return map[string]any{
		"value":     t.Unit.FromNanos(t.Nanos),
		"time_unit": t.Unit.String(),
	}
}

// Experiment is an active experiment annotation. It lives in the reserved
// internal store and is assembled into ping_info rather than the metrics
// section.
type Experiment struct {
	Branch string            `json:"branch"`
	Extra  map[string]string `json:"extra,omitempty"`
}

func (Experiment) Kind() Kind { return KindExperiment }
func (e Experiment) AsJSON() any {
	out := map[string]any{"branch": e.Branch}
	if len(e.Extra) > 0 {
		out["extra"] = e.Extra
	}
	return out
}

// Event is a single recorded event. Events are kept in the append-only event
// store, not in the KV database; Timestamp is milliseconds relative to the
// process monotonic origin and is re-based during ping assembly.
type Event struct {
	Timestamp uint64            `json:"timestamp"`
	Category  string            `json:"category"`
	Name      string            `json:"name"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// AsJSON renders the event with its timestamp replaced by a value relative
// to the first event in the same payload.
func (e Event) AsJSON(relativeTo uint64) any {
	out := map[string]any{
		"timestamp": e.Timestamp - relativeTo,
		"category":  e.Category,
		"name":      e.Name,
	}
	if len(e.Extra) > 0 {
		out["extra"] = e.Extra
	}
	return out
}
