// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package metricdata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// envelope is the on-disk representation of a stored value. The shape is
// internal to the storage format and distinct from the payload JSON a value
// contributes to an assembled ping.
type envelope struct {
	Type      string          `json:"type"`
	Value     json.RawMessage `json:"value"`
	Precision string          `json:"precision,omitempty"`
	TimeUnit  string          `json:"time_unit,omitempty"`
}

// Encode serializes a value for storage.
func Encode(v Value) ([]byte, error) {
	env := envelope{Type: string(v.Kind())}
	var payload any
	switch val := v.(type) {
	case Boolean:
		payload = bool(val)
	case Counter:
		payload = int32(val)
	case String:
		payload = string(val)
	case StringList:
		payload = []string(val)
	case Uuid:
		payload = uuid.UUID(val).String()
	case Datetime:
		payload = val.Time.Format(time.RFC3339Nano)
		env.Precision = val.Precision.String()
	case Timespan:
		payload = val.Nanos
		env.TimeUnit = val.Unit.String()
	case *Histogram:
		payload = map[string]any{
			"values": val.values,
			"sum":    val.sum,
			"count":  val.count,
		}
	case Experiment:
		payload = map[string]any{
			"branch": val.Branch,
			"extra":  val.Extra,
		}
	default:
		return nil, fmt.Errorf("metricdata: cannot encode kind %q", v.Kind())
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env.Value = raw
	return json.Marshal(env)
}

// Decode deserializes a stored value. Any failure is treated as corruption
// by the storage layer.
func Decode(data []byte) (Value, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("metricdata: decoding envelope: %w", err)
	}
	switch Kind(env.Type) {
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return nil, err
		}
		return Boolean(b), nil
	case KindCounter:
		var c int32
		if err := json.Unmarshal(env.Value, &c); err != nil {
			return nil, err
		}
		return Counter(c), nil
	case KindString:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, err
		}
		return String(s), nil
	case KindStringList:
		var l []string
		if err := json.Unmarshal(env.Value, &l); err != nil {
			return nil, err
		}
		return StringList(l), nil
	case KindUuid:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("metricdata: decoding uuid: %w", err)
		}
		return Uuid(id), nil
	case KindDatetime:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("metricdata: decoding datetime: %w", err)
		}
		return Datetime{Time: t, Precision: TimeUnitFromString(env.Precision)}, nil
	case KindTimespan:
		var nanos uint64
		if err := json.Unmarshal(env.Value, &nanos); err != nil {
			return nil, err
		}
		return Timespan{Nanos: nanos, Unit: TimeUnitFromString(env.TimeUnit)}, nil
	case KindTimingDistribution:
		var payload struct {
			Values map[uint64]uint64 `json:"values"`
			Sum    uint64            `json:"sum"`
			Count  uint64            `json:"count"`
		}
		if err := json.Unmarshal(env.Value, &payload); err != nil {
			return nil, err
		}
		h := NewHistogram()
		if payload.Values != nil {
			h.values = payload.Values
		}
		h.sum = payload.Sum
		h.count = payload.Count
		return h, nil
	case KindExperiment:
		var payload struct {
			Branch string            `json:"branch"`
			Extra  map[string]string `json:"extra"`
		}
		if err := json.Unmarshal(env.Value, &payload); err != nil {
			return nil, err
		}
		return Experiment{Branch: payload.Branch, Extra: payload.Extra}, nil
	default:
		return nil, fmt.Errorf("metricdata: unknown stored kind %q", env.Type)
	}
}
