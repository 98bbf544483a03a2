// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package pings

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wlach/glean/internal/fsutil"
	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/sdkmetrics"
	"github.com/wlach/glean/storage"
	"github.com/wlach/glean/times"
)

const (
	// SchemaVersion is the ping submission URL schema version.
	SchemaVersion = 1

	// InternalStore is the reserved store carrying per-ping bookkeeping:
	// sequence numbers, start times and experiment annotations.
	InternalStore = "glean_internal_info"

	// PendingPingsDir is the queue directory under the data path.
	PendingPingsDir = "pending_pings"

	// pingInfoTimePrecision is the precision start_time and end_time are
	// rendered at.
	pingInfoTimePrecision = metricdata.Minute
)

// Maker assembles pings. All of its methods must run on the dispatcher; the
// seq bump, the start-time rollover and the snapshot-with-clear together
// form the exactly-once collection step.
type Maker struct {
	clock times.Clock
}

// NewMaker creates a ping maker using clock for end times.
func NewMaker(clock times.Clock) *Maker {
	return &Maker{clock: clock}
}

// Collect assembles the payload of ping from store. Returns nil when the
// ping has no data and does not declare send_if_empty. clientInfo is the
// envelope built by the core; the client_id entry is dropped unless the ping
// declares it.
func (mk *Maker) Collect(store *storage.Manager, ping *PingType, reason string,
	clientInfo map[string]any) map[string]any {
	metricsSnapshot := store.Snapshot(ping.Name, true)
	events := store.Events().Snapshot(ping.Name, true)

	if metricsSnapshot == nil && len(events) == 0 && !ping.SendIfEmpty {
		log.Debugf("Ping %s has no data, skipping", ping.Name)
		sdkmetrics.Add(sdkmetrics.IDPingsEmpty, 1)
		return nil
	}

	payload := map[string]any{
		"ping_info":   mk.pingInfo(store, ping, reason),
		"client_info": mk.clientInfo(ping, clientInfo),
	}
	if metricsSnapshot != nil {
		payload["metrics"] = metricsSnapshot
	}
	if len(events) > 0 {
		relativeTo := events[0].Timestamp
		rendered := make([]any, len(events))
		for i, ev := range events {
			rendered[i] = ev.AsJSON(relativeTo)
		}
		payload["events"] = rendered
	}
	return payload
}

// pingInfo builds the ping_info envelope section: the per-ping sequence
// number, the [start_time, end_time) interval and any active experiments.
func (mk *Maker) pingInfo(store *storage.Manager, ping *PingType, reason string) map[string]any {
	now := mk.clock.Now()
	info := map[string]any{
		"seq":        mk.nextSeq(store, ping),
		"start_time": mk.rolloverStartTime(store, ping, now),
		"end_time":   now.Format(pingInfoTimePrecision.Layout()),
	}
	if reason != "" {
		info["reason"] = reason
	}
	if experiments := store.SnapshotExperiments(InternalStore); len(experiments) > 0 {
		rendered := make(map[string]any, len(experiments))
		for id, exp := range experiments {
			rendered[id] = exp.AsJSON()
		}
		info["experiments"] = rendered
	}
	return info
}

// nextSeq returns the sequence number for this collection and persists its
// successor. Sequence numbers are zero-based, strictly monotonic per ping
// name and survive restarts under the User lifetime.
func (mk *Maker) nextSeq(store *storage.Manager, ping *PingType) int32 {
	id := ping.Name + "#sequence"
	var seq int32
	store.Record(metricdata.LifetimeUser, []string{InternalStore},
		metricdata.KindCounter, id, func(prev metricdata.Value) metricdata.Value {
			if c, ok := prev.(metricdata.Counter); ok {
				seq = int32(c)
			}
			return metricdata.Counter(seq + 1)
		})
	return seq
}

// rolloverStartTime returns the persisted start time of this ping period, or
// now on the first collection, and stores now as the next period's start.
func (mk *Maker) rolloverStartTime(store *storage.Manager, ping *PingType,
	now time.Time) string {
	id := ping.Name + "#start"
	start := now.Format(pingInfoTimePrecision.Layout())
	if v := store.SnapshotMetric(InternalStore, id); v != nil {
		if d, ok := v.(metricdata.Datetime); ok {
			start = d.AsJSON().(string)
		}
	}
	store.Record(metricdata.LifetimeUser, []string{InternalStore},
		metricdata.KindDatetime, id, func(metricdata.Value) metricdata.Value {
			return metricdata.Datetime{Time: now, Precision: pingInfoTimePrecision}
		})
	return start
}

func (mk *Maker) clientInfo(ping *PingType, clientInfo map[string]any) map[string]any {
	out := make(map[string]any, len(clientInfo))
	for k, v := range clientInfo {
		if k == "client_id" && !ping.IncludeClientID {
			continue
		}
		out[k] = v
	}
	return out
}

// StorePing serializes payload and queues it under the pending-ping
// directory: line one is the submission URL path, line two the canonical
// JSON body, with no trailing newline. The write is atomic, so the upload
// worker never observes a half-written ping.
func (mk *Maker) StorePing(dataPath, appID string, ping *PingType, docID uuid.UUID,
	payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serializing ping %s: %w", ping.Name, err)
	}
	urlPath := fmt.Sprintf("/submit/%s/%s/%d/%s", appID, ping.Name, SchemaVersion, docID)

	dir := filepath.Join(dataPath, PendingPingsDir)
	if err := fsutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("creating pending ping directory: %w", err)
	}
	content := append([]byte(urlPath+"\n"), body...)
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, docID.String()), content, 0o644); err != nil {
		return fmt.Errorf("queuing ping %s: %w", ping.Name, err)
	}
	sdkmetrics.Add(sdkmetrics.IDPingsAssembled, 1)
	return nil
}
