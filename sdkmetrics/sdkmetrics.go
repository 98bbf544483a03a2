// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

// Package sdkmetrics counts internal health events of the SDK itself:
// dispatcher pre-init overflows, storage decode errors, database writes and
// assembled pings. Counts are kept in-process for test inspection and
// mirrored to an OTel meter so an embedding application can observe the
// SDK's own behavior alongside its other instrumentation.
package sdkmetrics // import "github.com/wlach/glean/sdkmetrics"

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MetricID identifies one internal counter.
type MetricID uint16

const (
	// IDInvalid is a placeholder for unset metric IDs.
	IDInvalid MetricID = iota
	// IDPreInitTaskOverflow counts tasks dropped from the dispatcher's
	// bounded pre-init queue.
	IDPreInitTaskOverflow
	// IDStorageDecodeErrors counts stored entries skipped as corrupt.
	IDStorageDecodeErrors
	// IDDBWrites counts persisted database generations.
	IDDBWrites
	// IDPingsAssembled counts pings collected and queued to disk.
	IDPingsAssembled
	// IDPingsEmpty counts collections that produced no payload.
	IDPingsEmpty
	// IDEventStoreFlushes counts event store flushes to disk.
	IDEventStoreFlushes
	// IDMax is always the last element of this enum.
	IDMax
)

type definition struct {
	name        string
	description string
}

var definitions = map[MetricID]definition{
	IDPreInitTaskOverflow: {"glean.dispatcher.preinit_tasks_overflow",
		"Tasks dropped from the bounded pre-initialization queue"},
	IDStorageDecodeErrors: {"glean.storage.decode_errors",
		"Stored entries skipped as corrupt during snapshot or load"},
	IDDBWrites: {"glean.storage.db_writes",
		"Database generations persisted to disk"},
	IDPingsAssembled: {"glean.pings.assembled",
		"Pings collected and queued to the pending ping directory"},
	IDPingsEmpty: {"glean.pings.empty",
		"Ping collections that produced no payload"},
	IDEventStoreFlushes: {"glean.events.store_flushes",
		"Event store flushes to disk"},
}

var (
	initOnce sync.Once
	counters map[MetricID]metric.Int64Counter

	// totals keeps a local running sum per ID for test inspection,
	// independent of the OTel pipeline.
	totals [IDMax]atomic.Int64
)

func setup() {
	meter := otel.Meter("github.com/wlach/glean")
	counters = make(map[MetricID]metric.Int64Counter, len(definitions))
	for id, def := range definitions {
		counter, err := meter.Int64Counter(def.name,
			metric.WithDescription(def.description))
		if err != nil {
			log.Errorf("Creating Int64Counter %s: %v", def.name, err)
			continue
		}
		counters[id] = counter
	}
}

// Add increments the counter identified by id by value.
func Add(id MetricID, value int64) {
	if id <= IDInvalid || id >= IDMax {
		log.Errorf("Internal metric ID %d out of range", id)
		return
	}
	initOnce.Do(setup)
	totals[id].Add(value)
	if counter, ok := counters[id]; ok {
		counter.Add(context.Background(), value)
	}
}

// Total returns the process-lifetime sum recorded for id.
func Total(id MetricID) int64 {
	if id <= IDInvalid || id >= IDMax {
		return 0
	}
	return totals[id].Load()
}
