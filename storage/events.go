// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/sdkmetrics"
)

// EventStores keeps the recorded-but-not-yet-collected events, one
// append-only file per store under the events directory. Each line is one
// JSON-encoded event. Events always have Ping lifetime: collecting a store
// empties it.
type EventStores struct {
	mu  sync.Mutex
	dir string

	stores map[string][]metricdata.Event

	// startupStores names the stores that already held events when the
	// process started. The core submits an events ping for each, since
	// those events survived an earlier, possibly crashed, session.
	startupStores []string
}

// OpenEvents loads any events left behind by a previous session.
func OpenEvents(dir string) (*EventStores, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating events directory: %w", err)
	}
	es := &EventStores{dir: dir, stores: map[string][]metricdata.Event{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading events directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		store := entry.Name()
		events := es.loadStore(store)
		if len(events) > 0 {
			es.stores[store] = events
			es.startupStores = append(es.startupStores, store)
		}
	}
	return es, nil
}

func (es *EventStores) loadStore(store string) []metricdata.Event {
	f, err := os.Open(filepath.Join(es.dir, store))
	if err != nil {
		log.Warnf("Opening event store %s: %v", store, err)
		return nil
	}
	defer f.Close()

	var events []metricdata.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev metricdata.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Warnf("Skipping corrupt event in store %s: %v", store, err)
			sdkmetrics.Add(sdkmetrics.IDStorageDecodeErrors, 1)
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		log.Warnf("Reading event store %s: %v", store, err)
	}
	return events
}

// StartupStores returns the stores that held leftover events at startup.
func (es *EventStores) StartupStores() []string {
	es.mu.Lock()
	defer es.mu.Unlock()
	return append([]string(nil), es.startupStores...)
}

// Record appends ev to every listed store, both in memory and on disk.
// Returns the resulting event count per store, so the caller can decide
// whether a flush ping is due.
func (es *EventStores) Record(stores []string, ev metricdata.Event) map[string]int {
	es.mu.Lock()
	defer es.mu.Unlock()

	line, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("Encoding event %s.%s: %v", ev.Category, ev.Name, err)
		return nil
	}

	counts := make(map[string]int, len(stores))
	for _, store := range stores {
		es.stores[store] = append(es.stores[store], ev)
		counts[store] = len(es.stores[store])
		es.appendLine(store, line)
	}
	return counts
}

func (es *EventStores) appendLine(store string, line []byte) {
	f, err := os.OpenFile(filepath.Join(es.dir, store),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Errorf("Opening event store %s for append: %v", store, err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Errorf("Appending to event store %s: %v", store, err)
	}
}

// Snapshot returns the events recorded in store, in recording order. When
// clear is set the store is emptied, in memory and on disk, in the same
// critical section.
func (es *EventStores) Snapshot(store string, clear bool) []metricdata.Event {
	es.mu.Lock()
	defer es.mu.Unlock()

	events := append([]metricdata.Event(nil), es.stores[store]...)
	if clear {
		delete(es.stores, store)
		if err := os.Remove(filepath.Join(es.dir, store)); err != nil &&
			!os.IsNotExist(err) {
			log.Errorf("Removing event store %s: %v", store, err)
		}
	}
	return events
}

// ClearAll drops every pending event in every store.
func (es *EventStores) ClearAll() {
	es.mu.Lock()
	defer es.mu.Unlock()

	for store := range es.stores {
		if err := os.Remove(filepath.Join(es.dir, store)); err != nil &&
			!os.IsNotExist(err) {
			log.Errorf("Removing event store %s: %v", store, err)
		}
	}
	es.stores = map[string][]metricdata.Event{}
}

// Flush compacts every store file to exactly its in-memory content. Store
// files are independent, so they are rewritten concurrently.
func (es *EventStores) Flush() error {
	es.mu.Lock()
	defer es.mu.Unlock()

	var g errgroup.Group
	for store, events := range es.stores {
		g.Go(func() error {
			var buf []byte
			for _, ev := range events {
				line, err := json.Marshal(ev)
				if err != nil {
					return fmt.Errorf("encoding events for %s: %w", store, err)
				}
				buf = append(buf, line...)
				buf = append(buf, '\n')
			}
			if err := os.WriteFile(filepath.Join(es.dir, store), buf, 0o644); err != nil {
				return fmt.Errorf("writing event store %s: %w", store, err)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		sdkmetrics.Add(sdkmetrics.IDEventStoreFlushes, 1)
	}
	return err
}
