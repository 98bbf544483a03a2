// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage implements the lifetime-partitioned persistent store
// backing all metric recording. Values are keyed by the composite
// (lifetime, store, kind, identifier) and mutated through atomic
// read-modify-write closures supplied by the metric kinds. Snapshots of a
// store, with optional clearing of Ping-lifetime entries, happen in a single
// critical section so no recording interleaved with collection is lost or
// double-counted.
package storage // import "github.com/wlach/glean/storage"

import (
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/sdkmetrics"
)

// keySep separates the store, kind and identifier components of a composite
// key. It cannot occur in any of them.
const keySep = "\x1f"

func makeKey(store string, kind metricdata.Kind, id string) string {
	return store + keySep + string(kind) + keySep + id
}

func splitKey(key string) (store string, kind metricdata.Kind, id string, ok bool) {
	parts := strings.SplitN(key, keySep, 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], metricdata.Kind(parts[1]), parts[2], true
}

// Manager is the storage engine. All mutating entry points are expected to
// run on the dispatcher; the internal mutex additionally covers the test
// readers and keeps snapshot-and-clear atomic.
type Manager struct {
	mu     sync.Mutex
	dbPath string

	// data maps a flat composite key to its decoded value, one map per
	// lifetime.
	data [metricdata.NumLifetimes]map[string]metricdata.Value

	events *EventStores
}

// Open loads the database file under dataPath (if any) and opens the event
// stores. A database that fails its integrity checks is discarded and the
// engine starts empty.
func Open(dataPath string) (*Manager, error) {
	m := &Manager{dbPath: dbFilePath(dataPath)}
	for i := range m.data {
		m.data[i] = map[string]metricdata.Value{}
	}
	if err := m.load(); err != nil {
		log.Warnf("Discarding unreadable database %s: %v", m.dbPath, err)
	}
	events, err := OpenEvents(eventsDirPath(dataPath))
	if err != nil {
		return nil, err
	}
	m.events = events
	return m, nil
}

// Events returns the append-only event stores sharing this data directory.
func (m *Manager) Events() *EventStores { return m.events }

// Record atomically applies merge to the current value under
// (lifetime, store, kind, id) for every store listed. merge receives the
// previous value, or nil when absent, and returns the value to write. A
// stored value of a different kind is treated as corruption: it is counted,
// discarded and merge sees no previous value.
func (m *Manager) Record(lifetime metricdata.Lifetime, stores []string,
	kind metricdata.Kind, id string, merge func(prev metricdata.Value) metricdata.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.data[lifetime]
	for _, store := range stores {
		key := makeKey(store, kind, id)
		prev := data[key]
		if prev != nil && prev.Kind() != kind {
			log.Warnf("Stored value for %s in %s has kind %s, expected %s; dropping",
				id, store, prev.Kind(), kind)
			sdkmetrics.Add(sdkmetrics.IDStorageDecodeErrors, 1)
			prev = nil
		}
		data[key] = merge(prev)
	}
	m.persistLocked()
}

// Snapshot assembles the metrics content of store as one nested object per
// kind, in canonical identifier order. Lifetimes are layered Ping, then
// Application, then User, with later lifetimes overwriting on identifier
// collision. Experiment annotations are excluded; they belong to ping_info.
//
// When clearPingLifetime is set, every Ping-lifetime entry of store is
// deleted in the same critical section, guaranteeing exactly-once inclusion
// of each recorded value.
func (m *Manager) Snapshot(store string, clearPingLifetime bool) map[string]map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := map[string]map[string]any{}
	for _, lifetime := range metricdata.Lifetimes {
		m.iterStoreLocked(lifetime, store, func(kind metricdata.Kind, id string,
			v metricdata.Value) {
			if kind == metricdata.KindExperiment {
				return
			}
			section := snapshot[string(kind)]
			if section == nil {
				section = map[string]any{}
				snapshot[string(kind)] = section
			}
			section[id] = v.AsJSON()
		})
	}

	if clearPingLifetime {
		m.clearStoreLocked(metricdata.LifetimePing, store)
		m.persistLocked()
	}

	if len(snapshot) == 0 {
		return nil
	}
	return snapshot
}

// SnapshotMetric reads the single value stored for id in store, looking
// across all lifetimes. Returns nil when no value is present.
func (m *Manager) SnapshotMetric(store, id string) metricdata.Value {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found metricdata.Value
	for _, lifetime := range metricdata.Lifetimes {
		m.iterStoreLocked(lifetime, store, func(_ metricdata.Kind, entryID string,
			v metricdata.Value) {
			if entryID == id {
				found = v
			}
		})
	}
	return found
}

// SnapshotExperiments returns the experiment annotations recorded in store,
// keyed by experiment identifier.
func (m *Manager) SnapshotExperiments(store string) map[string]metricdata.Experiment {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]metricdata.Experiment{}
	for _, lifetime := range metricdata.Lifetimes {
		m.iterStoreLocked(lifetime, store, func(kind metricdata.Kind, id string,
			v metricdata.Value) {
			if kind != metricdata.KindExperiment {
				return
			}
			if exp, ok := v.(metricdata.Experiment); ok {
				out[id] = exp
			}
		})
	}
	return out
}

// SeenLabels lists the labels already recorded in store for the labeled
// metric with the given base identifier, in lexicographic order.
func (m *Manager) SeenLabels(lifetime metricdata.Lifetime, store string,
	kind metricdata.Kind, baseID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := makeKey(store, kind, baseID+"/")
	var labels []string
	for key := range m.data[lifetime] {
		if strings.HasPrefix(key, prefix) {
			labels = append(labels, key[len(prefix):])
		}
	}
	sort.Strings(labels)
	return labels
}

// Remove deletes the single entry under (lifetime, store, kind, id).
func (m *Manager) Remove(lifetime metricdata.Lifetime, store string,
	kind metricdata.Kind, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[lifetime], makeKey(store, kind, id))
	m.persistLocked()
}

// ClearLifetime erases every entry recorded under lifetime, in all stores.
func (m *Manager) ClearLifetime(lifetime metricdata.Lifetime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[lifetime] = map[string]metricdata.Value{}
	m.persistLocked()
}

// ClearAll erases every stored value in every lifetime, and all events.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	for i := range m.data {
		m.data[i] = map[string]metricdata.Value{}
	}
	m.persistLocked()
	m.mu.Unlock()

	m.events.ClearAll()
}

// iterStoreLocked walks the entries of store under lifetime in lexicographic
// composite-key order. Callers hold m.mu.
func (m *Manager) iterStoreLocked(lifetime metricdata.Lifetime, store string,
	fn func(kind metricdata.Kind, id string, v metricdata.Value)) {
	prefix := store + keySep
	data := m.data[lifetime]
	keys := make([]string, 0, len(data))
	for key := range data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		_, kind, id, ok := splitKey(key)
		if !ok {
			continue
		}
		fn(kind, id, data[key])
	}
}

func (m *Manager) clearStoreLocked(lifetime metricdata.Lifetime, store string) {
	prefix := store + keySep
	data := m.data[lifetime]
	for key := range data {
		if strings.HasPrefix(key, prefix) {
			delete(data, key)
		}
	}
}
