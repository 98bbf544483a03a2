// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"github.com/wlach/glean/internal/fsutil"
	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/sdkmetrics"
)

// The database file starts with an 8-byte format magic followed by an 8-byte
// little-endian xxh3 checksum of the compressed body. The body is a gzip
// stream of the JSON-encoded store contents.
var dbMagic = []byte("GleanDB1")

const dbHeaderLen = 16

func dbFilePath(dataPath string) string {
	return filepath.Join(dataPath, "db", "glean.db")
}

func eventsDirPath(dataPath string) string {
	return filepath.Join(dataPath, "events")
}

// ReadDBFile reads and verifies a database file, returning the raw encoded
// entries per lifetime name. Inspection tooling uses it to look at a data
// directory without opening a full engine.
func ReadDBFile(path string) (map[string]map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < dbHeaderLen || !bytes.Equal(raw[:len(dbMagic)], dbMagic) {
		return nil, fmt.Errorf("bad magic in %s", path)
	}
	sum := binary.LittleEndian.Uint64(raw[len(dbMagic):dbHeaderLen])
	body := raw[dbHeaderLen:]
	if xxh3.Hash(body) != sum {
		return nil, fmt.Errorf("checksum mismatch in %s", path)
	}

	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer zr.Close()

	var onDisk map[string]map[string]json.RawMessage
	if err := json.NewDecoder(zr).Decode(&onDisk); err != nil {
		return nil, fmt.Errorf("decoding database body: %w", err)
	}
	return onDisk, nil
}

// SplitKey exposes the composite key components for inspection tooling.
func SplitKey(key string) (store, kind, id string, ok bool) {
	s, k, i, valid := splitKey(key)
	return s, string(k), i, valid
}

// load reads the database file into memory. Individual entries that fail to
// decode are counted and skipped; they are gone for good once the next write
// persists the loaded state.
func (m *Manager) load() error {
	onDisk, err := ReadDBFile(m.dbPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, lifetime := range metricdata.Lifetimes {
		entries := onDisk[lifetime.String()]
		for key, raw := range entries {
			_, kind, id, ok := splitKey(key)
			if !ok {
				log.Warnf("Skipping malformed key in %s lifetime", lifetime)
				sdkmetrics.Add(sdkmetrics.IDStorageDecodeErrors, 1)
				continue
			}
			value, err := metricdata.Decode(raw)
			if err != nil || value.Kind() != kind {
				log.Warnf("Skipping corrupt entry %s (%s lifetime): %v", id, lifetime, err)
				sdkmetrics.Add(sdkmetrics.IDStorageDecodeErrors, 1)
				continue
			}
			m.data[lifetime][key] = value
		}
	}
	return nil
}

// persistLocked writes the full in-memory state to the database file.
// Callers hold m.mu. Failures are logged and otherwise ignored: persistence
// trouble must never surface into the host application.
func (m *Manager) persistLocked() {
	onDisk := map[string]map[string]json.RawMessage{}
	for _, lifetime := range metricdata.Lifetimes {
		entries := make(map[string]json.RawMessage, len(m.data[lifetime]))
		for key, value := range m.data[lifetime] {
			encoded, err := metricdata.Encode(value)
			if err != nil {
				log.Errorf("Encoding %s for persistence: %v", key, err)
				continue
			}
			entries[key] = encoded
		}
		onDisk[lifetime.String()] = entries
	}

	plain, err := json.Marshal(onDisk)
	if err != nil {
		log.Errorf("Marshaling database: %v", err)
		return
	}

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(plain); err != nil {
		log.Errorf("Compressing database: %v", err)
		return
	}
	if err := zw.Close(); err != nil {
		log.Errorf("Compressing database: %v", err)
		return
	}

	buf := make([]byte, dbHeaderLen+compressed.Len())
	copy(buf, dbMagic)
	binary.LittleEndian.PutUint64(buf[len(dbMagic):], xxh3.Hash(compressed.Bytes()))
	copy(buf[dbHeaderLen:], compressed.Bytes())

	if err := fsutil.EnsureDir(filepath.Dir(m.dbPath)); err != nil {
		log.Errorf("Creating database directory: %v", err)
		return
	}
	if err := fsutil.WriteFileAtomic(m.dbPath, buf, 0o644); err != nil {
		log.Errorf("Persisting database: %v", err)
		return
	}
	sdkmetrics.Add(sdkmetrics.IDDBWrites, 1)
}
