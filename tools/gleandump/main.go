// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

// gleandump inspects a Glean data directory: the persisted database, the
// pending event stores and the queued pings. It is read-only and safe to
// run against a live directory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterbourgon/ff/v3"
	log "github.com/sirupsen/logrus"

	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/storage"
)

func main() {
	fs := flag.NewFlagSet("gleandump", flag.ExitOnError)
	var (
		dataPath  = fs.String("data-path", "", "Glean data directory to inspect.")
		showPings = fs.Bool("pings", false, "Also list queued pending pings.")
		verbose   = fs.Bool("verbose", false, "Enable verbose logging.")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("GLEANDUMP")); err != nil {
		log.Fatalf("Parsing flags: %v", err)
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if *dataPath == "" {
		log.Fatalf("-data-path is required")
	}

	if err := dumpDB(filepath.Join(*dataPath, "db", "glean.db")); err != nil {
		log.Warnf("Reading database: %v", err)
	}
	dumpEvents(filepath.Join(*dataPath, "events"))
	if *showPings {
		dumpPendingPings(filepath.Join(*dataPath, "pending_pings"))
	}
}

func dumpDB(path string) error {
	onDisk, err := storage.ReadDBFile(path)
	if err != nil {
		return err
	}
	for _, lifetime := range []string{"ping", "application", "user"} {
		entries := onDisk[lifetime]
		if len(entries) == 0 {
			continue
		}
		fmt.Printf("lifetime %s (%d entries)\n", lifetime, len(entries))
		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			store, kind, id, ok := storage.SplitKey(key)
			if !ok {
				log.Debugf("Malformed key %q", key)
				continue
			}
			value, err := metricdata.Decode(entries[key])
			if err != nil {
				fmt.Printf("  %s  %s/%s  <corrupt: %v>\n", store, kind, id, err)
				continue
			}
			rendered, _ := json.Marshal(value.AsJSON())
			fmt.Printf("  %s  %s/%s  %s\n", store, kind, id, rendered)
		}
	}
	return nil
}

func dumpEvents(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debugf("Reading events directory: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warnf("Reading event store %s: %v", entry.Name(), err)
			continue
		}
		lines := strings.Count(string(data), "\n")
		fmt.Printf("event store %s: %d pending events\n", entry.Name(), lines)
	}
}

func dumpPendingPings(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debugf("Reading pending pings directory: %v", err)
		return
	}
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warnf("Reading pending ping %s: %v", entry.Name(), err)
			continue
		}
		urlPath, body, found := strings.Cut(string(data), "\n")
		if !found {
			log.Warnf("Pending ping %s is malformed", entry.Name())
			continue
		}
		fmt.Printf("pending ping %s\n  url: %s\n  %d byte body\n",
			entry.Name(), urlPath, len(body))
	}
}
