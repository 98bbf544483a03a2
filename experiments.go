// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package glean

import (
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/pings"
)

const (
	// maxExperiments caps the simultaneously active experiment
	// annotations.
	maxExperiments = 100
	// maxExperimentExtras caps the extra entries of one annotation.
	maxExperimentExtras = 20
	// maxExperimentValueLen is the byte cap on ids, branches, extra keys
	// and extra values.
	maxExperimentValueLen = 100
)

// SetExperimentActive annotates every subsequently collected ping with the
// experiment and its branch. Ids and branches are truncated to 100 bytes;
// at most 100 experiments may be active at once and extra maps are capped
// at 20 entries.
func (g *Glean) SetExperimentActive(id, branch string, extra map[string]string) {
	g.disp.Launch(func() {
		g.setExperimentActiveSync(id, branch, extra)
	})
}

func (g *Glean) setExperimentActiveSync(id, branch string, extra map[string]string) {
	if !g.IsUploadEnabled() {
		return
	}
	id = truncateExperimentValue(id, "experiment id")
	branch = truncateExperimentValue(branch, "branch")

	active := g.store.SnapshotExperiments(pings.InternalStore)
	if _, already := active[id]; !already && len(active) >= maxExperiments {
		log.Warnf("Experiment cap of %d reached, ignoring %q", maxExperiments, id)
		return
	}

	var truncated map[string]string
	if len(extra) > 0 {
		truncated = make(map[string]string, len(extra))
		for k, v := range extra {
			if len(truncated) >= maxExperimentExtras {
				log.Warnf("Experiment %q extras capped at %d entries", id, maxExperimentExtras)
				break
			}
			k = truncateExperimentValue(k, "extra key")
			truncated[k] = truncateExperimentValue(v, "extra value")
		}
	}

	exp := metricdata.Experiment{Branch: branch, Extra: truncated}
	g.store.Record(metricdata.LifetimeApplication, []string{pings.InternalStore},
		metricdata.KindExperiment, id, func(metricdata.Value) metricdata.Value {
			return exp
		})
}

// SetExperimentInactive removes the annotation for id.
func (g *Glean) SetExperimentInactive(id string) {
	g.disp.Launch(func() {
		g.store.Remove(metricdata.LifetimeApplication, pings.InternalStore,
			metricdata.KindExperiment, truncateExperimentValue(id, "experiment id"))
	})
}

// TestIsExperimentActive reports whether id is currently annotated.
// Test-only.
func (g *Glean) TestIsExperimentActive(id string) bool {
	_, ok := g.TestGetExperimentData(id)
	return ok
}

// TestGetExperimentData returns the active annotation for id. Test-only.
func (g *Glean) TestGetExperimentData(id string) (metricdata.Experiment, bool) {
	g.BlockOnDispatcher()
	active := g.store.SnapshotExperiments(pings.InternalStore)
	exp, ok := active[truncateExperimentValue(id, "experiment id")]
	return exp, ok
}

// truncateExperimentValue enforces the experiment byte cap, cutting on a
// character boundary.
func truncateExperimentValue(s, what string) string {
	if len(s) <= maxExperimentValueLen {
		return s
	}
	cut := maxExperimentValueLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	log.Warnf("Truncating %s of length %d to %d bytes", what, len(s), cut)
	return s[:cut]
}
