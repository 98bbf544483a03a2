// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

// Package glean implements the core of the Glean telemetry SDK: the
// lifecycle of a recording instance, the upload-enabled flag, the registry
// of known pings and the submission path from storage snapshot to queued
// ping file. Hosts record through generated metric accessors; every
// mutation funnels through the instance's single-writer dispatcher.
package glean // import "github.com/wlach/glean"

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wlach/glean/dispatcher"
	"github.com/wlach/glean/internal/fsutil"
	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/pings"
	"github.com/wlach/glean/storage"
	"github.com/wlach/glean/times"
	"github.com/wlach/glean/vc"
)

const (
	// clientInfoStore is the reserved store holding client_id and
	// first_run_date under the User lifetime.
	clientInfoStore = "glean_client_info"

	// DeletionRequestPing is the ping submitted when upload is disabled,
	// carrying the client_id one final time so the server can drop the
	// client's data.
	DeletionRequestPing = "deletion-request"
)

// Glean is one core instance. All state lives under the configured data
// path, so tests may run several instances against disjoint directories.
type Glean struct {
	cfg   Configuration
	store *storage.Manager
	disp  *dispatcher.Dispatcher
	maker *pings.Maker
	clock times.Clock
	mono  times.Monotonic

	dirLock       *flock.Flock
	uploadEnabled atomic.Bool

	mu        sync.Mutex
	pingTypes map[string]*pings.PingType
}

// New initializes an instance against cfg using the system clocks.
func New(cfg Configuration) (*Glean, error) {
	return NewWithClocks(cfg, times.SystemClock(), times.SystemMonotonic())
}

// NewWithClocks is New with substitutable clock sources, for tests.
//
// Initialization creates the directory layout, takes the data directory
// lock, loads persisted state, erases Application-lifetime values and, when
// starting with upload disabled, erases everything.
func NewWithClocks(cfg Configuration, clock times.Clock, mono times.Monotonic) (*Glean, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(cfg.DataPath); err != nil {
		return nil, err
	}
	dirLock, err := fsutil.LockDir(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.DataPath)
	if err != nil {
		dirLock.Unlock()
		return nil, err
	}

	g := &Glean{
		cfg:       cfg,
		store:     store,
		maker:     pings.NewMaker(clock),
		clock:     clock,
		mono:      mono,
		dirLock:   dirLock,
		pingTypes: map[string]*pings.PingType{},
	}
	g.uploadEnabled.Store(cfg.UploadEnabled)

	for _, p := range builtinPings() {
		g.pingTypes[p.Name] = p
	}

	g.store.ClearLifetime(metricdata.LifetimeApplication)
	if cfg.UploadEnabled {
		g.bootstrapClientInfo()
	} else {
		g.store.ClearAll()
	}

	g.disp = dispatcher.New()
	log.Infof("Glean initialized for %s at %s", cfg.ApplicationID, cfg.DataPath)
	return g, nil
}

// builtinPings lists the pings every instance knows without registration.
func builtinPings() []*pings.PingType {
	return []*pings.PingType{
		pings.New("baseline", true, false),
		pings.New("metrics", true, false),
		pings.New("events", true, false),
		pings.New(DeletionRequestPing, true, true),
	}
}

// Dispatch submits fn to the single-writer task queue.
func (g *Glean) Dispatch(fn func()) { g.disp.Launch(fn) }

// BlockOnDispatcher waits for every previously submitted task. Test-only
// readers use it as their happens-before fence.
func (g *Glean) BlockOnDispatcher() { g.disp.BlockOnQueue() }

// Storage returns the storage engine backing this instance.
func (g *Glean) Storage() *storage.Manager { return g.store }

// IsUploadEnabled reports whether recording and submission are active. The
// flag is atomic so the external upload worker may poll it from any thread.
func (g *Glean) IsUploadEnabled() bool { return g.uploadEnabled.Load() }

// MaxEvents is the per-store event count that triggers a flush ping.
func (g *Glean) MaxEvents() int { return g.cfg.maxEvents() }

// Clock returns the wall clock.
func (g *Glean) Clock() times.Clock { return g.clock }

// Monotonic returns the monotonic clock.
func (g *Glean) Monotonic() times.Monotonic { return g.mono }

// RegisterPingType makes a custom ping submittable by name.
func (g *Glean) RegisterPingType(p *pings.PingType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pingTypes[p.Name] = p
}

// GetPingByName resolves a registered ping.
func (g *Glean) GetPingByName(name string) (*pings.PingType, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pingTypes[name]
	return p, ok
}

// OnReadyToSubmitPings signals that initialization is complete: the
// dispatcher's pre-init buffer is replayed, and stores that held events left
// over from a previous session submit their pings.
func (g *Glean) OnReadyToSubmitPings() {
	startup := g.store.Events().StartupStores()
	g.disp.FlushInit()
	for _, store := range startup {
		g.disp.Launch(func() {
			g.SubmitPingSync(store, "startup")
		})
	}
}

// SubmitPing collects and queues p. Returns true when a ping file was
// written. Blocks until the queue reaches the submission; must not be called
// before OnReadyToSubmitPings.
func (g *Glean) SubmitPing(p *pings.PingType, reason string) bool {
	result := make(chan bool, 1)
	g.disp.Launch(func() {
		result <- g.submitSync(p, reason)
	})
	return <-result
}

// SubmitPingByName is SubmitPing for a registered ping name.
func (g *Glean) SubmitPingByName(name, reason string) bool {
	p, ok := g.GetPingByName(name)
	if !ok {
		log.Errorf("No ping registered for %q", name)
		return false
	}
	return g.SubmitPing(p, reason)
}

// SubmitPingSync is the submission path for callers already running on the
// dispatcher, such as an event store hitting capacity.
func (g *Glean) SubmitPingSync(name, reason string) bool {
	p, ok := g.GetPingByName(name)
	if !ok {
		log.Errorf("No ping registered for %q", name)
		return false
	}
	return g.submitSync(p, reason)
}

func (g *Glean) submitSync(p *pings.PingType, reason string) bool {
	if !g.IsUploadEnabled() {
		log.Debugf("Upload disabled, not submitting %s", p.Name)
		return false
	}
	return g.collectAndStore(p, reason)
}

func (g *Glean) collectAndStore(p *pings.PingType, reason string) bool {
	payload := g.maker.Collect(g.store, p, reason, g.clientInfo())
	if payload == nil {
		return false
	}
	docID := uuid.New()
	if err := g.maker.StorePing(g.cfg.DataPath, g.cfg.ApplicationID, p, docID, payload); err != nil {
		log.Errorf("Queuing ping %s: %v", p.Name, err)
		return false
	}
	log.Debugf("Ping %s queued as %s", p.Name, docID)
	return true
}

// TestCollectPing assembles the named ping and returns its payload without
// queuing a file. Collection side effects apply as usual: the seq counter
// advances and Ping-lifetime values clear. Returns false when the ping is
// unknown or empty.
func (g *Glean) TestCollectPing(name string) (map[string]any, bool) {
	p, ok := g.GetPingByName(name)
	if !ok {
		return nil, false
	}
	result := make(chan map[string]any, 1)
	g.disp.Launch(func() {
		result <- g.maker.Collect(g.store, p, "", g.clientInfo())
	})
	payload := <-result
	return payload, payload != nil
}

// SetUploadEnabled flips the upload flag. Disabling submits one final
// deletion-request ping, then erases every stored value including the
// client_id. Re-enabling generates a fresh client_id. Blocks until the
// transition completed; must not be called before OnReadyToSubmitPings.
func (g *Glean) SetUploadEnabled(enabled bool) {
	done := make(chan struct{})
	g.disp.Launch(func() {
		defer close(done)
		g.setUploadEnabledSync(enabled)
	})
	<-done
}

func (g *Glean) setUploadEnabledSync(enabled bool) {
	if g.uploadEnabled.Load() == enabled {
		return
	}
	if enabled {
		g.uploadEnabled.Store(true)
		g.bootstrapClientInfo()
		return
	}
	// The deletion-request ping is collected before anything is erased so
	// it still carries the client_id the server needs to act on.
	p := g.pingTypes[DeletionRequestPing]
	g.collectAndStore(p, "set_upload_enabled")
	g.uploadEnabled.Store(false)
	g.store.ClearAll()
}

// Shutdown drains the dispatcher, compacts the event stores and releases
// the data directory lock.
func (g *Glean) Shutdown() {
	g.disp.Shutdown()
	if err := g.store.Events().Flush(); err != nil {
		log.Warnf("Flushing event stores: %v", err)
	}
	if g.dirLock != nil {
		if err := g.dirLock.Unlock(); err != nil {
			log.Warnf("Releasing data directory lock: %v", err)
		}
	}
}

// bootstrapClientInfo ensures client_id and first_run_date exist. Runs
// during initialization (before the dispatcher flushes) or on the worker.
func (g *Glean) bootstrapClientInfo() {
	if v := g.store.SnapshotMetric(clientInfoStore, "client_id"); v == nil {
		id := uuid.New()
		g.store.Record(metricdata.LifetimeUser, []string{clientInfoStore},
			metricdata.KindUuid, "client_id", func(metricdata.Value) metricdata.Value {
				return metricdata.Uuid(id)
			})
	}
	if v := g.store.SnapshotMetric(clientInfoStore, "first_run_date"); v == nil {
		now := g.clock.Now()
		g.store.Record(metricdata.LifetimeUser, []string{clientInfoStore},
			metricdata.KindDatetime, "first_run_date", func(metricdata.Value) metricdata.Value {
				return metricdata.Datetime{Time: now, Precision: metricdata.Day}
			})
	}
}

// clientInfo assembles the client_info envelope section. The ping maker
// drops the client_id entry for pings that do not declare it.
func (g *Glean) clientInfo() map[string]any {
	info := map[string]any{
		"telemetry_sdk_build": sdkBuild(),
		"os":                  osName(),
		"os_version":          "unknown",
		"architecture":        runtime.GOARCH,
		"app_build":           orUnknown(g.cfg.ApplicationBuild),
		"app_display_version": orUnknown(g.cfg.ApplicationDisplayVersion),
	}
	if g.cfg.Channel != "" {
		info["app_channel"] = g.cfg.Channel
	}
	if v := g.store.SnapshotMetric(clientInfoStore, "client_id"); v != nil {
		if id, ok := v.(metricdata.Uuid); ok {
			info["client_id"] = id.AsJSON()
		}
	}
	if v := g.store.SnapshotMetric(clientInfoStore, "first_run_date"); v != nil {
		if d, ok := v.(metricdata.Datetime); ok {
			info["first_run_date"] = d.AsJSON()
		}
	}
	return info
}

func sdkBuild() string {
	if v := vc.Version(); v != "" {
		return v
	}
	return "unknown"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func osName() string {
	switch runtime.GOOS {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	case "android":
		return "Android"
	case "ios":
		return "iOS"
	default:
		return runtime.GOOS
	}
}
