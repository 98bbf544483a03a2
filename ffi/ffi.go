// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

// Package ffi is the C-shaped entry surface consumed by the host-language
// bindings. Objects cross the boundary as opaque u64 handles; failures
// travel through an out-parameter ExternError instead of Go errors. The
// actual cgo shim re-exporting these functions with C linkage (and the
// matching free_str for returned strings) is generated in the bindings
// build; everything here is plain Go so the SDK stays testable without cgo.
//
// Entry points only resolve handles and submit work; they are safe to call
// from any host thread.
package ffi // import "github.com/wlach/glean/ffi"

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/wlach/glean"
	"github.com/wlach/glean/metrics"
	"github.com/wlach/glean/pings"
)

// Error codes carried in ExternError. Zero means success.
const (
	CodeSuccess      int32 = 0
	CodeUtf8Error    int32 = 1
	CodeHandleError  int32 = 2
	CodeStorageError int32 = 3
	CodeIoError      int32 = 4
)

// ExternError conveys a process-level failure across the boundary. The
// message is only set when Code is non-zero.
type ExternError struct {
	Code    int32
	Message string
}

func (e *ExternError) success() {
	if e != nil {
		e.Code = CodeSuccess
		e.Message = ""
	}
}

func (e *ExternError) fail(code int32, msg string) {
	if e != nil {
		e.Code = code
		e.Message = msg
	}
}

// InvalidHandle is the reserved null handle.
const InvalidHandle uint64 = 0

var coreHandles = NewHandleMap[*glean.Glean]()

// EnableLogging configures the SDK's logging output. Verbose switches to
// debug level.
func EnableLogging(verbose bool) {
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// Configuration mirrors glean.Configuration with only FFI-safe field types.
// It has no ServerEndpoint field; Initialize leaves that setting empty.
type Configuration struct {
	DataPath                  string
	ApplicationID             string
	UploadEnabled             bool
	MaxEvents                 int32
	ApplicationBuild          string
	ApplicationDisplayVersion string
	Channel                   string
}

// Initialize creates a core instance and returns its handle, or
// InvalidHandle with err filled on failure.
func Initialize(cfg Configuration, err *ExternError) uint64 {
	g, initErr := glean.New(glean.Configuration{
		DataPath:                  cfg.DataPath,
		ApplicationID:             cfg.ApplicationID,
		UploadEnabled:             cfg.UploadEnabled,
		MaxEvents:                 int(cfg.MaxEvents),
		ApplicationBuild:          cfg.ApplicationBuild,
		ApplicationDisplayVersion: cfg.ApplicationDisplayVersion,
		Channel:                   cfg.Channel,
	})
	if initErr != nil {
		err.fail(CodeIoError, initErr.Error())
		return InvalidHandle
	}
	err.success()
	return coreHandles.Insert(g)
}

// withCore resolves a core handle, reporting a HandleError on failure.
func withCore(handle uint64, err *ExternError, fn func(g *glean.Glean)) {
	g, lookupErr := coreHandles.Get(handle)
	if lookupErr != nil {
		err.fail(CodeHandleError, lookupErr.Error())
		return
	}
	err.success()
	fn(g)
}

// OnReadyToSendPings replays the pre-init task buffer and releases pings
// deferred during startup.
func OnReadyToSendPings(handle uint64, err *ExternError) {
	withCore(handle, err, func(g *glean.Glean) {
		g.OnReadyToSubmitPings()
	})
}

// IsUploadEnabled reads the upload flag.
func IsUploadEnabled(handle uint64, err *ExternError) bool {
	var enabled bool
	withCore(handle, err, func(g *glean.Glean) {
		enabled = g.IsUploadEnabled()
	})
	return enabled
}

// SetUploadEnabled flips the upload flag, with deletion-request semantics on
// disable.
func SetUploadEnabled(handle uint64, enabled bool, err *ExternError) {
	withCore(handle, err, func(g *glean.Glean) {
		g.SetUploadEnabled(enabled)
	})
}

var pingTypeHandles = NewHandleMap[*pings.PingType]()

// NewPingType creates a custom ping type and returns its handle.
func NewPingType(name string, includeClientID, sendIfEmpty bool) uint64 {
	return pingTypeHandles.Insert(pings.New(name, includeClientID, sendIfEmpty))
}

// DestroyPingType releases a ping type handle. Idempotent.
func DestroyPingType(handle uint64) { pingTypeHandles.Remove(handle) }

// RegisterPingType makes the ping behind pingHandle submittable by name.
func RegisterPingType(handle, pingHandle uint64, err *ExternError) {
	p, lookupErr := pingTypeHandles.Get(pingHandle)
	if lookupErr != nil {
		err.fail(CodeHandleError, lookupErr.Error())
		return
	}
	withCore(handle, err, func(g *glean.Glean) {
		g.RegisterPingType(p)
	})
}

// SendPing collects and queues the ping behind pingHandle, returning whether
// a ping file was written.
func SendPing(handle, pingHandle uint64, reason string, err *ExternError) bool {
	p, lookupErr := pingTypeHandles.Get(pingHandle)
	if lookupErr != nil {
		err.fail(CodeHandleError, lookupErr.Error())
		return false
	}
	var sent bool
	withCore(handle, err, func(g *glean.Glean) {
		sent = g.SubmitPing(p, reason)
	})
	return sent
}

// SendPingByName collects and queues the named ping, returning whether a
// ping file was written.
func SendPingByName(handle uint64, name, reason string, err *ExternError) bool {
	var sent bool
	withCore(handle, err, func(g *glean.Glean) {
		sent = g.SubmitPingByName(name, reason)
	})
	return sent
}

// PingCollect assembles the named ping and returns its canonical JSON
// payload, or the empty string when the ping has no data. Collection has
// the usual side effects: the seq counter advances and Ping-lifetime values
// clear.
func PingCollect(handle uint64, name string, err *ExternError) string {
	var payload string
	withCore(handle, err, func(g *glean.Glean) {
		doc, ok := g.TestCollectPing(name)
		if !ok {
			return
		}
		body, marshalErr := json.Marshal(doc)
		if marshalErr != nil {
			err.fail(CodeStorageError, marshalErr.Error())
			return
		}
		payload = string(body)
	})
	return payload
}

// SetExperimentActive annotates future pings with an active experiment.
// Extras arrive as parallel key/value arrays, the natural shape for a C
// caller.
func SetExperimentActive(handle uint64, id, branch string, extraKeys, extraValues []string,
	err *ExternError) {
	if len(extraKeys) != len(extraValues) {
		err.fail(CodeUtf8Error, "extra keys and values differ in length")
		return
	}
	withCore(handle, err, func(g *glean.Glean) {
		var extra map[string]string
		if len(extraKeys) > 0 {
			extra = make(map[string]string, len(extraKeys))
			for i, k := range extraKeys {
				extra[k] = extraValues[i]
			}
		}
		g.SetExperimentActive(id, branch, extra)
	})
}

// SetExperimentInactive removes an experiment annotation.
func SetExperimentInactive(handle uint64, id string, err *ExternError) {
	withCore(handle, err, func(g *glean.Glean) {
		g.SetExperimentInactive(id)
	})
}

// ExperimentTestIsActive reports whether id is annotated. Test-only.
func ExperimentTestIsActive(handle uint64, id string, err *ExternError) bool {
	var active bool
	withCore(handle, err, func(g *glean.Glean) {
		active = g.TestIsExperimentActive(id)
	})
	return active
}

// ExperimentTestGetData returns the annotation for id as JSON. Test-only.
func ExperimentTestGetData(handle uint64, id string, err *ExternError) string {
	var payload string
	withCore(handle, err, func(g *glean.Glean) {
		exp, ok := g.TestGetExperimentData(id)
		if !ok {
			return
		}
		body, marshalErr := json.Marshal(exp.AsJSON())
		if marshalErr != nil {
			err.fail(CodeStorageError, marshalErr.Error())
			return
		}
		payload = string(body)
	})
	return payload
}

// Destroy shuts the instance down and releases its handle. Idempotent.
func Destroy(handle uint64, err *ExternError) {
	g, lookupErr := coreHandles.Get(handle)
	if lookupErr != nil {
		// Double-destroy is tolerated; the binding may have nulled late.
		err.success()
		return
	}
	g.Shutdown()
	coreHandles.Remove(handle)
	err.success()
}

// resolveGlean adapts a core handle for the metric entry points, which need
// the metrics.Glean view.
func resolveGlean(handle uint64, err *ExternError) (metrics.Glean, bool) {
	g, lookupErr := coreHandles.Get(handle)
	if lookupErr != nil {
		err.fail(CodeHandleError, lookupErr.Error())
		return nil, false
	}
	err.success()
	return g, true
}
