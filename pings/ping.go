// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

// Package pings defines the ping types known to the SDK and the maker that
// assembles a named ping from storage into its canonical JSON payload and
// queues it to the pending-ping directory.
package pings // import "github.com/wlach/glean/pings"

// PingType describes one named ping.
type PingType struct {
	// Name is the ping name, doubling as its storage store name.
	Name string
	// IncludeClientID selects whether client_info carries the client_id.
	IncludeClientID bool
	// SendIfEmpty lets the ping go out with no metric data.
	SendIfEmpty bool
}

// New creates a ping type.
func New(name string, includeClientID, sendIfEmpty bool) *PingType {
	return &PingType{
		Name:            name,
		IncludeClientID: includeClientID,
		SendIfEmpty:     sendIfEmpty,
	}
}
