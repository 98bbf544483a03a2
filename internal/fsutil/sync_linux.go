// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package fsutil

import (
	"os"

	"golang.org/x/sys/unix"
)

// datasync flushes file data without forcing a metadata sync, which is all
// the rename-based update scheme needs before the rename itself.
func datasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
