// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockDir takes an exclusive advisory lock on dir, preventing two SDK
// instances from sharing one data directory. The returned lock must be
// released through Unlock when the instance shuts down.
func LockDir(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, "glean.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("data directory %s is locked by another instance", dir)
	}
	return lock, nil
}
