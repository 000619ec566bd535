// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package persist writes a compacted container's contiguous byte image to
// disk and reads it back, retrying transient I/O errors with an exponential
// backoff whose interval is capped at retryMaxInterval and whose number of
// retries is capped at maxRetries, so a stuck disk doesn't leave a caller
// hanging indefinitely.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff/v4"

	"github.com/aristanetworks/glog"
	"github.com/aristanetworks/relocatable/reloc"
)

// retryMaxInterval caps the spacing between retries of a single save or
// load; callers that need a different ceiling can wrap Save/Load themselves.
const retryMaxInterval = 10 * time.Second

// maxRetries bounds the number of retries after the first attempt of one
// Save or Load call (at most maxRetries+1 attempts in all); a single file
// operation then gives up and reports the error rather than retrying
// forever.
const maxRetries = 5

func newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = retryMaxInterval
	return backoff.WithMaxRetries(bo, maxRetries)
}

// Save compacts v into a contiguous byte image via reloc.CompactBehind and
// writes it to path. The write goes to a temporary file in the same
// directory first and is renamed into place, so a reader never observes a
// partially written file.
func Save[T any, PT reloc.Compactable[T]](path string, v *T) error {
	total := reloc.TotalSizeBytes[T, PT](v)
	buf := make([]byte, total)
	dst := (*T)(unsafe.Pointer(&buf[0]))
	reloc.CompactBehind[T, PT](v, dst)

	return backoff.RetryNotify(
		func() error { return writeAtomic(path, buf) },
		newBackOff(),
		func(err error, wait time.Duration) {
			glog.Infof("persist: save %q failed, retrying in %s: %s", path, wait, err)
		},
	)
}

// Load reads the byte image written by Save and decompacts it into a
// fully heap-owned value, independent of the file's contents once Load
// returns.
func Load[T any, PT reloc.Compactable[T]](path string) (T, error) {
	var zero T

	var data []byte
	err := backoff.RetryNotify(
		func() error {
			b, err := os.ReadFile(path)
			if os.IsNotExist(err) {
				return backoff.Permanent(err)
			}
			if err != nil {
				return err
			}
			data = b
			return nil
		},
		newBackOff(),
		func(err error, wait time.Duration) {
			glog.Infof("persist: load %q failed, retrying in %s: %s", path, wait, err)
		},
	)
	if err != nil {
		return zero, fmt.Errorf("persist: load %q: %w", path, err)
	}
	if len(data) == 0 {
		return zero, fmt.Errorf("persist: load %q: empty file", path)
	}

	src := (*T)(unsafe.Pointer(&data[0]))
	return PT(src).Decompact(), nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
