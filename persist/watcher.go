// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package persist

import (
	"path/filepath"

	"github.com/aristanetworks/fsnotify"

	"github.com/aristanetworks/glog"
)

// Watcher invokes a callback whenever the snapshot file at a path is
// replaced, letting a process pick up images another process Saves. The
// watch is on the containing directory, not the file: Save renames a temp
// file into place, which replaces the inode a direct file watch would be
// pinned to.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	done     chan struct{}
	onChange func()
}

// WatchSnapshot starts watching path and calls onChange after every
// completed Save (from this process or any other). The callback runs on
// the watcher's goroutine; a typical callback Loads the file and swaps the
// result in.
func WatchSnapshot(path string, onChange func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	w := &Watcher{
		watcher:  fsWatcher,
		path:     filepath.Clean(path),
		done:     make(chan struct{}),
		onChange: onChange,
	}
	go w.watch()
	return w, nil
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			go func() {
				// Drain the events, otherwise closing the watcher will get stuck
				for range w.watcher.Events {
				}
			}()
			w.watcher.Close()
			return
		case ev := <-w.watcher.Events:
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			// Rename-into-place surfaces as Create for the destination name;
			// a plain overwrite surfaces as Write.
			if ev.Op&fsnotify.Create == fsnotify.Create ||
				ev.Op&fsnotify.Write == fsnotify.Write {
				w.onChange()
			}
		case err := <-w.watcher.Errors:
			glog.Errorf("persist: watch %q: %s", w.path, err)
		}
	}
}

// Close stops the watcher; in-flight callbacks may still complete.
func (w *Watcher) Close() {
	close(w.done)
}
