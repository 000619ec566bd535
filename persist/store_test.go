// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package persist

import (
	"path/filepath"
	"testing"

	"github.com/aristanetworks/relocatable/hashmap"
	"github.com/aristanetworks/relocatable/reloc"
	"github.com/aristanetworks/relocatable/vector"
)

func TestSaveLoadVector(t *testing.T) {
	v := vector.New[reloc.Plain[int], *reloc.Plain[int]]()
	for i := 0; i < 5; i++ {
		v.Push(reloc.Plain[int]{Val: i * i})
	}

	path := filepath.Join(t.TempDir(), "vector.bin")
	type V = vector.Vector[reloc.Plain[int], *reloc.Plain[int]]
	if err := Save[V, *V](path, &v); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := Load[V, *V](path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Len() != v.Len() {
		t.Fatalf("Len() = %d, want %d", out.Len(), v.Len())
	}
	for i := 0; i < out.Len(); i++ {
		if out.At(i).Val != i*i {
			t.Fatalf("At(%d) = %d, want %d", i, out.At(i).Val, i*i)
		}
	}
}

func TestSaveLoadMap(t *testing.T) {
	m := hashmap.New[int, reloc.Plain[int], *reloc.Plain[int]](
		func(n int) uint64 { return uint64(n) },
		func(a, b int) bool { return a == b },
	)
	for i := 0; i < 10; i++ {
		m.Insert(i, reloc.Plain[int]{Val: i * 2})
	}

	path := filepath.Join(t.TempDir(), "map.bin")
	type M = hashmap.Map[int, reloc.Plain[int], *reloc.Plain[int]]
	if err := Save[M, *M](path, &m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := Load[M, *M](path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// hashFn/equalFn are process-local and never travel through the byte
	// image; the caller must re-supply them before using the loaded map.
	out.SetHashers(
		func(n int) uint64 { return uint64(n) },
		func(a, b int) bool { return a == b },
	)
	if out.Len() != m.Len() {
		t.Fatalf("Len() = %d, want %d", out.Len(), m.Len())
	}
	for i := 0; i < 10; i++ {
		v, ok := out.Get(i)
		if !ok || v.Val != i*2 {
			t.Fatalf("Get(%d) = %v, %v, want %d, true", i, v, ok, i*2)
		}
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	type V = vector.Vector[reloc.Plain[int], *reloc.Plain[int]]
	path := filepath.Join(t.TempDir(), "does-not-exist.bin")
	if _, err := Load[V, *V](path); err == nil {
		t.Fatal("Load of a missing file: want error, got nil")
	}
}
