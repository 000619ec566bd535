// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package hashmap

import (
	"sort"
	"testing"
	"unsafe"

	"github.com/aristanetworks/relocatable/reloc"
	"github.com/aristanetworks/relocatable/sliceutils"
	"github.com/aristanetworks/relocatable/test"
)

func identityHash(n int) uint64 { return uint64(n) }
func intEqual(a, b int) bool    { return a == b }

func elem(n int) int { return n * n }

func TestVeryBasic(t *testing.T) {
	m := WithCapacity[int, reloc.Plain[int], *reloc.Plain[int]](2, identityHash, intEqual)
	m.Insert(0, reloc.Plain[int]{Val: 54})
	if v, ok := m.Get(0); !ok || v.Val != 54 {
		t.Fatalf("Get(0) = %v, %v", v, ok)
	}
	m.Insert(1, reloc.Plain[int]{Val: 48})
	if v, ok := m.Get(1); !ok || v.Val != 48 {
		t.Fatalf("Get(1) = %v, %v", v, ok)
	}
}

func TestBasic(t *testing.T) {
	const n = 10000
	m := WithCapacity[int, reloc.Plain[int], *reloc.Plain[int]](n, identityHash, intEqual)
	if !m.IsEmpty() {
		t.Fatal("new map not empty")
	}
	for i := 0; i < n; i++ {
		m.Insert(i, reloc.Plain[int]{Val: elem(i)})
	}
	if m.IsEmpty() {
		t.Fatal("map empty after inserts")
	}
	for i := 0; i < n; i++ {
		v, ok := m.Get(i)
		if !ok || v.Val != elem(i) {
			t.Fatalf("Get(%d) = %v, %v, want %d", i, v, ok, elem(i))
		}
	}
	if m.Len() != n {
		t.Fatalf("Len() = %d, want %d", m.Len(), n)
	}
	if !m.ContainsKey(n - 300) {
		t.Fatal("ContainsKey(n-300) = false")
	}
	if m.ContainsKey(n + 1) {
		t.Fatal("ContainsKey(n+1) = true")
	}
	old, ok := m.Remove(500)
	if !ok || old.Val != elem(500) {
		t.Fatalf("Remove(500) = %v, %v", old, ok)
	}
	if _, ok := m.Get(500); ok {
		t.Fatal("Get(500) found after Remove")
	}
}

func TestKeysAndValues(t *testing.T) {
	m := New[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	for i := 0; i < 10; i++ {
		m.Insert(i, reloc.Plain[int]{Val: elem(i)})
	}
	keys := m.Keys()
	sort.Ints(keys)
	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	gotAny, wantAny := sliceutils.ToAnySlice(keys), sliceutils.ToAnySlice(want)
	if !test.DeepEqual(gotAny, wantAny) {
		t.Fatalf("%s", test.Diff(gotAny, wantAny))
	}

	values := m.Values()
	seenVals := make(map[int]bool)
	for _, v := range values {
		seenVals[v.Val] = true
	}
	for i := 0; i < 10; i++ {
		if !seenVals[elem(i)] {
			t.Fatalf("value %d missing from Values()", elem(i))
		}
	}
}

func TestRangePtrMutatesInPlace(t *testing.T) {
	m := New[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	for i := 0; i < 100; i++ {
		m.Insert(i, reloc.Plain[int]{Val: elem(i)})
	}
	m.RangePtr(func(_ int, v *reloc.Plain[int]) { v.Val++ })
	for i := 0; i < 100; i++ {
		v, _ := m.Get(i)
		if v.Val != elem(i)+1 {
			t.Fatalf("Get(%d) = %d, want %d", i, v.Val, elem(i)+1)
		}
	}
}

func TestLenIsAliveNotUsed(t *testing.T) {
	m := New[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	for i := 0; i < 1000; i++ {
		m.Insert(i, reloc.Plain[int]{Val: elem(i)})
	}
	for i := 0; i < 10; i++ {
		m.Remove(i)
	}
	if m.Len() != 990 {
		t.Fatalf("Len() = %d, want 990", m.Len())
	}
}

func TestManyTombstonesRehashesInPlace(t *testing.T) {
	m := New[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	for i := 0; i < 1000; i++ {
		m.Insert(i, reloc.Plain[int]{Val: elem(i)})
	}
	for i := 0; i < 600; i++ {
		m.Remove(i)
	}
	if m.Len() != 400 {
		t.Fatalf("Len() = %d, want 400", m.Len())
	}
	if m.NumberUsed() != 1000 {
		t.Fatalf("NumberUsed() = %d, want 1000", m.NumberUsed())
	}
	if m.Capacity() != 3203 {
		t.Fatalf("Capacity() = %d, want 3203", m.Capacity())
	}

	for i := 0; i < 1000; i++ {
		m.Insert(10000+i, reloc.Plain[int]{Val: elem(i)})
	}
	if m.Len() != 1400 {
		t.Fatalf("Len() = %d, want 1400", m.Len())
	}
	if m.Capacity() != 3203 {
		t.Fatalf("Capacity() = %d, want 3203 (rehash in place, not grow)", m.Capacity())
	}
}

func TestFewTombstonesDoublesCapacity(t *testing.T) {
	m := New[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	for i := 0; i < 1000; i++ {
		m.Insert(i, reloc.Plain[int]{Val: elem(i)})
	}
	for i := 0; i < 60; i++ {
		m.Remove(i)
	}
	if m.Len() != 940 {
		t.Fatalf("Len() = %d, want 940", m.Len())
	}
	if m.NumberUsed() != 1000 {
		t.Fatalf("NumberUsed() = %d, want 1000", m.NumberUsed())
	}
	if m.Capacity() != 3203 {
		t.Fatalf("Capacity() = %d, want 3203", m.Capacity())
	}

	for i := 0; i < 1000; i++ {
		m.Insert(10000+i, reloc.Plain[int]{Val: elem(i)})
	}
	if m.Len() != 1940 {
		t.Fatalf("Len() = %d, want 1940", m.Len())
	}
	if m.Capacity() != 6421 {
		t.Fatalf("Capacity() = %d, want 6421 (grow, not rehash in place)", m.Capacity())
	}
}

// constantHash forces every key to collide into the same slot, exercising
// the tombstone-skip-over behavior of quadratic probing directly rather
// than searching for a real collision of a production hash function.
func constantHash(int) uint64 { return 7 }

func TestInsertAfterRemoveSameHash(t *testing.T) {
	m := New[int, reloc.Plain[int], *reloc.Plain[int]](constantHash, intEqual)
	m.Insert(1, reloc.Plain[int]{Val: 1})
	m.Insert(2, reloc.Plain[int]{Val: 2})
	m.Remove(1)
	m.Insert(2, reloc.Plain[int]{Val: 3})

	n := 0
	m.Range(func(k int, v reloc.Plain[int]) {
		if k == 2 {
			n++
			if v.Val != 3 {
				t.Fatalf("value for key 2 = %d, want 3", v.Val)
			}
		}
	})
	if n != 1 {
		t.Fatalf("found %d entries for key 2, want 1", n)
	}
	if _, ok := m.Get(1); ok {
		t.Fatal("key 1 still present after Remove")
	}
}

func TestCompactAndDecompactPlainValues(t *testing.T) {
	type M = Map[int, reloc.Plain[int], *reloc.Plain[int]]
	m := New[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	for i := 0; i < 1000; i++ {
		m.Insert(i, reloc.Plain[int]{Val: elem(i)})
	}

	totalBytes := reloc.TotalSizeBytes[M, *M](&m)
	storage := make([]byte, totalBytes)
	dst := (*M)(unsafe.Pointer(&storage[0]))
	reloc.CompactBehind[M, *M](&m, dst)

	// hashFn/equalFn are never part of the compacted bytes, so a compacted
	// or decompacted Map always needs them re-supplied before any
	// hash-dependent call, even within a single process.
	dst.SetHashers(identityHash, intEqual)
	if v, ok := dst.Get(500); !ok || v.Val != elem(500) {
		t.Fatalf("compacted Get(500) = %v, %v", v, ok)
	}

	decompacted := dst.Decompact()
	decompacted.SetHashers(identityHash, intEqual)
	if v, ok := decompacted.Get(500); !ok || v.Val != elem(500) {
		t.Fatalf("decompacted Get(500) = %v, %v", v, ok)
	}
}

func TestClone(t *testing.T) {
	m := New[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	m.Insert(1, reloc.Plain[int]{Val: 10})
	m.Insert(3, reloc.Plain[int]{Val: 30})
	m.Remove(3)

	clone := m.Clone()
	if clone.Capacity() != m.Capacity() {
		t.Fatalf("clone Capacity() = %d, want %d", clone.Capacity(), m.Capacity())
	}
	if clone.NumberUsed() != m.NumberUsed() {
		t.Fatalf("clone NumberUsed() = %d, want %d", clone.NumberUsed(), m.NumberUsed())
	}
	if clone.Len() != m.Len() {
		t.Fatalf("clone Len() = %d, want %d", clone.Len(), m.Len())
	}

	clone.Insert(2, reloc.Plain[int]{Val: 20})
	if m.ContainsKey(2) {
		t.Fatal("mutating clone affected original")
	}
	if !clone.ContainsKey(1) || !clone.ContainsKey(2) {
		t.Fatal("clone missing expected keys")
	}
}
