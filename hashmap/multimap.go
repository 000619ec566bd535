// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package hashmap

import (
	"github.com/aristanetworks/relocatable/reloc"
	"github.com/aristanetworks/relocatable/vector"
)

// MultiMap is a Map specialized to hold a relocatable vector of items per
// key, with PushAt/GetIter/RemoveIter letting a caller grow the per-key
// vector without first doing a Get-then-Insert round trip.
type MultiMap[K any, I any, PI reloc.Compactable[I]] struct {
	inner Map[K, vector.Vector[I, PI], *vector.Vector[I, PI]]
}

// NewMultiMap returns an empty MultiMap.
func NewMultiMap[K any, I any, PI reloc.Compactable[I]](hash func(K) uint64, equal func(K, K) bool) MultiMap[K, I, PI] {
	return MultiMap[K, I, PI]{
		inner: New[K, vector.Vector[I, PI], *vector.Vector[I, PI]](hash, equal),
	}
}

// Len returns the number of distinct keys with at least one pushed item.
func (m *MultiMap[K, I, PI]) Len() int { return m.inner.Len() }

// IsEmpty reports whether no key has any items.
func (m *MultiMap[K, I, PI]) IsEmpty() bool { return m.inner.IsEmpty() }

// SetHashers installs hash and equal on m, exactly like Map.SetHashers; it
// must be called on a MultiMap produced by Decompact before any of
// PushAt/GetIter/RemoveIter, since hash and equal cannot themselves survive
// a relocation.
func (m *MultiMap[K, I, PI]) SetHashers(hash func(K) uint64, equal func(K, K) bool) {
	m.inner.SetHashers(hash, equal)
}

// PushAt appends item to the vector stored at key, creating that vector on
// first use.
func (m *MultiMap[K, I, PI]) PushAt(key K, item I) {
	m.inner.ensureCapacity()
	hash := uint32(m.inner.hashFn(key))
	tableSize := m.inner.entries.Len()
	for i := 0; i < tableSize; i++ {
		e := m.inner.entries.At(quadraticIndex(hash, i, tableSize))
		if e.isThis(key, m.inner.equalFn) {
			e.value.Push(item)
			return
		}
		if !e.used() {
			vec := vector.New[I, PI]()
			vec.Push(item)
			e.makeUsed(hash, key, vec)
			m.inner.numberAlive++
			m.inner.numberUsed++
			return
		}
	}
	panic("hashmap: no free slot for push_at, ensureCapacity invariant violated")
}

// GetIter returns the items pushed at key, or nil if key has no entry. The
// returned slice aliases the inner vector's storage and is only valid until
// the next PushAt or RemoveIter for the same key.
func (m *MultiMap[K, I, PI]) GetIter(key K) []I {
	vec, ok := m.inner.Get(key)
	if !ok {
		return nil
	}
	return vec.Slice()
}

// RemoveIter removes key's entry entirely and returns the items it held,
// independent of the map's storage.
func (m *MultiMap[K, I, PI]) RemoveIter(key K) []I {
	vec, ok := m.inner.Remove(key)
	if !ok {
		return nil
	}
	return vec.Drain()
}

func (m *MultiMap[K, I, PI]) DynamicTailBytes() uintptr { return m.inner.DynamicTailBytes() }
func (m *MultiMap[K, I, PI]) IsStillCompact() bool      { return m.inner.IsStillCompact() }

func (m *MultiMap[K, I, PI]) CompactInto(dst *MultiMap[K, I, PI], tail reloc.Region) {
	m.inner.CompactInto(&dst.inner, tail)
}

func (m *MultiMap[K, I, PI]) Decompact() MultiMap[K, I, PI] {
	return MultiMap[K, I, PI]{inner: m.inner.Decompact()}
}
