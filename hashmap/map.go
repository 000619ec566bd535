// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package hashmap implements a relocatable open-addressing dictionary with
// quadratic probing: a dynamically sized hash table that can be compacted
// into and decompacted out of an enclosing relocation region, growing by
// prime-sized doublings as it fills and tombstoning removals to keep probe
// sequences intact.
package hashmap

import (
	"fmt"

	"github.com/aristanetworks/relocatable/prime"
	"github.com/aristanetworks/relocatable/reloc"
	"github.com/aristanetworks/relocatable/vector"
)

// Map is a relocatable dictionary from K to V. PV is V's relocation-protocol
// pointer type, following the same constraint-shape rationale as
// vector.Vector's PE parameter.
//
// Go has no counterpart to a derived Hash/Eq trait, so callers supply their
// own hash and equality functions at construction time rather than relying
// on comparable or a reflection-based hash. The hash function returns a
// full uint64; only its low 32 bits are cached per entry and used for
// probing, matching the bucket math the table's growth heuristic was
// dimensioned against.
//
// hashFn and equalFn are ordinary Go func values: a closure environment or
// method value is only meaningful in the process that created it, so they
// are deliberately NOT part of what CompactInto/Decompact carry across a
// relocation. A Map produced by Decompact (directly, or via persist.Load /
// a transport/kafka consumer) has both fields nil and will panic on any
// hash-dependent call until the caller supplies fresh functions with
// SetHashers.
type Map[K any, V any, PV reloc.Compactable[V]] struct {
	entries     vector.Vector[entry[K, V, PV], *entry[K, V, PV]]
	numberAlive uint32
	numberUsed  uint32
	hashFn      func(K) uint64
	equalFn     func(K, K) bool
}

// New returns an empty map with a small initial table.
func New[K any, V any, PV reloc.Compactable[V]](hash func(K) uint64, equal func(K, K) bool) Map[K, V, PV] {
	return WithCapacity[K, V, PV](4, hash, equal)
}

// WithCapacity returns an empty map whose table holds at least capacityHint
// slots before its first growth; the actual table size is rounded up to the
// next prime, as required for quadratic probing to visit every slot.
func WithCapacity[K any, V any, PV reloc.Compactable[V]](capacityHint int, hash func(K) uint64, equal func(K, K) bool) Map[K, V, PV] {
	size := prime.FindNextPrime(capacityHint)
	return Map[K, V, PV]{
		entries: filledEntries[K, V, PV](size),
		hashFn:  hash,
		equalFn: equal,
	}
}

func filledEntries[K any, V any, PV reloc.Compactable[V]](n int) vector.Vector[entry[K, V, PV], *entry[K, V, PV]] {
	v := vector.WithCapacity[entry[K, V, PV], *entry[K, V, PV]](n)
	for i := 0; i < n; i++ {
		v.Push(entry[K, V, PV]{})
	}
	return v
}

// Len returns the number of live key-value pairs.
func (m *Map[K, V, PV]) Len() int { return int(m.numberAlive) }

// NumberUsed returns the number of slots that are either alive or
// tombstoned; this is what drives the growth heuristic, not Len.
func (m *Map[K, V, PV]) NumberUsed() int { return int(m.numberUsed) }

// Capacity returns the current table size (always prime).
func (m *Map[K, V, PV]) Capacity() int { return m.entries.Len() }

// IsEmpty reports whether the map holds no live pairs.
func (m *Map[K, V, PV]) IsEmpty() bool { return m.numberAlive == 0 }

// SetHashers installs hash and equal on m. It must be called before any
// hash-dependent method (Get, Insert, Remove, ContainsKey, GetPtr, Clone) on
// a Map that came out of Decompact, since those functions are process-local
// and cannot themselves be relocated; a freshly constructed Map from New or
// WithCapacity already has them and does not need this call.
func (m *Map[K, V, PV]) SetHashers(hash func(K) uint64, equal func(K, K) bool) {
	m.hashFn = hash
	m.equalFn = equal
}

func quadraticIndex(hash uint32, i, tableSize int) int {
	return int((uint64(hash) + uint64(i)*uint64(i)) % uint64(tableSize))
}

// Get returns the value stored at key, if any. The value comes back by
// copy; on a still-compact map whose values have their own dynamic tails,
// use GetPtr instead, since a copied header's interior pointer is only
// meaningful at its original address inside the compacted block.
func (m *Map[K, V, PV]) Get(key K) (V, bool) {
	if e := m.findUsed(key); e != nil {
		return e.value, true
	}
	var zero V
	return zero, false
}

// GetPtr returns a mutable pointer to the value stored at key, if any. The
// pointer is valid until the map's next structural mutation (Insert,
// Remove, or any operation that can trigger a table resize).
func (m *Map[K, V, PV]) GetPtr(key K) (*V, bool) {
	if e := m.findUsed(key); e != nil {
		return &e.value, true
	}
	return nil, false
}

// ContainsKey reports whether key has a live entry.
func (m *Map[K, V, PV]) ContainsKey(key K) bool {
	return m.findUsed(key) != nil
}

// findUsed walks key's probe sequence until it hits the key's live entry or
// a free slot. Stopping at the first free slot is sound because Insert never
// reuses a tombstoned slot for a new key: every live entry sits before any
// free slot on its own probe sequence.
func (m *Map[K, V, PV]) findUsed(key K) *entry[K, V, PV] {
	hash := uint32(m.hashFn(key))
	tableSize := m.entries.Len()
	for i := 0; i < tableSize; i++ {
		e := m.entries.At(quadraticIndex(hash, i, tableSize))
		if e.isThis(key, m.equalFn) {
			return e
		}
		if e.free() {
			return nil
		}
	}
	return nil
}

// Insert stores value at key, returning the previous value if the key was
// already present.
func (m *Map[K, V, PV]) Insert(key K, value V) (V, bool) {
	m.ensureCapacity()
	old, replaced := m.insertNoGrow(key, value)
	if !replaced {
		m.numberAlive++
		m.numberUsed++
	}
	return old, replaced
}

func (m *Map[K, V, PV]) insertNoGrow(key K, value V) (V, bool) {
	hash := uint32(m.hashFn(key))
	tableSize := m.entries.Len()
	for i := 0; i < tableSize; i++ {
		e := m.entries.At(quadraticIndex(hash, i, tableSize))
		if e.free() {
			e.makeUsed(hash, key, value)
			var zero V
			return zero, false
		}
		if e.isThis(key, m.equalFn) {
			return e.replaceValue(value), true
		}
	}
	panic("hashmap: no free slot to insert into, ensureCapacity invariant violated")
}

// Remove deletes key's entry, returning the value it held, if any. The slot
// is tombstoned rather than freed, so probe sequences that pass through it
// keep finding entries placed beyond it.
func (m *Map[K, V, PV]) Remove(key K) (V, bool) {
	if e := m.findUsed(key); e != nil {
		m.numberAlive--
		return e.remove(), true
	}
	var zero V
	return zero, false
}

// ensureCapacity grows the table whenever used slots (alive or tombstoned)
// exceed half its size. If more than half the table is dead (any slot that
// is not alive, whether free or tombstoned), it rehashes into a same-sized
// table instead of doubling, reclaiming the tombstones without growing
// memory use.
func (m *Map[K, V, PV]) ensureCapacity() {
	tableSize := m.entries.Len()
	if int(m.numberUsed) <= tableSize/2 {
		return
	}

	newCapacity := tableSize * 2
	numberDead := tableSize - int(m.numberAlive)
	if numberDead > tableSize/2 {
		newCapacity = tableSize
	}

	replacement := WithCapacity[K, V, PV](newCapacity, m.hashFn, m.equalFn)
	for i := 0; i < tableSize; i++ {
		e := m.entries.At(i)
		if e.alive() {
			replacement.Insert(e.key, e.value)
		}
	}
	*m = replacement
}

// Range calls fn for every live key-value pair, in table order.
func (m *Map[K, V, PV]) Range(fn func(key K, value V)) {
	tableSize := m.entries.Len()
	for i := 0; i < tableSize; i++ {
		e := m.entries.At(i)
		if e.alive() {
			fn(e.key, e.value)
		}
	}
}

// RangePtr calls fn with a mutable pointer to each live value, in table
// order, letting callers update values in place without a Get+Insert
// round trip.
func (m *Map[K, V, PV]) RangePtr(fn func(key K, value *V)) {
	tableSize := m.entries.Len()
	for i := 0; i < tableSize; i++ {
		e := m.entries.At(i)
		if e.alive() {
			fn(e.key, &e.value)
		}
	}
}

// Keys returns every live key, in table order.
func (m *Map[K, V, PV]) Keys() []K {
	out := make([]K, 0, m.numberAlive)
	m.Range(func(k K, _ V) { out = append(out, k) })
	return out
}

// Values returns every live value, in table order.
func (m *Map[K, V, PV]) Values() []V {
	out := make([]V, 0, m.numberAlive)
	m.Range(func(_ K, v V) { out = append(out, v) })
	return out
}

// Clone returns an independent, fully heap-owned copy of m: the bucket
// vector is cloned element-wise (deep for values with their own tails) and
// both counters are carried over, so the copy has the same capacity,
// tombstones and cached hashes as the original.
func (m *Map[K, V, PV]) Clone() Map[K, V, PV] {
	return Map[K, V, PV]{
		entries:     m.entries.Clone(),
		numberAlive: m.numberAlive,
		numberUsed:  m.numberUsed,
		hashFn:      m.hashFn,
		equalFn:     m.equalFn,
	}
}

func (m *Map[K, V, PV]) String() string {
	return fmt.Sprintf("hashmap.Map{alive: %d, used: %d, capacity: %d}",
		m.numberAlive, m.numberUsed, m.entries.Len())
}

func (m *Map[K, V, PV]) DynamicTailBytes() uintptr {
	return m.entries.DynamicTailBytes()
}

func (m *Map[K, V, PV]) IsStillCompact() bool {
	return m.entries.IsStillCompact()
}

// CompactInto deliberately does not carry hashFn/equalFn into dst: a
// compacted Map is meant to be written out as bytes (to disk, or onto a
// Kafka message) and those func values would be dangling pointers into this
// process the moment they're read back elsewhere. See SetHashers.
func (m *Map[K, V, PV]) CompactInto(dst *Map[K, V, PV], tail reloc.Region) {
	dst.numberAlive = m.numberAlive
	dst.numberUsed = m.numberUsed
	m.entries.CompactInto(&dst.entries, tail)
}

// Decompact rebuilds a fully heap-owned Map from a compacted one, but
// cannot restore hashFn/equalFn: the caller must call SetHashers on the
// result before using it.
func (m *Map[K, V, PV]) Decompact() Map[K, V, PV] {
	return Map[K, V, PV]{
		entries:     m.entries.Decompact(),
		numberAlive: m.numberAlive,
		numberUsed:  m.numberUsed,
	}
}
