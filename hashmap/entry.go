// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package hashmap

import "github.com/aristanetworks/relocatable/reloc"

// entry is one slot of a Map's backing table. A zero-value entry is free.
// Once a key has occupied a slot and is later removed, the slot becomes
// tombstoned rather than free again, so that quadratic probing for any
// other key that collided through this slot still finds its way past it.
type entry[K any, V any, PV reloc.Compactable[V]] struct {
	hash       uint32
	tombstoned bool
	hasValue   bool
	key        K
	value      V
}

func (e *entry[K, V, PV]) used() bool  { return e.tombstoned || e.hasValue }
func (e *entry[K, V, PV]) alive() bool { return e.hasValue }
func (e *entry[K, V, PV]) free() bool  { return !e.hasValue && !e.tombstoned }

func (e *entry[K, V, PV]) isThis(key K, equal func(K, K) bool) bool {
	return e.hasValue && equal(e.key, key)
}

func (e *entry[K, V, PV]) makeUsed(hash uint32, key K, value V) {
	e.hash = hash
	e.tombstoned = false
	e.hasValue = true
	e.key = key
	e.value = value
}

// replaceValue overwrites the value of an already-alive entry, returning the
// value it held before.
func (e *entry[K, V, PV]) replaceValue(newVal V) V {
	old := e.value
	e.value = newVal
	return old
}

// remove tombstones e and returns the value it held.
func (e *entry[K, V, PV]) remove() V {
	old := e.value
	var zero V
	e.value = zero
	e.hasValue = false
	e.tombstoned = true
	return old
}

func (e *entry[K, V, PV]) DynamicTailBytes() uintptr {
	if !e.hasValue {
		return 0
	}
	return PV(&e.value).DynamicTailBytes()
}

func (e *entry[K, V, PV]) IsStillCompact() bool {
	if !e.hasValue {
		return true
	}
	return PV(&e.value).IsStillCompact()
}

func (e *entry[K, V, PV]) CompactInto(dst *entry[K, V, PV], tail reloc.Region) {
	dst.hash = e.hash
	dst.tombstoned = e.tombstoned
	dst.hasValue = e.hasValue
	dst.key = e.key
	if e.hasValue {
		PV(&e.value).CompactInto(&dst.value, tail)
	}
}

func (e *entry[K, V, PV]) Decompact() entry[K, V, PV] {
	out := entry[K, V, PV]{hash: e.hash, tombstoned: e.tombstoned, hasValue: e.hasValue, key: e.key}
	if e.hasValue {
		out.value = PV(&e.value).Decompact()
	}
	return out
}
