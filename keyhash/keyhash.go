// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package keyhash provides ready-made hash functions for use as the hash
// callback a hashmap.Map or hashmap.MultiMap requires at construction time.
// Each key type is serialized into a buffer and hashed with hash/maphash,
// the stable, exported equivalent of the runtime's own hash functions.
package keyhash

import (
	"encoding/binary"
	"hash/maphash"
)

// Hasher produces stable uint64 hashes for one process's lifetime: every
// method shares a single maphash.Seed, so values hashed through the same
// Hasher are comparable with each other but not across processes or
// against a different Hasher. Callers pass these straight to hashmap.New;
// the map itself keeps only the low 32 bits.
type Hasher struct {
	seed maphash.Seed
}

// NewHasher returns a Hasher seeded from the runtime's random source.
func NewHasher() Hasher {
	return Hasher{seed: maphash.MakeSeed()}
}

func (h Hasher) sum(b []byte) uint64 {
	var mh maphash.Hash
	mh.SetSeed(h.seed)
	mh.Write(b)
	return mh.Sum64()
}

// String hashes s.
func (h Hasher) String(s string) uint64 {
	var mh maphash.Hash
	mh.SetSeed(h.seed)
	mh.WriteString(s)
	return mh.Sum64()
}

// Bytes hashes b.
func (h Hasher) Bytes(b []byte) uint64 {
	return h.sum(b)
}

// Uint64 hashes n.
func (h Hasher) Uint64(n uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	return h.sum(buf[:])
}

// Int hashes n.
func (h Hasher) Int(n int) uint64 {
	return h.Uint64(uint64(n))
}

// Combine mixes several already-computed hashes into one, for composite
// keys built out of more than one field.
func (h Hasher) Combine(parts ...uint64) uint64 {
	var mh maphash.Hash
	mh.SetSeed(h.seed)
	var buf [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(buf[:], p)
		mh.Write(buf[:])
	}
	return mh.Sum64()
}

// Equal returns the natural equality function for a comparable key type,
// for pairing with any of the hash functions above when constructing a map.
func Equal[K comparable]() func(K, K) bool {
	return func(a, b K) bool { return a == b }
}
