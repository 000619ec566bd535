// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package relocyaml serializes the live contents of a relocatable map or
// vector to and from YAML via gopkg.in/yaml.v2. It walks Map.Range/Vector.Slice
// rather than encoding the container's internal layout, since the
// relocation pointer fields have no meaningful on-disk representation of
// their own.
package relocyaml

import "gopkg.in/yaml.v2"

// rangeableMap is the read surface relocyaml needs from a map: every live
// key-value pair, without depending on the map's own type parameters.
type rangeableMap[K comparable, V any] interface {
	Range(func(key K, value V))
}

// MarshalMap renders every live pair of m as a YAML mapping.
func MarshalMap[K comparable, V any](m rangeableMap[K, V]) ([]byte, error) {
	out := make(map[K]V)
	m.Range(func(k K, v V) { out[k] = v })
	return yaml.Marshal(out)
}

// insertableMap is the write surface relocyaml needs to repopulate a map
// from decoded YAML.
type insertableMap[K comparable, V any] interface {
	Insert(key K, value V) (V, bool)
}

// UnmarshalMap decodes a YAML mapping produced by MarshalMap into dst,
// inserting each pair.
func UnmarshalMap[K comparable, V any](data []byte, dst insertableMap[K, V]) error {
	decoded := make(map[K]V)
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return err
	}
	for k, v := range decoded {
		dst.Insert(k, v)
	}
	return nil
}

// sliceableVector is the read surface relocyaml needs from a vector.
type sliceableVector[E any] interface {
	Slice() []E
}

// MarshalVector renders every live element of v as a YAML sequence.
func MarshalVector[E any](v sliceableVector[E]) ([]byte, error) {
	return yaml.Marshal(v.Slice())
}

// extendableVector is the write surface relocyaml needs to repopulate a
// vector from decoded YAML.
type extendableVector[E any] interface {
	Extend(src []E)
}

// UnmarshalVector decodes a YAML sequence produced by MarshalVector and
// appends its elements to dst.
func UnmarshalVector[E any](data []byte, dst extendableVector[E]) error {
	var decoded []E
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return err
	}
	dst.Extend(decoded)
	return nil
}
