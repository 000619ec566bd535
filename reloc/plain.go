// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package reloc

// Plain wraps a pointer-free, fixed-size value type so that it can be used
// as a Vector or Map element without writing the relocation protocol by
// hand. A trivially relocatable value has no dynamic tail, counts as always
// compact, and compacts and decompacts by plain field copy.
//
// Use Plain[T] for leaf element types (integers, fixed arrays, small
// structs with no pointers); use a hand-written Compactable implementation
// (like Vector or Map themselves) for anything with its own dynamic tail.
type Plain[T any] struct {
	Val T
}

// DynamicTailBytes is always 0 for a plain value.
func (Plain[T]) DynamicTailBytes() uintptr { return 0 }

// IsStillCompact is always true for a plain value: it has no tail to spill.
func (Plain[T]) IsStillCompact() bool { return true }

// CompactInto performs a plain field copy; tail is unused and untouched.
func (p *Plain[T]) CompactInto(dst *Plain[T], _ Region) {
	dst.Val = p.Val
}

// Decompact returns a copy of the value; there is no tail to rebuild.
func (p *Plain[T]) Decompact() Plain[T] {
	return Plain[T]{Val: p.Val}
}
