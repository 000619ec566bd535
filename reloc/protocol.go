// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package reloc defines the relocation protocol shared by every container in
// this module: the contract for laying a value's dynamically sized tail into
// a caller-provided contiguous region, and for reconstructing a fully
// heap-owned value out of such a region.
package reloc

import "unsafe"

// Region is scratch memory handed to CompactInto for writing a value's
// dynamic tail. It tracks how much of the caller-provided block remains so
// that nested containers can each claim their own slice of it in turn.
type Region struct {
	base unsafe.Pointer
	size uintptr
}

// NewRegion wraps a raw pointer and its byte length into a Region.
func NewRegion(base unsafe.Pointer, size uintptr) Region {
	return Region{base: base, size: size}
}

// Base returns the region's starting address.
func (r Region) Base() unsafe.Pointer {
	return r.base
}

// Len returns the number of bytes remaining in the region.
func (r Region) Len() uintptr {
	return r.size
}

// Advance carves off the first n bytes of r, returning a pointer to them and
// the remaining region. It panics if n exceeds the region's length, which
// would indicate a bug in a DynamicTailBytes computation upstream.
func (r Region) Advance(n uintptr) (unsafe.Pointer, Region) {
	if n > r.size {
		panic("reloc: tail region exhausted before all dynamic payload was written")
	}
	return r.base, Region{base: unsafe.Add(r.base, n), size: r.size - n}
}

// Compactable is satisfied by *T for any T participating in the relocation
// protocol. T's own methods are defined on the pointer so that CompactInto
// and Decompact can mutate or rebuild the receiver in place; the type
// parameter lets container types such as Vector and Map be written once and
// reused for any element type that plays along.
//
// Implementations must uphold:
//   - DynamicTailBytes is additive over composition: a container's tail size
//     is its own element-array size plus the sum of its elements' tail sizes.
//   - After CompactInto(dst, tail), IsStillCompact(dst) holds, and the
//     source's own destructor (if any) must become a no-op: ownership of any
//     heap tail has moved to dst.
//   - Decompact returns a value in free mode, safe for arbitrary further
//     mutation.
type Compactable[T any] interface {
	*T

	// DynamicTailBytes reports the number of bytes of heap-side payload this
	// value owns, transitively. Zero for types with no dynamic tail.
	DynamicTailBytes() uintptr

	// IsStillCompact reports whether the value's dynamic storage currently
	// lives inside its embedding region, transitively, rather than on the
	// general heap.
	IsStillCompact() bool

	// CompactInto moves the receiver into dst, placing its dynamic tail into
	// tail (which holds at least DynamicTailBytes() bytes). The receiver must
	// be treated as moved-from afterwards.
	CompactInto(dst *T, tail Region)

	// Decompact produces a fully heap-owned, mutable copy of the receiver.
	Decompact() T
}

// TotalSizeBytes is sizeof(T) + DynamicTailBytes(v): the number of bytes a
// caller must allocate to hold v and its entire tail contiguously.
func TotalSizeBytes[T any, PT Compactable[T]](v *T) uintptr {
	return unsafe.Sizeof(*v) + PT(v).DynamicTailBytes()
}

// CompactBehind compacts src into dst, placing src's tail immediately after
// dst in memory (dst must have at least TotalSizeBytes(src) bytes available
// starting at its own address). This is the usual layout of a compacted
// block: a fixed header followed directly by its tail.
func CompactBehind[T any, PT Compactable[T]](src *T, dst *T) {
	tailBase := unsafe.Add(unsafe.Pointer(dst), unsafe.Sizeof(*dst))
	tailLen := PT(src).DynamicTailBytes()
	PT(src).CompactInto(dst, NewRegion(tailBase, tailLen))
}
