// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package ptr implements the dual-mode pointer every relocatable container
// in this module builds on: a pointer that is tagged either "owned,
// free-mode" (obtained from an Allocator, must be deallocated by its owner)
// or "compact-mode" (pointing inside an enclosing relocation region, must
// never be deallocated by its holder).
package ptr

import (
	"unsafe"

	"github.com/aristanetworks/relocatable/reloc"
)

// Pointer is a single dual-mode pointer to a contiguous run of T. The tag is
// kept as a sibling bool rather than packed into the pointer's low bit: an
// explicit field is easier to reason about and to inspect in a debugger, in
// keeping with this module's general preference (see hashmap's entry type)
// for explicit state over bit tricks where the two cost the same.
//
// In free mode, addr is the absolute, GC-visible address of the allocation
// this Pointer owns. In compact mode, the target lives somewhere inside the
// same contiguous block as this Pointer's own storage, so it is kept as a
// self-relative byte offset (the target's address minus this Pointer's own
// address) instead of an absolute address. That is what lets a compacted
// block be byte-copied to a new address — written to disk and read back,
// shipped to another process over Kafka — without the pointers inside it
// going stale, and it is the encoding persist and transport/kafka rely on.
type Pointer[T any] struct {
	addr    unsafe.Pointer
	offset  uintptr
	compact bool
}

// Default returns a null pointer tagged as compact, so a default-constructed
// Pointer never tries to deallocate anything.
func Default[T any]() Pointer[T] {
	return Pointer[T]{compact: true}
}

// NewFree wraps p as an owned, free-mode pointer.
func NewFree[T any](p unsafe.Pointer) Pointer[T] {
	return Pointer[T]{addr: p, compact: false}
}

// SetFree repoints p at addr in free mode. It does not deallocate whatever p
// previously pointed to: that discipline is the caller's responsibility
// (typically: DeallocateIfFree first, then SetFree).
func (p *Pointer[T]) SetFree(addr unsafe.Pointer) {
	p.addr = addr
	p.offset = 0
	p.compact = false
}

// SetCompact repoints p at addr in compact mode. addr must lie inside the
// same relocation block as p's own storage (p must already be at its final
// address — typically a field of a struct that has itself been placed in
// the destination block); the offset recorded is relative to p, not
// absolute, so the pointer keeps working after the whole block moves.
func (p *Pointer[T]) SetCompact(addr unsafe.Pointer) {
	if addr == nil {
		p.offset = 0
	} else {
		p.offset = uintptr(addr) - uintptr(unsafe.Pointer(p))
	}
	p.addr = nil
	p.compact = true
}

// IsCompact reports whether p is currently in compact mode.
func (p *Pointer[T]) IsCompact() bool {
	return p.compact
}

// IsNil reports whether p points nowhere.
func (p *Pointer[T]) IsNil() bool {
	return p.target() == nil
}

// target resolves p's address, rebasing from p's own current storage
// location when p is in compact mode.
func (p *Pointer[T]) target() unsafe.Pointer {
	if !p.compact {
		return p.addr
	}
	if p.offset == 0 {
		return nil
	}
	return unsafe.Add(unsafe.Pointer(p), p.offset)
}

// Ptr returns the raw address p points to, as *T.
func (p *Pointer[T]) Ptr() *T {
	return (*T)(p.target())
}

// MutPtr is the mutable form of Ptr; the two are identical in Go (there is
// no language-level const pointer), kept distinct so call sites can express
// whether they intend to write through the result.
func (p *Pointer[T]) MutPtr() *T {
	return (*T)(p.target())
}

// At returns a pointer to the i-th element of the run p addresses. Callers
// are responsible for keeping i within whatever capacity p was allocated
// with; this type has no notion of length.
func (p *Pointer[T]) At(i uintptr) *T {
	var zero T
	return (*T)(unsafe.Add(p.target(), i*unsafe.Sizeof(zero)))
}

// Slice returns a []T view of the first length elements p addresses. A nil
// or zero-length p yields an empty view rather than dereferencing address 0.
func (p *Pointer[T]) Slice(length int) []T {
	t := p.target()
	if t == nil || length == 0 {
		return nil
	}
	return unsafe.Slice((*T)(t), length)
}

// DeallocateIfFree releases the memory p addresses through alloc, but only
// if p is currently in free mode; in compact mode the memory belongs to the
// enclosing block's owner and this is a no-op.
func (p *Pointer[T]) DeallocateIfFree(alloc reloc.Allocator[T], cap uintptr) {
	if p.compact || p.addr == nil {
		return
	}
	alloc.Deallocate(p.addr, cap)
}
