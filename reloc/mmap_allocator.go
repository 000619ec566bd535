// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package reloc

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapAllocator backs free-mode storage with anonymous memory obtained
// directly from the kernel via mmap, bypassing the Go heap entirely. This is
// the allocator a caller reaches for when a container's compacted block is
// meant to be persisted or mapped from a file rather than live inside
// ordinary Go memory: allocate a page-aligned region with unix.Mmap, hand
// back its base address, and release it with unix.Munmap using the same
// length.
//
// mmapAllocator must only be used for reloc.Plain element types. Memory
// obtained from mmap is invisible to the Go garbage collector: storing a
// live Go pointer, interface value, or slice header inside it will corrupt
// the heap the moment the GC relocates or collects whatever that pointer
// refers to. There is no compile-time enforcement of this; it is a
// constraint on the caller.
type mmapAllocator[T any] struct {
	elemSize uintptr
}

// NewMmapAllocator returns an off-heap Allocator for T, sized off T's
// in-memory layout. T must be pointer-free.
func NewMmapAllocator[T any]() Allocator[T] {
	var zero T
	return mmapAllocator[T]{elemSize: unsafe.Sizeof(zero)}
}

func (m mmapAllocator[T]) Allocate(n uintptr) unsafe.Pointer {
	if n == 0 {
		return nil
	}
	size := int(n * m.elemSize)
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		// The Allocator contract is infallible; there is no out-of-memory
		// recovery path.
		panic(fmt.Sprintf("reloc: mmap of %d bytes failed: %v", size, err))
	}
	return unsafe.Pointer(&data[0])
}

func (m mmapAllocator[T]) Deallocate(p unsafe.Pointer, n uintptr) {
	if p == nil || n == 0 {
		return
	}
	size := int(n * m.elemSize)
	region := unsafe.Slice((*byte)(p), size)
	if err := unix.Munmap(region); err != nil {
		panic(fmt.Sprintf("reloc: munmap of %d bytes failed: %v", size, err))
	}
}
