// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package vector implements a relocatable, growable sequence of elements:
// it behaves like a slice that can additionally be compacted into and
// decompacted out of an enclosing relocation region, with amortized-doubling
// growth and the usual push/pop/insert/remove surface.
package vector

import (
	"fmt"
	"unsafe"

	"github.com/aristanetworks/relocatable/ptr"
	"github.com/aristanetworks/relocatable/reloc"
)

// Vector is a dynamically sized, relocatable sequence of E. PE is E's
// relocation-protocol pointer type, supplied explicitly because Go generics
// have no way to recover "the type implementing Compactable for E" from E
// alone; see reloc.Compactable's doc comment for why the constraint is
// shaped this way.
//
// alloc is an interface value, itself a (type, data) pointer pair that is
// only meaningful in the process that created it, so CompactInto/Decompact
// never copy it across a relocation: a Vector rebuilt by Decompact always
// starts with alloc nil and lazily defaults to the heap allocator the next
// time it needs one (see allocator). Call SetAllocator first if the
// original off-heap allocator (e.g. an mmap region) must be reused instead.
type Vector[E any, PE reloc.Compactable[E]] struct {
	data   ptr.Pointer[E]
	length uint32
	cap    uint32
	alloc  reloc.Allocator[E]
}

// New returns an empty vector backed by the default heap allocator.
func New[E any, PE reloc.Compactable[E]]() Vector[E, PE] {
	return Vector[E, PE]{data: ptr.Default[E](), alloc: reloc.Heap[E]()}
}

// WithCapacity returns an empty vector with room for cap elements before it
// next needs to grow.
func WithCapacity[E any, PE reloc.Compactable[E]](cap int) Vector[E, PE] {
	return WithCapacityAndAllocator[E, PE](reloc.Heap[E](), cap)
}

// WithCapacityAndAllocator is WithCapacity for a caller-supplied allocator,
// the entry point a caller reaches for to back a vector with off-heap
// storage (see reloc.NewMmapAllocator).
func WithCapacityAndAllocator[E any, PE reloc.Compactable[E]](alloc reloc.Allocator[E], cap int) Vector[E, PE] {
	v := Vector[E, PE]{alloc: alloc}
	if cap > 0 {
		v.data.SetFree(alloc.Allocate(uintptr(cap)))
		v.cap = uint32(cap)
	} else {
		v.data = ptr.Default[E]()
	}
	return v
}

// FromSlice copies src into a new, freshly allocated vector.
func FromSlice[E any, PE reloc.Compactable[E]](src []E) Vector[E, PE] {
	v := WithCapacity[E, PE](len(src))
	for _, e := range src {
		v.Push(e)
	}
	return v
}

func (v *Vector[E, PE]) allocator() reloc.Allocator[E] {
	if v.alloc == nil {
		v.alloc = reloc.Heap[E]()
	}
	return v.alloc
}

// SetAllocator installs alloc as the allocator v uses for its next growth
// or Decompact. Only needed after a Decompact whose original Vector used a
// non-default allocator, since that choice cannot itself survive
// relocation; a Vector with no custom allocator needs no call here, as
// allocator() already falls back to the heap.
func (v *Vector[E, PE]) SetAllocator(alloc reloc.Allocator[E]) {
	v.alloc = alloc
}

// Len returns the number of elements currently stored.
func (v *Vector[E, PE]) Len() int { return int(v.length) }

// Capacity returns how many elements can be held before the next growth.
func (v *Vector[E, PE]) Capacity() int { return int(v.cap) }

// IsEmpty reports whether the vector holds no elements.
func (v *Vector[E, PE]) IsEmpty() bool { return v.length == 0 }

func (v *Vector[E, PE]) checkIndex(i int) {
	if i < 0 || i >= int(v.length) {
		panic(fmt.Sprintf("vector: index %d out of range [0, %d)", i, v.length))
	}
}

// At returns a pointer to the element at i. Panics if i is out of range.
func (v *Vector[E, PE]) At(i int) *E {
	v.checkIndex(i)
	return v.data.At(uintptr(i))
}

// SetAt overwrites the element at i. Panics if i is out of range.
func (v *Vector[E, PE]) SetAt(i int, value E) {
	v.checkIndex(i)
	*v.data.At(uintptr(i)) = value
}

// Slice returns a []E view over the live elements. The slice aliases the
// vector's backing storage and is only valid until the next mutation.
func (v *Vector[E, PE]) Slice() []E {
	return v.data.Slice(int(v.length))
}

// growBuf doubles the vector's capacity (or allocates 1 slot from empty),
// decompacting every live element into the new storage individually: a raw
// byte copy would leave any element holding an inner relative/compact
// pointer corrupted, since those pointers are only meaningful relative to
// their original location.
func (v *Vector[E, PE]) growBuf() {
	newCap := v.cap * 2
	if newCap == 0 {
		newCap = 1
	}
	alloc := v.allocator()
	newData := alloc.Allocate(uintptr(newCap))

	var zero E
	elemSize := unsafe.Sizeof(zero)
	for i := uint32(0); i < v.length; i++ {
		src := v.data.At(uintptr(i))
		dst := (*E)(unsafe.Add(newData, uintptr(i)*elemSize))
		*dst = PE(src).Decompact()
	}

	v.data.DeallocateIfFree(alloc, uintptr(v.cap))
	v.data.SetFree(newData)
	v.cap = newCap
}

// Push appends value, growing the vector if necessary.
func (v *Vector[E, PE]) Push(value E) {
	if v.length == v.cap {
		v.growBuf()
	}
	*v.data.At(uintptr(v.length)) = value
	v.length++
}

// Pop removes and returns the last element. ok is false on an empty vector.
func (v *Vector[E, PE]) Pop() (value E, ok bool) {
	if v.length == 0 {
		return value, false
	}
	v.length--
	src := v.data.At(uintptr(v.length))
	return PE(src).Decompact(), true
}

// InsertAt inserts value at index, shifting later elements up by one.
// Panics if index > Len().
func (v *Vector[E, PE]) InsertAt(index int, value E) {
	if index < 0 || index > int(v.length) {
		panic(fmt.Sprintf("vector: insert index %d out of range [0, %d]", index, v.length))
	}
	if v.length == v.cap {
		v.growBuf()
	}

	// Shift elements [index, length) up by one slot, decompacting each as
	// it moves, for the same reason growBuf does.
	for i := int(v.length); i > index; i-- {
		src := v.data.At(uintptr(i - 1))
		dst := v.data.At(uintptr(i))
		*dst = PE(src).Decompact()
	}
	*v.data.At(uintptr(index)) = value
	v.length++
}

// RemoveAt removes and returns the element at index, shifting later
// elements down by one. Panics if index is out of range.
func (v *Vector[E, PE]) RemoveAt(index int) E {
	v.checkIndex(index)
	removed := PE(v.data.At(uintptr(index))).Decompact()

	for i := index; i < int(v.length)-1; i++ {
		src := v.data.At(uintptr(i + 1))
		dst := v.data.At(uintptr(i))
		*dst = PE(src).Decompact()
	}
	v.length--
	return removed
}

// SwapRemove removes the element at index in O(1) by moving the last
// element into its place; it does not preserve order. Panics if index is
// out of range.
func (v *Vector[E, PE]) SwapRemove(index int) E {
	v.checkIndex(index)
	removed := PE(v.data.At(uintptr(index))).Decompact()
	last := v.data.At(uintptr(v.length - 1))
	*v.data.At(uintptr(index)) = PE(last).Decompact()
	v.length--
	return removed
}

// Truncate shortens the vector to at most n elements, dropping the rest.
// A n >= Len() is a no-op.
func (v *Vector[E, PE]) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if uint32(n) < v.length {
		v.length = uint32(n)
	}
}

// Clear removes all elements without releasing the backing storage.
func (v *Vector[E, PE]) Clear() { v.Truncate(0) }

// Retain keeps only the elements for which keep returns true, preserving
// relative order.
func (v *Vector[E, PE]) Retain(keep func(E) bool) {
	write := 0
	for read := 0; read < int(v.length); read++ {
		elem := PE(v.data.At(uintptr(read))).Decompact()
		if keep(elem) {
			*v.data.At(uintptr(write)) = elem
			write++
		}
	}
	v.length = uint32(write)
}

// Drain empties the vector and returns its former contents, fully
// decompacted and independent of the vector's backing storage. Afterwards v
// is back to its new() state: Capacity() is 0 and the backing allocation,
// if any, has been released.
func (v *Vector[E, PE]) Drain() []E {
	out := make([]E, v.length)
	for i := range out {
		out[i] = PE(v.data.At(uintptr(i))).Decompact()
	}
	v.data.DeallocateIfFree(v.allocator(), uintptr(v.cap))
	v.data = ptr.Default[E]()
	v.length = 0
	v.cap = 0
	return out
}

// Extend appends every element of src, growing as needed.
func (v *Vector[E, PE]) Extend(src []E) {
	for _, e := range src {
		v.Push(e)
	}
}

// Clone returns an independent copy of v with its own backing storage.
func (v *Vector[E, PE]) Clone() Vector[E, PE] {
	out := WithCapacityAndAllocator[E, PE](v.allocator(), int(v.length))
	for i := uint32(0); i < v.length; i++ {
		out.Push(PE(v.data.At(uintptr(i))).Decompact())
	}
	return out
}

// DynamicTailBytes reports how many bytes beyond sizeof(Vector) are needed
// to compact v: room for cap elements plus whatever dynamic tail each live
// element itself requires.
func (v *Vector[E, PE]) DynamicTailBytes() uintptr {
	var zero E
	total := uintptr(v.cap) * unsafe.Sizeof(zero)
	for i := uint32(0); i < v.length; i++ {
		total += PE(v.data.At(uintptr(i))).DynamicTailBytes()
	}
	return total
}

// IsStillCompact reports whether v, and every element it holds, still lives
// entirely within its originally compacted region.
func (v *Vector[E, PE]) IsStillCompact() bool {
	if !v.data.IsCompact() {
		return false
	}
	for i := uint32(0); i < v.length; i++ {
		if !PE(v.data.At(uintptr(i))).IsStillCompact() {
			return false
		}
	}
	return true
}

// CompactInto writes a compacted copy of v to dst, laying out v's element
// storage and every element's own dynamic tail contiguously inside tail.
// dst.alloc is deliberately left nil; see the Vector doc comment.
func (v *Vector[E, PE]) CompactInto(dst *Vector[E, PE], tail reloc.Region) {
	dst.length = v.length
	dst.cap = v.cap

	var zero E
	elemSize := unsafe.Sizeof(zero)
	dataBase, rest := tail.Advance(uintptr(v.cap) * elemSize)
	dst.data.SetCompact(dataBase)

	for i := uint32(0); i < v.length; i++ {
		src := v.data.At(uintptr(i))
		dstElem := (*E)(unsafe.Add(dataBase, uintptr(i)*elemSize))

		size := PE(src).DynamicTailBytes()
		var elemBase unsafe.Pointer
		elemBase, rest = rest.Advance(size)
		PE(src).CompactInto(dstElem, reloc.NewRegion(elemBase, size))
	}

	v.data.DeallocateIfFree(v.allocator(), uintptr(v.cap))
}

// Decompact returns a value holding the same elements as v but guaranteed
// independent of whatever region v's storage currently lives in: a compact
// v is rebuilt into fresh, owned storage with every element individually
// decompacted; a free-mode v is returned with its storage handed over
// as-is, ownership moving to the returned value.
func (v *Vector[E, PE]) Decompact() Vector[E, PE] {
	if !v.data.IsCompact() {
		return *v
	}
	out := WithCapacityAndAllocator[E, PE](v.allocator(), int(v.length))
	for i := uint32(0); i < v.length; i++ {
		out.Push(PE(v.data.At(uintptr(i))).Decompact())
	}
	return out
}
