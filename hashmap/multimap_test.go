// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package hashmap

import (
	"testing"

	"github.com/aristanetworks/relocatable/reloc"
)

func TestPushAtAccumulatesPerKey(t *testing.T) {
	const n = 10000
	m := NewMultiMap[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	for i := 0; i < n; i++ {
		m.PushAt(i, reloc.Plain[int]{Val: i * i})
		m.PushAt(i, reloc.Plain[int]{Val: i*i + 1})
	}
	if m.Len() != n {
		t.Fatalf("Len() = %d, want %d", m.Len(), n)
	}
	for i := 0; i < n; i++ {
		got := m.GetIter(i)
		if len(got) != 2 || got[0].Val != i*i || got[1].Val != i*i+1 {
			t.Fatalf("GetIter(%d) = %v, want [%d %d]", i, got, i*i, i*i+1)
		}
	}
}

func TestGetIterOnMissingKeyReturnsNil(t *testing.T) {
	m := NewMultiMap[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	if got := m.GetIter(42); got != nil {
		t.Fatalf("GetIter(42) = %v, want nil", got)
	}
}

func TestRemoveIterDrainsAndClears(t *testing.T) {
	m := NewMultiMap[int, reloc.Plain[int], *reloc.Plain[int]](identityHash, intEqual)
	m.PushAt(1, reloc.Plain[int]{Val: 10})
	m.PushAt(1, reloc.Plain[int]{Val: 20})
	m.PushAt(1, reloc.Plain[int]{Val: 30})

	got := m.RemoveIter(1)
	if len(got) != 3 || got[0].Val != 10 || got[1].Val != 20 || got[2].Val != 30 {
		t.Fatalf("RemoveIter(1) = %v", got)
	}
	if m.GetIter(1) != nil {
		t.Fatal("key 1 still present after RemoveIter")
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", m.Len())
	}
}
