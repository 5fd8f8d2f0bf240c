package mcts

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// TranspositionTable maps states to nodes so different ancestor paths can
// share a descendant subtree. The contract is deliberately approximate to
// admit lock-free implementations that don't chain collisions:
//
//   - Insert: if the table stores value it MUST return nil. It may instead
//     refuse (returning nil without storing) or return some node already in
//     the table, even one for an unrelated key after a collision. Any
//     non-nil return must point at a node owned by the live tree.
//   - Lookup: may return nil even when the key is present; a non-nil return
//     obeys the same weak rule.
//
// A wrong-key pointer only degrades search accuracy, never memory safety,
// because nodes are never freed while the tree lives.
type TranspositionTable[M MoveLike, E, V any, G any] interface {
	Insert(key G, value *SearchNode[M, E, V]) *SearchNode[M, E, V]
	Lookup(key G) *SearchNode[M, E, V]
}

// NoTable is the degenerate table: nothing is ever shared, every playout path
// stays private to its branch.
type NoTable[M MoveLike, E, V any, G any] struct{}

func NewNoTable[M MoveLike, E, V any, G any]() NoTable[M, E, V, G] {
	return NoTable[M, E, V, G]{}
}

func (NoTable[M, E, V, G]) Insert(G, *SearchNode[M, E, V]) *SearchNode[M, E, V] {
	return nil
}

func (NoTable[M, E, V, G]) Lookup(G) *SearchNode[M, E, V] {
	return nil
}

// ApproxTable is a fixed-size lock-free table. Each slot holds at most one
// entry; a slot already claimed by a different hash refuses the insert, which
// the contract permits. User hashes are avalanched through xxhash before slot
// selection because game hashes are often clustered (counters, packed
// bitboards).
type ApproxTable[M MoveLike, E, V any, G TranspositionHash] struct {
	slots []approxSlot[M, E, V]
	mask  uint64
}

type approxSlot[M MoveLike, E, V any] struct {
	// Mixed hash of the stored key, zero while empty. Claimed by CAS before
	// the node pointer is published, so a concurrent reader can observe the
	// key without the node; both Insert and Lookup treat that as absent.
	key  atomic.Uint64
	node atomic.Pointer[SearchNode[M, E, V]]
}

// NewApproxTable creates a table with size slots, rounded up to a power of two
func NewApproxTable[M MoveLike, E, V any, G TranspositionHash](size int) *ApproxTable[M, E, V, G] {
	n := 1
	for n < size {
		n <<= 1
	}
	return &ApproxTable[M, E, V, G]{
		slots: make([]approxSlot[M, E, V], n),
		mask:  uint64(n - 1),
	}
}

func mixHash(h uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h)
	m := xxhash.Sum64(buf[:])
	if m == 0 {
		m = 1 // zero marks an empty slot
	}
	return m
}

func (t *ApproxTable[M, E, V, G]) Insert(key G, value *SearchNode[M, E, V]) *SearchNode[M, E, V] {
	h := mixHash(key.Hash())
	slot := &t.slots[h&t.mask]

	for {
		k := slot.key.Load()
		if k == h {
			// Key present (or a full-hash collision, which we accept)
			return slot.node.Load()
		}
		if k != 0 {
			// Slot taken by another key; refuse
			return nil
		}
		if slot.key.CompareAndSwap(0, h) {
			slot.node.Store(value)
			return nil
		}
	}
}

func (t *ApproxTable[M, E, V, G]) Lookup(key G) *SearchNode[M, E, V] {
	h := mixHash(key.Hash())
	slot := &t.slots[h&t.mask]
	if slot.key.Load() != h {
		return nil
	}
	return slot.node.Load()
}

// Size returns the slot count
func (t *ApproxTable[M, E, V, G]) Size() int {
	return len(t.slots)
}
