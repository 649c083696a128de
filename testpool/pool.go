// Package testpool is a minimal in-memory TokenPool/RequestSlotPool
// used by radixcache's tests and example. It is not part of the cache
// core (spec §1 scopes the storage pool and request-slot pool out as
// external collaborators) — it exists only to exercise *radixcache.Cache
// end to end without pulling a real inference runtime into the module.
//
// Grounded on the teacher's RingBuffer (github.com/c-pro/geche): a
// fixed-capacity preallocated slice plus a freelist, avoiding the GC
// pressure of individually allocating one object per slot.
package testpool

import (
	"fmt"
	"sync"

	"github.com/prefixkv/radixcache"
)

// Pool is a fixed-capacity arena of KV slots and request-token rows.
type Pool struct {
	mux sync.Mutex

	capacity int
	inUse    []bool
	freelist []radixcache.SlotIndex
	next     radixcache.SlotIndex

	rows   map[int]radixcache.Slots
	nextID int
}

// New creates a Pool that can hand out up to capacity distinct slot
// indices at once.
func New(capacity int) *Pool {
	return &Pool{
		capacity: capacity,
		inUse:    make([]bool, capacity),
		rows:     make(map[int]radixcache.Slots),
	}
}

// Alloc hands out n fresh slot indices, as if the model had just
// computed n positions' worth of KV activations for them.
func (p *Pool) Alloc(n int) radixcache.Slots {
	p.mux.Lock()
	defer p.mux.Unlock()

	out := make(radixcache.Slots, 0, n)
	for len(out) < n {
		out = append(out, p.allocOneLocked())
	}
	return out
}

func (p *Pool) allocOneLocked() radixcache.SlotIndex {
	if len(p.freelist) > 0 {
		idx := p.freelist[len(p.freelist)-1]
		p.freelist = p.freelist[:len(p.freelist)-1]
		p.inUse[idx] = true
		return idx
	}

	if int(p.next) >= p.capacity {
		panic(fmt.Sprintf("testpool: out of capacity (%d slots)", p.capacity))
	}
	idx := p.next
	p.next++
	p.inUse[idx] = true
	return idx
}

// Free implements radixcache.TokenPool. Double-freeing a slot is a
// fatal caller error (spec §5: "double-free is fatal"), matching the
// spec's treatment of pool-contract violations.
func (p *Pool) Free(slots radixcache.Slots) {
	p.mux.Lock()
	defer p.mux.Unlock()

	for _, s := range slots {
		if !p.inUse[s] {
			panic(fmt.Sprintf("testpool: double free of slot %d", s))
		}
		p.inUse[s] = false
		p.freelist = append(p.freelist, s)
	}
}

// NewReq allocates n fresh slots and registers them as a new request
// row, returning the row's handle.
func (p *Pool) NewReq(n int) int {
	slots := p.Alloc(n)

	p.mux.Lock()
	defer p.mux.Unlock()
	id := p.nextID
	p.nextID++
	p.rows[id] = slots
	return id
}

// ReqToToken implements radixcache.RequestSlotPool.
func (p *Pool) ReqToToken(reqPoolIdx int, n int) radixcache.Slots {
	p.mux.Lock()
	defer p.mux.Unlock()

	row := p.rows[reqPoolIdx]
	out := make(radixcache.Slots, n)
	copy(out, row[:n])
	return out
}

// SetReqToToken implements radixcache.RequestSlotPool.
func (p *Pool) SetReqToToken(reqPoolIdx int, start, end int, indices radixcache.Slots) {
	p.mux.Lock()
	defer p.mux.Unlock()

	row := p.rows[reqPoolIdx]
	copy(row[start:end], indices)
}

// FreeReq implements radixcache.RequestSlotPool.
func (p *Pool) FreeReq(reqPoolIdx int) {
	p.mux.Lock()
	defer p.mux.Unlock()
	delete(p.rows, reqPoolIdx)
}

// InUseCount returns how many slots are currently allocated. Tests use
// this to assert that evictions/frees actually returned slots to the
// pool rather than leaking them.
func (p *Pool) InUseCount() int {
	p.mux.Lock()
	defer p.mux.Unlock()

	n := 0
	for _, used := range p.inUse {
		if used {
			n++
		}
	}
	return n
}
