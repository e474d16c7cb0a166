package storage

import (
	"errors"
	"fmt"
)

// ErrNoEvictionCandidate is returned when every resident page is pinned and
// the pool cannot make room for a new one.
var ErrNoEvictionCandidate = errors.New("storage: no eviction candidate, every resident page is pinned")

// ErrResizeToZero is returned by Resize when asked for a non-positive capacity.
var ErrResizeToZero = errors.New("storage: buffer pool capacity must be positive")

// ErrCannotEvictPinned is returned by ForceEvict on a pinned page.
var ErrCannotEvictPinned = errors.New("storage: cannot evict a pinned page")

// ErrPageIDMismatch is returned when a page read from disk reports a
// page_id different from the one it was read at.
type ErrPageIDMismatch struct {
	Requested, Found uint64
}

func (e *ErrPageIDMismatch) Error() string {
	return fmt.Sprintf("storage: page id mismatch: requested %d, file reports %d", e.Requested, e.Found)
}

// poolNode is one entry of the intrusive LRU list, addressed by index rather
// than by pointer: a free list over the backing array lets Pin/evict run in
// O(1) without allocating a new node per page or per pin.
type poolNode struct {
	pageID     uint64
	prev, next int
	inUse      bool
}

const poolNilNode = -1

// Pool is a bounded, pinning, dirty-tracking cache of Pages keyed by page id,
// with LRU-by-recency eviction. It never talks to the filesystem directly:
// callers supply a *DatabaseFile on every call that may need to read or
// write through, which keeps the pool itself free of any I/O error
// surface beyond what the file reports.
type Pool struct {
	capacity int

	pages    map[uint64]*Page
	pinCount map[uint64]int
	dirty    map[uint64]bool

	nodes     []poolNode
	index     map[uint64]int
	freeNodes []int
	head      int // most recently used
	tail      int // least recently used
}

// NewPool creates a buffer pool with the given page capacity. capacity must
// be at least 1.
func NewPool(capacity int) (*Pool, error) {
	if capacity < 1 {
		return nil, ErrResizeToZero
	}
	return &Pool{
		capacity: capacity,
		pages:    make(map[uint64]*Page, capacity),
		pinCount: make(map[uint64]int, capacity),
		dirty:    make(map[uint64]bool),
		nodes:    make([]poolNode, 0, capacity),
		index:    make(map[uint64]int, capacity),
		head:     poolNilNode,
		tail:     poolNilNode,
	}, nil
}

// Capacity returns the pool's current maximum resident page count.
func (p *Pool) Capacity() int { return p.capacity }

// Contains reports whether pageID is currently resident.
func (p *Pool) Contains(pageID uint64) bool {
	_, ok := p.pages[pageID]
	return ok
}

// IsDirty reports whether pageID is resident and marked dirty.
func (p *Pool) IsDirty(pageID uint64) bool { return p.dirty[pageID] }

// IsPinned reports whether pageID is resident with a non-zero pin count.
func (p *Pool) IsPinned(pageID uint64) bool { return p.pinCount[pageID] > 0 }

// AllPageIDs returns the ids of all resident pages, in no particular order.
func (p *Pool) AllPageIDs() []uint64 {
	ids := make([]uint64, 0, len(p.pages))
	for id := range p.pages {
		ids = append(ids, id)
	}
	return ids
}

// Pin loads pageID into the pool if not already resident (evicting if full),
// moves it to the front of the LRU list, increments its pin count, and
// returns the resident Page. A page may be pinned more than once; it only
// becomes eviction-eligible once every pin is released.
func (p *Pool) Pin(pageID uint64, file *DatabaseFile) (*Page, error) {
	if page, ok := p.pages[pageID]; ok {
		p.touch(pageID)
		p.pinCount[pageID]++
		return page, nil
	}

	if len(p.pages) >= p.capacity {
		if err := p.evictOne(file); err != nil {
			return nil, err
		}
	}

	page, err := file.ReadPage(pageID)
	if err != nil {
		return nil, err
	}
	if page.PageID() != pageID {
		return nil, &ErrPageIDMismatch{Requested: pageID, Found: page.PageID()}
	}

	p.pages[pageID] = page
	p.pushFront(pageID)
	p.pinCount[pageID] = 1
	return page, nil
}

// Get loads pageID exactly like Pin (residency + LRU touch) but does not
// record a pin, for callers that just want a look without reserving it
// against eviction.
func (p *Pool) Get(pageID uint64, file *DatabaseFile) (*Page, error) {
	if page, ok := p.pages[pageID]; ok {
		p.touch(pageID)
		return page, nil
	}

	if len(p.pages) >= p.capacity {
		if err := p.evictOne(file); err != nil {
			return nil, err
		}
	}

	page, err := file.ReadPage(pageID)
	if err != nil {
		return nil, err
	}
	if page.PageID() != pageID {
		return nil, &ErrPageIDMismatch{Requested: pageID, Found: page.PageID()}
	}

	p.pages[pageID] = page
	p.pushFront(pageID)
	return page, nil
}

// Unpin decrements pageID's pin count (floored at zero) and, if dirty is
// true, adds it to the dirty set. Unpinning a non-resident id is a no-op.
func (p *Pool) Unpin(pageID uint64, dirty bool) {
	if _, ok := p.pages[pageID]; !ok {
		return
	}
	if p.pinCount[pageID] > 0 {
		p.pinCount[pageID]--
	}
	if dirty {
		p.dirty[pageID] = true
	}
}

// Flush writes pageID back through file if it is resident and dirty,
// clearing the dirty flag on success.
func (p *Pool) Flush(pageID uint64, file *DatabaseFile) error {
	page, ok := p.pages[pageID]
	if !ok || !p.dirty[pageID] {
		return nil
	}
	if err := file.WritePage(pageID, page); err != nil {
		return err
	}
	delete(p.dirty, pageID)
	return nil
}

// FlushAll writes back every dirty resident page.
func (p *Pool) FlushAll(file *DatabaseFile) error {
	for pageID := range p.dirty {
		if err := p.Flush(pageID, file); err != nil {
			return err
		}
	}
	return nil
}

// Resize changes the pool's capacity, evicting (with write-back) down to the
// new capacity if it shrinks. newCapacity must be positive.
func (p *Pool) Resize(newCapacity int, file *DatabaseFile) error {
	if newCapacity < 1 {
		return ErrResizeToZero
	}
	p.capacity = newCapacity
	for len(p.pages) > p.capacity {
		if err := p.evictOne(file); err != nil {
			return err
		}
	}
	return nil
}

// Clear flushes every dirty page and then drops all residency and
// bookkeeping, returning the pool to an empty state at its current capacity.
func (p *Pool) Clear(file *DatabaseFile) error {
	if err := p.FlushAll(file); err != nil {
		return err
	}
	p.pages = make(map[uint64]*Page, p.capacity)
	p.pinCount = make(map[uint64]int, p.capacity)
	p.dirty = make(map[uint64]bool)
	p.nodes = p.nodes[:0]
	p.index = make(map[uint64]int, p.capacity)
	p.freeNodes = nil
	p.head = poolNilNode
	p.tail = poolNilNode
	return nil
}

// ForceEvict removes pageID from the pool regardless of its LRU position,
// refusing if it is currently pinned. A dirty page is flushed first.
func (p *Pool) ForceEvict(pageID uint64, file *DatabaseFile) error {
	if _, ok := p.pages[pageID]; !ok {
		return nil
	}
	if p.pinCount[pageID] > 0 {
		return ErrCannotEvictPinned
	}
	if p.dirty[pageID] {
		if err := p.Flush(pageID, file); err != nil {
			return err
		}
	}
	p.removeResident(pageID)
	return nil
}

// Stats is a point-in-time summary of the pool's occupancy.
type Stats struct {
	Capacity     int
	Resident     int
	Dirty        int
	Pinned       int
	EvictionSafe int // resident pages with a zero pin count
}

// Stats returns a coarse occupancy summary.
func (p *Pool) Stats() Stats {
	s := Stats{Capacity: p.capacity, Resident: len(p.pages), Dirty: len(p.dirty)}
	for id := range p.pages {
		if p.pinCount[id] > 0 {
			s.Pinned++
		} else {
			s.EvictionSafe++
		}
	}
	return s
}

// DetailedStats additionally reports the LRU chain (MRU-first) and the free
// node count in the intrusive list pool, used by the CLI's stats
// subcommand.
type DetailedStats struct {
	Stats
	LRUChain  []uint64
	FreeNodes int
	Utilized  float64 // resident/capacity, as a fraction
}

func (p *Pool) DetailedStats() DetailedStats {
	ds := DetailedStats{Stats: p.Stats(), FreeNodes: len(p.freeNodes)}
	if p.capacity > 0 {
		ds.Utilized = float64(ds.Resident) / float64(p.capacity)
	}
	for n := p.head; n != poolNilNode; n = p.nodes[n].next {
		ds.LRUChain = append(ds.LRUChain, p.nodes[n].pageID)
	}
	return ds
}

// ValidateConsistency checks the pool's internal bookkeeping invariants:
// residency == LRU membership, dirty/pinned are subsets of residency, and
// every back-pointer resolves. It returns nil when everything is
// consistent, or a descriptive error for the first violation found, for
// use in tests.
func (p *Pool) ValidateConsistency() error {
	lruMembers := make(map[uint64]bool, len(p.index))
	seen := make(map[int]bool, len(p.nodes))
	for n := p.head; n != poolNilNode; n = p.nodes[n].next {
		if seen[n] {
			return fmt.Errorf("storage: lru list cycle detected at node %d", n)
		}
		seen[n] = true
		node := p.nodes[n]
		if !node.inUse {
			return fmt.Errorf("storage: lru list references freed node %d", n)
		}
		if lruMembers[node.pageID] {
			return fmt.Errorf("storage: page %d appears twice in lru list", node.pageID)
		}
		lruMembers[node.pageID] = true
	}

	if len(lruMembers) != len(p.pages) {
		return fmt.Errorf("storage: lru membership (%d) != residency (%d)", len(lruMembers), len(p.pages))
	}
	for id := range p.pages {
		if !lruMembers[id] {
			return fmt.Errorf("storage: resident page %d missing from lru list", id)
		}
		if idx, ok := p.index[id]; !ok || p.nodes[idx].pageID != id {
			return fmt.Errorf("storage: page %d has an inconsistent node back-pointer", id)
		}
	}
	for id := range p.dirty {
		if _, ok := p.pages[id]; !ok {
			return fmt.Errorf("storage: dirty page %d is not resident", id)
		}
	}
	for id, count := range p.pinCount {
		if count > 0 {
			if _, ok := p.pages[id]; !ok {
				return fmt.Errorf("storage: pinned page %d is not resident", id)
			}
		}
	}
	if len(p.pages) > p.capacity {
		return fmt.Errorf("storage: resident count %d exceeds capacity %d", len(p.pages), p.capacity)
	}
	return nil
}

// evictOne walks the LRU list from tail toward head, evicting the first
// unpinned page it finds (writing it back first if dirty). Returns
// ErrNoEvictionCandidate if every resident page is pinned.
func (p *Pool) evictOne(file *DatabaseFile) error {
	for n := p.tail; n != poolNilNode; n = p.nodes[n].prev {
		pageID := p.nodes[n].pageID
		if p.pinCount[pageID] > 0 {
			continue
		}
		if p.dirty[pageID] {
			page := p.pages[pageID]
			if err := file.WritePage(pageID, page); err != nil {
				return fmt.Errorf("storage: write back page %d on eviction: %w", pageID, err)
			}
			delete(p.dirty, pageID)
		}
		p.removeResident(pageID)
		return nil
	}
	return ErrNoEvictionCandidate
}

// removeResident drops pageID from every bookkeeping structure: the page
// map, pin/dirty sets, and the LRU list (returning its node to the free
// list).
func (p *Pool) removeResident(pageID uint64) {
	delete(p.pages, pageID)
	delete(p.pinCount, pageID)
	delete(p.dirty, pageID)
	p.unlink(pageID)
}

// touch moves an already-resident page's node to the front of the LRU list.
func (p *Pool) touch(pageID uint64) {
	idx, ok := p.index[pageID]
	if !ok {
		return
	}
	if p.head == idx {
		return
	}
	p.unlinkNode(idx)
	p.linkFront(idx)
}

// pushFront allocates (or reuses from the free list) a node for pageID and
// places it at the MRU end of the list.
func (p *Pool) pushFront(pageID uint64) {
	var idx int
	if n := len(p.freeNodes); n > 0 {
		idx = p.freeNodes[n-1]
		p.freeNodes = p.freeNodes[:n-1]
		p.nodes[idx] = poolNode{pageID: pageID, inUse: true}
	} else {
		idx = len(p.nodes)
		p.nodes = append(p.nodes, poolNode{pageID: pageID, inUse: true})
	}
	p.index[pageID] = idx
	p.linkFront(idx)
}

func (p *Pool) linkFront(idx int) {
	p.nodes[idx].prev = poolNilNode
	p.nodes[idx].next = p.head
	if p.head != poolNilNode {
		p.nodes[p.head].prev = idx
	}
	p.head = idx
	if p.tail == poolNilNode {
		p.tail = idx
	}
}

// unlinkNode splices node idx out of the list without touching the index
// map or returning it to the free list (used by touch, which re-links it
// immediately).
func (p *Pool) unlinkNode(idx int) {
	node := p.nodes[idx]
	if node.prev != poolNilNode {
		p.nodes[node.prev].next = node.next
	} else {
		p.head = node.next
	}
	if node.next != poolNilNode {
		p.nodes[node.next].prev = node.prev
	} else {
		p.tail = node.prev
	}
}

// unlink fully removes pageID's node: splices it out and returns its slot
// to the free list.
func (p *Pool) unlink(pageID uint64) {
	idx, ok := p.index[pageID]
	if !ok {
		return
	}
	p.unlinkNode(idx)
	p.nodes[idx] = poolNode{inUse: false}
	delete(p.index, pageID)
	p.freeNodes = append(p.freeNodes, idx)
}
