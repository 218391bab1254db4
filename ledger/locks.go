/*
locks.go - Per-item serialization of concurrent mutations

PURPOSE:
  Serializes concurrent create/amend/delete operations that touch the
  same inventory item. An amend that moves an allocation between two
  items needs both items' exclusivity; acquiring them in ascending id
  order prevents deadlock between two amends that swap items in
  opposite directions.

SEE ALSO:
  - ledger.go: holds the lock set for the whole commit, including the
    compensating actions
*/
package ledger

import (
	"sort"
	"sync"
)

// Coordinator hands out one mutex per inventory item. Mutexes are created
// on first use and kept for the coordinator's lifetime; the item universe
// of a single business is small enough that they are never reclaimed.
type Coordinator struct {
	mu    sync.Mutex
	locks map[ItemID]*sync.Mutex
}

func NewCoordinator() *Coordinator {
	return &Coordinator{locks: make(map[ItemID]*sync.Mutex)}
}

func (c *Coordinator) lockFor(id ItemID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

// Lock acquires exclusivity over every given item, deduplicated and in
// ascending id order, and returns the function that releases them all.
// Lock with no ids returns a no-op release.
func (c *Coordinator) Lock(ids ...ItemID) (unlock func()) {
	unique := make([]ItemID, 0, len(ids))
	seen := make(map[ItemID]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	held := make([]*sync.Mutex, 0, len(unique))
	for _, id := range unique {
		l := c.lockFor(id)
		l.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
