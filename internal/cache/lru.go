package cache

import (
	"container/list"
	"sync"
)

// LRU is a small size-capped lookup table for cheap in-memory derived values
// (text layouts, font handles). It is not the artifact cache: entries are
// process-local and vanish on restart.
type LRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type lruEntry struct {
	key   string
	value interface{}
}

// NewLRU creates a table holding at most capacity entries.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = 32
	}
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached value and marks the key recently used.
func (l *LRU) Get(key string) (interface{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.entries[key]
	if !ok {
		return nil, false
	}
	l.order.MoveToFront(elem)
	return elem.Value.(*lruEntry).value, true
}

// Put stores a value, evicting the least recently used entry when full.
func (l *LRU) Put(key string, value interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.entries[key]; ok {
		elem.Value.(*lruEntry).value = value
		l.order.MoveToFront(elem)
		return
	}

	if l.order.Len() >= l.capacity {
		oldest := l.order.Back()
		if oldest != nil {
			l.order.Remove(oldest)
			delete(l.entries, oldest.Value.(*lruEntry).key)
		}
	}

	l.entries[key] = l.order.PushFront(&lruEntry{key: key, value: value})
}

// Len returns the current number of entries.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
