package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed            = errors.New("resource table closed")
	ErrOutstandingBorrow = errors.New("cannot drop entry with outstanding borrows")
)

// LocalBackend is an in-memory arena with a free list and borrow tracking.
// Handles are 1-based indexes into the arena.
type LocalBackend[T any] struct {
	entries  []entry[T]
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry[T any] struct {
	value       T
	borrowCount uint32
	valid       bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend[T any]() *LocalBackend[T] {
	return &LocalBackend[T]{
		entries:  make([]entry[T], 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend[T]) Create(value T) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry[T]{value: value, valid: true}

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

// lookup returns the live entry for handle. Callers hold b.mu.
func (b *LocalBackend[T]) lookup(handle Handle) (*entry[T], bool) {
	if handle == 0 || int(handle) > len(b.entries) {
		return nil, false
	}
	e := &b.entries[handle-1]
	if !e.valid {
		return nil, false
	}
	return e, true
}

// Get retrieves a value by handle.
func (b *LocalBackend[T]) Get(handle Handle) (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(handle)
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Drop removes an entry and returns its value. It fails for unknown handles
// and for entries that are currently borrowed.
func (b *LocalBackend[T]) Drop(handle Handle) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	e, ok := b.lookup(handle)
	if !ok {
		return zero, errors.New("invalid handle")
	}
	if e.borrowCount > 0 {
		return zero, ErrOutstandingBorrow
	}

	value := e.value
	*e = entry[T]{}
	b.freeList = append(b.freeList, handle)
	return value, nil
}

// Borrow pins an entry and returns its value. A borrowed entry cannot be
// dropped until every borrow is returned.
func (b *LocalBackend[T]) Borrow(handle Handle) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.lookup(handle)
	if !ok {
		var zero T
		return zero, false
	}
	e.borrowCount++
	return e.value, true
}

// ReturnBorrow releases one borrow taken with Borrow.
func (b *LocalBackend[T]) ReturnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.lookup(handle)
	if !ok || e.borrowCount == 0 {
		return false
	}
	e.borrowCount--
	return true
}

// Len returns the number of live entries.
func (b *LocalBackend[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries) - len(b.freeList)
}

// Each iterates over live entries in handle order.
func (b *LocalBackend[T]) Each(fn func(Handle, T) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.value) {
				break
			}
		}
	}
}

// Close invalidates every entry and returns the values that were live.
func (b *LocalBackend[T]) Close() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var live []T
	for _, e := range b.entries {
		if e.valid {
			live = append(live, e.value)
		}
	}
	b.entries = nil
	b.freeList = nil
	return live
}
