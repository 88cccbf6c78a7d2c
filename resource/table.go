package resource

import (
	"sync"
)

// Table maps handles to values of one type and notifies observers of
// lifecycle changes. It is safe for concurrent use.
type Table[T any] struct {
	backend   *LocalBackend[T]
	observers []Observer[T]
	obsMu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		backend: NewLocalBackend[T](),
	}
}

// Insert adds a value and returns its handle, or 0 once the table is closed.
func (t *Table[T]) Insert(value T) Handle {
	handle, err := t.backend.Create(value)
	if err != nil {
		return 0
	}

	t.notify(Event[T]{
		Type:   EventCreated,
		Handle: handle,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(handle Handle) (T, bool) {
	return t.backend.Get(handle)
}

// Acquire returns the value for handle and pins it until the returned
// release function is called.
func (t *Table[T]) Acquire(handle Handle) (T, func(), bool) {
	v, ok := t.backend.Borrow(handle)
	if !ok {
		return v, func() {}, false
	}
	var once sync.Once
	return v, func() { once.Do(func() { t.backend.ReturnBorrow(handle) }) }, true
}

// Remove drops an entry and returns its value. Values implementing Dropper
// are dropped. Entries pinned by Acquire are not removed.
func (t *Table[T]) Remove(handle Handle) (T, error) {
	value, err := t.backend.Drop(handle)
	if err != nil {
		return value, err
	}

	if d, ok := any(value).(Dropper); ok {
		d.Drop()
	}

	t.notify(Event[T]{
		Type:   EventDropped,
		Handle: handle,
		Value:  value,
	})

	return value, nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer[T]) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	return t.backend.Len()
}

// Each iterates over live entries in handle order.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.backend.Each(fn)
}

// Close drops every entry and stops accepting inserts.
func (t *Table[T]) Close() error {
	for _, v := range t.backend.Close() {
		if d, ok := any(v).(Dropper); ok {
			d.Drop()
		}
	}
	return nil
}

func (t *Table[T]) notify(e Event[T]) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
