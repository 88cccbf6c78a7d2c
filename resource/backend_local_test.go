package resource

import (
	"errors"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend[string]()

	handle, err := b.Create("test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle != 1 {
		t.Fatalf("Expected first handle 1, got %d", handle)
	}

	val, ok := b.Get(handle)
	if !ok || val != "test value" {
		t.Fatalf("Get = %q, %v", val, ok)
	}

	val, err = b.Drop(handle)
	if err != nil || val != "test value" {
		t.Fatalf("Drop = %q, %v", val, err)
	}

	if _, ok := b.Get(handle); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
}

func TestLocalBackend_Borrow(t *testing.T) {
	b := NewLocalBackend[int]()
	handle, _ := b.Create(100)

	if _, ok := b.Borrow(handle); !ok {
		t.Fatal("Borrow failed")
	}
	if _, ok := b.Borrow(handle); !ok {
		t.Fatal("second Borrow failed")
	}

	if _, err := b.Drop(handle); !errors.Is(err, ErrOutstandingBorrow) {
		t.Fatalf("Drop with borrows = %v", err)
	}

	b.ReturnBorrow(handle)
	if _, err := b.Drop(handle); err == nil {
		t.Fatal("Drop with one borrow left should fail")
	}
	b.ReturnBorrow(handle)
	if b.ReturnBorrow(handle) {
		t.Error("ReturnBorrow without borrow should fail")
	}

	if _, err := b.Drop(handle); err != nil {
		t.Fatalf("Drop after returning borrows: %v", err)
	}
}

func TestLocalBackend_Closed(t *testing.T) {
	b := NewLocalBackend[int]()
	b.Create(1)
	b.Create(2)

	live := b.Close()
	if len(live) != 2 {
		t.Errorf("Close returned %d values, want 2", len(live))
	}
	if _, err := b.Create(3); !errors.Is(err, ErrClosed) {
		t.Errorf("Create after Close = %v", err)
	}
	if b.Close() != nil {
		t.Error("second Close should return nothing")
	}
}
