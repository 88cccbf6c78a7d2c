package resource

import (
	"errors"
	"sync"
	"testing"
)

type testObserver struct {
	events []Event[string]
}

func (o *testObserver) OnResourceEvent(e Event[string]) {
	o.events = append(o.events, e)
}

type dropCounter struct {
	drops *int
}

func (d dropCounter) Drop() { *d.drops++ }

func TestTable_Basic(t *testing.T) {
	table := NewTable[string]()

	// Insert
	h := table.Insert("test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	// Get
	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	// Remove
	val, err := table.Remove(h)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, ok := table.Get(h); ok {
		t.Fatal("Expected Get to fail after Remove")
	}
	if _, err := table.Remove(h); err == nil {
		t.Fatal("Expected second Remove to fail")
	}
}

func TestTable_HandleZeroInvalid(t *testing.T) {
	table := NewTable[int]()
	table.Insert(1)

	if _, ok := table.Get(0); ok {
		t.Error("handle 0 must never resolve")
	}
	if _, ok := table.Get(99); ok {
		t.Error("unknown handle must not resolve")
	}
}

func TestTable_ReusesFreedSlots(t *testing.T) {
	table := NewTable[int]()
	h1 := table.Insert(1)
	h2 := table.Insert(2)

	if _, err := table.Remove(h1); err != nil {
		t.Fatal(err)
	}
	h3 := table.Insert(3)
	if h3 != h1 {
		t.Errorf("expected freed handle %d to be reused, got %d", h1, h3)
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}
	if v, _ := table.Get(h2); v != 2 {
		t.Errorf("h2 = %d", v)
	}
}

func TestTable_Observers(t *testing.T) {
	table := NewTable[string]()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert("x")
	table.Remove(h)

	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[1].Type != EventDropped {
		t.Errorf("events = %+v", obs.events)
	}
	if obs.events[1].Handle != h || obs.events[1].Value != "x" {
		t.Errorf("drop event = %+v", obs.events[1])
	}
}

func TestTable_AcquirePinsEntry(t *testing.T) {
	table := NewTable[string]()
	h := table.Insert("pinned")

	v, release, ok := table.Acquire(h)
	if !ok || v != "pinned" {
		t.Fatalf("Acquire = %q, %v", v, ok)
	}

	if _, err := table.Remove(h); !errors.Is(err, ErrOutstandingBorrow) {
		t.Fatalf("Remove while acquired = %v, want ErrOutstandingBorrow", err)
	}

	release()
	release() // idempotent

	if _, err := table.Remove(h); err != nil {
		t.Fatalf("Remove after release: %v", err)
	}
	if _, _, ok := table.Acquire(h); ok {
		t.Error("Acquire of removed handle should fail")
	}
}

func TestTable_DropperAndClose(t *testing.T) {
	drops := 0
	table := NewTable[dropCounter]()
	h := table.Insert(dropCounter{&drops})
	table.Insert(dropCounter{&drops})
	table.Insert(dropCounter{&drops})

	table.Remove(h)
	if drops != 1 {
		t.Fatalf("drops after Remove = %d, want 1", drops)
	}

	table.Close()
	if drops != 3 {
		t.Errorf("drops after Close = %d, want 3", drops)
	}
	if table.Len() != 0 {
		t.Errorf("Len after Close = %d", table.Len())
	}
	if h := table.Insert(dropCounter{&drops}); h != 0 {
		t.Error("Insert after Close should return 0")
	}
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable[int]()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h := table.Insert(i*100 + j)
				if v, ok := table.Get(h); !ok || v != i*100+j {
					t.Errorf("Get(%d) = %d, %v", h, v, ok)
				}
				table.Remove(h)
			}
		}(i)
	}
	wg.Wait()

	if table.Len() != 0 {
		t.Errorf("Len = %d, want 0", table.Len())
	}
}

func TestTable_Each(t *testing.T) {
	table := NewTable[string]()
	table.Insert("a")
	hb := table.Insert("b")
	table.Insert("c")
	table.Remove(hb)

	var got []string
	table.Each(func(_ Handle, v string) bool {
		got = append(got, v)
		return true
	})
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Each = %v", got)
	}
}
