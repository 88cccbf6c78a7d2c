//go:build darwin || freebsd || (linux && (amd64 || arm64))

package nodeabi

import (
	"runtime"
	"strings"
	"testing"
	"unsafe"

	"github.com/wippyai/napi-go"
)

func TestLoad_OutsideNode(t *testing.T) {
	abi, err := Load()
	if err == nil {
		t.Skip("N-API symbols are present in this process")
	}
	if abi != nil {
		t.Error("Load should not return an ABI on failure")
	}
	if !strings.Contains(err.Error(), "napi_") {
		t.Errorf("error should name the missing symbol: %v", err)
	}

	again, err2 := Load()
	if again != nil || err2 != err {
		t.Error("Load should cache its result")
	}
}

func TestInitDefault_OutsideNode(t *testing.T) {
	if _, err := Load(); err == nil {
		t.Skip("N-API symbols are present in this process")
	}
	if got := InitDefault(1, 2); got != 0 {
		t.Errorf("InitDefault = %v, want 0", got)
	}
}

func TestCString(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", "héllo"} {
		p := cstring(s)
		b := unsafe.Slice(p, len(s)+1)
		if string(b[:len(s)]) != s || b[len(s)] != 0 {
			t.Errorf("cstring(%q) = %q", s, b)
		}
		if got := gostring(p); got != s {
			t.Errorf("gostring(cstring(%q)) = %q", s, got)
		}
	}
	if gostring(nil) != "" {
		t.Error("gostring(nil) should be empty")
	}
}

func TestCModuleLayout(t *testing.T) {
	// napi_module: int, unsigned, four pointer-sized fields and four reserved.
	want := 8 + 8*unsafe.Sizeof(uintptr(0))
	if got := unsafe.Sizeof(cModule{}); got != want {
		t.Errorf("sizeof(cModule) = %d, want %d", got, want)
	}
}

// arena hands out word-aligned blocks and can fail the nth allocation.
type arena struct {
	blocks [][]uintptr
	failAt int
}

func (a *arena) alloc(size uintptr) unsafe.Pointer {
	if len(a.blocks)+1 == a.failAt {
		a.blocks = append(a.blocks, nil)
		return nil
	}
	words := (size + unsafe.Sizeof(uintptr(0)) - 1) / unsafe.Sizeof(uintptr(0))
	b := make([]uintptr, words)
	a.blocks = append(a.blocks, b)
	return unsafe.Pointer(&b[0])
}

func TestNewCModule(t *testing.T) {
	desc := &napi.ModuleDescriptor{Version: napi.ModuleVersion, Filename: "lib.node", ModuleName: "hello"}

	tests := []struct {
		name   string
		failAt int
		want   bool
	}{
		{"all allocations succeed", 0, true},
		{"filename fails", 1, false},
		{"module name fails", 2, false},
		{"descriptor fails", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := &arena{failAt: tt.failAt}
			m := newCModule(mem.alloc, desc, 0x1234)
			defer runtime.KeepAlive(mem)

			if (m != nil) != tt.want {
				t.Fatalf("newCModule = %v, want non-nil %v", m, tt.want)
			}
			if m == nil {
				return
			}
			if len(mem.blocks) != 3 {
				t.Errorf("allocations = %d, want 3", len(mem.blocks))
			}
			if unsafe.Pointer(m) != unsafe.Pointer(&mem.blocks[2][0]) {
				t.Error("descriptor should live in allocated memory")
			}
			if m.version != napi.ModuleVersion || m.register != 0x1234 {
				t.Errorf("module = %+v", *m)
			}
			if got := gostring(m.filename); got != "lib.node" {
				t.Errorf("filename = %q", got)
			}
			if got := gostring(m.modname); got != "hello" {
				t.Errorf("modname = %q", got)
			}
		})
	}
}
