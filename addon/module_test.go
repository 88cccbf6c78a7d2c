package addon_test

import (
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/addon"
	"github.com/wippyai/napi-go/callback"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/simhost"
)

func double(a uint64) uint64 { return a + a }

func greet(name string) string { return "hello " + name }

func load(t *testing.T, mod *addon.Module) (*simhost.Host, napi.EnvPtr, napi.ValuePtr) {
	t.Helper()
	h := simhost.New(nil)
	if err := addon.Register(h, mod); err != nil {
		t.Fatalf("Register: %v", err)
	}
	env := h.NewEnv()
	exports, err := h.Load(env, mod.Name())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return h, env, exports
}

func property(t *testing.T, h *simhost.Host, env napi.EnvPtr, obj napi.ValuePtr, name string) napi.ValuePtr {
	t.Helper()
	var v napi.ValuePtr
	if st := h.GetNamedProperty(env, obj, name, &v); st != napi.StatusOK {
		t.Fatalf("GetNamedProperty(%s): %s", name, st)
	}
	return v
}

func TestModule_LoadAndCall(t *testing.T) {
	mod := addon.New("math").
		Export("double", double).
		Export("greet", greet)

	h, env, exports := load(t, mod)

	if keys := h.Keys(env, exports); !reflect.DeepEqual(keys, []string{"double", "greet"}) {
		t.Errorf("exports = %v, want declaration order", keys)
	}

	res, err := h.Call(env, property(t, h, env, exports, "double"), 0, h.Values(env, 21)...)
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Go(env, res); got != 42.0 {
		t.Errorf("double(21) = %v", got)
	}

	res, err = h.Call(env, property(t, h, env, exports, "greet"), 0, h.Values(env, "go")...)
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Go(env, res); got != "hello go" {
		t.Errorf("greet(go) = %v", got)
	}
}

func TestModule_DeclarationErrors(t *testing.T) {
	tests := []struct {
		name string
		mod  *addon.Module
	}{
		{"duplicate", addon.New("m").Export("f", double).Export("f", greet)},
		{"empty name", addon.New("m").Export("", double)},
		{"NUL in export name", addon.New("m").Export("f\x00g", double)},
		{"not a function", addon.New("m").Export("f", 3)},
		{"nil function", addon.New("m").Add(addon.Export{Name: "f"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mod.Err() == nil {
				t.Fatal("expected a declaration error")
			}
			if _, err := tt.mod.Descriptor(simhost.New(nil)); err == nil {
				t.Error("Descriptor should report the declaration error")
			}
		})
	}
}

func TestModule_Descriptor(t *testing.T) {
	h := simhost.New(nil)

	desc, err := addon.New("ok").Export("f", double).Descriptor(h)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Version != napi.ModuleVersion || desc.ModuleName != "ok" || desc.Register == nil {
		t.Errorf("descriptor = %+v", desc)
	}

	if _, err := addon.New("bad\x00name").Descriptor(h); err == nil {
		t.Error("NUL in module name should be rejected")
	}
	if _, err := addon.New("ok").Descriptor(nil); err == nil {
		t.Error("nil ABI should be rejected")
	}
}

func TestModule_InitFailureAbortsLoad(t *testing.T) {
	h := simhost.New(nil)
	mod := addon.New("fragile").
		Export("a", double).
		Export("b", greet)
	if err := addon.Register(h, mod); err != nil {
		t.Fatal(err)
	}

	env := h.NewEnv()
	h.FailNext("SetNamedProperty", napi.StatusObjectExpected, "", 0)

	_, err := h.Load(env, "fragile")
	var exc *simhost.Exception
	if !stderrors.As(err, &exc) {
		t.Fatalf("Load = %v, want a thrown exception", err)
	}
	if !strings.Contains(exc.Message, "register fragile#a") {
		t.Errorf("message = %q", exc.Message)
	}
}

// failingAt fails the nth SetNamedProperty call through the host's fault hook.
type failingAt struct {
	*simhost.Host
	n, calls int
}

func (f *failingAt) SetNamedProperty(env napi.EnvPtr, obj napi.ValuePtr, name string, v napi.ValuePtr) napi.Status {
	f.calls++
	if f.calls == f.n {
		f.Host.FailNext("SetNamedProperty", napi.StatusObjectExpected, "", 0)
	}
	return f.Host.SetNamedProperty(env, obj, name, v)
}

func TestModule_InitFailureReleasesFunctions(t *testing.T) {
	tests := []struct {
		name   string
		failAt int
		want   string
	}{
		{"first export", 1, "register leaky#a"},
		{"second export", 2, "register leaky#b"},
		{"last export", 3, "register leaky#c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &failingAt{Host: simhost.New(nil), n: tt.failAt}
			reg := callback.NewRegistry(h, nil)
			mod := addon.New("leaky").
				Export("a", double).
				Export("b", greet).
				Export("c", double).
				WithRegistry(reg)

			env := engine.New(h, h.NewEnv())
			exports, err := env.Object()
			if err != nil {
				t.Fatal(err)
			}
			err = mod.Init(env, exports)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Init = %v, want %q", err, tt.want)
			}
			if reg.Len() != 0 {
				t.Errorf("registry Len = %d after failed Init, want 0", reg.Len())
			}
		})
	}

	t.Run("repeated loads", func(t *testing.T) {
		h := simhost.New(nil)
		reg := callback.NewRegistry(h, nil)
		mod := addon.New("retry").
			Export("a", double).
			Export("b", greet).
			WithRegistry(reg)
		if err := addon.Register(h, mod); err != nil {
			t.Fatal(err)
		}

		for i := 0; i < 5; i++ {
			env := h.NewEnv()
			h.FailNext("SetNamedProperty", napi.StatusObjectExpected, "", 0)
			if _, err := h.Load(env, "retry"); err == nil {
				t.Fatalf("load %d succeeded", i)
			}
			if reg.Len() != 0 {
				t.Fatalf("registry Len = %d after %d failed loads, want 0", reg.Len(), i+1)
			}
		}

		if _, err := h.Load(h.NewEnv(), "retry"); err != nil {
			t.Fatal(err)
		}
		if reg.Len() != 2 {
			t.Errorf("registry Len = %d after successful load, want 2", reg.Len())
		}
	})
}

func TestModule_InitDirect(t *testing.T) {
	h := simhost.New(nil)
	reg := callback.NewRegistry(h, nil)
	mod := addon.New("direct").Export("double", double).WithRegistry(reg)

	env := engine.New(h, h.NewEnv())
	exports, err := env.Object()
	if err != nil {
		t.Fatal(err)
	}
	if err := mod.Init(env, exports); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 1 {
		t.Errorf("registry Len = %d, want 1", reg.Len())
	}
	if e, ok := mod.Lookup("double"); !ok || e.Function.Signature(e.Name) != "double(arg0: u64) -> u64" {
		t.Errorf("Lookup(double) = %+v, %v", e, ok)
	}
}

func TestRegister_HostRejects(t *testing.T) {
	if err := addon.Register(rejecting{simhost.New(nil)}, addon.New("x")); err == nil {
		t.Error("expected error when the host rejects the module")
	}
}

type rejecting struct{ *simhost.Host }

func (rejecting) ModuleRegister(*napi.ModuleDescriptor) napi.Status { return napi.StatusGenericFailure }

func TestNewFunction_Inline(t *testing.T) {
	mod := addon.New("factory").Export("adder", func(env engine.Env, base float64) (napi.ValuePtr, error) {
		return addon.NewFunction(env, "add", func(x float64) float64 { return base + x })
	})
	h, env, exports := load(t, mod)

	fn, err := h.Call(env, property(t, h, env, exports, "adder"), 0, h.Values(env, 10)...)
	if err != nil {
		t.Fatal(err)
	}
	res, err := h.Call(env, fn, 0, h.Values(env, 5)...)
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Go(env, res); got != 15.0 {
		t.Errorf("adder(10)(5) = %v", got)
	}

	if err := addon.Release(h); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Call(env, fn, 0, h.Values(env, 5)...); err == nil {
		t.Error("calling a released function should throw")
	}
}

func TestDeclare(t *testing.T) {
	addon.Declare("declared", addon.Def("double", double))
	addon.Declare("declared", addon.Def("greet", greet))

	if addon.Default.Name() != "declared" {
		t.Errorf("Default name = %q", addon.Default.Name())
	}
	var names []string
	for _, e := range addon.Default.Exports() {
		names = append(names, e.Name)
	}
	if !reflect.DeepEqual(names, []string{"double", "greet"}) {
		t.Errorf("Default exports = %v", names)
	}

	h, env, exports := load(t, addon.Default)
	if keys := h.Keys(env, exports); len(keys) != 2 {
		t.Errorf("loaded exports = %v", keys)
	}
}
