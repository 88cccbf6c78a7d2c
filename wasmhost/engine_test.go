package wasmhost

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/simhost"
)

const (
	i32 = api.ValueTypeI32
	f64 = api.ValueTypeF64
)

// testEngine is an N-API engine for tests: its entry points are Go
// functions over a simhost.Host, imported by a forwarding guest module that
// owns the linear memory. Every result crosses that memory.
type testEngine struct {
	sim  *simhost.Host
	env  napi.EnvPtr
	heap uint32
}

type engineFunc struct {
	name            string
	params, results []api.ValueType
	fn              api.GoModuleFunc
}

func i32s(n int) []api.ValueType {
	out := make([]api.ValueType, n)
	for i := range out {
		out[i] = i32
	}
	return out
}

func status(stack []uint64, st napi.Status) { stack[0] = api.EncodeI32(int32(st)) }

func args(stack []uint64, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = api.DecodeU32(stack[i])
	}
	return out
}

func putU32(m api.Module, p, v uint32) {
	if p != 0 {
		m.Memory().WriteUint32Le(p, v)
	}
}

func cstr(m api.Module, p uint32) string {
	if p == 0 {
		return ""
	}
	var b []byte
	for {
		c, ok := m.Memory().ReadByte(p + uint32(len(b)))
		if !ok || c == 0 {
			return string(b)
		}
		b = append(b, c)
	}
}

func (e *testEngine) malloc(m api.Module, size uint32) uint32 {
	if e.heap == 0 {
		e.heap = 1024
	}
	p := (e.heap + 7) &^ 7
	e.heap = p + size
	mem := m.Memory()
	if e.heap > mem.Size() {
		pages := (e.heap-mem.Size())/65536 + 1
		if _, ok := mem.Grow(pages); !ok {
			return 0
		}
	}
	return p
}

// valueOp adapts a simhost operation whose final parameter is a value
// out-parameter. n counts the wasm parameters including that pointer.
func valueOp(name string, n int, op func(a []uint32, out *napi.ValuePtr) napi.Status) engineFunc {
	return engineFunc{name: name, params: i32s(n), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
		a := args(stack, n)
		var v napi.ValuePtr
		st := op(a, &v)
		if st == napi.StatusOK {
			putU32(m, a[n-1], uint32(v))
		}
		status(stack, st)
	}}
}

func boolOp(name string, op func(a []uint32, out *bool) napi.Status) engineFunc {
	n := 3
	if name == "napi_is_exception_pending" {
		n = 2
	}
	return engineFunc{name: name, params: i32s(n), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
		a := args(stack, n)
		var b bool
		st := op(a, &b)
		if st == napi.StatusOK {
			var v byte
			if b {
				v = 1
			}
			m.Memory().WriteByte(a[n-1], v)
		}
		status(stack, st)
	}}
}

func (e *testEngine) funcs() []engineFunc {
	s := e.sim
	env := func(a []uint32) napi.EnvPtr { return napi.EnvPtr(a[0]) }
	val := func(x uint32) napi.ValuePtr { return napi.ValuePtr(x) }

	return []engineFunc{
		{name: "malloc", params: i32s(1), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(e.malloc(m, api.DecodeU32(stack[0])))
		}},
		{name: "free", params: i32s(1), fn: func(context.Context, api.Module, []uint64) {}},
		{name: "napi_go_env", results: i32s(1), fn: func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeU32(uint32(e.env))
		}},
		{name: "napi_get_last_error_info", params: i32s(2), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 2)
			var info napi.ExtendedErrorInfo
			st := s.GetLastErrorInfo(env(a), &info)
			if st == napi.StatusOK {
				msg := e.malloc(m, uint32(len(info.Message))+1)
				m.Memory().Write(msg, append([]byte(info.Message), 0))
				rec := e.malloc(m, errorInfoSize)
				putU32(m, rec, msg)
				putU32(m, rec+4, uint32(info.EngineReserved))
				putU32(m, rec+8, info.EngineErrorCode)
				putU32(m, rec+12, uint32(info.Status))
				putU32(m, a[1], rec)
			}
			status(stack, st)
		}},
		valueOp("napi_get_undefined", 2, func(a []uint32, out *napi.ValuePtr) napi.Status { return s.GetUndefined(env(a), out) }),
		valueOp("napi_get_null", 2, func(a []uint32, out *napi.ValuePtr) napi.Status { return s.GetNull(env(a), out) }),
		valueOp("napi_get_global", 2, func(a []uint32, out *napi.ValuePtr) napi.Status { return s.GetGlobal(env(a), out) }),
		valueOp("napi_get_boolean", 3, func(a []uint32, out *napi.ValuePtr) napi.Status { return s.GetBoolean(env(a), a[1] != 0, out) }),
		valueOp("napi_create_object", 2, func(a []uint32, out *napi.ValuePtr) napi.Status { return s.CreateObject(env(a), out) }),
		valueOp("napi_create_array", 2, func(a []uint32, out *napi.ValuePtr) napi.Status { return s.CreateArray(env(a), out) }),
		valueOp("napi_create_array_with_length", 3, func(a []uint32, out *napi.ValuePtr) napi.Status {
			return s.CreateArrayWithLength(env(a), a[1], out)
		}),
		{name: "napi_create_double", params: []api.ValueType{i32, f64, i32}, results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			var v napi.ValuePtr
			st := s.CreateDouble(napi.EnvPtr(api.DecodeU32(stack[0])), api.DecodeF64(stack[1]), &v)
			if st == napi.StatusOK {
				putU32(m, api.DecodeU32(stack[2]), uint32(v))
			}
			status(stack, st)
		}},
		{name: "napi_create_string_utf8", params: i32s(4), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 4)
			b, _ := m.Memory().Read(a[1], a[2])
			var v napi.ValuePtr
			st := s.CreateStringUTF8(env(a), string(b), &v)
			if st == napi.StatusOK {
				putU32(m, a[3], uint32(v))
			}
			status(stack, st)
		}},
		{name: "napi_create_function", params: i32s(6), results: i32s(1), fn: func(ctx context.Context, m api.Module, stack []uint64) {
			a := args(stack, 6)
			name, _ := m.Memory().Read(a[1], a[2])
			cb := a[3]
			invoke := m.ExportedFunction("invoke")
			native := func(ep napi.EnvPtr, info napi.CallbackInfoPtr) napi.ValuePtr {
				res, err := invoke.Call(ctx, api.EncodeU32(cb), api.EncodeU32(uint32(ep)), api.EncodeU32(uint32(info)))
				if err != nil {
					return 0
				}
				return napi.ValuePtr(api.DecodeU32(res[0]))
			}
			var v napi.ValuePtr
			st := s.CreateFunction(env(a), string(name), native, uintptr(a[4]), &v)
			if st == napi.StatusOK {
				putU32(m, a[5], uint32(v))
			}
			status(stack, st)
		}},
		{name: "napi_typeof", params: i32s(3), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 3)
			var t napi.ValueType
			st := s.TypeOf(env(a), val(a[1]), &t)
			if st == napi.StatusOK {
				putU32(m, a[2], uint32(t))
			}
			status(stack, st)
		}},
		{name: "napi_get_value_double", params: i32s(3), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 3)
			var f float64
			st := s.GetValueDouble(env(a), val(a[1]), &f)
			if st == napi.StatusOK {
				m.Memory().WriteFloat64Le(a[2], f)
			}
			status(stack, st)
		}},
		boolOp("napi_get_value_bool", func(a []uint32, out *bool) napi.Status { return s.GetValueBool(env(a), val(a[1]), out) }),
		{name: "napi_get_value_string_utf8", params: i32s(5), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 5)
			var n int
			var st napi.Status
			if a[2] == 0 {
				st = s.GetValueStringUTF8(env(a), val(a[1]), nil, &n)
			} else {
				buf := make([]byte, a[3])
				st = s.GetValueStringUTF8(env(a), val(a[1]), buf, &n)
				if st == napi.StatusOK && len(buf) > 0 {
					m.Memory().Write(a[2], buf[:n+1])
				}
			}
			if st == napi.StatusOK {
				putU32(m, a[4], uint32(n))
			}
			status(stack, st)
		}},
		{name: "napi_set_named_property", params: i32s(4), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 4)
			status(stack, s.SetNamedProperty(env(a), val(a[1]), cstr(m, a[2]), val(a[3])))
		}},
		{name: "napi_get_named_property", params: i32s(4), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 4)
			var v napi.ValuePtr
			st := s.GetNamedProperty(env(a), val(a[1]), cstr(m, a[2]), &v)
			if st == napi.StatusOK {
				putU32(m, a[3], uint32(v))
			}
			status(stack, st)
		}},
		valueOp("napi_get_property_names", 3, func(a []uint32, out *napi.ValuePtr) napi.Status {
			return s.GetPropertyNames(env(a), val(a[1]), out)
		}),
		{name: "napi_set_element", params: i32s(4), results: i32s(1), fn: func(_ context.Context, _ api.Module, stack []uint64) {
			a := args(stack, 4)
			status(stack, s.SetElement(env(a), val(a[1]), a[2], val(a[3])))
		}},
		valueOp("napi_get_element", 4, func(a []uint32, out *napi.ValuePtr) napi.Status {
			return s.GetElement(env(a), val(a[1]), a[2], out)
		}),
		boolOp("napi_is_array", func(a []uint32, out *bool) napi.Status { return s.IsArray(env(a), val(a[1]), out) }),
		{name: "napi_get_array_length", params: i32s(3), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 3)
			var n uint32
			st := s.GetArrayLength(env(a), val(a[1]), &n)
			if st == napi.StatusOK {
				putU32(m, a[2], n)
			}
			status(stack, st)
		}},
		{name: "napi_get_cb_info", params: i32s(6), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 6)
			var argcP *int
			var argv []napi.ValuePtr
			if a[2] != 0 {
				c, _ := m.Memory().ReadUint32Le(a[2])
				n := int(c)
				argcP = &n
				argv = make([]napi.ValuePtr, n)
			}
			var this napi.ValuePtr
			var data uintptr
			thisP := &this
			if a[4] == 0 {
				thisP = nil
			}
			st := s.GetCbInfo(env(a), napi.CallbackInfoPtr(a[1]), argcP, argv, thisP, &data)
			if st == napi.StatusOK {
				if argcP != nil {
					for i := 0; i < min(*argcP, len(argv)); i++ {
						putU32(m, a[3]+4*uint32(i), uint32(argv[i]))
					}
					putU32(m, a[2], uint32(*argcP))
				}
				putU32(m, a[4], uint32(this))
				putU32(m, a[5], uint32(data))
			}
			status(stack, st)
		}},
		{name: "napi_call_function", params: i32s(6), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 6)
			argv := make([]napi.ValuePtr, a[3])
			for i := range argv {
				v, _ := m.Memory().ReadUint32Le(a[4] + 4*uint32(i))
				argv[i] = val(v)
			}
			var v napi.ValuePtr
			st := s.CallFunction(env(a), val(a[1]), val(a[2]), argv, &v)
			if st == napi.StatusOK {
				putU32(m, a[5], uint32(v))
			}
			status(stack, st)
		}},
		{name: "napi_throw_error", params: i32s(3), results: i32s(1), fn: func(_ context.Context, m api.Module, stack []uint64) {
			a := args(stack, 3)
			status(stack, s.ThrowError(env(a), cstr(m, a[1]), cstr(m, a[2])))
		}},
		boolOp("napi_is_exception_pending", func(a []uint32, out *bool) napi.Status { return s.IsExceptionPending(env(a), out) }),
		valueOp("napi_get_and_clear_last_exception", 2, func(a []uint32, out *napi.ValuePtr) napi.Status {
			return s.GetAndClearLastException(env(a), out)
		}),
	}
}

// newTestHost runs a wasmhost.Host over a fresh test engine.
func newTestHost(t *testing.T) (*Host, *testEngine) {
	t.Helper()
	return newTestHostWith(t, nil)
}

// newTestHostWith is newTestHost with a filter deciding which entry points
// the guest exports.
func newTestHostWith(t *testing.T, keep func(name string) bool) (*Host, *testEngine) {
	t.Helper()
	ctx := context.Background()

	e := newTestEngine()
	h, err := New(ctx, e.guest(keep), e.config())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { h.Close(ctx) })
	return h, e
}

func newTestEngine() *testEngine {
	sim := simhost.New(nil)
	return &testEngine{sim: sim, env: sim.NewEnv()}
}

// guest builds the forwarding module, exporting the entry points keep
// accepts (all when keep is nil) and the callback import as "invoke".
func (e *testEngine) guest(keep func(name string) bool) []byte {
	var imports []guestImport
	for _, f := range e.funcs() {
		if keep != nil && !keep(f.name) {
			continue
		}
		imports = append(imports, guestImport{module: "engine", name: f.name, export: f.name, params: f.params, results: f.results})
	}
	imports = append(imports, guestImport{module: "napi_go", name: "callback", export: "invoke", params: i32s(3), results: i32s(1)})
	return buildGuest(imports)
}

// config instantiates the "engine" host module ahead of the guest.
func (e *testEngine) config() *Config {
	return &Config{
		Setup: func(ctx context.Context, r wazero.Runtime) error {
			b := r.NewHostModuleBuilder("engine")
			for _, f := range e.funcs() {
				b.NewFunctionBuilder().WithGoModuleFunction(f.fn, f.params, f.results).Export(f.name)
			}
			_, err := b.Instantiate(ctx)
			return err
		},
	}
}
