//go:build darwin || freebsd || (linux && (amd64 || arm64))

package nodeabi

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/resource"
)

type slot struct {
	cb   napi.Callback
	data uintptr
}

// ABI calls the N-API functions of the current process.
type ABI struct {
	slots    *resource.Table[slot]
	dispatch uintptr
}

var _ napi.ABI = (*ABI)(nil)

var (
	loadOnce sync.Once
	loaded   *ABI
	loadErr  error
)

// Load resolves the process's N-API symbols and returns the shared ABI.
func Load() (*ABI, error) {
	loadOnce.Do(func() {
		if loadErr = ensureBindingsLoaded(); loadErr != nil {
			return
		}
		a := &ABI{slots: resource.NewTable[slot]()}
		a.dispatch = purego.NewCallback(func(env napi.EnvPtr, info napi.CallbackInfoPtr) napi.ValuePtr {
			return a.call(env, info)
		})
		loaded = a
	})
	return loaded, loadErr
}

// call runs the Go callback behind the slot stored as the function's data.
func (a *ABI) call(env napi.EnvPtr, info napi.CallbackInfoPtr) napi.ValuePtr {
	var argc, data uintptr
	if st := napi_get_cb_info(env, info, &argc, nil, nil, &data); st != napi.StatusOK {
		return 0
	}
	s, ok := a.slots.Get(resource.Handle(data))
	if !ok {
		return 0
	}
	return s.cb(env, info)
}

// Slots returns the number of Go callbacks created through the ABI.
func (a *ABI) Slots() int { return a.slots.Len() }

func cstring(s string) *byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}

func gostring(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

func (a *ABI) GetLastErrorInfo(env napi.EnvPtr, result *napi.ExtendedErrorInfo) napi.Status {
	if result == nil {
		return napi.StatusInvalidArg
	}
	var info *cErrorInfo
	if st := napi_get_last_error_info(env, &info); st != napi.StatusOK {
		return st
	}
	if info == nil {
		*result = napi.ExtendedErrorInfo{}
		return napi.StatusOK
	}
	*result = napi.ExtendedErrorInfo{
		Message:         gostring(info.message),
		EngineReserved:  info.engineReserved,
		EngineErrorCode: info.engineErrorCode,
		Status:          info.errorCode,
	}
	return napi.StatusOK
}

func (a *ABI) GetUndefined(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return napi_get_undefined(env, result)
}

func (a *ABI) GetNull(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return napi_get_null(env, result)
}

func (a *ABI) GetGlobal(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return napi_get_global(env, result)
}

func (a *ABI) GetBoolean(env napi.EnvPtr, value bool, result *napi.ValuePtr) napi.Status {
	return napi_get_boolean(env, value, result)
}

func (a *ABI) CreateObject(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return napi_create_object(env, result)
}

func (a *ABI) CreateArray(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return napi_create_array(env, result)
}

func (a *ABI) CreateArrayWithLength(env napi.EnvPtr, length uint32, result *napi.ValuePtr) napi.Status {
	return napi_create_array_with_length(env, uintptr(length), result)
}

func (a *ABI) CreateDouble(env napi.EnvPtr, value float64, result *napi.ValuePtr) napi.Status {
	return napi_create_double(env, value, result)
}

func (a *ABI) CreateStringUTF8(env napi.EnvPtr, value string, result *napi.ValuePtr) napi.Status {
	return napi_create_string_utf8(env, cstring(value), uintptr(len(value)), result)
}

// CreateFunction creates a function dispatched through the shared C
// callback. The slot holding cb lives as long as the process.
func (a *ABI) CreateFunction(env napi.EnvPtr, name string, cb napi.Callback, data uintptr, result *napi.ValuePtr) napi.Status {
	if cb == nil {
		return napi.StatusInvalidArg
	}
	h := a.slots.Insert(slot{cb: cb, data: data})
	if h == 0 {
		return napi.StatusGenericFailure
	}
	st := napi_create_function(env, cstring(name), uintptr(len(name)), a.dispatch, uintptr(h), result)
	if st != napi.StatusOK {
		_, _ = a.slots.Remove(h)
	}
	return st
}

func (a *ABI) TypeOf(env napi.EnvPtr, value napi.ValuePtr, result *napi.ValueType) napi.Status {
	return napi_typeof(env, value, result)
}

func (a *ABI) GetValueDouble(env napi.EnvPtr, value napi.ValuePtr, result *float64) napi.Status {
	return napi_get_value_double(env, value, result)
}

func (a *ABI) GetValueBool(env napi.EnvPtr, value napi.ValuePtr, result *bool) napi.Status {
	return napi_get_value_bool(env, value, result)
}

func (a *ABI) GetValueStringUTF8(env napi.EnvPtr, value napi.ValuePtr, buf []byte, result *int) napi.Status {
	var n uintptr
	var st napi.Status
	if len(buf) == 0 {
		st = napi_get_value_string_utf8(env, value, nil, 0, &n)
	} else {
		st = napi_get_value_string_utf8(env, value, &buf[0], uintptr(len(buf)), &n)
	}
	if result != nil {
		*result = int(n)
	}
	return st
}

func (a *ABI) SetNamedProperty(env napi.EnvPtr, object napi.ValuePtr, name string, value napi.ValuePtr) napi.Status {
	return napi_set_named_property(env, object, cstring(name), value)
}

func (a *ABI) GetNamedProperty(env napi.EnvPtr, object napi.ValuePtr, name string, result *napi.ValuePtr) napi.Status {
	return napi_get_named_property(env, object, cstring(name), result)
}

func (a *ABI) GetPropertyNames(env napi.EnvPtr, object napi.ValuePtr, result *napi.ValuePtr) napi.Status {
	return napi_get_property_names(env, object, result)
}

func (a *ABI) SetElement(env napi.EnvPtr, object napi.ValuePtr, index uint32, value napi.ValuePtr) napi.Status {
	return napi_set_element(env, object, index, value)
}

func (a *ABI) GetElement(env napi.EnvPtr, object napi.ValuePtr, index uint32, result *napi.ValuePtr) napi.Status {
	return napi_get_element(env, object, index, result)
}

func (a *ABI) IsArray(env napi.EnvPtr, value napi.ValuePtr, result *bool) napi.Status {
	return napi_is_array(env, value, result)
}

func (a *ABI) GetArrayLength(env napi.EnvPtr, value napi.ValuePtr, result *uint32) napi.Status {
	return napi_get_array_length(env, value, result)
}

// GetCbInfo reports the data word given to CreateFunction, not the slot
// handle Node stores.
func (a *ABI) GetCbInfo(env napi.EnvPtr, info napi.CallbackInfoPtr, argc *int, argv []napi.ValuePtr, this *napi.ValuePtr, data *uintptr) napi.Status {
	var n uintptr
	if argc != nil {
		n = uintptr(min(*argc, len(argv)))
	}
	var first *napi.ValuePtr
	if n > 0 {
		first = &argv[0]
	}
	var raw uintptr
	st := napi_get_cb_info(env, info, &n, first, this, &raw)
	if st != napi.StatusOK {
		return st
	}
	if argc != nil {
		*argc = int(n)
	}
	if data != nil {
		*data = 0
		if s, ok := a.slots.Get(resource.Handle(raw)); ok {
			*data = s.data
		}
	}
	return st
}

func (a *ABI) CallFunction(env napi.EnvPtr, recv, fn napi.ValuePtr, args []napi.ValuePtr, result *napi.ValuePtr) napi.Status {
	var first *napi.ValuePtr
	if len(args) > 0 {
		first = &args[0]
	}
	return napi_call_function(env, recv, fn, uintptr(len(args)), first, result)
}

func (a *ABI) ThrowError(env napi.EnvPtr, code, msg string) napi.Status {
	var c *byte
	if code != "" {
		c = cstring(code)
	}
	return napi_throw_error(env, c, cstring(msg))
}

func (a *ABI) IsExceptionPending(env napi.EnvPtr, result *bool) napi.Status {
	return napi_is_exception_pending(env, result)
}

func (a *ABI) GetAndClearLastException(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return napi_get_and_clear_last_exception(env, result)
}

// ModuleRegister hands desc to Node's legacy module loader. The loader keeps
// the napi_module pointer, so the descriptor and its strings live in C memory
// that is never freed.
func (a *ABI) ModuleRegister(desc *napi.ModuleDescriptor) napi.Status {
	if desc == nil || desc.Register == nil {
		return napi.StatusInvalidArg
	}
	register := desc.Register
	cb := purego.NewCallback(func(env napi.EnvPtr, exports napi.ValuePtr) napi.ValuePtr {
		return register(env, exports)
	})
	m := newCModule(malloc, desc, cb)
	if m == nil {
		return napi.StatusGenericFailure
	}
	napi_module_register(m)
	return napi.StatusOK
}

// newCModule builds a napi_module for desc in memory obtained from alloc.
// It returns nil when alloc fails.
func newCModule(alloc func(size uintptr) unsafe.Pointer, desc *napi.ModuleDescriptor, register uintptr) *cModule {
	filename := ccopy(alloc, desc.Filename)
	modname := ccopy(alloc, desc.ModuleName)
	p := alloc(unsafe.Sizeof(cModule{}))
	if filename == nil || modname == nil || p == nil {
		return nil
	}
	m := (*cModule)(p)
	*m = cModule{
		version:  desc.Version,
		flags:    desc.Flags,
		filename: filename,
		register: register,
		modname:  modname,
	}
	return m
}

// ccopy copies s and a trailing NUL into memory obtained from alloc.
func ccopy(alloc func(size uintptr) unsafe.Pointer, s string) *byte {
	p := alloc(uintptr(len(s) + 1))
	if p == nil {
		return nil
	}
	b := unsafe.Slice((*byte)(p), len(s)+1)
	copy(b, s)
	b[len(s)] = 0
	return &b[0]
}
