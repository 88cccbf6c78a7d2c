package wasmhost

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/resource"
)

// errorInfoSize is sizeof(napi_extended_error_info) on wasm32.
const errorInfoSize = 16

func (h *Host) GetLastErrorInfo(env napi.EnvPtr, result *napi.ExtendedErrorInfo) napi.Status {
	if result == nil {
		return napi.StatusInvalidArg
	}
	if h.lastTrap != nil {
		*result = napi.ExtendedErrorInfo{
			Message: h.lastTrap.Error(),
			Status:  napi.StatusGenericFailure,
		}
		h.lastTrap = nil
		return napi.StatusOK
	}

	infoPtr, st := h.outU32("napi_get_last_error_info", envArg(env))
	if st != napi.StatusOK {
		return st
	}
	if infoPtr == 0 {
		*result = napi.ExtendedErrorInfo{}
		return napi.StatusOK
	}
	raw, ok := h.memory.Read(infoPtr, errorInfoSize)
	if !ok {
		return napi.StatusGenericFailure
	}
	le := func(off int) uint32 {
		return uint32(raw[off]) | uint32(raw[off+1])<<8 | uint32(raw[off+2])<<16 | uint32(raw[off+3])<<24
	}
	*result = napi.ExtendedErrorInfo{
		Message:         h.readCString(le(0)),
		EngineReserved:  uintptr(le(4)),
		EngineErrorCode: le(8),
		Status:          napi.Status(int32(le(12))),
	}
	return napi.StatusOK
}

func (h *Host) GetUndefined(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_get_undefined", result, envArg(env))
}

func (h *Host) GetNull(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_get_null", result, envArg(env))
}

func (h *Host) GetGlobal(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_get_global", result, envArg(env))
}

func (h *Host) GetBoolean(env napi.EnvPtr, value bool, result *napi.ValuePtr) napi.Status {
	var b uint32
	if value {
		b = 1
	}
	return h.outValue("napi_get_boolean", result, envArg(env), api.EncodeU32(b))
}

func (h *Host) CreateObject(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_create_object", result, envArg(env))
}

func (h *Host) CreateArray(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_create_array", result, envArg(env))
}

func (h *Host) CreateArrayWithLength(env napi.EnvPtr, length uint32, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_create_array_with_length", result, envArg(env), api.EncodeU32(length))
}

func (h *Host) CreateDouble(env napi.EnvPtr, value float64, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_create_double", result, envArg(env), api.EncodeF64(value))
}

func (h *Host) CreateStringUTF8(env napi.EnvPtr, value string, result *napi.ValuePtr) napi.Status {
	return h.outValueFrame("napi_create_string_utf8", cstringSize(value), func(f *frame) []uint64 {
		return []uint64{api.EncodeU32(f.cstring(value)), api.EncodeU32(uint32(len(value)))}
	}, result, envArg(env))
}

// CreateFunction passes the slot handle for cb as both the engine callback
// and its data.
func (h *Host) CreateFunction(env napi.EnvPtr, name string, cb napi.Callback, data uintptr, result *napi.ValuePtr) napi.Status {
	if cb == nil {
		return napi.StatusInvalidArg
	}
	s := h.slots.Insert(slot{cb: cb, data: data})
	if s == 0 {
		return napi.StatusGenericFailure
	}
	st := h.outValueFrame("napi_create_function", cstringSize(name), func(f *frame) []uint64 {
		return []uint64{
			api.EncodeU32(f.cstring(name)),
			api.EncodeU32(uint32(len(name))),
			api.EncodeU32(uint32(s)),
			api.EncodeU32(uint32(s)),
		}
	}, result, envArg(env))
	if st != napi.StatusOK {
		_, _ = h.slots.Remove(s)
	}
	return st
}

func (h *Host) TypeOf(env napi.EnvPtr, value napi.ValuePtr, result *napi.ValueType) napi.Status {
	t, st := h.outU32("napi_typeof", envArg(env), u32(value))
	if st == napi.StatusOK && result != nil {
		*result = napi.ValueType(int32(t))
	}
	return st
}

func (h *Host) GetValueDouble(env napi.EnvPtr, value napi.ValuePtr, result *float64) napi.Status {
	f, err := h.frame(8)
	if err != nil {
		return napi.StatusGenericFailure
	}
	defer f.release()

	rp := f.reserve(8, 8)
	st := h.invoke("napi_get_value_double", envArg(env), u32(value), api.EncodeU32(rp))
	if st == napi.StatusOK && result != nil {
		*result, _ = h.memory.ReadFloat64Le(rp)
	}
	return st
}

func (h *Host) GetValueBool(env napi.EnvPtr, value napi.ValuePtr, result *bool) napi.Status {
	b, st := h.outBool("napi_get_value_bool", envArg(env), u32(value))
	if st == napi.StatusOK && result != nil {
		*result = b
	}
	return st
}

func (h *Host) GetValueStringUTF8(env napi.EnvPtr, value napi.ValuePtr, buf []byte, result *int) napi.Status {
	f, err := h.frame(4 + uint32(len(buf)))
	if err != nil {
		return napi.StatusGenericFailure
	}
	defer f.release()

	rp := f.reserve(4, 4)
	var bp uint32
	if len(buf) > 0 {
		bp = f.reserve(uint32(len(buf)), 1)
	}
	st := h.invoke("napi_get_value_string_utf8", envArg(env), u32(value),
		api.EncodeU32(bp), api.EncodeU32(uint32(len(buf))), api.EncodeU32(rp))
	if st != napi.StatusOK {
		return st
	}
	n := h.readU32(rp)
	if result != nil {
		*result = int(n)
	}
	if len(buf) > 0 {
		copied := min(int(n)+1, len(buf))
		if data, ok := h.memory.Read(bp, uint32(copied)); ok {
			copy(buf, data)
		}
	}
	return st
}

func (h *Host) SetNamedProperty(env napi.EnvPtr, object napi.ValuePtr, name string, value napi.ValuePtr) napi.Status {
	f, err := h.frame(cstringSize(name))
	if err != nil {
		return napi.StatusGenericFailure
	}
	defer f.release()
	return h.invoke("napi_set_named_property", envArg(env), u32(object), api.EncodeU32(f.cstring(name)), u32(value))
}

func (h *Host) GetNamedProperty(env napi.EnvPtr, object napi.ValuePtr, name string, result *napi.ValuePtr) napi.Status {
	return h.outValueFrame("napi_get_named_property", cstringSize(name), func(f *frame) []uint64 {
		return []uint64{api.EncodeU32(f.cstring(name))}
	}, result, envArg(env), u32(object))
}

func (h *Host) GetPropertyNames(env napi.EnvPtr, object napi.ValuePtr, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_get_property_names", result, envArg(env), u32(object))
}

func (h *Host) SetElement(env napi.EnvPtr, object napi.ValuePtr, index uint32, value napi.ValuePtr) napi.Status {
	return h.invoke("napi_set_element", envArg(env), u32(object), api.EncodeU32(index), u32(value))
}

func (h *Host) GetElement(env napi.EnvPtr, object napi.ValuePtr, index uint32, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_get_element", result, envArg(env), u32(object), api.EncodeU32(index))
}

func (h *Host) IsArray(env napi.EnvPtr, value napi.ValuePtr, result *bool) napi.Status {
	b, st := h.outBool("napi_is_array", envArg(env), u32(value))
	if st == napi.StatusOK && result != nil {
		*result = b
	}
	return st
}

func (h *Host) GetArrayLength(env napi.EnvPtr, value napi.ValuePtr, result *uint32) napi.Status {
	n, st := h.outU32("napi_get_array_length", envArg(env), u32(value))
	if st == napi.StatusOK && result != nil {
		*result = n
	}
	return st
}

// GetCbInfo reports the data word given to CreateFunction, not the slot
// handle the engine stores.
func (h *Host) GetCbInfo(env napi.EnvPtr, info napi.CallbackInfoPtr, argc *int, argv []napi.ValuePtr, this *napi.ValuePtr, data *uintptr) napi.Status {
	capacity := 0
	if argc != nil {
		capacity = min(*argc, len(argv))
	}
	f, err := h.frame(12 + 4*uint32(capacity))
	if err != nil {
		return napi.StatusGenericFailure
	}
	defer f.release()

	argcPtr := f.reserve(4, 4)
	thisPtr := f.reserve(4, 4)
	dataPtr := f.reserve(4, 4)
	var argvPtr uint32
	if capacity > 0 {
		argvPtr = f.reserve(4*uint32(capacity), 4)
	}
	h.memory.WriteUint32Le(argcPtr, uint32(capacity))

	var argcArg, thisArg uint64
	if argc != nil {
		argcArg = api.EncodeU32(argcPtr)
	}
	if this != nil {
		thisArg = api.EncodeU32(thisPtr)
	}
	st := h.invoke("napi_get_cb_info", envArg(env), api.EncodeU32(uint32(info)),
		argcArg, api.EncodeU32(argvPtr), thisArg, api.EncodeU32(dataPtr))
	if st != napi.StatusOK {
		return st
	}

	if argc != nil {
		actual := int(h.readU32(argcPtr))
		for i := 0; i < min(actual, capacity); i++ {
			argv[i] = napi.ValuePtr(h.readU32(argvPtr + 4*uint32(i)))
		}
		*argc = actual
	}
	if this != nil {
		*this = napi.ValuePtr(h.readU32(thisPtr))
	}
	if data != nil {
		*data = 0
		if s, ok := h.slots.Get(resource.Handle(h.readU32(dataPtr))); ok {
			*data = s.data
		}
	}
	return st
}

func (h *Host) CallFunction(env napi.EnvPtr, recv, fn napi.ValuePtr, args []napi.ValuePtr, result *napi.ValuePtr) napi.Status {
	return h.outValueFrame("napi_call_function", 4*uint32(len(args)), func(f *frame) []uint64 {
		var argvPtr uint32
		if len(args) > 0 {
			argvPtr = f.reserve(4*uint32(len(args)), 4)
			for i, a := range args {
				h.memory.WriteUint32Le(argvPtr+4*uint32(i), uint32(a))
			}
		}
		return []uint64{api.EncodeU32(uint32(len(args))), api.EncodeU32(argvPtr)}
	}, result, envArg(env), u32(recv), u32(fn))
}

func (h *Host) ThrowError(env napi.EnvPtr, code, msg string) napi.Status {
	f, err := h.frame(cstringSize(code) + cstringSize(msg))
	if err != nil {
		return napi.StatusGenericFailure
	}
	defer f.release()

	var codePtr uint32
	if code != "" {
		codePtr = f.cstring(code)
	}
	return h.invoke("napi_throw_error", envArg(env), api.EncodeU32(codePtr), api.EncodeU32(f.cstring(msg)))
}

func (h *Host) IsExceptionPending(env napi.EnvPtr, result *bool) napi.Status {
	b, st := h.outBool("napi_is_exception_pending", envArg(env))
	if st == napi.StatusOK && result != nil {
		*result = b
	}
	return st
}

func (h *Host) GetAndClearLastException(env napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	return h.outValue("napi_get_and_clear_last_exception", result, envArg(env))
}

// ModuleRegister records desc for Load. Registering a name again replaces
// the earlier descriptor.
func (h *Host) ModuleRegister(desc *napi.ModuleDescriptor) napi.Status {
	if desc == nil || desc.Register == nil {
		return napi.StatusInvalidArg
	}
	name := desc.ModuleName
	if name == "" {
		name = desc.Filename
	}
	if name == "" {
		return napi.StatusInvalidArg
	}
	h.mu.Lock()
	h.modules[name] = desc
	h.mu.Unlock()
	return napi.StatusOK
}
