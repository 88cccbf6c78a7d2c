package simhost

import (
	"unicode/utf8"

	"github.com/wippyai/napi-go"
)

var _ napi.ABI = (*Host)(nil)

// begin resolves the context for op and applies any armed fault.
func (h *Host) begin(ptr napi.EnvPtr, op string) (*env, napi.Status) {
	e, f := h.enter(ptr, op)
	if e == nil {
		return nil, napi.StatusInvalidArg
	}
	if f != nil {
		msg := f.message
		if msg == "" {
			msg = statusMessages[f.status]
		}
		return e, e.failWith(f.status, msg, f.engineCode)
	}
	return e, napi.StatusOK
}

func (e *env) create(v value, result *napi.ValuePtr) napi.Status {
	if result == nil {
		return e.fail(napi.StatusInvalidArg)
	}
	p, err := e.alloc(v)
	if err != nil {
		return e.failWith(napi.StatusGenericFailure, err.Error(), 0)
	}
	*result = p
	return e.ok()
}

func (e *env) object(ptr napi.ValuePtr) (*object, napi.Status) {
	v, ok := e.get(ptr)
	if !ok {
		return nil, e.fail(napi.StatusInvalidArg)
	}
	if v.obj == nil {
		return nil, e.fail(napi.StatusObjectExpected)
	}
	return v.obj, napi.StatusOK
}

func (e *env) returns(result *napi.ValuePtr, v napi.ValuePtr) napi.Status {
	if result == nil {
		return e.fail(napi.StatusInvalidArg)
	}
	*result = v
	return e.ok()
}

// GetLastErrorInfo copies the record of the most recent failing call. It
// does not modify the record itself.
func (h *Host) GetLastErrorInfo(ptr napi.EnvPtr, result *napi.ExtendedErrorInfo) napi.Status {
	e, f := h.enter(ptr, "GetLastErrorInfo")
	if e == nil || result == nil {
		return napi.StatusInvalidArg
	}
	if f != nil {
		return f.status
	}
	*result = e.lastErr
	return napi.StatusOK
}

func (h *Host) GetUndefined(ptr napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "GetUndefined")
	if st != napi.StatusOK {
		return st
	}
	return e.returns(result, e.undefined)
}

func (h *Host) GetNull(ptr napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "GetNull")
	if st != napi.StatusOK {
		return st
	}
	return e.returns(result, e.null)
}

func (h *Host) GetGlobal(ptr napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "GetGlobal")
	if st != napi.StatusOK {
		return st
	}
	return e.returns(result, e.global)
}

func (h *Host) GetBoolean(ptr napi.EnvPtr, b bool, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "GetBoolean")
	if st != napi.StatusOK {
		return st
	}
	return e.returns(result, e.boolean(b))
}

func (h *Host) CreateObject(ptr napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "CreateObject")
	if st != napi.StatusOK {
		return st
	}
	return e.create(value{kind: napi.TypeObject, obj: newObject()}, result)
}

func (h *Host) CreateArray(ptr napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "CreateArray")
	if st != napi.StatusOK {
		return st
	}
	return e.create(value{kind: napi.TypeObject, obj: newArray(0)}, result)
}

func (h *Host) CreateArrayWithLength(ptr napi.EnvPtr, length uint32, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "CreateArrayWithLength")
	if st != napi.StatusOK {
		return st
	}
	return e.create(value{kind: napi.TypeObject, obj: newArray(length)}, result)
}

func (h *Host) CreateDouble(ptr napi.EnvPtr, f float64, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "CreateDouble")
	if st != napi.StatusOK {
		return st
	}
	return e.create(value{kind: napi.TypeNumber, num: f}, result)
}

func (h *Host) CreateStringUTF8(ptr napi.EnvPtr, s string, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "CreateStringUTF8")
	if st != napi.StatusOK {
		return st
	}
	return e.create(value{kind: napi.TypeString, str: s}, result)
}

func (h *Host) CreateFunction(ptr napi.EnvPtr, name string, cb napi.Callback, data uintptr, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "CreateFunction")
	if st != napi.StatusOK {
		return st
	}
	if cb == nil {
		return e.fail(napi.StatusInvalidArg)
	}
	obj := newObject()
	obj.fn = &function{name: name, cb: cb, data: data}
	return e.create(value{kind: napi.TypeFunction, obj: obj}, result)
}

func (h *Host) TypeOf(ptr napi.EnvPtr, v napi.ValuePtr, result *napi.ValueType) napi.Status {
	e, st := h.begin(ptr, "TypeOf")
	if st != napi.StatusOK {
		return st
	}
	val, ok := e.get(v)
	if !ok || result == nil {
		return e.fail(napi.StatusInvalidArg)
	}
	*result = val.kind
	return e.ok()
}

func (h *Host) GetValueDouble(ptr napi.EnvPtr, v napi.ValuePtr, result *float64) napi.Status {
	e, st := h.begin(ptr, "GetValueDouble")
	if st != napi.StatusOK {
		return st
	}
	val, ok := e.get(v)
	if !ok || result == nil {
		return e.fail(napi.StatusInvalidArg)
	}
	if val.kind != napi.TypeNumber {
		return e.fail(napi.StatusNumberExpected)
	}
	*result = val.num
	return e.ok()
}

func (h *Host) GetValueBool(ptr napi.EnvPtr, v napi.ValuePtr, result *bool) napi.Status {
	e, st := h.begin(ptr, "GetValueBool")
	if st != napi.StatusOK {
		return st
	}
	val, ok := e.get(v)
	if !ok || result == nil {
		return e.fail(napi.StatusInvalidArg)
	}
	if val.kind != napi.TypeBoolean {
		return e.fail(napi.StatusBooleanExpected)
	}
	*result = val.b
	return e.ok()
}

// GetValueStringUTF8 follows the two-call protocol: a nil buf reports the
// byte length, otherwise up to len(buf)-1 bytes are copied without splitting
// a code point and NUL-terminated.
func (h *Host) GetValueStringUTF8(ptr napi.EnvPtr, v napi.ValuePtr, buf []byte, result *int) napi.Status {
	e, st := h.begin(ptr, "GetValueStringUTF8")
	if st != napi.StatusOK {
		return st
	}
	val, ok := e.get(v)
	if !ok {
		return e.fail(napi.StatusInvalidArg)
	}
	if val.kind != napi.TypeString {
		return e.fail(napi.StatusStringExpected)
	}
	if buf == nil {
		if result == nil {
			return e.fail(napi.StatusInvalidArg)
		}
		*result = len(val.str)
		return e.ok()
	}

	n := 0
	if len(buf) > 0 {
		n = min(len(val.str), len(buf)-1)
		for n > 0 && n < len(val.str) && !utf8.RuneStart(val.str[n]) {
			n--
		}
		copy(buf, val.str[:n])
		buf[n] = 0
	}
	if result != nil {
		*result = n
	}
	return e.ok()
}

func (h *Host) SetNamedProperty(ptr napi.EnvPtr, obj napi.ValuePtr, name string, v napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "SetNamedProperty")
	if st != napi.StatusOK {
		return st
	}
	if e.pending {
		return e.fail(napi.StatusPendingException)
	}
	o, st := e.object(obj)
	if st != napi.StatusOK {
		return st
	}
	if _, ok := e.get(v); !ok {
		return e.fail(napi.StatusInvalidArg)
	}
	o.set(name, v)
	return e.ok()
}

func (h *Host) GetNamedProperty(ptr napi.EnvPtr, obj napi.ValuePtr, name string, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "GetNamedProperty")
	if st != napi.StatusOK {
		return st
	}
	if e.pending {
		return e.fail(napi.StatusPendingException)
	}
	o, st := e.object(obj)
	if st != napi.StatusOK {
		return st
	}
	v, ok := o.props[name]
	if !ok {
		v = e.undefined
	}
	return e.returns(result, v)
}

func (h *Host) GetPropertyNames(ptr napi.EnvPtr, obj napi.ValuePtr, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "GetPropertyNames")
	if st != napi.StatusOK {
		return st
	}
	if e.pending {
		return e.fail(napi.StatusPendingException)
	}
	o, st := e.object(obj)
	if st != napi.StatusOK {
		return st
	}
	if result == nil {
		return e.fail(napi.StatusInvalidArg)
	}

	names := o.names()
	arr := newArray(0)
	for i, name := range names {
		p, err := e.alloc(value{kind: napi.TypeString, str: name})
		if err != nil {
			return e.failWith(napi.StatusGenericFailure, err.Error(), 0)
		}
		arr.setIndex(uint32(i), p)
	}
	return e.create(value{kind: napi.TypeObject, obj: arr}, result)
}

func (h *Host) SetElement(ptr napi.EnvPtr, obj napi.ValuePtr, index uint32, v napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "SetElement")
	if st != napi.StatusOK {
		return st
	}
	if e.pending {
		return e.fail(napi.StatusPendingException)
	}
	o, st := e.object(obj)
	if st != napi.StatusOK {
		return st
	}
	if _, ok := e.get(v); !ok {
		return e.fail(napi.StatusInvalidArg)
	}
	o.setIndex(index, v)
	return e.ok()
}

func (h *Host) GetElement(ptr napi.EnvPtr, obj napi.ValuePtr, index uint32, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "GetElement")
	if st != napi.StatusOK {
		return st
	}
	if e.pending {
		return e.fail(napi.StatusPendingException)
	}
	o, st := e.object(obj)
	if st != napi.StatusOK {
		return st
	}
	v, ok := o.index(index)
	if !ok {
		v = e.undefined
	}
	return e.returns(result, v)
}

func (h *Host) IsArray(ptr napi.EnvPtr, v napi.ValuePtr, result *bool) napi.Status {
	e, st := h.begin(ptr, "IsArray")
	if st != napi.StatusOK {
		return st
	}
	val, ok := e.get(v)
	if !ok || result == nil {
		return e.fail(napi.StatusInvalidArg)
	}
	*result = val.obj != nil && val.obj.isArray
	return e.ok()
}

func (h *Host) GetArrayLength(ptr napi.EnvPtr, v napi.ValuePtr, result *uint32) napi.Status {
	e, st := h.begin(ptr, "GetArrayLength")
	if st != napi.StatusOK {
		return st
	}
	val, ok := e.get(v)
	if !ok || result == nil {
		return e.fail(napi.StatusInvalidArg)
	}
	if val.obj == nil || !val.obj.isArray {
		return e.fail(napi.StatusArrayExpected)
	}
	*result = val.obj.length
	return e.ok()
}

// GetCbInfo fills argv with up to min(*argc, len(argv)) arguments, pads the
// rest of that window with undefined and reports the actual count in argc.
func (h *Host) GetCbInfo(ptr napi.EnvPtr, info napi.CallbackInfoPtr, argc *int, argv []napi.ValuePtr, this *napi.ValuePtr, data *uintptr) napi.Status {
	e, st := h.begin(ptr, "GetCbInfo")
	if st != napi.StatusOK {
		return st
	}
	fr, ok := e.frames[info]
	if !ok {
		return e.fail(napi.StatusInvalidArg)
	}

	if argc != nil {
		window := min(*argc, len(argv))
		for i := 0; i < window; i++ {
			if i < len(fr.args) {
				argv[i] = fr.args[i]
			} else {
				argv[i] = e.undefined
			}
		}
		*argc = len(fr.args)
	}
	if this != nil {
		*this = fr.this
	}
	if data != nil {
		*data = fr.data
	}
	return e.ok()
}

// CallFunction invokes fn. Native callbacks run synchronously on the calling
// goroutine. If the callee leaves an exception pending the call reports
// pending_exception and the exception stays pending for the caller.
func (h *Host) CallFunction(ptr napi.EnvPtr, recv, fn napi.ValuePtr, args []napi.ValuePtr, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "CallFunction")
	if st != napi.StatusOK {
		return st
	}
	if e.pending {
		return e.fail(napi.StatusPendingException)
	}
	val, ok := e.get(fn)
	if !ok {
		return e.fail(napi.StatusInvalidArg)
	}
	if val.obj == nil || val.obj.fn == nil {
		return e.fail(napi.StatusFunctionExpected)
	}
	if _, ok := e.get(recv); !ok {
		return e.fail(napi.StatusInvalidArg)
	}
	for _, a := range args {
		if _, ok := e.get(a); !ok {
			return e.fail(napi.StatusInvalidArg)
		}
	}

	f := val.obj.fn
	e.nextFrame++
	info := e.nextFrame
	e.frames[info] = &frame{args: append([]napi.ValuePtr(nil), args...), this: recv, data: f.data}
	ret := f.cb(ptr, info)
	delete(e.frames, info)

	if e.pending {
		return e.fail(napi.StatusPendingException)
	}
	if _, ok := e.get(ret); !ok {
		ret = e.undefined
	}
	if result != nil {
		*result = ret
	}
	return e.ok()
}

// ThrowError raises an Error object with message and, when non-empty, code.
func (h *Host) ThrowError(ptr napi.EnvPtr, code, msg string) napi.Status {
	e, st := h.begin(ptr, "ThrowError")
	if st != napi.StatusOK {
		return st
	}
	if e.pending {
		return e.fail(napi.StatusPendingException)
	}

	obj := newObject()
	obj.isError = true
	m, err := e.alloc(value{kind: napi.TypeString, str: msg})
	if err != nil {
		return e.failWith(napi.StatusGenericFailure, err.Error(), 0)
	}
	obj.set("message", m)
	if code != "" {
		c, err := e.alloc(value{kind: napi.TypeString, str: code})
		if err != nil {
			return e.failWith(napi.StatusGenericFailure, err.Error(), 0)
		}
		obj.set("code", c)
	}

	var exc napi.ValuePtr
	if st := e.create(value{kind: napi.TypeObject, obj: obj}, &exc); st != napi.StatusOK {
		return st
	}
	e.exception = exc
	e.pending = true
	return e.ok()
}

func (h *Host) IsExceptionPending(ptr napi.EnvPtr, result *bool) napi.Status {
	e, st := h.begin(ptr, "IsExceptionPending")
	if st != napi.StatusOK {
		return st
	}
	if result == nil {
		return e.fail(napi.StatusInvalidArg)
	}
	*result = e.pending
	return e.ok()
}

// GetAndClearLastException returns the pending exception, or undefined when
// nothing is pending.
func (h *Host) GetAndClearLastException(ptr napi.EnvPtr, result *napi.ValuePtr) napi.Status {
	e, st := h.begin(ptr, "GetAndClearLastException")
	if st != napi.StatusOK {
		return st
	}
	if !e.pending {
		return e.returns(result, e.undefined)
	}
	exc := e.exception
	e.pending = false
	e.exception = 0
	return e.returns(result, exc)
}

// ModuleRegister records a module descriptor under its module name, or its
// filename when the name is empty. Registering the same name again replaces
// the earlier descriptor.
func (h *Host) ModuleRegister(mod *napi.ModuleDescriptor) napi.Status {
	if mod == nil || mod.Register == nil {
		return napi.StatusInvalidArg
	}
	name := mod.ModuleName
	if name == "" {
		name = mod.Filename
	}
	if name == "" {
		return napi.StatusInvalidArg
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cfg.Trace {
		h.trace = append(h.trace, "ModuleRegister")
	}
	if _, ok := h.modules[name]; !ok {
		h.order = append(h.order, name)
	}
	h.modules[name] = mod
	return napi.StatusOK
}
