package engine

import (
	"math"
	"strings"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/errors"
)

// Env is one host execution context paired with the ABI that produced it.
type Env struct {
	abi napi.ABI
	ptr napi.EnvPtr
}

// New wraps a raw context handle.
func New(abi napi.ABI, ptr napi.EnvPtr) Env {
	return Env{abi: abi, ptr: ptr}
}

// Ptr returns the raw context handle.
func (e Env) Ptr() napi.EnvPtr { return e.ptr }

// ABI returns the ABI the context belongs to.
func (e Env) ABI() napi.ABI { return e.abi }

// IsValid reports whether the Env refers to a context.
func (e Env) IsValid() bool { return e.abi != nil && !e.ptr.IsNull() }

// Undefined returns the host's undefined value.
func (e Env) Undefined() (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.GetUndefined(e.ptr, &v)
	return either(e, st, v)
}

// Null returns the host's null value.
func (e Env) Null() (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.GetNull(e.ptr, &v)
	return either(e, st, v)
}

// Global returns the global object.
func (e Env) Global() (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.GetGlobal(e.ptr, &v)
	return either(e, st, v)
}

// Boolean returns the host boolean for b.
func (e Env) Boolean(b bool) (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.GetBoolean(e.ptr, b, &v)
	return either(e, st, v)
}

// Object creates an empty object.
func (e Env) Object() (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.CreateObject(e.ptr, &v)
	return either(e, st, v)
}

// Array creates an empty array.
func (e Env) Array() (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.CreateArray(e.ptr, &v)
	return either(e, st, v)
}

// ArrayWithLength creates an array with the given length.
func (e Env) ArrayWithLength(length int) (napi.ValuePtr, error) {
	if length < 0 || uint64(length) > math.MaxUint32 {
		return 0, errors.Overflow(errors.PhaseEncode, nil, length, "uint32")
	}
	var v napi.ValuePtr
	st := e.abi.CreateArrayWithLength(e.ptr, uint32(length), &v)
	return either(e, st, v)
}

// Number creates a host number. float64 is the host's native representation.
func (e Env) Number(f float64) (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.CreateDouble(e.ptr, f, &v)
	return either(e, st, v)
}

// String creates a host string from UTF-8 text.
func (e Env) String(s string) (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.CreateStringUTF8(e.ptr, s, &v)
	return either(e, st, v)
}

// CreateFunction creates a host function that invokes cb with data.
func (e Env) CreateFunction(name string, cb napi.Callback, data uintptr) (napi.ValuePtr, error) {
	if err := cString(errors.PhaseRegister, name); err != nil {
		return 0, err
	}
	var v napi.ValuePtr
	st := e.abi.CreateFunction(e.ptr, name, cb, data, &v)
	return either(e, st, v)
}

// TypeOf classifies a host value.
func (e Env) TypeOf(value napi.ValuePtr) (napi.ValueType, error) {
	var t napi.ValueType
	st := e.abi.TypeOf(e.ptr, value, &t)
	return either(e, st, t)
}

// Float64 reads a host number.
func (e Env) Float64(value napi.ValuePtr) (float64, error) {
	var f float64
	st := e.abi.GetValueDouble(e.ptr, value, &f)
	return either(e, st, f)
}

// Bool reads a host boolean.
func (e Env) Bool(value napi.ValuePtr) (bool, error) {
	var b bool
	st := e.abi.GetValueBool(e.ptr, value, &b)
	return either(e, st, b)
}

// StringValue reads a host string as UTF-8.
func (e Env) StringValue(value napi.ValuePtr) (string, error) {
	var n int
	if err := e.Check(e.abi.GetValueStringUTF8(e.ptr, value, nil, &n)); err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}

	buf := make([]byte, n+1)
	var copied int
	if err := e.Check(e.abi.GetValueStringUTF8(e.ptr, value, buf, &copied)); err != nil {
		return "", err
	}
	return string(buf[:copied]), nil
}

// SetNamedProperty attaches value to object under name.
func (e Env) SetNamedProperty(object napi.ValuePtr, name string, value napi.ValuePtr) error {
	if err := cString(errors.PhaseEncode, name); err != nil {
		return err
	}
	return e.Check(e.abi.SetNamedProperty(e.ptr, object, name, value))
}

// GetNamedProperty reads object[name].
func (e Env) GetNamedProperty(object napi.ValuePtr, name string) (napi.ValuePtr, error) {
	if err := cString(errors.PhaseDecode, name); err != nil {
		return 0, err
	}
	var v napi.ValuePtr
	st := e.abi.GetNamedProperty(e.ptr, object, name, &v)
	return either(e, st, v)
}

// PropertyNames returns the enumerable own property names of object in
// the host's enumeration order.
func (e Env) PropertyNames(object napi.ValuePtr) ([]string, error) {
	var names napi.ValuePtr
	if err := e.Check(e.abi.GetPropertyNames(e.ptr, object, &names)); err != nil {
		return nil, err
	}
	n, err := e.ArrayLength(names)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		key, err := e.GetElement(names, i)
		if err != nil {
			return nil, err
		}
		s, err := e.StringValue(key)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SetElement stores value at array[index].
func (e Env) SetElement(object napi.ValuePtr, index uint32, value napi.ValuePtr) error {
	return e.Check(e.abi.SetElement(e.ptr, object, index, value))
}

// GetElement reads array[index].
func (e Env) GetElement(object napi.ValuePtr, index uint32) (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.GetElement(e.ptr, object, index, &v)
	return either(e, st, v)
}

// IsArray reports whether value is an array.
func (e Env) IsArray(value napi.ValuePtr) (bool, error) {
	var b bool
	st := e.abi.IsArray(e.ptr, value, &b)
	return either(e, st, b)
}

// ArrayLength returns the length of an array.
func (e Env) ArrayLength(value napi.ValuePtr) (uint32, error) {
	var n uint32
	st := e.abi.GetArrayLength(e.ptr, value, &n)
	return either(e, st, n)
}

// CallFrame is what the host reports about one native call.
type CallFrame struct {
	// Argc is the number of arguments the host supplied. It can exceed the
	// capacity of the buffer passed to CallbackInfo.
	Argc int
	This napi.ValuePtr
	Data uintptr
}

// CallbackInfo reads the call's arguments into argv and reports the frame.
func (e Env) CallbackInfo(info napi.CallbackInfoPtr, argv []napi.ValuePtr) (CallFrame, error) {
	frame := CallFrame{Argc: len(argv)}
	st := e.abi.GetCbInfo(e.ptr, info, &frame.Argc, argv, &frame.This, &frame.Data)
	return either(e, st, frame)
}

// CallFunction invokes fn with recv as this.
func (e Env) CallFunction(recv, fn napi.ValuePtr, args ...napi.ValuePtr) (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.CallFunction(e.ptr, recv, fn, args, &v)
	return either(e, st, v)
}

// ThrowError raises a host Error with the given code and message.
func (e Env) ThrowError(code, msg string) error {
	if err := cString(errors.PhaseEncode, code); err != nil {
		return err
	}
	if err := cString(errors.PhaseEncode, msg); err != nil {
		return err
	}
	return e.Check(e.abi.ThrowError(e.ptr, code, msg))
}

// IsExceptionPending reports whether a host exception is waiting.
func (e Env) IsExceptionPending() (bool, error) {
	var b bool
	st := e.abi.IsExceptionPending(e.ptr, &b)
	return either(e, st, b)
}

// GetAndClearLastException takes the pending exception, if any.
func (e Env) GetAndClearLastException() (napi.ValuePtr, error) {
	var v napi.ValuePtr
	st := e.abi.GetAndClearLastException(e.ptr, &v)
	return either(e, st, v)
}

// cString rejects strings that cannot cross the boundary NUL-terminated.
func cString(phase errors.Phase, s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return errors.InvalidString(phase, nil, s)
	}
	return nil
}
