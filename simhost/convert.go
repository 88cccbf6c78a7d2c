package simhost

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/wippyai/napi-go"
)

// Undefined is the Go view of the host's undefined value.
var Undefined = undefinedValue{}

type undefinedValue struct{}

func (undefinedValue) String() string { return "undefined" }

// Object is the Go view of a host object: fields with their enumeration
// order preserved.
type Object struct {
	Fields map[string]any
	Keys   []string
	Error  bool
}

// Function is the Go view of a host function.
type Function struct {
	Name string
}

// maxDepth bounds Go conversion of cyclic host graphs.
const maxDepth = 64

// Value builds a host value from a Go value without going through the ABI.
// It accepts Undefined, nil (null), bool, numbers, string, []any,
// map[string]any (keys sorted), *Object and napi.ValuePtr. It panics on
// anything else; it is intended for test setup.
func (h *Host) Value(ptr napi.EnvPtr, v any) napi.ValuePtr {
	e := h.lookup(ptr)
	if e == nil {
		panic(fmt.Sprintf("simhost: unknown context %s", ptr))
	}
	out, err := e.fromGo(v)
	if err != nil {
		panic("simhost: " + err.Error())
	}
	return out
}

// Go returns the Go view of a host value. Objects become *Object, arrays
// []any, numbers float64, undefined Undefined and null nil.
func (h *Host) Go(ptr napi.EnvPtr, v napi.ValuePtr) any {
	e := h.lookup(ptr)
	if e == nil {
		return nil
	}
	return e.toGo(v, 0)
}

// Values converts each Go value with Value.
func (h *Host) Values(ptr napi.EnvPtr, vs ...any) []napi.ValuePtr {
	out := make([]napi.ValuePtr, len(vs))
	for i, v := range vs {
		out[i] = h.Value(ptr, v)
	}
	return out
}

// Keys returns the enumerable keys of an object value in host order.
func (h *Host) Keys(ptr napi.EnvPtr, v napi.ValuePtr) []string {
	e := h.lookup(ptr)
	if e == nil {
		return nil
	}
	val, ok := e.get(v)
	if !ok || val.obj == nil {
		return nil
	}
	return val.obj.names()
}

// Global returns the context's global object.
func (h *Host) Global(ptr napi.EnvPtr) napi.ValuePtr {
	e := h.lookup(ptr)
	if e == nil {
		return 0
	}
	return e.global
}

// Pending reports whether an exception is pending in the context.
func (h *Host) Pending(ptr napi.EnvPtr) bool {
	e := h.lookup(ptr)
	return e != nil && e.pending
}

func (e *env) fromGo(v any) (napi.ValuePtr, error) {
	switch x := v.(type) {
	case undefinedValue:
		return e.undefined, nil
	case nil:
		return e.null, nil
	case napi.ValuePtr:
		return x, nil
	case bool:
		return e.boolean(x), nil
	case string:
		return e.alloc(value{kind: napi.TypeString, str: x})
	case []any:
		arr := newArray(0)
		for i, el := range x {
			p, err := e.fromGo(el)
			if err != nil {
				return 0, err
			}
			arr.setIndex(uint32(i), p)
		}
		return e.alloc(value{kind: napi.TypeObject, obj: arr})
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return e.fromGo(&Object{Keys: keys, Fields: x})
	case *Object:
		obj := newObject()
		obj.isError = x.Error
		for _, k := range x.Keys {
			p, err := e.fromGo(x.Fields[k])
			if err != nil {
				return 0, err
			}
			obj.set(k, p)
		}
		return e.alloc(value{kind: napi.TypeObject, obj: obj})
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.alloc(value{kind: napi.TypeNumber, num: float64(rv.Int())})
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.alloc(value{kind: napi.TypeNumber, num: float64(rv.Uint())})
	case reflect.Float32, reflect.Float64:
		return e.alloc(value{kind: napi.TypeNumber, num: rv.Float()})
	}
	return 0, fmt.Errorf("cannot build host value from %T", v)
}

func (e *env) toGo(ptr napi.ValuePtr, depth int) any {
	val, ok := e.get(ptr)
	if !ok || depth > maxDepth {
		return nil
	}

	switch val.kind {
	case napi.TypeUndefined:
		return Undefined
	case napi.TypeNull:
		return nil
	case napi.TypeBoolean:
		return val.b
	case napi.TypeNumber:
		return val.num
	case napi.TypeString:
		return val.str
	case napi.TypeFunction:
		return Function{Name: val.obj.fn.name}
	}

	o := val.obj
	if o == nil {
		return nil
	}
	if o.isArray {
		out := make([]any, o.length)
		for i := range out {
			p, ok := o.elems[uint32(i)]
			if !ok {
				out[i] = Undefined
				continue
			}
			out[i] = e.toGo(p, depth+1)
		}
		return out
	}

	obj := &Object{
		Keys:   append([]string(nil), o.keys...),
		Fields: make(map[string]any, len(o.keys)),
		Error:  o.isError,
	}
	for _, k := range o.keys {
		obj.Fields[k] = e.toGo(o.props[k], depth+1)
	}
	return obj
}
