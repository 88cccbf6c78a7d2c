package simhost

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/wippyai/napi-go"
)

// value is one slot of a context's value arena.
type value struct {
	obj  *object
	str  string
	num  float64
	kind napi.ValueType
	b    bool
}

// object backs objects, arrays, errors and functions.
type object struct {
	props   map[string]napi.ValuePtr
	elems   map[uint32]napi.ValuePtr
	fn      *function
	keys    []string
	length  uint32
	isArray bool
	isError bool
}

type function struct {
	cb   napi.Callback
	name string
	data uintptr
}

func newObject() *object {
	return &object{props: make(map[string]napi.ValuePtr)}
}

func newArray(length uint32) *object {
	return &object{
		props:   make(map[string]napi.ValuePtr),
		elems:   make(map[uint32]napi.ValuePtr),
		length:  length,
		isArray: true,
	}
}

func (o *object) set(name string, v napi.ValuePtr) {
	if _, ok := o.props[name]; !ok {
		o.keys = append(o.keys, name)
	}
	o.props[name] = v
}

func (o *object) setIndex(i uint32, v napi.ValuePtr) {
	if !o.isArray {
		o.set(strconv.FormatUint(uint64(i), 10), v)
		return
	}
	o.elems[i] = v
	if i >= o.length {
		o.length = i + 1
	}
}

// index returns the element at i and whether it exists.
func (o *object) index(i uint32) (napi.ValuePtr, bool) {
	if !o.isArray {
		v, ok := o.props[strconv.FormatUint(uint64(i), 10)]
		return v, ok
	}
	v, ok := o.elems[i]
	return v, ok
}

// names lists enumerable own keys: indices in ascending order, then named
// keys in insertion order.
func (o *object) names() []string {
	out := make([]string, 0, len(o.elems)+len(o.keys))
	if o.isArray {
		idx := make([]uint32, 0, len(o.elems))
		for i := range o.elems {
			idx = append(idx, i)
		}
		sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })
		for _, i := range idx {
			out = append(out, strconv.FormatUint(uint64(i), 10))
		}
	}
	return append(out, o.keys...)
}

type frame struct {
	args []napi.ValuePtr
	this napi.ValuePtr
	data uintptr
}

// env is the state of one execution context.
type env struct {
	frames    map[napi.CallbackInfoPtr]*frame
	values    []value
	lastErr   napi.ExtendedErrorInfo
	max       int
	nextFrame napi.CallbackInfoPtr
	undefined napi.ValuePtr
	null      napi.ValuePtr
	trueV     napi.ValuePtr
	falseV    napi.ValuePtr
	global    napi.ValuePtr
	exception napi.ValuePtr
	pending   bool
}

func newEnv(maxValues int) *env {
	e := &env{
		frames: make(map[napi.CallbackInfoPtr]*frame),
	}
	e.undefined = e.mustAlloc(value{kind: napi.TypeUndefined})
	e.null = e.mustAlloc(value{kind: napi.TypeNull})
	e.trueV = e.mustAlloc(value{kind: napi.TypeBoolean, b: true})
	e.falseV = e.mustAlloc(value{kind: napi.TypeBoolean})
	e.global = e.mustAlloc(value{kind: napi.TypeObject, obj: newObject()})
	e.max = maxValues
	return e
}

func (e *env) mustAlloc(v value) napi.ValuePtr {
	e.values = append(e.values, v)
	return napi.ValuePtr(len(e.values))
}

// alloc stores v and returns its handle. Handles are 1-based so that the
// zero handle stays invalid.
func (e *env) alloc(v value) (napi.ValuePtr, error) {
	if e.max > 0 && len(e.values) >= e.max {
		return 0, fmt.Errorf("value limit %d reached", e.max)
	}
	return e.mustAlloc(v), nil
}

func (e *env) get(ptr napi.ValuePtr) (*value, bool) {
	if ptr == 0 || int(ptr) > len(e.values) {
		return nil, false
	}
	return &e.values[ptr-1], true
}

func (e *env) boolean(b bool) napi.ValuePtr {
	if b {
		return e.trueV
	}
	return e.falseV
}

func (e *env) ok() napi.Status {
	e.lastErr = napi.ExtendedErrorInfo{}
	return napi.StatusOK
}

func (e *env) fail(st napi.Status) napi.Status {
	return e.failWith(st, statusMessages[st], 0)
}

func (e *env) failWith(st napi.Status, msg string, engineCode uint32) napi.Status {
	e.lastErr = napi.ExtendedErrorInfo{
		Message:         msg,
		EngineErrorCode: engineCode,
		Status:          st,
	}
	return st
}

// takeException clears and returns the pending exception, if any.
func (e *env) takeException() *Exception {
	if !e.pending {
		return nil
	}
	ptr := e.exception
	e.pending = false
	e.exception = 0

	exc := &Exception{Value: e.toGo(ptr, 0)}
	if v, ok := e.get(ptr); ok && v.obj != nil {
		if m, ok := e.get(v.obj.props["message"]); ok && m.kind == napi.TypeString {
			exc.Message = m.str
		}
		if c, ok := e.get(v.obj.props["code"]); ok && c.kind == napi.TypeString {
			exc.Code = c.str
		}
	} else if ok && v.kind == napi.TypeString {
		exc.Message = v.str
	}
	return exc
}
