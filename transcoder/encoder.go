package transcoder

import (
	"reflect"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/errors"
)

// Encoder converts Go values into host values.
//
//	bool                 boolean
//	integers             number, exact within ±MaxSafeInteger, rounded beyond
//	float32, float64     number
//	string               string (valid UTF-8 required)
//	slice, array         array in element order (nil slice is null)
//	map[string]T         object with keys in sorted order
//	struct               object with fields in declaration order
//	pointer              null when nil, otherwise the pointee
//	napi.ValuePtr        passed through
//	IntoValue            whatever the implementation returns
//	nil                  undefined at top level, null inside containers
//
// Encoding is fail-fast: the first failing element aborts the whole value.
type Encoder struct {
	compiler       *Compiler
	strictIntegers bool
}

func NewEncoder() *Encoder {
	return &Encoder{compiler: NewCompiler()}
}

func NewEncoderWithCompiler(c *Compiler) *Encoder {
	return &Encoder{compiler: c}
}

// WithStrictIntegers returns a copy of e that rejects integers beyond
// ±MaxSafeInteger with invalid_arg instead of rounding them.
func (e *Encoder) WithStrictIntegers() *Encoder {
	c := *e
	c.strictIntegers = true
	return &c
}

// Encode converts v into one host value.
func (e *Encoder) Encode(env engine.Env, v any) (napi.ValuePtr, error) {
	if v == nil {
		return env.Undefined()
	}
	return e.encode(env, reflect.ValueOf(v), nil, 0)
}

func (e *Encoder) encode(env engine.Env, rv reflect.Value, path []string, depth int) (napi.ValuePtr, error) {
	if depth > MaxDepth {
		return 0, errors.New(errors.PhaseEncode, errors.KindInvalidArg).
			Path(path...).
			Detail("maximum nesting depth %d exceeded", MaxDepth).
			Build()
	}
	if !rv.IsValid() {
		return env.Null()
	}

	t := rv.Type()
	if t == valuePtrType {
		p := napi.ValuePtr(rv.Uint())
		if p.IsNull() {
			return env.Undefined()
		}
		return p, nil
	}
	if t.Implements(intoValueType) && rv.CanInterface() {
		if t.Kind() == reflect.Ptr && rv.IsNil() {
			return env.Null()
		}
		return rv.Interface().(IntoValue).IntoValue(env)
	}
	if rv.CanAddr() && rv.CanInterface() && reflect.PointerTo(t).Implements(intoValueType) {
		return rv.Addr().Interface().(IntoValue).IntoValue(env)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return env.Boolean(rv.Bool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if e.strictIntegers && (n > MaxSafeInteger || n < -MaxSafeInteger) {
			return 0, errors.Overflow(errors.PhaseEncode, path, n, "number")
		}
		return env.Number(float64(n))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n := rv.Uint()
		if e.strictIntegers && n > MaxSafeInteger {
			return 0, errors.Overflow(errors.PhaseEncode, path, n, "number")
		}
		return env.Number(float64(n))

	case reflect.Float32, reflect.Float64:
		return env.Number(rv.Float())

	case reflect.String:
		s := rv.String()
		if !utf8.ValidString(s) {
			return 0, errors.New(errors.PhaseEncode, errors.KindStringExpected).
				Path(path...).
				GoType(t.String()).
				Detail("invalid UTF-8").
				Build()
		}
		return env.String(s)

	case reflect.Slice:
		if rv.IsNil() {
			return env.Null()
		}
		return e.encodeList(env, rv, path, depth)

	case reflect.Array:
		return e.encodeList(env, rv, path, depth)

	case reflect.Map:
		if rv.IsNil() {
			return env.Null()
		}
		return e.encodeMap(env, rv, path, depth)

	case reflect.Struct:
		return e.encodeStruct(env, rv, path, depth)

	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return env.Null()
		}
		return e.encode(env, rv.Elem(), path, depth+1)
	}

	return 0, errors.Unsupported(errors.PhaseEncode, path, t.String())
}

func (e *Encoder) encodeList(env engine.Env, rv reflect.Value, path []string, depth int) (napi.ValuePtr, error) {
	n := rv.Len()
	arr, err := env.ArrayWithLength(n)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		elemPath := append(append([]string{}, path...), "["+strconv.Itoa(i)+"]")
		el, err := e.encode(env, rv.Index(i), elemPath, depth+1)
		if err != nil {
			return 0, err
		}
		if err := env.SetElement(arr, uint32(i), el); err != nil {
			return 0, err
		}
	}
	return arr, nil
}

func (e *Encoder) encodeMap(env engine.Env, rv reflect.Value, path []string, depth int) (napi.ValuePtr, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return 0, errors.New(errors.PhaseEncode, errors.KindNameExpected).
			Path(path...).
			GoType(rv.Type().String()).
			Detail("map keys must be strings").
			Build()
	}

	keys := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	sort.Strings(keys)

	obj, err := env.Object()
	if err != nil {
		return 0, err
	}
	keyType := rv.Type().Key()
	for _, k := range keys {
		fieldPath := append(append([]string{}, path...), k)
		val, err := e.encode(env, rv.MapIndex(reflect.ValueOf(k).Convert(keyType)), fieldPath, depth+1)
		if err != nil {
			return 0, err
		}
		if err := env.SetNamedProperty(obj, k, val); err != nil {
			return 0, err
		}
	}
	return obj, nil
}

func (e *Encoder) encodeStruct(env engine.Env, rv reflect.Value, path []string, depth int) (napi.ValuePtr, error) {
	plan, err := e.compiler.Compile(rv.Type())
	if err != nil {
		return 0, err
	}

	obj, err := env.Object()
	if err != nil {
		return 0, err
	}
	for _, f := range plan.Fields {
		fv, ok := fieldByIndex(rv, f.Index, false)
		if !ok || (f.OmitEmpty && fv.IsZero()) {
			continue
		}
		fieldPath := append(append([]string{}, path...), f.Name)
		val, err := e.encode(env, fv, fieldPath, depth+1)
		if err != nil {
			return 0, err
		}
		if err := env.SetNamedProperty(obj, f.Name, val); err != nil {
			return 0, err
		}
	}
	return obj, nil
}
