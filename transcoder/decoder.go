package transcoder

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/errors"
)

// Decoder converts host values into Go values. It is the inverse of Encoder
// and reports mismatches with the host's "expected" kinds.
//
// Integer targets reject non-integral numbers and numbers outside the target
// range. Pointers, slices, maps and interfaces decode null and undefined as
// their zero value. An empty interface receives the dynamic form: nil, bool,
// float64, string, []any or map[string]any.
type Decoder struct {
	compiler *Compiler
}

func NewDecoder() *Decoder {
	return &Decoder{compiler: NewCompiler()}
}

func NewDecoderWithCompiler(c *Compiler) *Decoder {
	return &Decoder{compiler: c}
}

// Decode stores the Go form of value into the value pointed to by target.
func (d *Decoder) Decode(env engine.Env, value napi.ValuePtr, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.NilPointer(errors.PhaseDecode, nil, fmt.Sprintf("%T", target))
	}
	return d.decode(env, value, rv.Elem(), nil, 0)
}

// DecodeValue decodes value into a settable reflect.Value.
func (d *Decoder) DecodeValue(env engine.Env, value napi.ValuePtr, rv reflect.Value, path []string) error {
	return d.decode(env, value, rv, path, 0)
}

func (d *Decoder) decode(env engine.Env, value napi.ValuePtr, rv reflect.Value, path []string, depth int) error {
	if depth > MaxDepth {
		return errors.New(errors.PhaseDecode, errors.KindInvalidArg).
			Path(path...).
			Detail("maximum nesting depth %d exceeded", MaxDepth).
			Build()
	}

	t := rv.Type()
	if t == valuePtrType {
		rv.SetUint(uint64(value))
		return nil
	}
	if rv.CanAddr() && reflect.PointerTo(t).Implements(fromValueType) {
		return rv.Addr().Interface().(FromValue).FromValue(env, value)
	}

	hostType, err := env.TypeOf(value)
	if err != nil {
		return err
	}

	switch rv.Kind() {
	case reflect.Bool:
		if hostType != napi.TypeBoolean {
			return mismatch(errors.KindBooleanExpected, path, t, hostType)
		}
		b, err := env.Bool(value)
		if err != nil {
			return err
		}
		rv.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, err := d.number(env, value, hostType, t, path)
		if err != nil {
			return err
		}
		limit := math.Ldexp(1, t.Bits()-1)
		if f != math.Trunc(f) || f < -limit || f >= limit {
			return errors.Overflow(errors.PhaseDecode, path, f, t.String())
		}
		rv.SetInt(int64(f))
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f, err := d.number(env, value, hostType, t, path)
		if err != nil {
			return err
		}
		if f != math.Trunc(f) || f < 0 || f >= math.Ldexp(1, t.Bits()) {
			return errors.Overflow(errors.PhaseDecode, path, f, t.String())
		}
		rv.SetUint(uint64(f))
		return nil

	case reflect.Float32, reflect.Float64:
		f, err := d.number(env, value, hostType, t, path)
		if err != nil {
			return err
		}
		rv.SetFloat(f)
		return nil

	case reflect.String:
		if hostType != napi.TypeString {
			return mismatch(errors.KindStringExpected, path, t, hostType)
		}
		s, err := env.StringValue(value)
		if err != nil {
			return err
		}
		rv.SetString(s)
		return nil

	case reflect.Slice:
		if isNullish(hostType) {
			rv.Set(reflect.Zero(t))
			return nil
		}
		n, err := d.arrayLength(env, value, t, hostType, path)
		if err != nil {
			return err
		}
		s := reflect.MakeSlice(t, int(n), int(n))
		if err := d.decodeElems(env, value, s, path, depth); err != nil {
			return err
		}
		rv.Set(s)
		return nil

	case reflect.Array:
		n, err := d.arrayLength(env, value, t, hostType, path)
		if err != nil {
			return err
		}
		if int(n) != rv.Len() {
			return errors.New(errors.PhaseDecode, errors.KindInvalidArg).
				Path(path...).
				GoType(t.String()).
				Detail("array length %d, want %d", n, rv.Len()).
				Build()
		}
		return d.decodeElems(env, value, rv, path, depth)

	case reflect.Map:
		if isNullish(hostType) {
			rv.Set(reflect.Zero(t))
			return nil
		}
		return d.decodeMap(env, value, rv, hostType, path, depth)

	case reflect.Struct:
		return d.decodeStruct(env, value, rv, hostType, path, depth)

	case reflect.Ptr:
		if isNullish(hostType) {
			rv.Set(reflect.Zero(t))
			return nil
		}
		p := reflect.New(t.Elem())
		if err := d.decode(env, value, p.Elem(), path, depth+1); err != nil {
			return err
		}
		rv.Set(p)
		return nil

	case reflect.Interface:
		if t.NumMethod() != 0 {
			break
		}
		dyn, err := d.dynamic(env, value, hostType, path, depth)
		if err != nil {
			return err
		}
		if dyn == nil {
			rv.Set(reflect.Zero(t))
		} else {
			rv.Set(reflect.ValueOf(dyn))
		}
		return nil
	}

	return errors.Unsupported(errors.PhaseDecode, path, t.String())
}

func (d *Decoder) number(env engine.Env, value napi.ValuePtr, hostType napi.ValueType, t reflect.Type, path []string) (float64, error) {
	if hostType != napi.TypeNumber {
		return 0, mismatch(errors.KindNumberExpected, path, t, hostType)
	}
	return env.Float64(value)
}

func (d *Decoder) arrayLength(env engine.Env, value napi.ValuePtr, t reflect.Type, hostType napi.ValueType, path []string) (uint32, error) {
	isArray, err := env.IsArray(value)
	if err != nil {
		return 0, err
	}
	if !isArray {
		return 0, mismatch(errors.KindArrayExpected, path, t, hostType)
	}
	return env.ArrayLength(value)
}

func (d *Decoder) decodeElems(env engine.Env, value napi.ValuePtr, rv reflect.Value, path []string, depth int) error {
	for i := 0; i < rv.Len(); i++ {
		el, err := env.GetElement(value, uint32(i))
		if err != nil {
			return err
		}
		elemPath := append(append([]string{}, path...), "["+strconv.Itoa(i)+"]")
		if err := d.decode(env, el, rv.Index(i), elemPath, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) decodeMap(env engine.Env, value napi.ValuePtr, rv reflect.Value, hostType napi.ValueType, path []string, depth int) error {
	t := rv.Type()
	if t.Key().Kind() != reflect.String {
		return errors.New(errors.PhaseDecode, errors.KindNameExpected).
			Path(path...).
			GoType(t.String()).
			Detail("map keys must be strings").
			Build()
	}
	if hostType != napi.TypeObject {
		return mismatch(errors.KindObjectExpected, path, t, hostType)
	}
	if isArray, err := env.IsArray(value); err != nil {
		return err
	} else if isArray {
		return mismatch(errors.KindObjectExpected, path, t, hostType)
	}

	names, err := env.PropertyNames(value)
	if err != nil {
		return err
	}
	m := reflect.MakeMapWithSize(t, len(names))
	for _, name := range names {
		prop, err := env.GetNamedProperty(value, name)
		if err != nil {
			return err
		}
		elem := reflect.New(t.Elem()).Elem()
		fieldPath := append(append([]string{}, path...), name)
		if err := d.decode(env, prop, elem, fieldPath, depth+1); err != nil {
			return err
		}
		m.SetMapIndex(reflect.ValueOf(name).Convert(t.Key()), elem)
	}
	rv.Set(m)
	return nil
}

func (d *Decoder) decodeStruct(env engine.Env, value napi.ValuePtr, rv reflect.Value, hostType napi.ValueType, path []string, depth int) error {
	if hostType != napi.TypeObject && hostType != napi.TypeFunction {
		return mismatch(errors.KindObjectExpected, path, rv.Type(), hostType)
	}
	plan, err := d.compiler.Compile(rv.Type())
	if err != nil {
		return err
	}

	for _, f := range plan.Fields {
		prop, err := env.GetNamedProperty(value, f.Name)
		if err != nil {
			return err
		}
		fv, _ := fieldByIndex(rv, f.Index, true)
		if !fv.CanSet() {
			continue
		}
		fieldPath := append(append([]string{}, path...), f.Name)
		if err := d.decode(env, prop, fv, fieldPath, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// dynamic returns the JSON-shaped Go form of a host value.
func (d *Decoder) dynamic(env engine.Env, value napi.ValuePtr, hostType napi.ValueType, path []string, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidArg).
			Path(path...).
			Detail("maximum nesting depth %d exceeded", MaxDepth).
			Build()
	}

	switch hostType {
	case napi.TypeUndefined, napi.TypeNull:
		return nil, nil
	case napi.TypeBoolean:
		return env.Bool(value)
	case napi.TypeNumber:
		return env.Float64(value)
	case napi.TypeString:
		return env.StringValue(value)
	case napi.TypeObject:
		isArray, err := env.IsArray(value)
		if err != nil {
			return nil, err
		}
		if isArray {
			n, err := env.ArrayLength(value)
			if err != nil {
				return nil, err
			}
			out := make([]any, n)
			for i := range out {
				el, err := env.GetElement(value, uint32(i))
				if err != nil {
					return nil, err
				}
				elType, err := env.TypeOf(el)
				if err != nil {
					return nil, err
				}
				elemPath := append(append([]string{}, path...), "["+strconv.Itoa(i)+"]")
				if out[i], err = d.dynamic(env, el, elType, elemPath, depth+1); err != nil {
					return nil, err
				}
			}
			return out, nil
		}

		names, err := env.PropertyNames(value)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(names))
		for _, name := range names {
			prop, err := env.GetNamedProperty(value, name)
			if err != nil {
				return nil, err
			}
			propType, err := env.TypeOf(prop)
			if err != nil {
				return nil, err
			}
			fieldPath := append(append([]string{}, path...), name)
			if out[name], err = d.dynamic(env, prop, propType, fieldPath, depth+1); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	return nil, errors.New(errors.PhaseDecode, errors.KindGenericFailure).
		Path(path...).
		HostType(hostType.String()).
		Detail("no dynamic Go form").
		Build()
}

func isNullish(t napi.ValueType) bool {
	return t == napi.TypeUndefined || t == napi.TypeNull
}

func mismatch(kind errors.Kind, path []string, t reflect.Type, hostType napi.ValueType) error {
	return errors.TypeMismatch(errors.PhaseDecode, kind, path, t.String(), hostType.String())
}
