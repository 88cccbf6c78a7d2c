package callback

import (
	"reflect"
	"strings"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/transcoder"
)

type invokeFunc func(env engine.Env, this napi.ValuePtr, args []napi.ValuePtr) (any, error)

// Param describes one positional parameter of a Function.
type Param struct {
	Name string
	Type reflect.Type
}

// Function is a Go function the host can call. A nil result from the
// underlying function is returned to the host as undefined.
type Function struct {
	invoke invokeFunc
	params []Param
	result reflect.Type
	arity  transcoder.Arity
}

// argList constrains A to argument lists decoded through a pointer.
type argList[A any] interface {
	*A
	transcoder.FromValues
}

// Func builds a Function from a typed argument list and result.
func Func[A any, PA argList[A], R any](fn func(env engine.Env, this napi.ValuePtr, args A) (R, error)) *Function {
	f := typed[A, PA]()
	f.result = reflect.TypeOf((*R)(nil)).Elem()
	f.invoke = func(env engine.Env, this napi.ValuePtr, argv []napi.ValuePtr) (any, error) {
		var args A
		if err := transcoder.DecodeArgs(env, this, argv, PA(&args)); err != nil {
			return nil, err
		}
		return fn(env, this, args)
	}
	return f
}

// Proc builds a Function with no result. The host receives undefined.
func Proc[A any, PA argList[A]](fn func(env engine.Env, this napi.ValuePtr, args A) error) *Function {
	f := typed[A, PA]()
	f.invoke = func(env engine.Env, this napi.ValuePtr, argv []napi.ValuePtr) (any, error) {
		var args A
		if err := transcoder.DecodeArgs(env, this, argv, PA(&args)); err != nil {
			return nil, err
		}
		return nil, fn(env, this, args)
	}
	return f
}

func typed[A any, PA argList[A]]() *Function {
	f := &Function{arity: transcoder.Arity{Permissive: true}}
	if d, ok := any(PA(new(A))).(transcoder.ArityDeclarer); ok {
		f.arity = d.Arity()
	}
	t := reflect.TypeOf((*A)(nil)).Elem()
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			if sf := t.Field(i); sf.IsExported() {
				f.params = append(f.params, Param{Name: transcoder.LowerCamel(sf.Name), Type: sf.Type})
			}
		}
	}
	return f
}

// Arity reports the argument count the function accepts. Argument lists
// that declare no arity are reported as permissive with N zero.
func (f *Function) Arity() transcoder.Arity { return f.arity }

// Params returns the positional parameters, when they are known.
func (f *Function) Params() []Param { return f.params }

// Result returns the Go result type, or nil when there is none.
func (f *Function) Result() reflect.Type { return f.result }

// Call runs the function. A panic is recovered and returned as a
// generic_failure error.
func (f *Function) Call(env engine.Env, this napi.ValuePtr, args []napi.ValuePtr) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseDispatch, errors.KindGenericFailure).
				Detail("panic: %v", r).
				Build()
		}
	}()
	return f.invoke(env, this, args)
}

// Signature renders the function as name(param: type, ...) -> type using
// WIT type names where the Go type has one.
func (f *Function) Signature(name string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range f.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(typeName(p.Type))
	}
	b.WriteByte(')')
	if f.result != nil {
		b.WriteString(" -> ")
		b.WriteString(typeName(f.result))
	}
	return b.String()
}

func typeName(t reflect.Type) string {
	if t == valuePtrType {
		return "value"
	}
	if w, err := transcoder.Describe(t); err == nil {
		return transcoder.TypeString(w)
	}
	return t.String()
}
