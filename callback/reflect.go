package callback

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/transcoder"
)

var (
	envType      = reflect.TypeOf(engine.Env{})
	valuePtrType = reflect.TypeOf(napi.ValuePtr(0))
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
)

// Option configures Reflect.
type Option func(*options)

type options struct {
	permissive bool
}

// WithPermissiveArity accepts calls with more arguments than the function
// has parameters. Extra arguments are ignored.
func WithPermissiveArity() Option {
	return func(o *options) { o.permissive = true }
}

// Reflect wraps a plain Go function. Arguments are decoded positionally
// into the parameter types.
//
// The function may take engine.Env as its first parameter, optionally
// followed by a napi.ValuePtr that receives the call's this value. A
// variadic final parameter collects the remaining arguments. Results may be
// empty, a single value, an error, or a value followed by an error.
//
// Calls must supply exactly as many arguments as there are parameters
// unless WithPermissiveArity is given.
func Reflect(fn any, opts ...Option) (*Function, error) {
	if f, ok := fn.(*Function); ok {
		if f == nil {
			return nil, errors.InvalidInput(errors.PhaseRegister, "nil *Function")
		}
		return f, nil
	}

	handler := reflect.ValueOf(fn)
	if handler.Kind() != reflect.Func || handler.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("expected a function, got %T", fn))
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	handlerType := handler.Type()
	numIn := handlerType.NumIn()
	hasEnv := numIn > 0 && handlerType.In(0) == envType
	hasThis := hasEnv && numIn > 1 && handlerType.In(1) == valuePtrType

	goParamStart := 0
	if hasEnv {
		goParamStart++
	}
	if hasThis {
		goParamStart++
	}

	argTypes := make([]reflect.Type, numIn-goParamStart)
	for i := range argTypes {
		argTypes[i] = handlerType.In(goParamStart + i)
	}
	variadic := handlerType.IsVariadic()

	numOut := handlerType.NumOut()
	hasErr := numOut > 0 && handlerType.Out(numOut-1) == errorType
	numValues := numOut
	if hasErr {
		numValues--
	}
	if numValues > 1 {
		return nil, errors.InvalidInput(errors.PhaseRegister,
			fmt.Sprintf("%s: at most one result besides error is supported", handlerType))
	}

	fixed := len(argTypes)
	arity := transcoder.Arity{N: fixed, Permissive: o.permissive}
	if variadic {
		fixed--
		arity = transcoder.Arity{N: fixed, Permissive: true}
	}

	f := &Function{arity: arity}
	for i, t := range argTypes {
		f.params = append(f.params, Param{Name: fmt.Sprintf("arg%d", i), Type: t})
	}
	if numValues == 1 {
		f.result = handlerType.Out(0)
	}

	argsPool := sync.Pool{
		New: func() any {
			s := make([]reflect.Value, numIn)
			return &s
		},
	}

	f.invoke = func(env engine.Env, this napi.ValuePtr, argv []napi.ValuePtr) (any, error) {
		if err := arity.Check(len(argv)); err != nil {
			return nil, err
		}

		inPtr := argsPool.Get().(*[]reflect.Value)
		in := *inPtr
		defer func() {
			clear(in)
			argsPool.Put(inPtr)
		}()

		if hasEnv {
			in[0] = reflect.ValueOf(env)
		}
		if hasThis {
			in[1] = reflect.ValueOf(this)
		}

		for i := 0; i < fixed; i++ {
			arg := reflect.New(argTypes[i]).Elem()
			if err := transcoder.DecodeValue(env, argv[i], arg, transcoder.ArgPath(i)); err != nil {
				return nil, err
			}
			in[goParamStart+i] = arg
		}

		var out []reflect.Value
		if variadic {
			rest := argv[fixed:]
			slice := reflect.MakeSlice(argTypes[fixed], len(rest), len(rest))
			for j, v := range rest {
				if err := transcoder.DecodeValue(env, v, slice.Index(j), transcoder.ArgPath(fixed+j)); err != nil {
					return nil, err
				}
			}
			in[goParamStart+fixed] = slice
			out = handler.CallSlice(in)
		} else {
			out = handler.Call(in)
		}

		if hasErr {
			if errVal := out[numOut-1]; !errVal.IsNil() {
				return nil, errVal.Interface().(error)
			}
		}
		if numValues == 1 {
			return out[0].Interface(), nil
		}
		return nil, nil
	}
	return f, nil
}

// MustReflect is like Reflect but panics on error.
func MustReflect(fn any, opts ...Option) *Function {
	f, err := Reflect(fn, opts...)
	if err != nil {
		panic(err)
	}
	return f
}
