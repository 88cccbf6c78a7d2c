package transcoder

import (
	"reflect"
	"strconv"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/errors"
)

var (
	defaultCompiler = NewCompiler()
	defaultEncoder  = NewEncoderWithCompiler(defaultCompiler)
	defaultDecoder  = NewDecoderWithCompiler(defaultCompiler)
)

// Encode converts v with the shared encoder.
func Encode(env engine.Env, v any) (napi.ValuePtr, error) {
	return defaultEncoder.Encode(env, v)
}

// Decode converts value into target with the shared decoder.
func Decode(env engine.Env, value napi.ValuePtr, target any) error {
	return defaultDecoder.Decode(env, value, target)
}

// DecodeValue decodes value into rv with the shared decoder. path prefixes
// the location reported in errors.
func DecodeValue(env engine.Env, value napi.ValuePtr, rv reflect.Value, path []string) error {
	return defaultDecoder.DecodeValue(env, value, rv, path)
}

// ArgPath is the error path of the i-th call argument.
func ArgPath(i int) []string {
	return []string{"args[" + strconv.Itoa(i) + "]"}
}

// Arg decodes the i-th argument as T. An index past the supplied arguments
// is an invalid_arg error; nothing is read from the host in that case.
func Arg[T any](env engine.Env, args []napi.ValuePtr, i int) (T, error) {
	var out T
	if i < 0 || i >= len(args) {
		return out, errors.OutOfBounds(errors.PhaseDecode, ArgPath(i), i, len(args))
	}
	if err := defaultDecoder.DecodeValue(env, args[i], reflect.ValueOf(&out).Elem(), ArgPath(i)); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeArgs fills target from a call's receiver and arguments, checking the
// declared arity first when target declares one.
func DecodeArgs(env engine.Env, this napi.ValuePtr, args []napi.ValuePtr, target FromValues) error {
	if d, ok := target.(ArityDeclarer); ok {
		if err := d.Arity().Check(len(args)); err != nil {
			return err
		}
	}
	return target.FromValues(env, this, args)
}

// NoArgs accepts any number of arguments and reads none of them.
type NoArgs struct{}

func (NoArgs) Arity() Arity { return Arity{N: 0, Permissive: true} }

func (*NoArgs) FromValues(engine.Env, napi.ValuePtr, []napi.ValuePtr) error { return nil }

// Args1 is a strict single-argument list.
type Args1[T1 any] struct {
	A T1
}

func (Args1[T1]) Arity() Arity { return Arity{N: 1} }

func (a *Args1[T1]) FromValues(env engine.Env, _ napi.ValuePtr, args []napi.ValuePtr) error {
	var err error
	a.A, err = Arg[T1](env, args, 0)
	return err
}

// Args2 is a strict two-argument list.
type Args2[T1, T2 any] struct {
	A T1
	B T2
}

func (Args2[T1, T2]) Arity() Arity { return Arity{N: 2} }

func (a *Args2[T1, T2]) FromValues(env engine.Env, _ napi.ValuePtr, args []napi.ValuePtr) error {
	var err error
	if a.A, err = Arg[T1](env, args, 0); err != nil {
		return err
	}
	a.B, err = Arg[T2](env, args, 1)
	return err
}

// Args3 is a strict three-argument list.
type Args3[T1, T2, T3 any] struct {
	A T1
	B T2
	C T3
}

func (Args3[T1, T2, T3]) Arity() Arity { return Arity{N: 3} }

func (a *Args3[T1, T2, T3]) FromValues(env engine.Env, _ napi.ValuePtr, args []napi.ValuePtr) error {
	var err error
	if a.A, err = Arg[T1](env, args, 0); err != nil {
		return err
	}
	if a.B, err = Arg[T2](env, args, 1); err != nil {
		return err
	}
	a.C, err = Arg[T3](env, args, 2)
	return err
}
