package transcoder

import (
	"reflect"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/errors"
)

// MaxSafeInteger is the largest integer magnitude a host number represents
// exactly. Integers beyond it lose precision on encode.
const MaxSafeInteger = 1<<53 - 1

// MaxDepth bounds nesting when walking Go or host values.
const MaxDepth = 128

// IntoValue is implemented by types that produce their own host value.
type IntoValue interface {
	IntoValue(env engine.Env) (napi.ValuePtr, error)
}

// FromValue is implemented by types that decode themselves from a single
// host value. The receiver must be a pointer.
type FromValue interface {
	FromValue(env engine.Env, value napi.ValuePtr) error
}

// FromValues is implemented by argument lists. The receiver must be a
// pointer; this is the call's receiver and args the supplied arguments.
type FromValues interface {
	FromValues(env engine.Env, this napi.ValuePtr, args []napi.ValuePtr) error
}

// Arity is the argument count an argument list accepts. A permissive list
// accepts N or more arguments, a strict one exactly N.
type Arity struct {
	N          int
	Permissive bool
}

// Check returns an invalid_arg error when got does not satisfy a.
func (a Arity) Check(got int) error {
	if got < a.N || (!a.Permissive && got > a.N) {
		return errors.Arity(errors.PhaseDecode, a.N, got, a.Permissive)
	}
	return nil
}

// ArityDeclarer is implemented by argument lists that declare their arity
// up front. Lists that do not declare one validate counts themselves.
type ArityDeclarer interface {
	Arity() Arity
}

var (
	valuePtrType  = reflect.TypeOf(napi.ValuePtr(0))
	intoValueType = reflect.TypeOf((*IntoValue)(nil)).Elem()
	fromValueType = reflect.TypeOf((*FromValue)(nil)).Elem()
)
