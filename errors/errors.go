package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wippyai/napi-go"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseHost     Phase = "host"     // reported by the host runtime
	PhaseEncode   Phase = "encode"   // Go to host
	PhaseDecode   Phase = "decode"   // host to Go
	PhaseDispatch Phase = "dispatch" // trampoline invocation
	PhaseRegister Phase = "register" // module and function registration
)

// Kind categorizes the error. The set mirrors the host status codes.
type Kind string

const (
	KindInvalidArg       Kind = "invalid_arg"
	KindObjectExpected   Kind = "object_expected"
	KindStringExpected   Kind = "string_expected"
	KindNameExpected     Kind = "name_expected"
	KindFunctionExpected Kind = "function_expected"
	KindNumberExpected   Kind = "number_expected"
	KindBooleanExpected  Kind = "boolean_expected"
	KindArrayExpected    Kind = "array_expected"
	KindGenericFailure   Kind = "generic_failure"
	KindPendingException Kind = "pending_exception"
	KindCancelled        Kind = "cancelled"
)

var statusKinds = map[napi.Status]Kind{
	napi.StatusInvalidArg:       KindInvalidArg,
	napi.StatusObjectExpected:   KindObjectExpected,
	napi.StatusStringExpected:   KindStringExpected,
	napi.StatusNameExpected:     KindNameExpected,
	napi.StatusFunctionExpected: KindFunctionExpected,
	napi.StatusNumberExpected:   KindNumberExpected,
	napi.StatusBooleanExpected:  KindBooleanExpected,
	napi.StatusArrayExpected:    KindArrayExpected,
	napi.StatusGenericFailure:   KindGenericFailure,
	napi.StatusPendingException: KindPendingException,
	napi.StatusCancelled:        KindCancelled,
}

// KindFromStatus translates a raw host status into its Kind.
// Unknown values, and StatusOK passed in error, map to KindGenericFailure.
func KindFromStatus(s napi.Status) Kind {
	if k, ok := statusKinds[s]; ok {
		return k
	}
	return KindGenericFailure
}

// Error is the structured error record used throughout napi-go
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	GoType     string
	HostType   string
	Detail     string
	Path       []string
	EngineCode uint32
	Status     napi.Status
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.HostType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.HostType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", host type ")
			b.WriteString(e.HostType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("host type ")
			b.WriteString(e.HostType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.HostType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.EngineCode != 0 {
		fmt.Fprintf(&b, " (engine code %d)", e.EngineCode)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Message returns the text shown to the host when the error is thrown.
func (e *Error) Message() string {
	if e.Phase == PhaseHost && e.Detail != "" {
		return e.Detail
	}
	return e.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase != "" && t.Phase != e.Phase {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Throwable returns the code and message of the host Error object thrown
// for err. The code is the Kind of err's chain, generic_failure when it has
// none. NUL bytes in the message are escaped.
func Throwable(err error) (code, msg string) {
	code = string(KindGenericFailure)
	if kind, ok := KindOf(err); ok && kind != "" {
		code = string(kind)
	}
	msg = err.Error()
	if e, ok := err.(*Error); ok {
		msg = e.Message()
	}
	return code, strings.ReplaceAll(msg, "\x00", `\0`)
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// HostType sets the host value type name
func (b *Builder) HostType(t string) *Builder {
	b.err.HostType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// FromStatus builds the record for a failed host call from the host's
// extended error info. The info's own status decides the Kind.
func FromStatus(status napi.Status, info *napi.ExtendedErrorInfo) *Error {
	if info == nil {
		return &Error{
			Phase:  PhaseHost,
			Kind:   KindFromStatus(status),
			Status: status,
		}
	}
	reported := info.Status
	if reported == napi.StatusOK {
		reported = status
	}
	return &Error{
		Phase:      PhaseHost,
		Kind:       KindFromStatus(reported),
		Status:     reported,
		EngineCode: info.EngineErrorCode,
		Detail:     info.Message,
	}
}

// LastErrorUnavailable is returned when fetching the last error info itself
// failed. It carries the original call's status.
func LastErrorUnavailable(status napi.Status, fetchStatus napi.Status) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindFromStatus(status),
		Status: status,
		Detail: "last error info unavailable",
		Cause: &Error{
			Phase:  PhaseHost,
			Kind:   KindFromStatus(fetchStatus),
			Status: fetchStatus,
		},
	}
}

// TypeMismatch creates an error for a host value of the wrong type.
// The kind is the "expected" kind matching the Go side.
func TypeMismatch(phase Phase, kind Kind, path []string, goType, hostType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     kind,
		Path:     path,
		GoType:   goType,
		HostType: hostType,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArg,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Arity creates an error for a call with the wrong number of arguments
func Arity(phase Phase, want, got int, permissive bool) *Error {
	detail := fmt.Sprintf("expected %d argument(s), got %d", want, got)
	if permissive {
		detail = fmt.Sprintf("expected at least %d argument(s), got %d", want, got)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArg,
		Detail: detail,
		Value:  got,
	}
}

// TooManyArguments creates an error for a call exceeding the argument buffer
func TooManyArguments(got, capacity int) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindInvalidArg,
		Detail: fmt.Sprintf("%d arguments exceed the supported maximum of %d", got, capacity),
		Value:  got,
	}
}

// InvalidString creates an error for a string that cannot cross the
// boundary as a NUL-terminated sequence
func InvalidString(phase Phase, path []string, s string) *Error {
	preview := s
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArg,
		Path:   path,
		Detail: fmt.Sprintf("string %q contains an embedded NUL", preview),
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArg,
		Path:   path,
		GoType: targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGenericFailure,
		Path:   path,
		GoType: goType,
		Detail: "unsupported type",
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArg,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGenericFailure,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArg,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(module, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindGenericFailure,
		Detail: fmt.Sprintf("register %s#%s", module, name),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
