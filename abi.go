package napi

import "fmt"

// ModuleVersion is the descriptor version understood by the host loader.
const ModuleVersion int32 = 1

// EnvPtr is an opaque handle to one execution context of the host runtime.
// It is valid only for the duration of the callback that received it.
type EnvPtr uintptr

// IsNull reports whether the handle is null (zero).
func (p EnvPtr) IsNull() bool { return p == 0 }

func (p EnvPtr) String() string { return fmt.Sprintf("EnvPtr(0x%x)", uintptr(p)) }

// ValuePtr is an opaque handle to one value in the host's value space.
// The host's collector owns it; it is meaningful only with the EnvPtr
// that produced it.
type ValuePtr uintptr

// IsNull reports whether the handle is null (zero).
func (p ValuePtr) IsNull() bool { return p == 0 }

func (p ValuePtr) String() string { return fmt.Sprintf("ValuePtr(0x%x)", uintptr(p)) }

// CallbackInfoPtr is an opaque handle describing a single host-to-native call.
type CallbackInfoPtr uintptr

// IsNull reports whether the handle is null (zero).
func (p CallbackInfoPtr) IsNull() bool { return p == 0 }

func (p CallbackInfoPtr) String() string { return fmt.Sprintf("CallbackInfoPtr(0x%x)", uintptr(p)) }

// Status is the raw outcome code of a single host operation.
type Status int32

const (
	StatusOK Status = iota
	StatusInvalidArg
	StatusObjectExpected
	StatusStringExpected
	StatusNameExpected
	StatusFunctionExpected
	StatusNumberExpected
	StatusBooleanExpected
	StatusArrayExpected
	StatusGenericFailure
	StatusPendingException
	StatusCancelled
)

var statusNames = [...]string{
	StatusOK:               "ok",
	StatusInvalidArg:       "invalid_arg",
	StatusObjectExpected:   "object_expected",
	StatusStringExpected:   "string_expected",
	StatusNameExpected:     "name_expected",
	StatusFunctionExpected: "function_expected",
	StatusNumberExpected:   "number_expected",
	StatusBooleanExpected:  "boolean_expected",
	StatusArrayExpected:    "array_expected",
	StatusGenericFailure:   "generic_failure",
	StatusPendingException: "pending_exception",
	StatusCancelled:        "cancelled",
}

// Known reports whether s is one of the enumerated status codes.
func (s Status) Known() bool { return s >= 0 && int(s) < len(statusNames) }

func (s Status) String() string {
	if s.Known() {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// ValueType is the host's classification of a value.
type ValueType int32

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeSymbol
	TypeObject
	TypeFunction
	TypeExternal
	TypeBigInt
)

var valueTypeNames = [...]string{
	TypeUndefined: "undefined",
	TypeNull:      "null",
	TypeBoolean:   "boolean",
	TypeNumber:    "number",
	TypeString:    "string",
	TypeSymbol:    "symbol",
	TypeObject:    "object",
	TypeFunction:  "function",
	TypeExternal:  "external",
	TypeBigInt:    "bigint",
}

func (t ValueType) String() string {
	if t >= 0 && int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("valuetype(%d)", int32(t))
}

// ExtendedErrorInfo is the host's record of the last failed operation on an
// EnvPtr. The host keeps exactly one such record per context and the next
// host call may overwrite it.
type ExtendedErrorInfo struct {
	Message         string
	EngineReserved  uintptr
	EngineErrorCode uint32
	Status          Status
}

// Callback is the single fixed signature the host invokes for every native
// function. The host threads the data word given to CreateFunction back
// through GetCbInfo unchanged.
type Callback func(env EnvPtr, info CallbackInfoPtr) ValuePtr

// RegisterFunc populates the exports object of a module when the host loads it.
type RegisterFunc func(env EnvPtr, exports ValuePtr) ValuePtr

// ModuleDescriptor describes a loadable native module to the host loader.
// It is built once and consumed once.
type ModuleDescriptor struct {
	Register   RegisterFunc
	Filename   string
	ModuleName string
	Version    int32
	Flags      uint32
}

// ABI is the host's C contract expressed in Go. Every method maps to exactly
// one host entry point: results come back through out-parameters and the
// return value is the call's status. Callers must fetch GetLastErrorInfo
// before issuing any other call on the same EnvPtr after a non-ok status.
type ABI interface {
	GetLastErrorInfo(env EnvPtr, result *ExtendedErrorInfo) Status

	GetUndefined(env EnvPtr, result *ValuePtr) Status
	GetNull(env EnvPtr, result *ValuePtr) Status
	GetGlobal(env EnvPtr, result *ValuePtr) Status
	GetBoolean(env EnvPtr, value bool, result *ValuePtr) Status
	CreateObject(env EnvPtr, result *ValuePtr) Status
	CreateArray(env EnvPtr, result *ValuePtr) Status
	CreateArrayWithLength(env EnvPtr, length uint32, result *ValuePtr) Status
	CreateDouble(env EnvPtr, value float64, result *ValuePtr) Status
	CreateStringUTF8(env EnvPtr, value string, result *ValuePtr) Status
	CreateFunction(env EnvPtr, name string, cb Callback, data uintptr, result *ValuePtr) Status

	TypeOf(env EnvPtr, value ValuePtr, result *ValueType) Status
	GetValueDouble(env EnvPtr, value ValuePtr, result *float64) Status
	GetValueBool(env EnvPtr, value ValuePtr, result *bool) Status
	// GetValueStringUTF8 reports the byte length in result when buf is nil,
	// otherwise copies at most len(buf)-1 bytes plus a terminating NUL and
	// reports the number of bytes copied.
	GetValueStringUTF8(env EnvPtr, value ValuePtr, buf []byte, result *int) Status

	SetNamedProperty(env EnvPtr, object ValuePtr, name string, value ValuePtr) Status
	GetNamedProperty(env EnvPtr, object ValuePtr, name string, result *ValuePtr) Status
	GetPropertyNames(env EnvPtr, object ValuePtr, result *ValuePtr) Status
	SetElement(env EnvPtr, object ValuePtr, index uint32, value ValuePtr) Status
	GetElement(env EnvPtr, object ValuePtr, index uint32, result *ValuePtr) Status
	IsArray(env EnvPtr, value ValuePtr, result *bool) Status
	GetArrayLength(env EnvPtr, value ValuePtr, result *uint32) Status

	// GetCbInfo fills at most len(argv) argument slots. On return argc holds
	// the number of arguments the host actually supplied, which may exceed
	// len(argv).
	GetCbInfo(env EnvPtr, info CallbackInfoPtr, argc *int, argv []ValuePtr, this *ValuePtr, data *uintptr) Status
	CallFunction(env EnvPtr, recv, fn ValuePtr, args []ValuePtr, result *ValuePtr) Status

	ThrowError(env EnvPtr, code, msg string) Status
	IsExceptionPending(env EnvPtr, result *bool) Status
	GetAndClearLastException(env EnvPtr, result *ValuePtr) Status

	ModuleRegister(mod *ModuleDescriptor) Status
}
