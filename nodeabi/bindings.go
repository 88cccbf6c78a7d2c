//go:build darwin || freebsd || (linux && (amd64 || arm64))

package nodeabi

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/wippyai/napi-go"
)

// cErrorInfo mirrors napi_extended_error_info.
type cErrorInfo struct {
	message         *byte
	engineReserved  uintptr
	engineErrorCode uint32
	errorCode       napi.Status
}

// cModule mirrors napi_module.
type cModule struct {
	version  int32
	flags    uint32
	filename *byte
	register uintptr
	modname  *byte
	priv     uintptr
	reserved [4]uintptr
}

var (
	bindingsOnce sync.Once
	bindingsErr  error

	napi_get_last_error_info func(env napi.EnvPtr, result **cErrorInfo) napi.Status

	napi_get_undefined            func(env napi.EnvPtr, result *napi.ValuePtr) napi.Status
	napi_get_null                 func(env napi.EnvPtr, result *napi.ValuePtr) napi.Status
	napi_get_global               func(env napi.EnvPtr, result *napi.ValuePtr) napi.Status
	napi_get_boolean              func(env napi.EnvPtr, value bool, result *napi.ValuePtr) napi.Status
	napi_create_object            func(env napi.EnvPtr, result *napi.ValuePtr) napi.Status
	napi_create_array             func(env napi.EnvPtr, result *napi.ValuePtr) napi.Status
	napi_create_array_with_length func(env napi.EnvPtr, length uintptr, result *napi.ValuePtr) napi.Status
	napi_create_double            func(env napi.EnvPtr, value float64, result *napi.ValuePtr) napi.Status
	napi_create_string_utf8       func(env napi.EnvPtr, str *byte, length uintptr, result *napi.ValuePtr) napi.Status
	napi_create_function          func(env napi.EnvPtr, name *byte, length uintptr, cb uintptr, data uintptr, result *napi.ValuePtr) napi.Status

	napi_typeof                func(env napi.EnvPtr, value napi.ValuePtr, result *napi.ValueType) napi.Status
	napi_get_value_double      func(env napi.EnvPtr, value napi.ValuePtr, result *float64) napi.Status
	napi_get_value_bool        func(env napi.EnvPtr, value napi.ValuePtr, result *bool) napi.Status
	napi_get_value_string_utf8 func(env napi.EnvPtr, value napi.ValuePtr, buf *byte, bufsize uintptr, result *uintptr) napi.Status

	napi_set_named_property func(env napi.EnvPtr, object napi.ValuePtr, name *byte, value napi.ValuePtr) napi.Status
	napi_get_named_property func(env napi.EnvPtr, object napi.ValuePtr, name *byte, result *napi.ValuePtr) napi.Status
	napi_get_property_names func(env napi.EnvPtr, object napi.ValuePtr, result *napi.ValuePtr) napi.Status
	napi_set_element        func(env napi.EnvPtr, object napi.ValuePtr, index uint32, value napi.ValuePtr) napi.Status
	napi_get_element        func(env napi.EnvPtr, object napi.ValuePtr, index uint32, result *napi.ValuePtr) napi.Status
	napi_is_array           func(env napi.EnvPtr, value napi.ValuePtr, result *bool) napi.Status
	napi_get_array_length   func(env napi.EnvPtr, value napi.ValuePtr, result *uint32) napi.Status

	napi_get_cb_info   func(env napi.EnvPtr, info napi.CallbackInfoPtr, argc *uintptr, argv *napi.ValuePtr, this *napi.ValuePtr, data *uintptr) napi.Status
	napi_call_function func(env napi.EnvPtr, recv, fn napi.ValuePtr, argc uintptr, argv *napi.ValuePtr, result *napi.ValuePtr) napi.Status

	napi_throw_error                  func(env napi.EnvPtr, code *byte, msg *byte) napi.Status
	napi_is_exception_pending         func(env napi.EnvPtr, result *bool) napi.Status
	napi_get_and_clear_last_exception func(env napi.EnvPtr, result *napi.ValuePtr) napi.Status

	napi_module_register func(mod *cModule)

	malloc func(size uintptr) unsafe.Pointer
)

// ensureBindingsLoaded resolves every N-API symbol from the process image.
// It fails when the process is not a Node.js host.
func ensureBindingsLoaded() error {
	bindingsOnce.Do(func() {
		symbols := []struct {
			fptr any
			name string
		}{
			{&napi_get_last_error_info, "napi_get_last_error_info"},
			{&napi_get_undefined, "napi_get_undefined"},
			{&napi_get_null, "napi_get_null"},
			{&napi_get_global, "napi_get_global"},
			{&napi_get_boolean, "napi_get_boolean"},
			{&napi_create_object, "napi_create_object"},
			{&napi_create_array, "napi_create_array"},
			{&napi_create_array_with_length, "napi_create_array_with_length"},
			{&napi_create_double, "napi_create_double"},
			{&napi_create_string_utf8, "napi_create_string_utf8"},
			{&napi_create_function, "napi_create_function"},
			{&napi_typeof, "napi_typeof"},
			{&napi_get_value_double, "napi_get_value_double"},
			{&napi_get_value_bool, "napi_get_value_bool"},
			{&napi_get_value_string_utf8, "napi_get_value_string_utf8"},
			{&napi_set_named_property, "napi_set_named_property"},
			{&napi_get_named_property, "napi_get_named_property"},
			{&napi_get_property_names, "napi_get_property_names"},
			{&napi_set_element, "napi_set_element"},
			{&napi_get_element, "napi_get_element"},
			{&napi_is_array, "napi_is_array"},
			{&napi_get_array_length, "napi_get_array_length"},
			{&napi_get_cb_info, "napi_get_cb_info"},
			{&napi_call_function, "napi_call_function"},
			{&napi_throw_error, "napi_throw_error"},
			{&napi_is_exception_pending, "napi_is_exception_pending"},
			{&napi_get_and_clear_last_exception, "napi_get_and_clear_last_exception"},
			{&napi_module_register, "napi_module_register"},
			{&malloc, "malloc"},
		}

		for _, s := range symbols {
			sym, err := purego.Dlsym(purego.RTLD_DEFAULT, s.name)
			if err != nil {
				bindingsErr = fmt.Errorf("nodeabi: resolve %s: %w", s.name, err)
				return
			}
			purego.RegisterFunc(s.fptr, sym)
		}
	})
	return bindingsErr
}
