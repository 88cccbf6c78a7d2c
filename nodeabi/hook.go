//go:build cgo && (darwin || freebsd || (linux && (amd64 || arm64)))

package nodeabi

/*
#include <stdint.h>
*/
import "C"

import "github.com/wippyai/napi-go"

// apiVersion is the N-API version the bindings need.
const apiVersion = 8

//export napi_register_module_v1
func napi_register_module_v1(env, exports C.uintptr_t) C.uintptr_t {
	return C.uintptr_t(InitDefault(napi.EnvPtr(env), napi.ValuePtr(exports)))
}

//export node_api_module_get_api_version_v1
func node_api_module_get_api_version_v1() C.int32_t {
	return apiVersion
}
