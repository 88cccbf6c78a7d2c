// Package wasmhost implements napi.ABI over a JavaScript engine compiled to
// WebAssembly and run by wazero.
//
// The engine module uses the wasm32 N-API calling convention: every napi_*
// entry point is an export taking i32 handles and pointers and returning an
// i32 status, with results written to out-parameters in the module's linear
// memory. In addition the engine must export:
//
//	memory                    linear memory
//	malloc(size i32) i32      allocation used for strings and out-parameters
//	free(ptr i32)
//	napi_go_env() i32         the engine's main napi_env (optional)
//
// Native functions are called back through a single import the Host
// provides:
//
//	napi_go.callback(cb i32, env i32, info i32) i32
//
// where cb is the value the Host passed to napi_create_function as both the
// callback and its data. The Host maps it back to the Go callback.
//
// A Host is bound to one engine instance and, like the engine itself, is
// not safe for concurrent use.
package wasmhost
