// Package nodeabi binds napi.ABI to the N-API symbols of the running
// Node.js process.
//
// Symbols are resolved at runtime with purego, so the package needs no C
// toolchain to build. A single C callback dispatches every native function
// created through the ABI; the callback data Node sees is a slot handle
// that maps back to the Go callback and its data word.
//
// When built with cgo the package also exports napi_register_module_v1,
// which Node calls when it loads the shared library. The hook initializes
// addon.Default:
//
//	go build -buildmode=c-shared -o mymodule.node ./cmd/mymodule
package nodeabi
