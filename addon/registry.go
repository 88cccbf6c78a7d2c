package addon

import (
	"sync"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/callback"
	"github.com/wippyai/napi-go/engine"
)

var (
	registriesMu sync.Mutex
	registries   = make(map[napi.ABI]*callback.Registry)
)

// Registry returns the shared function registry for abi, creating it with
// default settings on first use.
func Registry(abi napi.ABI) *callback.Registry {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	r, ok := registries[abi]
	if !ok {
		r = callback.NewRegistry(abi, nil)
		registries[abi] = r
	}
	return r
}

// Release closes and forgets the shared registry of abi. Function values
// created through it stop resolving.
func Release(abi napi.ABI) error {
	registriesMu.Lock()
	r, ok := registries[abi]
	delete(registries, abi)
	registriesMu.Unlock()
	if !ok {
		return nil
	}
	return r.Close()
}

// NewFunction creates a standalone host function value for fn, for
// returning functions from native code or attaching them to objects other
// than a module's exports.
func NewFunction(env engine.Env, name string, fn any, opts ...callback.Option) (napi.ValuePtr, error) {
	f, err := callback.Reflect(fn, opts...)
	if err != nil {
		return 0, err
	}
	return Registry(env.ABI()).NewFunction(env, name, f)
}

// Default is the module a symbol-based load hook initializes.
var Default = New("")

// Declare names Default and appends exports to it.
func Declare(name string, exports ...Export) *Module {
	Default.mu.Lock()
	Default.name = name
	Default.mu.Unlock()
	return Default.Add(exports...)
}
