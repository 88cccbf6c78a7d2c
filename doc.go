// Package napi defines the host ABI that napi-go binds against.
//
// napi-go lets Go code expose functions and data to a host runtime that
// speaks a Node-API style C interface: opaque handles, out-parameters,
// integer status codes and a fixed callback signature. The host owns
// process lifetime, garbage collection and module loading; this library
// only adapts to it.
//
// # Architecture Overview
//
//	napi/             Root package with the ABI contract and handle types
//	├── errors/       Structured error records and the status taxonomy
//	├── engine/       Handle primitives and the status/error bridge
//	├── transcoder/   Conversion between Go values and host values
//	├── resource/     Handle tables (closure registry)
//	├── callback/     Trampoline from the fixed host callback to typed Go funcs
//	├── addon/        Module descriptors and export registration
//	├── nodeabi/      Real host binding (purego, cgo load hook)
//	├── wasmhost/     Host engine running inside wazero
//	├── simhost/      In-process simulated host
//	└── cmd/run/      Interactive harness
//
// # Quick Start
//
// Declare a module and its exports:
//
//	mod := addon.New("helloworld")
//	mod.Export("add", func(a uint64) uint64 { return a + a })
//	mod.Export("hello", callback.Func(func(env engine.Env, this napi.ValuePtr, _ transcoder.NoArgs) (Hello, error) {
//	    return Hello{Foo: "HELLO", Bar: 23}, nil
//	}))
//
// Then hand it to the host, either through the platform load hook in
// nodeabi or explicitly:
//
//	if err := addon.Register(abi, mod); err != nil {
//	    log.Fatal(err)
//	}
//
// # Handle Lifetime
//
// EnvPtr and ValuePtr handles are only meaningful during the host callback
// that produced them. Never cache them across calls or compare handles from
// different contexts.
//
// # Numbers
//
// The host represents every number as a float64. Integers therefore
// round-trip exactly only within ±2^53.
package napi
