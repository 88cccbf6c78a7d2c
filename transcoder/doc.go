// Package transcoder converts between Go values and host values.
//
// The host sees every value through an opaque handle; this package walks Go
// values with reflection and builds the matching host values through
// engine.Env, and reads host values back into typed Go values.
//
//	┌──────────────────────────────────────────────────────────┐
//	│ Go value ←→ [Transcoder] ←→ engine.Env ←→ host handle    │
//	└──────────────────────────────────────────────────────────┘
//
// # Capabilities
//
// Types can take over their own conversion:
//
//	IntoValue     produce one host value (return values, fields)
//	FromValue     decode from one host value
//	FromValues    decode from a call's receiver and argument list
//
// Argument lists may also implement ArityDeclarer. The callback layer
// checks the declared Arity before decoding; lists without one check
// counts themselves.
//
// # Argument Lists
//
//	NoArgs              any number of arguments, none read
//	Args1[A]            exactly one
//	Args2[A, B]         exactly two
//	Args3[A, B, C]      exactly three
//
// Arg[T] decodes one positional argument and fails with invalid_arg for an
// index past the supplied arguments.
//
// # Structs
//
// Structs become objects whose properties are attached in field declaration
// order. Property names default to the lowerCamelCase field name and can be
// set with a napi tag:
//
//	type Hello struct {
//	    Foo   string `napi:"foo"`
//	    Bar   uint32
//	    Skip  int    `napi:"-"`
//	    Extra string `napi:"extra,omitempty"`
//	}
//
// The Compiler caches one field plan per struct type.
//
// # Numbers
//
// The host has one number type, a float64. Integers encode exactly within
// ±MaxSafeInteger (2^53-1). Beyond it they round to the nearest float64,
// a known boundary of the host; Encoder.WithStrictIntegers rejects them
// instead. Decoding into an
// integer rejects fractional values and values outside the target range.
//
// # Dynamic Values
//
// An empty interface decodes to the JSON-shaped form (nil, bool, float64,
// string, []any, map[string]any), and the same shapes encode back.
//
// # Describing Types
//
// Describe maps Go types onto the WIT type model so export signatures can be
// printed and typed input parsed:
//
//	add(a: u64) -> u64
//	hello() -> hello
//
// # Thread Safety
//
// Compiler, Encoder and Decoder are safe for concurrent use. Values they
// produce are bound to the Env of the current call.
//
// # Error Handling
//
// Errors use the structured types from the errors package:
//
//	[decode] number_expected at args[0]: Go type uint64, host type string
//	[decode] invalid_arg at args[2]: index 2 out of bounds (length 1)
package transcoder
