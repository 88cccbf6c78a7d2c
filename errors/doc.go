// Package errors provides the structured error record used across napi-go.
//
// Every failure is categorized by Phase (where it happened) and Kind. Kinds
// mirror the host's status taxonomy exactly, with generic_failure as the
// catch-all for anything the host reports that is not enumerated. Binding-side
// failures (decoding, dispatch) reuse the same kinds so the host sees a
// familiar classification when they are thrown back to it.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindNumberExpected).
//		Path("args[0]").
//		GoType("uint64").
//		HostType("string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FromStatus(status, &info)
//	err := errors.OutOfBounds(errors.PhaseDecode, path, 2, 1)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
