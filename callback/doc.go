// Package callback bridges host calls into Go functions.
//
// Every native function the host sees is the same Trampoline with a
// registry handle as its callback data. On each call the trampoline reads
// the arguments into a fixed-capacity buffer, looks the Go function up by
// handle, decodes the arguments, invokes the function and encodes the
// result. Failures never unwind into the host: they are thrown as host
// Error objects and the trampoline returns undefined.
//
// Functions are built in one of two ways:
//
//	// typed argument list and result
//	add := callback.Func(func(env engine.Env, this napi.ValuePtr, args transcoder.Args1[uint64]) (uint64, error) {
//		return args.A + args.A, nil
//	})
//
//	// plain Go function, decoded positionally by reflection
//	greet, err := callback.Reflect(func(name string) string { return "hi " + name })
package callback
