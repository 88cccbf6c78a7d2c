// Package engine provides the handle primitives of the host ABI.
//
// An Env pairs a host context handle with the ABI that produced it. Every
// method forwards to exactly one host entry point, captures the
// out-parameter, and turns a non-ok status into an *errors.Error through the
// status bridge.
//
// # Status Bridge
//
// The host keeps a single "last error" record per context, and the next host
// call may overwrite it. Env.Check therefore issues GetLastErrorInfo as the
// very next call after a failure and nothing else:
//
//	v, err := env.Object()
//	if err != nil {
//	    // err is an *errors.Error with Kind, EngineCode and the host message
//	}
//
// Calling the raw ABI directly is supported as long as the status is passed
// straight into Check:
//
//	if err := env.Check(env.ABI().SetElement(env.Ptr(), arr, 0, v)); err != nil {
//	    return err
//	}
//
// # Lifetime
//
// An Env is only valid during the host callback that created it. Do not store
// it or any napi.ValuePtr obtained through it beyond that call.
package engine
