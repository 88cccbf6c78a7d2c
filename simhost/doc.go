// Package simhost is an in-process host runtime that implements napi.ABI.
//
// It keeps a value arena per execution context, a last-error record that
// every call sets or clears, a pending-exception slot, and the per-call
// frames that GetCbInfo reads. Native callbacks created with CreateFunction
// run synchronously when the function is called.
//
// simhost exists to drive the binding layer without a real engine: tests use
// it together with fault injection and call tracing, and cmd/run uses it to
// load addons interactively.
//
//	h := simhost.New(&simhost.Config{Trace: true})
//	env := h.NewEnv()
//	if err := addon.Register(h, mod); err != nil { ... }
//	exports, err := h.Load(env, "helloworld")
//
// Status messages mirror the wording of Node's last-error strings.
package simhost
