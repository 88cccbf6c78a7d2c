// Package resource provides handle tables for Go values that the host
// refers to by integer.
//
// The host can only carry a pointer-sized data word alongside a native
// function. Go closures cannot cross that boundary, so they are stored in a
// Table and the host receives the Handle instead:
//
//	table := resource.NewTable[*Function]()
//
//	// Store a value, get a handle
//	handle := table.Insert(fn)
//
//	// Retrieve value by handle
//	fn, ok := table.Get(handle)
//
//	// Pin it for the duration of a call
//	fn, release, ok := table.Acquire(handle)
//	defer release()
//
// # Handles
//
// Handles are 1-based indexes into an arena. Handle 0 is never issued, so a
// zero data word always means "no entry". Freed slots are reused.
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc[*Function](func(e resource.Event[*Function]) {
//	    log.Printf("%s %d", e.Type, e.Handle)
//	}))
//
// # Memory Management
//
// Entries are not garbage collected. Call Remove when the host no longer
// refers to a handle, or Close to release everything at once.
package resource
