// Package addon declares native modules and registers them with a host.
//
// A Module is an ordered list of named Go functions. When the host loads
// the module, Init creates one host function per export, in declaration
// order, and attaches it to the exports object:
//
//	mod := addon.New("helloworld").
//		Export("add", add).
//		Export("hello", hello)
//
//	if err := addon.Register(abi, mod); err != nil {
//		log.Fatal(err)
//	}
//
// Hosts that look the module up by symbol at load time use Default, which
// packages populate with Declare from an init function.
package addon
