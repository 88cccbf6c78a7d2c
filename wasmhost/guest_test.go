package wasmhost

import (
	"github.com/tetratelabs/wazero/api"
)

// guestImport is one function the test guest imports and re-exports.
type guestImport struct {
	module, name, export string
	params, results      []api.ValueType
}

// buildGuest encodes a module that imports each function in imports,
// exports a same-signature forwarder for it under export, and exports one
// page of memory as "memory".
func buildGuest(imports []guestImport) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	n := uint32(len(imports))

	var types []byte
	types = appendU32(types, n)
	for _, imp := range imports {
		types = append(types, 0x60)
		types = appendU32(types, uint32(len(imp.params)))
		types = append(types, imp.params...)
		types = appendU32(types, uint32(len(imp.results)))
		types = append(types, imp.results...)
	}
	out = appendSection(out, 1, types)

	var imps []byte
	imps = appendU32(imps, n)
	for i, imp := range imports {
		imps = appendName(imps, imp.module)
		imps = appendName(imps, imp.name)
		imps = append(imps, 0x00)
		imps = appendU32(imps, uint32(i))
	}
	out = appendSection(out, 2, imps)

	var funcs []byte
	funcs = appendU32(funcs, n)
	for i := range imports {
		funcs = appendU32(funcs, uint32(i))
	}
	out = appendSection(out, 3, funcs)

	// one page minimum, no maximum
	out = appendSection(out, 5, []byte{0x01, 0x00, 0x01})

	var exports []byte
	exports = appendU32(exports, n+1)
	exports = appendName(exports, "memory")
	exports = append(exports, 0x02, 0x00)
	for i, imp := range imports {
		exports = appendName(exports, imp.export)
		exports = append(exports, 0x00)
		exports = appendU32(exports, n+uint32(i))
	}
	out = appendSection(out, 7, exports)

	var code []byte
	code = appendU32(code, n)
	for i, imp := range imports {
		body := []byte{0x00} // no locals
		for j := range imp.params {
			body = append(body, 0x20) // local.get
			body = appendU32(body, uint32(j))
		}
		body = append(body, 0x10) // call
		body = appendU32(body, uint32(i))
		body = append(body, 0x0b) // end
		code = appendU32(code, uint32(len(body)))
		code = append(code, body...)
	}
	return appendSection(out, 10, code)
}

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = appendU32(out, uint32(len(payload)))
	return append(out, payload...)
}

func appendName(out []byte, s string) []byte {
	out = appendU32(out, uint32(len(s)))
	return append(out, s...)
}

func appendU32(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
