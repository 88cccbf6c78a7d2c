package addon

import (
	"reflect"
	"sort"

	"github.com/wippyai/napi-go/callback"
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/transcoder"
)

// Exporter lets a value passed to ExportHost choose its export names.
type Exporter interface {
	Exports() map[string]any
}

// ExportHost exports the methods of h. Values implementing Exporter are
// exported by the names they return, sorted; otherwise every exported
// method is exported under its lowerCamelCase name.
func (m *Module) ExportHost(h any, opts ...callback.Option) *Module {
	if h == nil {
		m.setErr(errors.InvalidInput(errors.PhaseRegister, "host cannot be nil"))
		return m
	}

	if ex, ok := h.(Exporter); ok {
		funcs := ex.Exports()
		names := make([]string, 0, len(funcs))
		for name := range funcs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m.Export(name, funcs[name], opts...)
		}
		return m
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() {
			continue
		}
		m.Export(transcoder.LowerCamel(method.Name), rv.Method(i).Interface(), opts...)
	}
	return m
}
