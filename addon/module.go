package addon

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/callback"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/resource"
	"go.uber.org/zap"
)

// Export is one named function of a module.
type Export struct {
	Name     string
	Function *callback.Function
}

// Def builds an Export from a *callback.Function or a plain Go function.
// It panics if fn cannot be wrapped; it is meant for package-level
// declarations.
func Def(name string, fn any, opts ...callback.Option) Export {
	return Export{Name: name, Function: callback.MustReflect(fn, opts...)}
}

// Module is a native module: a name and its exports in declaration order.
// Declaration errors are kept and reported by Err, Descriptor and Init.
type Module struct {
	mu       sync.RWMutex
	name     string
	exports  []Export
	names    map[string]struct{}
	err      error
	registry *callback.Registry
}

// New creates an empty module.
func New(name string) *Module {
	return &Module{
		name:  name,
		names: make(map[string]struct{}),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// WithRegistry makes Init create functions through r instead of the shared
// registry of the host's ABI.
func (m *Module) WithRegistry(r *callback.Registry) *Module {
	m.mu.Lock()
	m.registry = r
	m.mu.Unlock()
	return m
}

// Export adds fn under name. fn is a *callback.Function or a plain Go
// function wrapped with callback.Reflect.
func (m *Module) Export(name string, fn any, opts ...callback.Option) *Module {
	f, err := callback.Reflect(fn, opts...)
	if err != nil {
		m.setErr(errors.Registration(m.Name(), name, err))
		return m
	}
	return m.Add(Export{Name: name, Function: f})
}

// Add appends already built exports.
func (m *Module) Add(exports ...Export) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range exports {
		if err := m.validate(e); err != nil {
			if m.err == nil {
				m.err = err
			}
			continue
		}
		m.names[e.Name] = struct{}{}
		m.exports = append(m.exports, e)
	}
	return m
}

func (m *Module) validate(e Export) error {
	switch {
	case e.Name == "":
		return errors.Registration(m.name, e.Name, errors.InvalidInput(errors.PhaseRegister, "export name cannot be empty"))
	case strings.IndexByte(e.Name, 0) >= 0:
		return errors.Registration(m.name, e.Name, errors.InvalidString(errors.PhaseRegister, nil, e.Name))
	case e.Function == nil:
		return errors.Registration(m.name, e.Name, errors.InvalidInput(errors.PhaseRegister, "nil function"))
	}
	if _, dup := m.names[e.Name]; dup {
		return errors.Registration(m.name, e.Name, errors.InvalidInput(errors.PhaseRegister, "duplicate export"))
	}
	return nil
}

func (m *Module) setErr(err error) {
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.mu.Unlock()
}

// Err returns the first declaration error, if any.
func (m *Module) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Exports returns the declared exports in order.
func (m *Module) Exports() []Export {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Export(nil), m.exports...)
}

// Lookup returns the export declared under name.
func (m *Module) Lookup(name string) (Export, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}

// Init populates exports with one function value per declared export, in
// declaration order. The first failure aborts the load.
func (m *Module) Init(env engine.Env, exports napi.ValuePtr) error {
	if err := m.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	name, list, reg := m.name, append([]Export(nil), m.exports...), m.registry
	m.mu.RUnlock()
	if reg == nil {
		reg = Registry(env.ABI())
	}

	handles := make([]resource.Handle, 0, len(list))
	for _, e := range list {
		if err := bindExport(env, reg, exports, e, &handles); err != nil {
			for _, h := range handles {
				_ = reg.Unregister(h)
			}
			return errors.Registration(name, e.Name, err)
		}
	}

	Logger().Debug("module initialized", zap.String("module", name), zap.Int("exports", len(list)))
	return nil
}

// bindExport registers e, records its handle and sets the function on exports.
func bindExport(env engine.Env, reg *callback.Registry, exports napi.ValuePtr, e Export, handles *[]resource.Handle) error {
	h, err := reg.Register(e.Name, e.Function)
	if err != nil {
		return err
	}
	*handles = append(*handles, h)
	fn, err := reg.CreateFunction(env, e.Name, h)
	if err != nil {
		return err
	}
	return env.SetNamedProperty(exports, e.Name, fn)
}

// Descriptor builds the descriptor the host loader consumes. Its register
// function runs Init; on failure it throws the error and returns 0.
func (m *Module) Descriptor(abi napi.ABI) (*napi.ModuleDescriptor, error) {
	if abi == nil {
		return nil, errors.InvalidInput(errors.PhaseRegister, "nil ABI")
	}
	if err := m.Err(); err != nil {
		return nil, err
	}
	name := m.Name()
	if strings.IndexByte(name, 0) >= 0 {
		return nil, errors.InvalidString(errors.PhaseRegister, []string{"module"}, name)
	}

	return &napi.ModuleDescriptor{
		Version:    napi.ModuleVersion,
		ModuleName: name,
		Filename:   name,
		Register: func(envPtr napi.EnvPtr, exports napi.ValuePtr) napi.ValuePtr {
			env := engine.New(abi, envPtr)
			if err := m.Init(env, exports); err != nil {
				Logger().Error("module load failed", zap.String("module", name), zap.Error(err))
				throwLoadError(env, err)
				return 0
			}
			return exports
		},
	}, nil
}

func throwLoadError(env engine.Env, err error) {
	if pending, perr := env.IsExceptionPending(); perr == nil && pending {
		return
	}
	code, msg := errors.Throwable(err)
	if terr := env.ThrowError(code, msg); terr != nil {
		Logger().Warn("throw failed", zap.Error(terr))
	}
}

// Register hands mod to the host loader through abi.
func Register(abi napi.ABI, mod *Module) error {
	desc, err := mod.Descriptor(abi)
	if err != nil {
		return err
	}
	if st := abi.ModuleRegister(desc); st != napi.StatusOK {
		return errors.Wrap(errors.PhaseRegister, errors.KindFromStatus(st), nil,
			fmt.Sprintf("host rejected module %q: %s", desc.ModuleName, st))
	}
	Logger().Debug("module registered", zap.String("module", desc.ModuleName))
	return nil
}
