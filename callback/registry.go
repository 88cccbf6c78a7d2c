package callback

import (
	"fmt"
	"strconv"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/transcoder"
	"go.uber.org/zap"
)

type binding struct {
	name string
	fn   *Function
}

// Registry holds the Go functions handed to one host. The handle of each
// entry is the callback data the host threads back to Trampoline.
type Registry struct {
	abi     napi.ABI
	table   *resource.Table[binding]
	maxArgs int
}

// NewRegistry creates a registry for functions called through abi.
func NewRegistry(abi napi.ABI, cfg *Config) *Registry {
	r := &Registry{
		abi:     abi,
		table:   resource.NewTable[binding](),
		maxArgs: cfg.maxArgs(),
	}
	r.table.Subscribe(resource.ObserverFunc[binding](func(e resource.Event[binding]) {
		if ce := Logger().Check(zap.DebugLevel, "function "+e.Type.String()); ce != nil {
			ce.Write(zap.String("name", e.Value.name), zap.Uint32("handle", uint32(e.Handle)))
		}
	}))
	return r
}

// ABI returns the host the registry dispatches for.
func (r *Registry) ABI() napi.ABI { return r.abi }

// MaxArgs returns the per-call argument capacity.
func (r *Registry) MaxArgs() int { return r.maxArgs }

// Register stores fn under name and returns its handle.
func (r *Registry) Register(name string, fn *Function) (resource.Handle, error) {
	if fn == nil {
		return 0, errors.InvalidInput(errors.PhaseRegister, "nil function "+strconv.Quote(name))
	}
	h := r.table.Insert(binding{name: name, fn: fn})
	if h == 0 {
		return 0, errors.New(errors.PhaseRegister, errors.KindGenericFailure).
			Detail("registry closed").
			Build()
	}
	return h, nil
}

// Unregister removes a function. It fails while a call through the handle
// is in progress.
func (r *Registry) Unregister(h resource.Handle) error {
	_, err := r.table.Remove(h)
	return err
}

// Lookup returns the name and function registered under h.
func (r *Registry) Lookup(h resource.Handle) (string, *Function, bool) {
	b, ok := r.table.Get(h)
	return b.name, b.fn, ok
}

// Names returns the names of registered functions in handle order.
func (r *Registry) Names() []string {
	var names []string
	r.table.Each(func(_ resource.Handle, b binding) bool {
		names = append(names, b.name)
		return true
	})
	return names
}

// Len returns the number of registered functions.
func (r *Registry) Len() int { return r.table.Len() }

// Close drops every registered function.
func (r *Registry) Close() error { return r.table.Close() }

// NewFunction registers fn and creates a host function value that calls it.
func (r *Registry) NewFunction(env engine.Env, name string, fn *Function) (napi.ValuePtr, error) {
	h, err := r.Register(name, fn)
	if err != nil {
		return 0, err
	}
	v, err := r.CreateFunction(env, name, h)
	if err != nil {
		_ = r.Unregister(h)
		return 0, err
	}
	return v, nil
}

// CreateFunction creates a host function value dispatching to the function
// registered under h. The registration is left in place on failure.
func (r *Registry) CreateFunction(env engine.Env, name string, h resource.Handle) (napi.ValuePtr, error) {
	v, err := env.CreateFunction(name, r.Trampoline, uintptr(h))
	if err != nil {
		return 0, fmt.Errorf("create function %q: %w", name, err)
	}
	return v, nil
}

// Trampoline is the napi.Callback shared by every registered function.
// It never returns an error to the host: failures are thrown and the
// trampoline returns undefined, or 0 if undefined cannot be obtained.
func (r *Registry) Trampoline(envPtr napi.EnvPtr, info napi.CallbackInfoPtr) napi.ValuePtr {
	env := engine.New(r.abi, envPtr)
	result, name, err := r.dispatch(env, info)
	if err == nil {
		return result
	}
	return r.fail(env, name, err)
}

func (r *Registry) dispatch(env engine.Env, info napi.CallbackInfoPtr) (napi.ValuePtr, string, error) {
	var stack [MaxArgs]napi.ValuePtr
	argv := stack[:]
	if r.maxArgs > MaxArgs {
		argv = make([]napi.ValuePtr, r.maxArgs)
	} else {
		argv = argv[:r.maxArgs]
	}

	frame, err := env.CallbackInfo(info, argv)
	if err != nil {
		return 0, "", err
	}
	if frame.Argc > len(argv) {
		return 0, "", errors.TooManyArguments(frame.Argc, len(argv))
	}

	h := resource.Handle(frame.Data)
	if uintptr(h) != frame.Data {
		return 0, "", errors.NotFound(errors.PhaseDispatch, "function", strconv.FormatUint(uint64(frame.Data), 10))
	}
	b, release, ok := r.table.Acquire(h)
	if !ok {
		return 0, "", errors.NotFound(errors.PhaseDispatch, "function", strconv.FormatUint(uint64(frame.Data), 10))
	}
	defer release()

	if ce := Logger().Check(zap.DebugLevel, "native call"); ce != nil {
		ce.Write(zap.String("function", b.name), zap.Int("argc", frame.Argc))
	}

	out, err := b.fn.Call(env, frame.This, argv[:frame.Argc])
	if err != nil {
		return 0, b.name, err
	}
	if out == nil {
		v, err := env.Undefined()
		return v, b.name, err
	}
	v, err := transcoder.Encode(env, out)
	return v, b.name, err
}

func (r *Registry) fail(env engine.Env, name string, err error) napi.ValuePtr {
	Logger().Debug("native call failed", zap.String("function", name), zap.Error(err))

	pending, perr := env.IsExceptionPending()
	if perr != nil || !pending {
		code, msg := errors.Throwable(err)
		if terr := env.ThrowError(code, msg); terr != nil {
			Logger().Warn("throw failed",
				zap.String("function", name),
				zap.Error(terr),
				zap.NamedError("cause", err))
		}
	}

	undefined, uerr := env.Undefined()
	if uerr != nil {
		return 0
	}
	return undefined
}
