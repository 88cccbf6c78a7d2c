package wasmhost

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/transcoder"
)

// entryPoints lists the engine exports the ABI calls.
var entryPoints = []string{
	"napi_get_last_error_info",
	"napi_get_undefined",
	"napi_get_null",
	"napi_get_global",
	"napi_get_boolean",
	"napi_create_object",
	"napi_create_array",
	"napi_create_array_with_length",
	"napi_create_double",
	"napi_create_string_utf8",
	"napi_create_function",
	"napi_typeof",
	"napi_get_value_double",
	"napi_get_value_bool",
	"napi_get_value_string_utf8",
	"napi_set_named_property",
	"napi_get_named_property",
	"napi_get_property_names",
	"napi_set_element",
	"napi_get_element",
	"napi_is_array",
	"napi_get_array_length",
	"napi_get_cb_info",
	"napi_call_function",
	"napi_throw_error",
	"napi_is_exception_pending",
	"napi_get_and_clear_last_exception",
	"malloc",
	"free",
}

type slot struct {
	cb   napi.Callback
	data uintptr
}

// Host runs an engine module and exposes it as a napi.ABI.
type Host struct {
	runtime wazero.Runtime
	module  api.Module
	memory  api.Memory
	funcs   map[string]api.Function
	env     api.Function

	ctx      context.Context
	lastTrap error
	slots    *resource.Table[slot]

	mu      sync.RWMutex
	modules map[string]*napi.ModuleDescriptor
}

var _ napi.ABI = (*Host)(nil)

// New compiles and instantiates the engine module.
func New(ctx context.Context, wasm []byte, cfg *Config) (*Host, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	h := &Host{
		runtime: r,
		ctx:     ctx,
		funcs:   make(map[string]api.Function, len(entryPoints)),
		slots:   resource.NewTable[slot](),
		modules: make(map[string]*napi.ModuleDescriptor),
	}

	if err := h.init(ctx, wasm, cfg); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	return h, nil
}

func (h *Host) init(ctx context.Context, wasm []byte, cfg *Config) error {
	_, err := h.runtime.NewHostModuleBuilder(cfg.callbackModule()).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.callback),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("callback").
		Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate callback module: %w", err)
	}

	if cfg != nil && cfg.Setup != nil {
		if err := cfg.Setup(ctx, h.runtime); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}

	compiled, err := h.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}
	mod, err := h.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return fmt.Errorf("instantiate engine: %w", err)
	}
	h.module = mod

	if h.memory = mod.Memory(); h.memory == nil {
		return fmt.Errorf("engine module exports no memory")
	}
	var missing []string
	for _, name := range entryPoints {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			missing = append(missing, name)
			continue
		}
		h.funcs[name] = fn
	}
	if len(missing) > 0 {
		return fmt.Errorf("engine module is missing exports: %v", missing)
	}
	h.env = mod.ExportedFunction(cfg.envExport())
	return nil
}

// SetContext sets the context used for calls into the engine.
func (h *Host) SetContext(ctx context.Context) {
	h.ctx = ctx
}

// Close releases the engine and its runtime.
func (h *Host) Close(ctx context.Context) error {
	_ = h.slots.Close()
	return h.runtime.Close(ctx)
}

// Env returns the engine's main napi_env.
func (h *Host) Env() (napi.EnvPtr, error) {
	if h.env == nil {
		return 0, fmt.Errorf("engine module does not export an env accessor")
	}
	res, err := h.env.Call(h.context())
	if err != nil {
		return 0, fmt.Errorf("get env: %w", err)
	}
	return napi.EnvPtr(uint32(res[0])), nil
}

// Slots returns the number of Go callbacks created through the host.
func (h *Host) Slots() int { return h.slots.Len() }

// Modules returns the names of registered modules, sorted.
func (h *Host) Modules() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.modules))
	for name := range h.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Host) context() context.Context {
	if h.ctx == nil {
		return context.Background()
	}
	return h.ctx
}

// callback is the napi_go.callback import.
func (h *Host) callback(_ context.Context, _ api.Module, stack []uint64) {
	cb := resource.Handle(api.DecodeU32(stack[0]))
	env := napi.EnvPtr(api.DecodeU32(stack[1]))
	info := napi.CallbackInfoPtr(api.DecodeU32(stack[2]))

	s, ok := h.slots.Get(cb)
	if !ok {
		engine.Logger().Warn("callback for unknown slot", zap.Uint32("slot", uint32(cb)))
		stack[0] = 0
		return
	}
	stack[0] = api.EncodeU32(uint32(s.cb(env, info)))
}

// Exception is returned by Load and Call when the engine reports an
// uncaught exception.
type Exception struct {
	Message string
	Code    string
}

func (e *Exception) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("uncaught exception [%s]: %s", e.Code, e.Message)
	}
	return "uncaught exception: " + e.Message
}

// Load runs the registration function of the module registered under name
// against a fresh exports object.
func (h *Host) Load(env napi.EnvPtr, name string) (napi.ValuePtr, error) {
	h.mu.RLock()
	desc, ok := h.modules[name]
	h.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("module %q not registered", name)
	}

	e := engine.New(h, env)
	exports, err := e.Object()
	if err != nil {
		return 0, err
	}
	result := desc.Register(env, exports)
	if exc := h.takeException(e); exc != nil {
		return 0, exc
	}
	if result.IsNull() {
		return 0, fmt.Errorf("module %q: registration returned no exports", name)
	}
	return result, nil
}

// Call invokes fn with this (undefined when 0) and args from the embedder.
func (h *Host) Call(env napi.EnvPtr, fn, this napi.ValuePtr, args ...napi.ValuePtr) (napi.ValuePtr, error) {
	e := engine.New(h, env)
	if this.IsNull() {
		undefined, err := e.Undefined()
		if err != nil {
			return 0, err
		}
		this = undefined
	}
	res, err := e.CallFunction(this, fn, args...)
	if exc := h.takeException(e); exc != nil {
		return 0, exc
	}
	return res, err
}

func (h *Host) takeException(e engine.Env) *Exception {
	pending, err := e.IsExceptionPending()
	if err != nil || !pending {
		return nil
	}
	v, err := e.GetAndClearLastException()
	if err != nil {
		return &Exception{Message: err.Error()}
	}

	var shape struct {
		Message *string
		Code    *string
	}
	if err := transcoder.Decode(e, v, &shape); err != nil {
		if s, serr := e.StringValue(v); serr == nil {
			return &Exception{Message: s}
		}
		return &Exception{Message: "non-error exception"}
	}
	exc := &Exception{}
	if shape.Message != nil {
		exc.Message = *shape.Message
	}
	if shape.Code != nil {
		exc.Code = *shape.Code
	}
	return exc
}
