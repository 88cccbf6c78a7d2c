package simhost

import (
	"fmt"
	"sync"

	"github.com/wippyai/napi-go"
)

// Config configures a simulated host.
type Config struct {
	// Trace records the name of every ABI call. See Host.Trace.
	Trace bool

	// MaxValues bounds the number of live values per context.
	// Zero means no limit.
	MaxValues int
}

// Host is an in-process implementation of napi.ABI.
//
// Host is safe for concurrent use across contexts. A single context must be
// driven from one goroutine at a time, matching the host runtimes it stands
// in for.
type Host struct {
	cfg     Config
	envs    map[napi.EnvPtr]*env
	modules map[string]*napi.ModuleDescriptor
	order   []string
	faults  map[string]fault
	trace   []string
	nextEnv napi.EnvPtr
	mu      sync.RWMutex
}

type fault struct {
	message    string
	status     napi.Status
	engineCode uint32
}

// New creates a simulated host. A nil cfg uses defaults.
func New(cfg *Config) *Host {
	h := &Host{
		envs:    make(map[napi.EnvPtr]*env),
		modules: make(map[string]*napi.ModuleDescriptor),
		faults:  make(map[string]fault),
	}
	if cfg != nil {
		h.cfg = *cfg
	}
	return h
}

// NewEnv creates a fresh execution context with its own global object.
func (h *Host) NewEnv() napi.EnvPtr {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextEnv++
	ptr := h.nextEnv
	h.envs[ptr] = newEnv(h.cfg.MaxValues)
	return ptr
}

// CloseEnv drops a context and every value it holds.
func (h *Host) CloseEnv(ptr napi.EnvPtr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.envs, ptr)
}

// FailNext makes the next call to the named ABI method fail with status.
// The failure is visible through GetLastErrorInfo like any host failure.
func (h *Host) FailNext(op string, status napi.Status, message string, engineCode uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults[op] = fault{status: status, message: message, engineCode: engineCode}
}

// Trace returns the recorded ABI call names and resets the record.
func (h *Host) Trace() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.trace
	h.trace = nil
	return out
}

// Modules returns the names of registered modules in registration order.
func (h *Host) Modules() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.order...)
}

// enter resolves the context for op, records the call, and consumes an
// injected fault for op if one is armed.
func (h *Host) enter(ptr napi.EnvPtr, op string) (*env, *fault) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg.Trace {
		h.trace = append(h.trace, op)
	}
	e := h.envs[ptr]
	if f, ok := h.faults[op]; ok {
		delete(h.faults, op)
		return e, &f
	}
	return e, nil
}

// Exception is returned by Call and Load when native code left a host
// exception pending.
type Exception struct {
	Value   any
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
// and returns its exports object, the way a host module loader would.
func (h *Host) Load(ptr napi.EnvPtr, name string) (napi.ValuePtr, error) {
	h.mu.RLock()
	desc, ok := h.modules[name]
	h.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("module %q not registered", name)
	}

	e := h.lookup(ptr)
	if e == nil {
		return 0, fmt.Errorf("unknown context %s", ptr)
	}
	exports, err := e.alloc(value{kind: napi.TypeObject, obj: newObject()})
	if err != nil {
		return 0, err
	}

	result := desc.Register(ptr, exports)
	if exc := e.takeException(); exc != nil {
		return 0, exc
	}
	if !result.IsNull() {
		exports = result
	}
	return exports, nil
}

// Call invokes a host function value from the host side. A pending exception
// after the call is returned as *Exception.
func (h *Host) Call(ptr napi.EnvPtr, fn, this napi.ValuePtr, args ...napi.ValuePtr) (napi.ValuePtr, error) {
	e := h.lookup(ptr)
	if e == nil {
		return 0, fmt.Errorf("unknown context %s", ptr)
	}
	if this.IsNull() {
		this = e.undefined
	}

	var result napi.ValuePtr
	if st := h.CallFunction(ptr, this, fn, args, &result); st != napi.StatusOK {
		if exc := e.takeException(); exc != nil {
			return 0, exc
		}
		return 0, fmt.Errorf("call failed: %s: %s", st, e.lastErr.Message)
	}
	return result, nil
}

func (h *Host) lookup(ptr napi.EnvPtr) *env {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.envs[ptr]
}

var statusMessages = map[napi.Status]string{
	napi.StatusInvalidArg:       "Invalid argument",
	napi.StatusObjectExpected:   "An object was expected",
	napi.StatusStringExpected:   "A string was expected",
	napi.StatusNameExpected:     "A string or symbol was expected",
	napi.StatusFunctionExpected: "A function was expected",
	napi.StatusNumberExpected:   "A number was expected",
	napi.StatusBooleanExpected:  "A boolean was expected",
	napi.StatusArrayExpected:    "An array was expected",
	napi.StatusGenericFailure:   "Unknown failure",
	napi.StatusPendingException: "An exception is pending",
	napi.StatusCancelled:        "The async work item was cancelled",
}
