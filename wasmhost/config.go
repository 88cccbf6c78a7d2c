package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
)

// Config holds configuration for Host creation. A nil Config uses defaults.
type Config struct {
	// MemoryLimitPages sets the maximum engine memory in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32

	// CallbackModule names the host module providing the callback import.
	// Empty means "napi_go".
	CallbackModule string

	// EnvExport names the export returning the engine's napi_env.
	// Empty means "napi_go_env".
	EnvExport string

	// Setup instantiates any further host modules the engine imports before
	// the engine itself is instantiated.
	Setup func(ctx context.Context, r wazero.Runtime) error
}

func (c *Config) callbackModule() string {
	if c == nil || c.CallbackModule == "" {
		return "napi_go"
	}
	return c.CallbackModule
}

func (c *Config) envExport() string {
	if c == nil || c.EnvExport == "" {
		return "napi_go_env"
	}
	return c.EnvExport
}
