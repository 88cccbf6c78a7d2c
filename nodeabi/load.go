//go:build darwin || freebsd || (linux && (amd64 || arm64))

package nodeabi

import (
	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/addon"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/errors"
	"go.uber.org/zap"
)

// InitDefault initializes addon.Default into exports. It is what the load
// hook runs; it returns 0 after throwing when the module cannot load.
func InitDefault(env napi.EnvPtr, exports napi.ValuePtr) napi.ValuePtr {
	abi, err := Load()
	if err != nil {
		addon.Logger().Error("node bindings unavailable", zap.Error(err))
		return 0
	}

	desc, err := addon.Default.Descriptor(abi)
	if err != nil {
		addon.Logger().Error("module declaration invalid",
			zap.String("module", addon.Default.Name()),
			zap.Error(err))
		if terr := engine.New(abi, env).ThrowError(string(errors.KindGenericFailure), err.Error()); terr != nil {
			addon.Logger().Warn("throw failed", zap.Error(terr))
		}
		return 0
	}
	return desc.Register(env, exports)
}
