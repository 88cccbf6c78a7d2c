package engine

import (
	"go.uber.org/zap"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/errors"
)

// Check converts the status of a host call that just returned into an error.
//
// Check must receive the status of the most recent host call on this Env: on
// failure it reads the host's last error record, which the next call would
// overwrite. The usual shape is env.Check(env.ABI().Call(env.Ptr(), ...)).
func (e Env) Check(status napi.Status) error {
	if status == napi.StatusOK {
		return nil
	}

	var info napi.ExtendedErrorInfo
	if fetch := e.abi.GetLastErrorInfo(e.ptr, &info); fetch != napi.StatusOK {
		Logger().Warn("get last error info failed",
			zap.Stringer("status", status),
			zap.Stringer("fetch_status", fetch))
		return errors.LastErrorUnavailable(status, fetch)
	}

	err := errors.FromStatus(status, &info)
	Logger().Debug("host call failed",
		zap.Stringer("env", e.ptr),
		zap.String("kind", string(err.Kind)),
		zap.Uint32("engine_code", err.EngineCode),
		zap.String("message", err.Detail))
	return err
}

// either passes value through when status is ok and otherwise returns the
// host's error record.
func either[T any](e Env, status napi.Status, value T) (T, error) {
	if err := e.Check(status); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}
