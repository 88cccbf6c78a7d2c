package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/addon"
	"github.com/wippyai/napi-go/callback"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/simhost"
	"github.com/wippyai/napi-go/transcoder"
	"github.com/wippyai/napi-go/wasmhost"
)

// host is an ABI that can also load registered modules and call functions
// from the embedder side.
type host interface {
	napi.ABI
	Load(env napi.EnvPtr, name string) (napi.ValuePtr, error)
	Call(env napi.EnvPtr, fn, this napi.ValuePtr, args ...napi.ValuePtr) (napi.ValuePtr, error)
}

// session is a module loaded into one host context.
type session struct {
	host     host
	hostName string
	env      engine.Env
	module   *addon.Module
	exports  napi.ValuePtr
	closer   func(context.Context) error
}

// openSession registers mod with a simulated host, or with the wasm engine
// at enginePath when set, and loads it.
func openSession(ctx context.Context, mod *addon.Module, enginePath string) (*session, error) {
	s := &session{module: mod}

	var envPtr napi.EnvPtr
	if enginePath == "" {
		sim := simhost.New(nil)
		envPtr = sim.NewEnv()
		s.host, s.hostName = sim, "simulated host"
		s.closer = func(context.Context) error { return nil }
	} else {
		data, err := os.ReadFile(enginePath)
		if err != nil {
			return nil, fmt.Errorf("read engine: %w", err)
		}
		wh, err := wasmhost.New(ctx, data, nil)
		if err != nil {
			return nil, fmt.Errorf("load engine: %w", err)
		}
		if envPtr, err = wh.Env(); err != nil {
			_ = wh.Close(ctx)
			return nil, err
		}
		s.host, s.hostName = wh, enginePath
		s.closer = wh.Close
	}
	s.env = engine.New(s.host, envPtr)

	if err := addon.Register(s.host, mod); err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("register: %w", err)
	}
	exports, err := s.host.Load(envPtr, mod.Name())
	if err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("load %s: %w", mod.Name(), err)
	}
	s.exports = exports
	return s, nil
}

// Close releases the module's functions and the host.
func (s *session) Close(ctx context.Context) error {
	if err := addon.Release(s.host); err != nil {
		return err
	}
	return s.closer(ctx)
}

// Call invokes the named export with arguments given as text and renders
// the result.
func (s *session) Call(name string, args []string) (string, error) {
	export, ok := s.module.Lookup(name)
	if !ok {
		return "", fmt.Errorf("no export named %q", name)
	}
	fn, err := s.env.GetNamedProperty(s.exports, name)
	if err != nil {
		return "", err
	}

	values := make([]napi.ValuePtr, len(args))
	for i, text := range args {
		arg, err := parseArg(text, paramType(export.Function, i))
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		if values[i], err = transcoder.Encode(s.env, arg); err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
	}

	res, err := s.host.Call(s.env.Ptr(), fn, 0, values...)
	if err != nil {
		return "", err
	}
	var out any
	if err := transcoder.Decode(s.env, res, &out); err != nil {
		return "", fmt.Errorf("result: %w", err)
	}
	return formatValue(out), nil
}

// paramType returns the declared type of parameter i, or nil when the
// function does not declare one.
func paramType(fn *callback.Function, i int) reflect.Type {
	params := fn.Params()
	if i < len(params) {
		return params[i].Type
	}
	return nil
}

// parseArg converts command-line text to a Go value for a parameter of type
// t. Scalars follow the parameter's wit type; anything else is read as JSON,
// falling back to the raw string.
func parseArg(text string, t reflect.Type) (any, error) {
	if t != nil {
		if w, err := transcoder.Describe(t); err == nil {
			if v, ok, err := parseScalar(text, w); ok {
				return v, err
			}
		}
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text, nil
	}
	return v, nil
}

func parseScalar(text string, t wit.Type) (any, bool, error) {
	switch t.(type) {
	case wit.String:
		return text, true, nil
	case wit.Bool:
		v, err := strconv.ParseBool(text)
		return v, true, err
	case wit.U8, wit.U16, wit.U32, wit.U64:
		v, err := strconv.ParseUint(text, 10, 64)
		return v, true, err
	case wit.S8, wit.S16, wit.S32, wit.S64:
		v, err := strconv.ParseInt(text, 10, 64)
		return v, true, err
	case wit.F32, wit.F64:
		v, err := strconv.ParseFloat(text, 64)
		return v, true, err
	default:
		return nil, false, nil
	}
}

// formatValue renders a decoded host value as JSON, or with %v when it has
// no JSON form.
func formatValue(v any) string {
	if v == nil {
		return "undefined"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSpace(string(data))
}
