package wasmhost

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/engine"
)

// invoke calls an engine entry point and returns its status. A trap is
// reported as generic_failure and surfaced by the next GetLastErrorInfo.
func (h *Host) invoke(name string, args ...uint64) napi.Status {
	res, err := h.funcs[name].Call(h.context(), args...)
	if err != nil {
		engine.Logger().Debug("engine call trapped", zap.String("export", name), zap.Error(err))
		h.lastTrap = fmt.Errorf("%s: %w", name, err)
		return napi.StatusGenericFailure
	}
	return napi.Status(int32(api.DecodeU32(res[0])))
}

// alloc reserves size bytes of engine memory.
func (h *Host) alloc(size uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	res, err := h.funcs["malloc"].Call(h.context(), api.EncodeU32(size))
	if err != nil {
		return 0, fmt.Errorf("malloc(%d): %w", size, err)
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, fmt.Errorf("malloc(%d): out of memory", size)
	}
	return ptr, nil
}

func (h *Host) free(ptr uint32) {
	if ptr == 0 {
		return
	}
	if _, err := h.funcs["free"].Call(h.context(), api.EncodeU32(ptr)); err != nil {
		engine.Logger().Warn("free failed", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

// frame is a block of engine memory holding the arguments and
// out-parameters of one call.
type frame struct {
	h    *Host
	base uint32
	size uint32
	off  uint32
}

func (h *Host) frame(size uint32) (*frame, error) {
	base, err := h.alloc(size)
	if err != nil {
		h.lastTrap = err
		return nil, err
	}
	return &frame{h: h, base: base, size: size}, nil
}

func (f *frame) release() { f.h.free(f.base) }

// reserve returns the address of n bytes aligned to align.
func (f *frame) reserve(n, align uint32) uint32 {
	f.off = (f.off + align - 1) &^ (align - 1)
	p := f.base + f.off
	f.off += n
	return p
}

// cstring copies s with a terminating NUL and returns its address.
func (f *frame) cstring(s string) uint32 {
	p := f.reserve(uint32(len(s))+1, 1)
	f.h.memory.Write(p, []byte(s))
	f.h.memory.WriteByte(p+uint32(len(s)), 0)
	return p
}

func cstringSize(s string) uint32 { return uint32(len(s)) + 1 }

// readCString reads a NUL-terminated string at p.
func (h *Host) readCString(p uint32) string {
	if p == 0 {
		return ""
	}
	var buf []byte
	for {
		b, ok := h.memory.ReadByte(p + uint32(len(buf)))
		if !ok || b == 0 {
			return string(buf)
		}
		buf = append(buf, b)
	}
}

func (h *Host) readU32(p uint32) uint32 {
	v, _ := h.memory.ReadUint32Le(p)
	return v
}

// outValue calls an entry point whose last parameter receives a value
// handle.
func (h *Host) outValue(name string, result *napi.ValuePtr, args ...uint64) napi.Status {
	return h.outValueFrame(name, 0, nil, result, args...)
}

// outValueFrame is outValue with extra frame space for inputs written by
// fill. fill returns the arguments to pass before the result pointer.
func (h *Host) outValueFrame(name string, extra uint32, fill func(*frame) []uint64, result *napi.ValuePtr, args ...uint64) napi.Status {
	f, err := h.frame(4 + extra)
	if err != nil {
		return napi.StatusGenericFailure
	}
	defer f.release()

	rp := f.reserve(4, 4)
	if fill != nil {
		args = append(args, fill(f)...)
	}
	st := h.invoke(name, append(args, api.EncodeU32(rp))...)
	if st == napi.StatusOK && result != nil {
		*result = napi.ValuePtr(h.readU32(rp))
	}
	return st
}

// outU32 calls an entry point whose last parameter receives a 32-bit value.
func (h *Host) outU32(name string, args ...uint64) (uint32, napi.Status) {
	f, err := h.frame(4)
	if err != nil {
		return 0, napi.StatusGenericFailure
	}
	defer f.release()

	rp := f.reserve(4, 4)
	st := h.invoke(name, append(args, api.EncodeU32(rp))...)
	if st != napi.StatusOK {
		return 0, st
	}
	return h.readU32(rp), st
}

// outBool calls an entry point whose last parameter receives a C bool.
func (h *Host) outBool(name string, args ...uint64) (bool, napi.Status) {
	f, err := h.frame(1)
	if err != nil {
		return false, napi.StatusGenericFailure
	}
	defer f.release()

	rp := f.reserve(1, 1)
	h.memory.WriteByte(rp, 0)
	st := h.invoke(name, append(args, api.EncodeU32(rp))...)
	if st != napi.StatusOK {
		return false, st
	}
	b, _ := h.memory.ReadByte(rp)
	return b != 0, st
}

func u32(v napi.ValuePtr) uint64  { return api.EncodeU32(uint32(v)) }
func envArg(e napi.EnvPtr) uint64 { return api.EncodeU32(uint32(e)) }
