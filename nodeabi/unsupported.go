//go:build !(darwin || freebsd || (linux && (amd64 || arm64)))

package nodeabi

import (
	"fmt"
	"runtime"

	"github.com/wippyai/napi-go"
)

// ABI is unavailable on this platform.
type ABI struct {
	napi.ABI
}

// Load always fails on this platform.
func Load() (*ABI, error) {
	return nil, fmt.Errorf("nodeabi: unsupported platform %s/%s", runtime.GOOS, runtime.GOARCH)
}
