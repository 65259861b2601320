package windows

import (
	"context"
	"errors"

	"github.com/sop/wslscript/internal/backend"
)

// WslOutput runs a bash command inside WSL and captures its stdout.
// This implementation will always fail on Linux.
func (Backend) WslOutput(ctx context.Context, distro string, command string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

// StartDetached spawns the WSL host process detached.
// This implementation will always fail on Linux.
func (Backend) StartDetached(distro string, command string, interactive bool) (backend.Process, error) {
	return nil, errors.New("not implemented")
}
