//go:build !wslscriptmock

package wslscript

import (
	"context"

	"github.com/sop/wslscript/internal/backend"
	"github.com/sop/wslscript/internal/backend/windows"
)

func selectBackend(ctx context.Context) backend.Backend {
	return windows.Backend{}
}

// MockAvailable returns whether the package was built with mocking enabled.
func MockAvailable() bool {
	return false
}
