//go:build !wslscriptmock

// This file contains the implementation of testutils geared towards the real back-end.

package wslscript_test

import (
	"context"
	"testing"

	"github.com/sop/wslscript/mock"
	"github.com/stretchr/testify/require"
)

// testContext creates a context that will instruct wslscript to use the
// right back-end based on whether it was built with mocking enabled.
func testContext(ctx context.Context) context.Context {
	return ctx
}

// setupBackend returns the context unchanged. The modifier must never be
// called: tests that need it have to skip when the mock is unavailable.
//
//nolint:revive // No, I won't put the context before the *testing.T.
func setupBackend(t *testing.T, ctx context.Context) (context.Context, func(t *testing.T, f func(m *mock.Backend))) {
	t.Helper()

	modify := func(t *testing.T, f func(m *mock.Backend)) {
		t.Helper()
		require.Fail(t, "modifyMock is only available with the mock enabled")
	}
	return ctx, modify
}
