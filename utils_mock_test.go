//go:build wslscriptmock

// This file contains the implementation of testutils geared towards the mock back-end.

package wslscript_test

import (
	"context"
	"testing"

	"github.com/sop/wslscript"
	"github.com/sop/wslscript/mock"
)

// testContext creates a context that will instruct wslscript to use the
// right back-end based on whether it was built with mocking enabled.
func testContext(ctx context.Context) context.Context {
	return wslscript.WithMock(ctx, mock.New())
}

// setupBackend creates a context with a fresh mocked back-end attached, plus
// a function to inspect or modify that back-end mid-test.
//
//nolint:revive // No, I won't put the context before the *testing.T.
func setupBackend(t *testing.T, ctx context.Context) (context.Context, func(t *testing.T, f func(m *mock.Backend))) {
	t.Helper()

	m := mock.New()
	modify := func(t *testing.T, f func(m *mock.Backend)) {
		t.Helper()
		f(m)
	}
	return wslscript.WithMock(ctx, m), modify
}
