package wslscript_test

import (
	"context"
	"testing"

	"github.com/sop/wslscript"
	"github.com/sop/wslscript/mock"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := wslscript.DefaultOptions()
	require.Equal(t, wslscript.HoldError, opts.HoldMode, "default hold mode should be holding on error")
	require.False(t, opts.Interactive, "default shell should be non-interactive")
	require.Empty(t, opts.Distribution, "default distribution should be unset")
}

func TestOptionsFromArgs(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		args []string

		want wslscript.Options
	}{
		"No arguments":     {want: wslscript.DefaultOptions()},
		"Hold mode always": {args: []string{"-h", "always"}, want: wslscript.Options{HoldMode: wslscript.HoldAlways}},
		"Hold mode never":  {args: []string{"-h", "never"}, want: wslscript.Options{HoldMode: wslscript.HoldNever}},
		"Interactive":      {args: []string{"-i"}, want: wslscript.Options{HoldMode: wslscript.HoldError, Interactive: true}},
		"Distribution":     {args: []string{"-d", "Ubuntu"}, want: wslscript.Options{HoldMode: wslscript.HoldError, Distribution: "Ubuntu"}},
		"All options combined": {
			args: []string{"-h", "never", "-i", "-d", "Ubuntu"},
			want: wslscript.Options{HoldMode: wslscript.HoldNever, Interactive: true, Distribution: "Ubuntu"},
		},

		"Unknown hold mode keeps the default": {args: []string{"-h", "sometimes"}, want: wslscript.DefaultOptions()},
		"Unknown tokens are skipped":          {args: []string{"--verbose", "-x", "-i"}, want: wslscript.Options{HoldMode: wslscript.HoldError, Interactive: true}},
		"Trailing flag without value":         {args: []string{"-d"}, want: wslscript.DefaultOptions()},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := testContext(context.Background())

			got := wslscript.OptionsFromArgs(ctx, tc.args)
			require.Equal(t, tc.want, got, "resolved options mismatch")
		})
	}
}

func TestOptionsFromArgsWithRegisteredExtension(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, _ := setupBackend(t, context.Background())

	require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{
		Extension:   "lua",
		HoldMode:    wslscript.HoldNever,
		Interactive: true,
	}), "Setup: Register should have succeeded")

	// The registered configuration wins over any other token.
	got := wslscript.OptionsFromArgs(ctx, []string{"-h", "always", "--ext", "lua", "-d", "Ubuntu"})
	require.Equal(t, wslscript.Options{HoldMode: wslscript.HoldNever, Interactive: true}, got,
		"the persisted configuration should replace the other tokens")

	// An unregistered extension falls back to the surrounding tokens.
	got = wslscript.OptionsFromArgs(ctx, []string{"--ext", "py", "-h", "always"})
	require.Equal(t, wslscript.Options{HoldMode: wslscript.HoldAlways}, got,
		"an unregistered extension should not short-circuit parsing")
}

func TestOptionsFromExt(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ubuntu, err := wslscript.ParseDistroID(ubuntuGUID)
	require.NoError(t, err, "Setup: could not parse test GUID")
	stale, err := wslscript.ParseDistroID(staleGUID)
	require.NoError(t, err, "Setup: could not parse test GUID")

	testCases := map[string]struct {
		distro *wslscript.DistroID

		wantDistribution string
	}{
		"Success without a distribution":   {},
		"Success resolving the GUID":       {distro: &ubuntu, wantDistribution: "Ubuntu"},
		"Stale GUID falls back to default": {distro: &stale},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, modifyMock := setupBackend(t, context.Background())
			modifyMock(t, func(m *mock.Backend) {
				m.RegisterDistro("Ubuntu", ubuntuGUID)
			})

			require.NoError(t, wslscript.Register(ctx, wslscript.ExtConfig{
				Extension: "lua",
				HoldMode:  wslscript.HoldAlways,
				Distro:    tc.distro,
			}), "Setup: Register should have succeeded")

			opts, err := wslscript.OptionsFromExt(ctx, "lua")
			require.NoError(t, err, "OptionsFromExt should have succeeded")
			require.Equal(t, wslscript.HoldAlways, opts.HoldMode, "hold mode should come from the record")
			require.Equal(t, tc.wantDistribution, opts.Distribution, "distribution resolution mismatch")
		})
	}
}

func TestOptionsFromExtNotRegistered(t *testing.T) {
	if !wslscript.MockAvailable() {
		t.Skip("This test is only available with the mock enabled")
	}
	t.Parallel()

	ctx, _ := setupBackend(t, context.Background())

	opts, err := wslscript.OptionsFromExt(ctx, "lua")
	require.ErrorIs(t, err, wslscript.ErrNotRegistered, "unregistered extensions should be reported as such")
	require.Equal(t, wslscript.DefaultOptions(), opts, "defaults should accompany the error")
}
